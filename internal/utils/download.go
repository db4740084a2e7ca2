package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

/**
 *	从服务器获取一个文件
 *	@param {context.Context} ctx - Cancels the download
 *	@param {*http.Client} client - HTTP client, nil uses http.DefaultClient
 *	@param {string} urlStr - Remote file URL
 *	@param {string} savePath - Local file to create or truncate
 *	@returns {int64} Number of bytes written
 *	@returns {error} Request, status or write error
 */
func GetFile(ctx context.Context, client *http.Client, urlStr string, savePath string) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return 0, fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}

	rsp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		rspBody, _ := io.ReadAll(io.LimitReader(rsp.Body, 512))
		return 0, fmt.Errorf("GetFile('%s') code: %d, error: %s",
			urlStr, rsp.StatusCode, string(rspBody))
	}

	if err = os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return 0, fmt.Errorf("GetFile('%s'): MkdirAll('%s') error: %w", urlStr, savePath, err)
	}
	out, err := os.Create(savePath)
	if err != nil {
		return 0, fmt.Errorf("GetFile('%s'): create('%s') error: %w", urlStr, savePath, err)
	}
	defer out.Close()

	// 将响应流和文件流对接起来
	n, err := io.Copy(out, rsp.Body)
	if err != nil {
		return n, fmt.Errorf("GetFile('%s'): copy error: %w", urlStr, err)
	}
	return n, nil
}
