package site

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/utils"
)

/**
 * Fetcher 下载站点压缩包并替换目标目录
 * @property {string} URL - Archive URL
 * @property {string} StorageDir - Storage root, the target and staging dirs live here
 * @property {string} ArchiveRoot - Top level directory inside the archive
 * @property {string} TargetName - Directory name of the site under StorageDir
 * @property {*http.Client} Client - HTTP client, nil uses http.DefaultClient
 */
type Fetcher struct {
	URL         string
	StorageDir  string
	ArchiveRoot string
	TargetName  string
	Client      *http.Client
}

func (f *Fetcher) Source() string {
	return f.URL
}

// Target is where the site content lives after a successful fetch
func (f *Fetcher) Target() string {
	return filepath.Join(f.StorageDir, f.TargetName)
}

// Exists reports whether a site has been fetched before
func (f *Fetcher) Exists() bool {
	st, err := os.Stat(f.Target())
	return err == nil && st.IsDir()
}

/**
 * Fetch 下载并解压站点
 * @param {context.Context} ctx - Cancels the download
 * @returns {error} Download, extraction or filesystem error
 * @description
 * - 下载到临时文件
 * - 解压到存储目录下的临时目录，避免跨设备rename
 * - 删除旧的目标目录，再把压缩包根目录移动到目标位置
 * - 临时文件和临时目录总会被清理
 */
func (f *Fetcher) Fetch(ctx context.Context) error {
	if err := os.MkdirAll(f.StorageDir, 0755); err != nil {
		return fmt.Errorf("create storage dir '%s': %w", f.StorageDir, err)
	}

	tmp, err := os.CreateTemp("", "hello-kubecon-site-*.zip")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	n, err := utils.GetFile(ctx, f.Client, f.URL, tmpPath)
	if err != nil {
		return err
	}
	logger.Debugf("Downloaded %d bytes from %s", n, f.URL)

	staging, err := os.MkdirTemp(f.StorageDir, ".staging-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extract(tmpPath, staging); err != nil {
		return err
	}

	src := filepath.Join(staging, f.ArchiveRoot)
	if st, err := os.Stat(src); err != nil || !st.IsDir() {
		return fmt.Errorf("archive has no top level directory '%s'", f.ArchiveRoot)
	}

	target := f.Target()
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove old site '%s': %w", target, err)
	}
	if err := os.Rename(src, target); err != nil {
		return fmt.Errorf("move site into '%s': %w", target, err)
	}
	logger.Infof("Site extracted to %s", target)
	return nil
}

// extract unpacks a zip archive into dir, rejecting entries that escape it
func extract(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, file := range r.File {
		dest := filepath.Join(dir, file.Name)
		if !strings.HasPrefix(dest+string(os.PathSeparator), root) {
			return fmt.Errorf("archive entry '%s' escapes the extraction dir", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("extract '%s': %w", file.Name, err)
			}
			continue
		}
		if err := extractFile(file, dest); err != nil {
			return fmt.Errorf("extract '%s': %w", file.Name, err)
		}
	}
	return nil
}

func extractFile(file *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
