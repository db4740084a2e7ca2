package root

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hello-kubecon/internal/config"
	"hello-kubecon/internal/env"
	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/rpc"
)

var configPath string

var RootCmd = &cobra.Command{
	Use:   "hello-kubecon",
	Short: "gosherve 工作负载管理器",
	Long:  `hello-kubecon 下载站点内容，根据配置生成gosherve的服务层，并在配置变化时重启服务`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := config.Reload(configPath); err != nil {
				return fmt.Errorf("load config '%s' failed: %w", configPath, err)
			}
		}
		cfg := &config.Config
		logger.InitLogger(cfg.Log.Path, cfg.Log.Level, env.Daemon)
		return nil
	},
	SilenceUsage: true,
}

/**
 * Create rpc client to the running server
 * @param {time.Duration} timeout - Request timeout, 0 waits forever
 * @returns {rpc.HTTPClient} Client dialing the unix socket or the tcp address
 */
func Client(timeout time.Duration) rpc.HTTPClient {
	c := rpc.DefaultHTTPConfig()
	c.Timeout = timeout
	return rpc.NewHTTPClient(c)
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or $HELLO_KUBECON_DIR/config.yaml)")
}
