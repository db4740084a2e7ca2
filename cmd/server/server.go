package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"hello-kubecon/cmd/root"
	"hello-kubecon/controllers"
	"hello-kubecon/internal/config"
	"hello-kubecon/internal/logger"
	"hello-kubecon/internal/middleware"
	"hello-kubecon/services"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Long:  `启动守护进程：注册ingress，必要时下载站点，按配置启动gosherve，并在TCP地址和unix socket上提供API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startServer(ctx, &config.Config)
	},
}

func newRouter(server *services.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	controllers.NewAPIController(server).RegisterRoutes(router)
	controllers.NewEventController(server).RegisterRoutes(router)
	controllers.NewServiceController(server).RegisterRoutes(router)
	return router
}

/**
 * Run the server until ctx is cancelled
 * @param {context.Context} ctx - Cancelled by SIGINT/SIGTERM
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {error} Startup error
 * @description
 * - 在所有监听地址上提供API
 * - 后台执行install/config-changed并自动启动服务
 * - 退出时关闭HTTP服务并停止所有服务进程
 */
func startServer(ctx context.Context, cfg *config.AppConfig) error {
	gin.SetMode(cfg.Server.Mode)

	server, err := services.NewServer(ctx, cfg, services.DefaultDeps(cfg))
	if err != nil {
		return err
	}

	addrs := []ListenAddr{{Network: "tcp", Address: cfg.Server.Address}}
	if cfg.Server.Socket != "" {
		if addr, err := unixSocketAddr(cfg.Server.Socket); err != nil {
			logger.Warnf("Unix socket disabled: %v", err)
		} else {
			addrs = append(addrs, addr)
		}
	}
	listeners, err := CreateListeners(addrs)
	if len(listeners) == 0 {
		return fmt.Errorf("no listener available: %w", err)
	}

	httpServer := &http.Server{Handler: newRouter(server)}
	var wg sync.WaitGroup
	for _, l := range listeners {
		wg.Add(1)
		go func(l net.Listener) {
			defer wg.Done()
			logger.Infof("Listening on %s://%s", l.Addr().Network(), l.Addr().String())
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("Serve on %s failed: %v", l.Addr().String(), err)
			}
		}(l)
	}

	go func() {
		server.Init(ctx)
		server.StartAllService(ctx)
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	wg.Wait()
	server.StopAllService(shutdownCtx)
	if cfg.Server.Socket != "" {
		os.Remove(cfg.Server.Socket)
	}
	logger.Info("Server exited")
	return nil
}

func init() {
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Example = `  hello-kubecon server
  hello-kubecon server -c /etc/hello-kubecon/config.yaml`
}
