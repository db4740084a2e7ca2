package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hello-kubecon/internal/metrics"
)

/**
 * HTTP请求统计中间件
 * @description
 * - 统计HTTP服务器收到的请求数量
 * - 记录请求处理时间
 * - 状态码 >= 400 计为失败请求
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// 使用路由模板作为标签，避免路径参数导致标签膨胀
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := c.Writer.Status()
		metrics.ObserveRequest(path, strconv.Itoa(status), time.Since(start).Seconds(), status >= 400)
	}
}
