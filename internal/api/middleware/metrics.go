package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"club-manager/backend/pkg/metrics"
)

// Metrics 按路由模板记录请求数与耗时；未匹配的路由归入 "unmatched"
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
