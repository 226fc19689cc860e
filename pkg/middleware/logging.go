package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/purgerelay/pkg/logger"
)

// RequestLogger はリクエストごとに1行の構造化ログを出力するGinミドルウェアを返す。
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("リクエストを処理しました", fields...)
		case status >= 400:
			log.Warn("リクエストを処理しました", fields...)
		default:
			log.Info("リクエストを処理しました", fields...)
		}
	}
}
