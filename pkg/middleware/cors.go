package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// corsMaxAge はプリフライト結果をブラウザにキャッシュさせる期間。
const corsMaxAge = 24 * time.Hour

// 管理APIが受け付けるメソッドとヘッダー。
const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Authorization, Content-Type, X-Request-ID"
	corsExposeHeaders = "X-Request-ID"
)

// CORS は管理コンソールからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// allowedOriginsに "*" を含めると任意のオリジンを許可する。
// プリフライト（OPTIONS）はここで204を返して終端するため、オリジンへ中継するルートには適用しないこと。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAny := slices.Contains(allowedOrigins, "*")
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))

	return func(c *gin.Context) {
		// 許可判定がOriginに依存するため、共有キャッシュに区別させる
		c.Writer.Header().Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" && (allowAny || slices.Contains(allowedOrigins, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
