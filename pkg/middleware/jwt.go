package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は管理APIトークンの発行者。
const tokenIssuer = "purge-relay"

// DefaultTokenTTL は管理APIトークンの既定の有効期間。
const DefaultTokenTTL = 24 * time.Hour

// JWTClaims は管理APIトークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// Operator は手動パージなどを実行するオペレーターの識別子。
	Operator string `json:"operator"`
}

// headerKeyOperator は認証済みオペレーターをレスポンスに示すHTTPヘッダーキー。
const headerKeyOperator = "X-Operator"

// contextKeyOperator はGinコンテキストにオペレーターを格納するキー。
const contextKeyOperator = "operator"

// GenerateJWT はオペレーター用のJWTトークンを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。
func GenerateJWT(secret, operator string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		Operator: operator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "operator" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Operator == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyOperator, claims.Operator)
		c.Header(headerKeyOperator, claims.Operator)
		c.Next()
	}
}

// GetOperator はGinコンテキストからオペレーターを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetOperator(c *gin.Context) string {
	v, _ := c.Get(contextKeyOperator)
	if op, ok := v.(string); ok {
		return op
	}
	return ""
}
