// Package config はリレーサービスの設定を読み込む。
//
// 優先順位は 環境変数（PURGE_RELAY_ 接頭辞）> 設定ファイル（relay.yaml）> 既定値。
// Cloudflareの認証情報とゾーンIDは必ず外部から与える。
package config

import (
	"time"
)

// EnvPrefix は環境変数の接頭辞。
const EnvPrefix = "PURGE_RELAY"

// DefaultPurgePrefixes はパージ対象の既定URLプレフィックス。
var DefaultPurgePrefixes = []string{
	"beta-user.prismaxserver.com/get_blockchain_config_address",
	"user.prismaxserver.com/get_blockchain_config_address",
}

// Config はサービス全体の設定。
type Config struct {
	// Environment は実行環境名（development, production など）。
	Environment string `mapstructure:"environment"`
	// Port はHTTPサーバーのリッスンポート。
	Port int `mapstructure:"port"`
	// LogLevel はログレベル（debug, info, warn, error）。
	LogLevel string `mapstructure:"log_level"`

	Origin     OriginConfig     `mapstructure:"origin"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Admin      AdminConfig      `mapstructure:"admin"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

// OriginConfig はリレー先オリジンの設定。
type OriginConfig struct {
	// URL はオリジンのベースURL。受信したパスとクエリを連結して転送する。
	URL string `mapstructure:"url"`
	// Timeout はオリジンへのリクエストのタイムアウト。
	Timeout time.Duration `mapstructure:"timeout"`
}

// CloudflareConfig はキャッシュパージAPIの設定。
type CloudflareConfig struct {
	// APIBase はAPIのベースURL。
	APIBase string `mapstructure:"api_base"`
	// ZoneID はパージ対象のゾーンID。
	ZoneID string `mapstructure:"zone_id"`
	// AuthEmail はグローバルAPIキーに紐づくメールアドレス。
	AuthEmail string `mapstructure:"auth_email"`
	// APIKey はグローバルAPIキー。
	APIKey string `mapstructure:"api_key"`
	// APIToken はスコープ付きAPIトークン。設定時はAPIキーより優先する。
	APIToken string `mapstructure:"api_token"`
	// Prefixes はパージ対象のURLプレフィックス。
	Prefixes []string `mapstructure:"prefixes"`
	// Timeout はパージAPI呼び出しのタイムアウト。
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuditConfig は監査ログの設定。
type AuditConfig struct {
	// Enabled がfalseの場合は監査ログを記録しない。
	Enabled bool `mapstructure:"enabled"`
	// DSN はSQLiteの接続文字列。
	DSN string `mapstructure:"dsn"`
}

// AdminConfig は管理APIの設定。
type AdminConfig struct {
	// Enabled がfalseの場合は管理APIを公開しない。
	Enabled bool `mapstructure:"enabled"`
	// JWTSecret は管理APIのJWT署名用秘密鍵。
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CORSConfig はCORSの設定。
type CORSConfig struct {
	// AllowedOrigins は許可するオリジン。空の場合はCORSヘッダーを付与しない。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
