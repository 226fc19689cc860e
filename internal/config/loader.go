package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load は既定値、設定ファイル、環境変数の順に設定を読み込む。
func Load() (*Config, error) {
	return load(viper.New(), "")
}

// LoadFile は指定した設定ファイルを読み込む。環境変数による上書きも適用する。
func LoadFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/purge-relay/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		// 設定ファイルが無い場合は環境変数と既定値で続行する
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return &cfg, nil
}

// setDefaults は既定値を設定する。
// AutomaticEnvはUnmarshal時に既知のキーしか参照しないため、環境変数で与える
// キーも含めてすべてここで登録しておく。
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("origin.url", "")
	v.SetDefault("origin.timeout", "30s")

	v.SetDefault("cloudflare.api_base", "https://api.cloudflare.com/client/v4")
	v.SetDefault("cloudflare.zone_id", "")
	v.SetDefault("cloudflare.auth_email", "")
	v.SetDefault("cloudflare.api_key", "")
	v.SetDefault("cloudflare.api_token", "")
	v.SetDefault("cloudflare.prefixes", DefaultPurgePrefixes)
	v.SetDefault("cloudflare.timeout", "30s")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dsn", "/data/purge-relay.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")

	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.jwt_secret", "")

	v.SetDefault("cors.allowed_origins", []string{})
}
