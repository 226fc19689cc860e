package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate は設定値の整合性を検証する。
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port が範囲外です: %d", cfg.Port))
	}

	if cfg.Origin.URL == "" {
		errs = append(errs, errors.New("origin.url は必須です"))
	} else if u, err := url.Parse(cfg.Origin.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("origin.url はhttp(s)の絶対URLである必要があります: %q", cfg.Origin.URL))
	}

	if cfg.Cloudflare.ZoneID == "" {
		errs = append(errs, errors.New("cloudflare.zone_id は必須です"))
	}
	if cfg.Cloudflare.APIToken == "" && (cfg.Cloudflare.AuthEmail == "" || cfg.Cloudflare.APIKey == "") {
		errs = append(errs, errors.New("cloudflare.api_token、または cloudflare.auth_email と cloudflare.api_key の組が必要です"))
	}
	if len(cfg.Cloudflare.Prefixes) == 0 {
		errs = append(errs, errors.New("cloudflare.prefixes を1件以上指定してください"))
	}

	if cfg.Audit.Enabled && cfg.Audit.DSN == "" {
		errs = append(errs, errors.New("audit.enabled の場合 audit.dsn は必須です"))
	}
	if cfg.Admin.Enabled && cfg.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("admin.enabled の場合 admin.jwt_secret は必須です"))
	}

	return errors.Join(errs...)
}
