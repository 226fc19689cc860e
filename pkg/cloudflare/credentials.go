package cloudflare

import (
	"context"
	"errors"
)

// ErrMissingCredentials は認証情報が不足していることを表す。
var ErrMissingCredentials = errors.New("cloudflare: APIトークン、またはメールアドレスとAPIキーの組が必要です")

// Credentials はCloudflare APIの認証情報。
type Credentials struct {
	// AuthEmail はグローバルAPIキーに紐づくアカウントのメールアドレス。
	AuthEmail string
	// APIKey はグローバルAPIキー。
	APIKey string
	// APIToken はスコープ付きAPIトークン。設定されている場合はAPIキーより優先する。
	APIToken string
}

// Validate は認証情報として使える組み合わせかを検証する。
func (c Credentials) Validate() error {
	if c.APIToken != "" {
		return nil
	}
	if c.AuthEmail == "" || c.APIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// CredentialProvider はリクエストごとに認証情報を供給する。
// シークレットストアからの取得やローテーションに対応するためインターフェースとしている。
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials は固定の認証情報を返すCredentialProvider。
type StaticCredentials Credentials

// Credentials は保持している認証情報を検証して返す。
func (s StaticCredentials) Credentials(_ context.Context) (Credentials, error) {
	c := Credentials(s)
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}
