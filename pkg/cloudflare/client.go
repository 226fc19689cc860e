package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nao1215/purgerelay/pkg/httpclient"
)

// DefaultAPIBase はCloudflare API v4のベースURL。
const DefaultAPIBase = "https://api.cloudflare.com/client/v4"

// Config はClientの接続設定。
type Config struct {
	// APIBase はAPIのベースURL。空の場合はDefaultAPIBaseを使用する。
	APIBase string
	// ZoneID はパージ対象のゾーンID。
	ZoneID string
	// Timeout はHTTPリクエストのタイムアウト。0の場合はhttpclientの既定値。
	Timeout time.Duration
	// Doer はHTTP実行オブジェクト。nilの場合は標準のHTTPクライアントを使用する。
	Doer httpclient.Doer
}

// Client はCloudflareのキャッシュパージAPIクライアント。
type Client struct {
	// http はJSON通信用のHTTPクライアント。
	http *httpclient.Client
	// zoneID はパージ対象のゾーンID。
	zoneID string
	// credentials は認証情報の供給元。
	credentials CredentialProvider
}

// NewClient は新しいCloudflare APIクライアントを生成する。
func NewClient(cfg Config, credentials CredentialProvider) *Client {
	base := cfg.APIBase
	if base == "" {
		base = DefaultAPIBase
	}

	var opts []httpclient.Option
	if cfg.Doer != nil {
		opts = append(opts, httpclient.WithDoer(cfg.Doer))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
	}

	return &Client{
		http:        httpclient.New(base, opts...),
		zoneID:      cfg.ZoneID,
		credentials: credentials,
	}
}

// PurgeCache は指定プレフィックスのキャッシュをパージする。
//
// APIがエンベロープを返した場合は、HTTPステータスに関わらずデコード結果を返す。
// 呼び出し側はPurgeResponse.Successでパージの成否を判定する。
// 通信エラー、認証情報の取得失敗、レスポンスの解釈失敗はエラーとして返す。
func (c *Client) PurgeCache(ctx context.Context, req PurgeRequest) (*PurgeResponse, error) {
	creds, err := c.credentials.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("認証情報の取得に失敗: %w", err)
	}

	path := fmt.Sprintf("/zones/%s/purge_cache", url.PathEscape(c.zoneID))

	var resp PurgeResponse
	err = c.http.PostJSON(ctx, path, req, &resp, authOptions(creds)...)
	if err == nil {
		return &resp, nil
	}

	// 2xx以外でもCloudflareはエンベロープを返すため、成否はsuccessフィールドで判定させる
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		var envelope PurgeResponse
		if jsonErr := json.Unmarshal(statusErr.Body, &envelope); jsonErr == nil {
			return &envelope, nil
		}
	}
	return nil, fmt.Errorf("キャッシュパージAPIの呼び出しに失敗: %w", err)
}

// authOptions は認証方式に応じたヘッダー設定を返す。
func authOptions(c Credentials) []httpclient.RequestOption {
	if c.APIToken != "" {
		return []httpclient.RequestOption{
			httpclient.WithRequestHeader("Authorization", "Bearer "+c.APIToken),
		}
	}
	return []httpclient.RequestOption{
		httpclient.WithRequestHeader("X-Auth-Email", c.AuthEmail),
		httpclient.WithRequestHeader("X-Auth-Key", c.APIKey),
	}
}
