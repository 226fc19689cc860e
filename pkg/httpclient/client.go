package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultTimeout はDoerを指定しない場合に使用するHTTPクライアントのタイムアウト。
const defaultTimeout = 30 * time.Second

// Doer はHTTPリクエストを実行する能力を表す。*http.Clientが満たす。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client はJSON APIとの通信用HTTPクライアント。
type Client struct {
	// doer は内部で使用するHTTP実行オブジェクト。
	doer Doer
	// baseURL は接続先APIのベースURL。
	baseURL string
	// header は全リクエストに付与する共通ヘッダー。
	header http.Header
	// timeout は既定のHTTPクライアントに設定するタイムアウト。
	timeout time.Duration
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithDoer はHTTP実行オブジェクトを差し替える。
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithTimeout は既定のHTTPクライアントのタイムアウトを設定する。
// WithDoerで渡されたdoerには適用しない（呼び出し元のクライアントを書き換えない）。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHeader は全リクエストに付与する共通ヘッダーを追加する。
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先APIのベースURL（例: "https://api.cloudflare.com/client/v4"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		header:  make(http.Header),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{Timeout: c.timeout}
	}
	return c
}

// RequestOption は個々のリクエストに対する追加設定。
type RequestOption func(*http.Request)

// WithRequestHeader はそのリクエストにのみヘッダーを設定する。
func WithRequestHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// StatusError は2xx以外のレスポンスを表すエラー。
// 呼び出し側がエラーボディを解釈できるようにボディを保持する。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result, opts)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any, opts ...RequestOption) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result, opts)
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
// 2xx以外の場合は*StatusErrorを返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any, opts []RequestOption) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// コンテキストからリクエストIDを伝播する
	if requestID, ok := RequestIDFrom(ctx); ok {
		req.Header.Set(HeaderRequestID, requestID)
	}

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}
