package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/purgerelay/internal/metrics"
	"github.com/nao1215/purgerelay/pkg/cloudflare"
	"github.com/nao1215/purgerelay/pkg/event"
	"github.com/nao1215/purgerelay/pkg/logger"
)

const (
	// HeaderPurgeTriggered はパージ成功時にレスポンスへ付与するヘッダー。
	HeaderPurgeTriggered = "X-Cache-Purge-Triggered"
	// HeaderPurgeError はパージ失敗時にレスポンスへ付与するヘッダー。
	HeaderPurgeError = "X-Cache-Purge-Error"

	// FailureMessage はパージ失敗時のレスポンスに含める固定メッセージ。
	FailureMessage = "Error resetting the Cloudflare cache. Manually clear the Cloudflare cache to avoid inconsistencies now. Live paused status has been updated in the database."
)

// HTTPClient はオリジンへのリクエストを実行する能力を表す。*http.Clientが満たす。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Purger はキャッシュパージAPIを呼び出す。*cloudflare.Clientが満たす。
type Purger interface {
	PurgeCache(ctx context.Context, req cloudflare.PurgeRequest) (*cloudflare.PurgeResponse, error)
}

// Recorder はパージの監査イベントを記録する。*audit.Storeが満たす。
type Recorder interface {
	Append(ctx context.Context, e *event.Event) error
}

// Response はリレーが返すHTTPレスポンス。ボディは読み切った状態で保持する。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header はレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ。
	Body []byte
}

// Options はRelayの生成パラメータ。
type Options struct {
	// Origin はオリジンへのHTTPクライアント。
	Origin HTTPClient
	// OriginURL はオリジンのベースURL。
	OriginURL string
	// Purger はキャッシュパージAPIクライアント。
	Purger Purger
	// Prefixes はパージ対象のURLプレフィックス。
	Prefixes []string
	// Recorder は監査イベントの記録先。nilの場合は記録しない。
	Recorder Recorder
	// Logger はロガー。
	Logger logger.Logger
}

// Relay はオリジンへの中継とキャッシュパージを行う。
// 呼び出し間で状態を共有しないため、複数のgoroutineから同時に使用できる。
type Relay struct {
	// origin はオリジンへのHTTPクライアント。
	origin HTTPClient
	// originURL はオリジンのベースURL。
	originURL *url.URL
	// purger はキャッシュパージAPIクライアント。
	purger Purger
	// prefixes はパージ対象のURLプレフィックス。
	prefixes []string
	// recorder は監査イベントの記録先。
	recorder Recorder
	// log はロガー。
	log logger.Logger
}

// New は新しいRelayを生成する。
func New(opts Options) (*Relay, error) {
	if opts.Origin == nil {
		return nil, errors.New("オリジンのHTTPクライアントが指定されていません")
	}
	if opts.Purger == nil {
		return nil, errors.New("パージクライアントが指定されていません")
	}
	if len(opts.Prefixes) == 0 {
		return nil, errors.New("パージ対象のプレフィックスが指定されていません")
	}
	u, err := url.Parse(opts.OriginURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("オリジンURLが不正です: %q", opts.OriginURL)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Relay{
		origin:    opts.Origin,
		originURL: u,
		purger:    opts.Purger,
		prefixes:  append([]string(nil), opts.Prefixes...),
		recorder:  opts.Recorder,
		log:       log,
	}, nil
}

// Handle は受信したリクエストをオリジンに転送し、必要に応じてキャッシュをパージする。
// オリジンとの通信自体に失敗した場合のみエラーを返す。パージの失敗はエラーにならない。
func (r *Relay) Handle(ctx context.Context, in *http.Request) (*Response, error) {
	originResp, err := r.forward(ctx, in)
	if err != nil {
		metrics.RelayRequestsTotal.WithLabelValues("origin_error").Inc()
		return nil, err
	}

	if !isSuccess(originResp.StatusCode) {
		metrics.RelayRequestsTotal.WithLabelValues("origin_passthrough").Inc()
		return originResp, nil
	}

	result := r.purge(ctx, event.TriggerRelay)
	if result.Outcome == OutcomeSucceeded {
		r.record(ctx, event.TriggerRelay, result, recordDetail{originStatus: originResp.StatusCode})
		metrics.RelayRequestsTotal.WithLabelValues("purged").Inc()
		return annotateSuccess(originResp), nil
	}

	fields := r.extractFields(ctx, originResp.Body)
	r.record(ctx, event.TriggerRelay, result, recordDetail{
		originStatus: originResp.StatusCode,
		robotID:      fields.RobotID,
	})
	metrics.RelayRequestsTotal.WithLabelValues("purge_error").Inc()
	return failureResponse(originResp, fields), nil
}

// PurgeNow は設定されたプレフィックスを手動でパージし、監査ログに記録する。
func (r *Relay) PurgeNow(ctx context.Context, operator string) PurgeResult {
	result := r.purge(ctx, event.TriggerManual)
	r.record(ctx, event.TriggerManual, result, recordDetail{operator: operator})
	return result
}

// Prefixes はパージ対象のプレフィックスのコピーを返す。
func (r *Relay) Prefixes() []string {
	return append([]string(nil), r.prefixes...)
}

// forward はリクエストをオリジンに転送し、レスポンスを読み切って返す。
func (r *Relay) forward(ctx context.Context, in *http.Request) (*Response, error) {
	out, err := http.NewRequestWithContext(ctx, in.Method, r.targetURL(in.URL), bodyOf(in))
	if err != nil {
		return nil, fmt.Errorf("オリジンへのリクエスト作成に失敗: %w", err)
	}
	out.Header = in.Header.Clone()
	removeHopByHop(out.Header)
	// 圧縮はトランスポートに任せ、ボディを常に展開済みで受け取る
	out.Header.Del("Accept-Encoding")
	out.ContentLength = in.ContentLength

	start := time.Now()
	resp, err := r.origin.Do(out)
	metrics.OriginRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("オリジンへのリクエスト送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("オリジンのレスポンス読み取りに失敗: %w", err)
	}

	header := resp.Header.Clone()
	removeHopByHop(header)
	return &Response{StatusCode: resp.StatusCode, Header: header, Body: body}, nil
}

// targetURL はオリジンのベースURLに受信リクエストのパスとクエリを連結する。
func (r *Relay) targetURL(in *url.URL) string {
	target := *r.originURL
	basePath := strings.TrimSuffix(r.originURL.Path, "/")
	target.Path = basePath + in.Path
	if in.RawPath != "" {
		target.RawPath = strings.TrimSuffix(r.originURL.EscapedPath(), "/") + in.RawPath
	} else {
		target.RawPath = ""
	}
	target.RawQuery = in.RawQuery
	target.Fragment = ""
	return target.String()
}

// bodyOf は転送用のボディを返す。空の場合はhttp.NoBodyを返す。
func bodyOf(in *http.Request) io.Reader {
	if in.Body == nil || in.Body == http.NoBody || in.ContentLength == 0 {
		return http.NoBody
	}
	return in.Body
}

// hopByHopHeaders はプロキシが転送してはならないヘッダー（RFC 9110 7.6.1）。
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHop はhop-by-hopヘッダーとConnectionヘッダーで列挙されたヘッダーを取り除く。
func removeHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// isSuccess はステータスコードが2xxかを判定する。
func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
