package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/purgerelay/internal/audit"
	"github.com/nao1215/purgerelay/internal/config"
	"github.com/nao1215/purgerelay/pkg/cloudflare"
	"github.com/nao1215/purgerelay/pkg/event"
	"github.com/nao1215/purgerelay/pkg/logger"
	"github.com/nao1215/purgerelay/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 15 * time.Second

// EventStore は監査イベントの記録と参照を行うストア。*audit.Storeが満たす。
type EventStore interface {
	Recorder
	List(ctx context.Context, p audit.ListParams) ([]event.Event, error)
	Ping(ctx context.Context) error
}

// Server はリレーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port int
	// relay はリクエストの中継とパージを行う。
	relay *Relay
	// store は監査ログストア。監査ログが無効な場合はnil。
	store EventStore
	// closer はサーバー終了時に解放するリソース。
	closer func() error
	// log はロガー。
	log logger.Logger
}

// serverOptions はServerの組み立てに使う依存関係。
type serverOptions struct {
	port           int
	relay          *Relay
	store          EventStore
	adminEnabled   bool
	jwtSecret      string
	allowedOrigins []string
	closer         func() error
	log            logger.Logger
}

// NewServer は設定から依存関係を組み立て、新しいリレーサーバーを生成する。
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	var store *audit.Store
	if cfg.Audit.Enabled {
		var err error
		store, err = audit.Open(ctx, cfg.Audit.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("監査ログストアの初期化に失敗: %w", err)
		}
	}

	purger := cloudflare.NewClient(cloudflare.Config{
		APIBase: cfg.Cloudflare.APIBase,
		ZoneID:  cfg.Cloudflare.ZoneID,
		Timeout: cfg.Cloudflare.Timeout,
	}, cloudflare.StaticCredentials{
		AuthEmail: cfg.Cloudflare.AuthEmail,
		APIKey:    cfg.Cloudflare.APIKey,
		APIToken:  cfg.Cloudflare.APIToken,
	})

	opts := Options{
		Origin:    newOriginClient(cfg.Origin.Timeout),
		OriginURL: cfg.Origin.URL,
		Purger:    purger,
		Prefixes:  cfg.Cloudflare.Prefixes,
		Logger:    log,
	}
	so := serverOptions{
		port:           cfg.Port,
		adminEnabled:   cfg.Admin.Enabled,
		jwtSecret:      cfg.Admin.JWTSecret,
		allowedOrigins: cfg.CORS.AllowedOrigins,
		log:            log,
	}
	if store != nil {
		opts.Recorder = store
		so.store = store
		so.closer = store.Close
	}

	r, err := New(opts)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("リレーの初期化に失敗: %w", err)
	}
	so.relay = r

	return newServer(so), nil
}

// newOriginClient はオリジン転送用のHTTPクライアントを生成する。
// リダイレクトは追従せず、そのままクライアントへ返す。
func newOriginClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// newServer は組み立て済みの依存関係からServerを生成する。
func newServer(opts serverOptions) *Server {
	log := opts.log
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()
	// 末尾スラッシュ違いのパスもローカルでリダイレクトせず、そのままオリジンへ中継する
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))

	s := &Server{
		router: router,
		port:   opts.port,
		relay:  opts.relay,
		store:  opts.store,
		closer: opts.closer,
		log:    log,
	}
	s.setupRoutes(opts)

	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("リレーサービスを起動します", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("リレーサービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// Close はサーバーが保持するリソースを解放する。
func (s *Server) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes(opts serverOptions) {
	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())

	// Prometheusメトリクス
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理API（認証必須）
	if opts.adminEnabled {
		admin := s.router.Group("/admin/v1")
		admin.Use(middleware.CORS(opts.allowedOrigins))
		admin.OPTIONS("/purges", func(*gin.Context) {})
		admin.Use(middleware.JWTAuth(opts.jwtSecret))
		{
			admin.POST("/purges", s.handleManualPurge())
			admin.GET("/purges", s.handleListPurges())
		}
	}

	// それ以外はすべてオリジンへ中継する
	s.router.NoRoute(s.handleRelay())
}

// handleRelay はリクエストをオリジンへ中継するハンドラを返す。
func (s *Server) handleRelay() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := s.log.With(
			"request_id", middleware.GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		resp, err := s.relay.Handle(c.Request.Context(), c.Request)
		if err != nil {
			log.Error("オリジンへの中継に失敗しました", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "オリジンサーバーとの通信に失敗しました"})
			return
		}

		writeResponse(c, resp)
	}
}

// writeResponse はリレーのレスポンスをそのままクライアントへ書き出す。
func writeResponse(c *gin.Context, resp *Response) {
	h := c.Writer.Header()
	for key, values := range resp.Header {
		h[key] = append([]string(nil), values...)
	}
	c.Status(resp.StatusCode)
	// NoRouteでは未書き込みの404にGin既定のボディが付くため、ボディが空でもヘッダーを確定させる
	c.Writer.WriteHeaderNow()
	if len(resp.Body) > 0 {
		_, _ = c.Writer.Write(resp.Body)
	}
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store != nil {
			if err := s.store.Ping(c.Request.Context()); err != nil {
				s.log.Warn("監査ログストアに接続できません", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "service": "purge-relay"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "purge-relay"})
	}
}

// manualPurgeResponse は手動パージAPIのレスポンス。
type manualPurgeResponse struct {
	// Success はパージが成功したかどうか。
	Success bool `json:"success"`
	// Outcome は結果種別。
	Outcome PurgeOutcome `json:"outcome"`
	// PurgeID はパージ操作ID。
	PurgeID string `json:"purge_id,omitempty"`
	// Prefixes はパージ対象のプレフィックス。
	Prefixes []string `json:"prefixes"`
	// Errors は失敗理由。
	Errors []string `json:"errors,omitempty"`
}

// handleManualPurge は設定済みプレフィックスを手動でパージするハンドラを返す。
func (s *Server) handleManualPurge() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := middleware.GetOperator(c)
		log := s.log.With("request_id", middleware.GetRequestID(c), "operator", operator)
		result := s.relay.PurgeNow(c.Request.Context(), operator)

		resp := manualPurgeResponse{
			Success:  result.Succeeded(),
			Outcome:  result.Outcome,
			PurgeID:  result.PurgeID,
			Prefixes: s.relay.Prefixes(),
		}
		switch {
		case len(result.Errors) > 0:
			for _, e := range result.Errors {
				resp.Errors = append(resp.Errors, e.Error())
			}
		case result.Reason != "":
			resp.Errors = []string{result.Reason}
		}

		log.Info("手動パージを実行しました",
			"outcome", string(result.Outcome),
			"purge_id", result.PurgeID,
		)

		status := http.StatusOK
		if !result.Succeeded() {
			status = http.StatusBadGateway
		}
		c.JSON(status, resp)
	}
}

// handleListPurges は監査ログのパージイベント一覧を返すハンドラを返す。
func (s *Server) handleListPurges() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "監査ログが無効です"})
			return
		}

		var eventType event.Type
		switch c.Query("outcome") {
		case "":
		case "succeeded":
			eventType = event.TypePurgeSucceeded
		case "failed":
			eventType = event.TypePurgeFailed
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "outcomeはsucceededまたはfailedを指定してください"})
			return
		}

		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limitは1以上の整数を指定してください"})
				return
			}
			limit = n
		}

		events, err := s.store.List(c.Request.Context(), audit.ListParams{EventType: eventType, Limit: limit})
		if err != nil {
			s.log.Error("監査イベントの取得に失敗しました", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベント一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}
