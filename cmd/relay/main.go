// キャッシュパージリレーのエントリポイント。
// 受信したリクエストをオリジンへ中継し、オリジンが成功した場合にCloudflareのキャッシュをパージする。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/purgerelay/internal/config"
	"github.com/nao1215/purgerelay/internal/relay"
	"github.com/nao1215/purgerelay/pkg/logger"
)

// service は起動から停止までを管理するサーバー。*relay.Serverが満たす。
type service interface {
	Run(ctx context.Context) error
	Close() error
}

func main() {
	configPath := flag.String("config", "", "設定ファイルのパス（省略時は既定の場所から探索する）")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "purge-relay: %v\n", err)
		os.Exit(1)
	}
}

// run は設定を読み込んでリレーサーバーを起動し、シグナルを受けるまで待つ。
func run(configPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("設定を読み込みました",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"origin", cfg.Origin.URL,
		"prefixes", cfg.Cloudflare.Prefixes,
		"audit", cfg.Audit.Enabled,
		"admin", cfg.Admin.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := relay.NewServer(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("リレーサーバーの初期化に失敗: %w", err)
	}
	return serve(ctx, server, log)
}

// serve はサービスを起動し、終了理由に関わらず必ずリソースを解放する。
func serve(ctx context.Context, svc service, log logger.Logger) error {
	runErr := svc.Run(ctx)
	if runErr != nil {
		log.Error("リレーサービスが異常終了しました", "error", runErr)
	}

	closeErr := svc.Close()
	if closeErr != nil {
		log.Error("リソースの解放に失敗しました", "error", closeErr)
	}
	if runErr == nil && closeErr == nil {
		log.Info("リレーサービスを停止しました")
	}
	return errors.Join(runErr, closeErr)
}
