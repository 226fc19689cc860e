// 管理API用のオペレータートークンを発行するコマンド。
//
//	relay-token -operator alice -ttl 12h
//
// 署名鍵は -secret フラグ、未指定の場合はリレーと同じ設定（PURGE_RELAY_ADMIN_JWT_SECRET など）から読み込む。
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/nao1215/purgerelay/internal/config"
	"github.com/nao1215/purgerelay/pkg/middleware"
)

func main() {
	operator := flag.String("operator", "", "トークンを発行するオペレーター名（必須）")
	ttl := flag.Duration("ttl", middleware.DefaultTokenTTL, "トークンの有効期間")
	secret := flag.String("secret", "", "JWT署名用の秘密鍵")
	configPath := flag.String("config", "", "設定ファイルのパス")
	flag.Parse()

	if err := run(*operator, *secret, *configPath, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "relay-token: %v\n", err)
		os.Exit(1)
	}
}

func run(operator, secret, configPath string, ttl time.Duration) error {
	if operator == "" {
		return errors.New("-operator を指定してください")
	}

	if secret == "" {
		s, err := secretFromConfig(configPath)
		if err != nil {
			return err
		}
		secret = s
	}
	if secret == "" {
		return errors.New("署名鍵が設定されていません（-secret または admin.jwt_secret）")
	}

	token, err := middleware.GenerateJWT(secret, operator, ttl)
	if err != nil {
		return fmt.Errorf("トークンの発行に失敗: %w", err)
	}
	fmt.Println(token)
	return nil
}

// secretFromConfig はリレーの設定からJWT署名鍵だけを読み込む。
// トークン発行にはオリジンやCloudflareの設定が不要なため、全体の検証は行わない。
func secretFromConfig(path string) (string, error) {
	v := viper.New()
	if err := v.BindEnv("admin.jwt_secret", config.EnvPrefix+"_ADMIN_JWT_SECRET"); err != nil {
		return "", fmt.Errorf("環境変数の設定に失敗: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}
	return v.GetString("admin.jwt_secret"), nil
}
