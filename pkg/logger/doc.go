// Package logger はzapベースの構造化ロガーを提供する。
//
// 全コンポーネントはこのパッケージのLoggerインターフェースを介してログを出力する。
// フィールドはキーと値を交互に並べて渡す（例: logger.Info("起動", "port", 8080)）。
package logger
