// Package httpclient は外部APIとのJSON形式のHTTP通信を行うクライアントを提供する。
//
// CDNベンダーのAPI呼び出しなど、リレーから発行するJSONリクエストの
// 送信・デコード・エラー表現を統一する。実際の通信はDoerインターフェースに委譲するため、
// テストではネットワークを使わずに差し替えられる。
package httpclient
