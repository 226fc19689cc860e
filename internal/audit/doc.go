// Package audit はキャッシュパージ試行の監査ログをSQLiteに永続化する。
//
// パージが失敗した場合、オペレーターは手動でキャッシュをクリアする必要がある。
// 監査ログはその対応漏れを防ぐため、成功・失敗を問わずすべての試行を追記する。
package audit
