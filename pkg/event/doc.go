// Package event はキャッシュパージの監査イベントを定義する。
//
// リレー経由・手動のいずれのパージ試行も1件のイベントとして監査ストアに追記される。
// イベントは不変（immutable）であり、追記のみ（append-only）で運用される。
package event
