package event

import (
	"encoding/json"
	"time"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypePurgeSucceeded はキャッシュパージが成功したことを表す。
	TypePurgeSucceeded Type = "PurgeSucceeded"
	// TypePurgeFailed はキャッシュパージが失敗したことを表す。
	// APIが失敗を報告した場合と、通信・解釈に失敗した場合の両方を含む。
	TypePurgeFailed Type = "PurgeFailed"
)

// Trigger はパージを発生させた経路を表す。
type Trigger string

const (
	// TriggerRelay はオリジンへのリレー成功に続いて実行されたパージ。
	TriggerRelay Trigger = "relay"
	// TriggerManual は管理APIから手動で実行されたパージ。
	TriggerManual Trigger = "manual"
)

// Event は監査ストアに永続化される不変のイベントレコードを表す。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Trigger はパージを発生させた経路。
	Trigger Trigger `json:"trigger"`
	// RequestID はパージの契機となったリクエストのID。無い場合は空文字列。
	RequestID string `json:"request_id"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// PurgeSucceededData はPurgeSucceededイベントのデータ。
type PurgeSucceededData struct {
	// PurgeID はCloudflareが返したパージ操作のID。
	PurgeID string `json:"purge_id"`
	// Prefixes はパージしたURLプレフィックス。
	Prefixes []string `json:"prefixes"`
	// OriginStatus はリレー時のオリジンのステータスコード。手動パージでは0。
	OriginStatus int `json:"origin_status,omitempty"`
	// Operator は手動パージを実行したオペレーター。
	Operator string `json:"operator,omitempty"`
}

// PurgeFailedData はPurgeFailedイベントのデータ。
type PurgeFailedData struct {
	// Outcome は失敗の種類（"api_failure" または "exception"）。
	Outcome string `json:"outcome"`
	// Reason は失敗の理由。
	Reason string `json:"reason"`
	// Prefixes はパージしようとしたURLプレフィックス。
	Prefixes []string `json:"prefixes"`
	// OriginStatus はリレー時のオリジンのステータスコード。手動パージでは0。
	OriginStatus int `json:"origin_status,omitempty"`
	// RobotID はオリジンのレスポンスに含まれていたrobot_id。手動対応の手がかりとして残す。
	RobotID json.RawMessage `json:"robot_id,omitempty"`
	// Operator は手動パージを実行したオペレーター。
	Operator string `json:"operator,omitempty"`
}
