package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nao1215/purgerelay/internal/metrics"
	"github.com/nao1215/purgerelay/pkg/cloudflare"
	"github.com/nao1215/purgerelay/pkg/event"
)

// PurgeOutcome はパージ試行の結果種別。
type PurgeOutcome string

const (
	// OutcomeSucceeded はAPIがsuccess:trueを返したことを表す。
	OutcomeSucceeded PurgeOutcome = "succeeded"
	// OutcomeAPIFailure はAPIがsuccess:falseを返したことを表す。
	OutcomeAPIFailure PurgeOutcome = "api_failure"
	// OutcomeException は通信エラーや不正なレスポンスなどでAPIの判定を得られなかったことを表す。
	OutcomeException PurgeOutcome = "exception"
)

// PurgeResult はパージ試行の結果。
type PurgeResult struct {
	// Outcome は結果種別。
	Outcome PurgeOutcome
	// PurgeID はAPIが払い出したパージ操作ID。成功時のみ。
	PurgeID string
	// Errors はAPIが報告したエラー。api_failure時のみ。
	Errors []cloudflare.APIError
	// Reason は失敗理由の要約。
	Reason string
}

// Succeeded はパージが成功したかを返す。
func (p PurgeResult) Succeeded() bool {
	return p.Outcome == OutcomeSucceeded
}

// purge は設定されたプレフィックスでパージAPIを1回だけ呼び出し、結果を分類する。
// エラーは返さず、すべてPurgeResultに変換する。
func (r *Relay) purge(ctx context.Context, trigger event.Trigger) PurgeResult {
	start := time.Now()
	resp, err := r.purger.PurgeCache(ctx, cloudflare.PurgeRequest{Prefixes: r.prefixes})
	metrics.PurgeDuration.Observe(time.Since(start).Seconds())

	var result PurgeResult
	switch {
	case err != nil:
		result = PurgeResult{Outcome: OutcomeException, Reason: err.Error()}
		r.log.Error("キャッシュパージでエラーが発生しました",
			"trigger", string(trigger),
			"request_id", requestIDOf(ctx),
			"error", err,
		)
	case resp == nil:
		result = PurgeResult{Outcome: OutcomeException, Reason: "パージAPIのレスポンスが空です"}
		r.log.Error("キャッシュパージのレスポンスが空です",
			"trigger", string(trigger),
			"request_id", requestIDOf(ctx),
		)
	case !resp.Success:
		result = PurgeResult{
			Outcome: OutcomeAPIFailure,
			Errors:  resp.Errors,
			Reason:  resp.ErrorSummary(),
		}
		r.log.Error("キャッシュパージが失敗しました",
			"trigger", string(trigger),
			"request_id", requestIDOf(ctx),
			"errors", resp.Errors,
		)
	default:
		result = PurgeResult{Outcome: OutcomeSucceeded, PurgeID: resp.PurgeID()}
		r.log.Debug("キャッシュパージが完了しました",
			"trigger", string(trigger),
			"request_id", requestIDOf(ctx),
			"purge_id", result.PurgeID,
			"prefixes", r.prefixes,
		)
	}

	metrics.PurgeTotal.WithLabelValues(string(result.Outcome), string(trigger)).Inc()
	return result
}

// recordDetail は監査イベントに残す付帯情報。
type recordDetail struct {
	// originStatus はオリジンのステータスコード。手動パージでは0。
	originStatus int
	// robotID はオリジンのボディに含まれていたrobot_id。
	robotID json.RawMessage
	// operator は手動パージの実行者。
	operator string
}

// record はパージ結果を監査イベントとして記録する。
// 記録の失敗はログとメトリクスに残すだけで、呼び出し元には影響させない。
func (r *Relay) record(ctx context.Context, trigger event.Trigger, result PurgeResult, d recordDetail) {
	if r.recorder == nil {
		return
	}

	var (
		eventType event.Type
		data      any
	)
	if result.Succeeded() {
		eventType = event.TypePurgeSucceeded
		data = event.PurgeSucceededData{
			PurgeID:      result.PurgeID,
			Prefixes:     r.prefixes,
			OriginStatus: d.originStatus,
			Operator:     d.operator,
		}
	} else {
		eventType = event.TypePurgeFailed
		data = event.PurgeFailedData{
			Outcome:      string(result.Outcome),
			Reason:       result.Reason,
			Prefixes:     r.prefixes,
			OriginStatus: d.originStatus,
			RobotID:      d.robotID,
			Operator:     d.operator,
		}
	}

	e, err := event.New(eventType, trigger, requestIDOf(ctx), data)
	if err != nil {
		metrics.AuditWriteErrorsTotal.Inc()
		r.log.Warn("監査イベントの生成に失敗しました", "error", err)
		return
	}
	// リクエストがキャンセルされていても監査ログは残す
	if err := r.recorder.Append(context.WithoutCancel(ctx), e); err != nil {
		metrics.AuditWriteErrorsTotal.Inc()
		r.log.Warn("監査イベントの記録に失敗しました",
			"event_id", e.ID,
			"error", err,
		)
	}
}
