package cloudflare

import (
	"fmt"
	"strings"
)

// PurgeRequest はpurge_cacheエンドポイントへのリクエストボディ。
type PurgeRequest struct {
	// Prefixes はパージ対象のURLプレフィックス（スキームなし）。
	Prefixes []string `json:"prefixes"`
}

// APIError はAPIレスポンスのerrors/messages配列の要素。
type APIError struct {
	// Code はCloudflareのエラーコード。
	Code int `json:"code"`
	// Message はエラーメッセージ。
	Message string `json:"message"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// PurgeResult はパージ成功時のresultフィールド。
type PurgeResult struct {
	// ID はパージ操作の識別子。
	ID string `json:"id"`
}

// PurgeResponse はpurge_cacheエンドポイントのレスポンスエンベロープ。
type PurgeResponse struct {
	// Success はAPIがパージを受け付けたかどうか。
	Success bool `json:"success"`
	// Errors はAPIが報告したエラー。
	Errors []APIError `json:"errors"`
	// Messages はAPIが報告した補足メッセージ。
	Messages []APIError `json:"messages"`
	// Result は成功時のパージ結果。失敗時はnull。
	Result *PurgeResult `json:"result"`
}

// PurgeID はパージ操作の識別子を返す。結果が無い場合は空文字列。
func (r *PurgeResponse) PurgeID() string {
	if r == nil || r.Result == nil {
		return ""
	}
	return r.Result.ID
}

// ErrorSummary はerrors配列をログ出力用の1行にまとめる。
func (r *PurgeResponse) ErrorSummary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}
