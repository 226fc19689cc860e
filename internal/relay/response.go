package relay

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nao1215/purgerelay/pkg/httpclient"
)

// failureBody はパージ失敗時に返すJSONボディ。
// robot_idとlive_pausedはオリジンの値をそのまま写し、存在しない場合は省略する。
type failureBody struct {
	Success    bool            `json:"success"`
	Msg        string          `json:"msg"`
	RobotID    json.RawMessage `json:"robot_id,omitempty"`
	LivePaused json.RawMessage `json:"live_paused,omitempty"`
}

// originFields はオリジンのボディから抜き出すフィールド。
type originFields struct {
	RobotID    json.RawMessage `json:"robot_id"`
	LivePaused json.RawMessage `json:"live_paused"`
}

// extractFields はオリジンのボディからrobot_idとlive_pausedを取り出す。
// JSONオブジェクトとして解釈できない場合は空のまま返す。
func (r *Relay) extractFields(ctx context.Context, body []byte) originFields {
	var f originFields
	if err := json.Unmarshal(body, &f); err != nil {
		r.log.Warn("オリジンのレスポンスをJSONとして解釈できません",
			"request_id", requestIDOf(ctx),
			"error", err,
		)
		return originFields{}
	}
	return f
}

// annotateSuccess はオリジンのレスポンスにパージ成功ヘッダーを付与したコピーを返す。
func annotateSuccess(origin *Response) *Response {
	header := origin.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(HeaderPurgeTriggered, "true")
	return &Response{
		StatusCode: origin.StatusCode,
		Header:     header,
		Body:       origin.Body,
	}
}

// failureResponse はパージ失敗時の500レスポンスを組み立てる。
// オリジンのヘッダーを引き継いだ上でContent-Typeとエラーヘッダーを上書きする。
func failureResponse(origin *Response, f originFields) *Response {
	header := origin.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	// ボディを差し替えるため、元のボディに紐づくヘッダーは引き継がない
	header.Del("Content-Length")
	header.Del("Content-Encoding")
	header.Del("Content-Md5")
	header.Del("Etag")
	header.Set("Content-Type", "application/json")
	header.Set(HeaderPurgeError, "true")

	// failureBodyのフィールドはすべてエンコード可能な型のため、エラーは発生しない
	body, _ := json.Marshal(failureBody{
		Success:    false,
		Msg:        FailureMessage,
		RobotID:    f.RobotID,
		LivePaused: f.LivePaused,
	})

	return &Response{
		StatusCode: http.StatusInternalServerError,
		Header:     header,
		Body:       body,
	}
}

// requestIDOf はコンテキストのリクエストIDを返す。未設定の場合は空文字列。
func requestIDOf(ctx context.Context) string {
	id, _ := httpclient.RequestIDFrom(ctx)
	return id
}
