package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// doerFunc は関数をDoerとして扱うためのアダプタ。
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.doer == nil {
			t.Fatal("doerがnil")
		}
	})

	t.Run("タイムアウトが30秒に設定されていること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080")
		hc, ok := client.doer.(*http.Client)
		if !ok {
			t.Fatalf("doerの型 = %T, want *http.Client", client.doer)
		}
		if hc.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", hc.Timeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", WithTimeout(5*time.Second))
		hc := client.doer.(*http.Client)
		if hc.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", hc.Timeout)
		}
	})

	t.Run("WithDoerで渡したクライアントのタイムアウトは変更されないこと", func(t *testing.T) {
		t.Parallel()

		own := &http.Client{Timeout: 2 * time.Second}
		for _, opts := range [][]Option{
			{WithDoer(own), WithTimeout(5 * time.Second)},
			{WithTimeout(5 * time.Second), WithDoer(own)},
		} {
			client := New("http://localhost:8080", opts...)
			if client.doer != own {
				t.Fatalf("doer = %v, want 渡したクライアント", client.doer)
			}
			if own.Timeout != 2*time.Second {
				t.Errorf("Timeout = %v, want 2s", own.Timeout)
			}
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(testPayload{Name: "response", Value: 200})
		}))
		defer ts.Close()

		client := New(ts.URL)
		body := testPayload{Name: "request", Value: 100}
		var result testPayload

		err := client.PostJSON(context.Background(), "/zones/z1/purge_cache", body, &result)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		// リクエストの検証
		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/zones/z1/purge_cache" {
			t.Errorf("Path = %q, want %q", received.Path, "/zones/z1/purge_cache")
		}

		var sentBody testPayload
		if err := json.Unmarshal(received.Body, &sentBody); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sentBody != body {
			t.Errorf("sent body = %+v, want %+v", sentBody, body)
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}

		// レスポンスの検証
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("result = %+v, want {response 200}", result)
		}
	})

	t.Run("共通ヘッダーとリクエスト個別ヘッダーが送信されること", func(t *testing.T) {
		t.Parallel()

		var headers http.Header
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL, WithHeader("X-Common", "c"))
		err := client.PostJSON(context.Background(), "/", testPayload{}, nil, WithRequestHeader("X-Auth-Key", "k"))
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if got := headers.Get("X-Common"); got != "c" {
			t.Errorf("X-Common = %q, want %q", got, "c")
		}
		if got := headers.Get("X-Auth-Key"); got != "k" {
			t.Errorf("X-Auth-Key = %q, want %q", got, "k")
		}
	})

	t.Run("サーバーが400エラーを返した場合にStatusErrorが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload

		err := client.PostJSON(context.Background(), "/", testPayload{}, &result)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("エラーの型 = %T, want *StatusError", err)
		}
		if statusErr.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadRequest)
		}
		if string(statusErr.Body) != `{"success":false}` {
			t.Errorf("Body = %q, want %q", string(statusErr.Body), `{"success":false}`)
		}
	})

	t.Run("resultがnilの場合でもエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"status":"created"}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/", testPayload{Name: "no-result", Value: 1}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(testPayload{Name: "response", Value: 1})
		}))
		defer ts.Close()

		client := New(ts.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // 即座にキャンセル

		var result testPayload
		if err := client.PostJSON(ctx, "/", testPayload{}, &result); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("Doerを差し替えるとネットワークを使わずに応答できること", func(t *testing.T) {
		t.Parallel()

		calls := 0
		doer := doerFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(`{"name":"stub","value":7}`)),
				Request:    r,
			}, nil
		})

		client := New("https://example.invalid", WithDoer(doer))
		var result testPayload
		if err := client.PostJSON(context.Background(), "/x", testPayload{}, &result); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if calls != 1 {
			t.Errorf("Doer呼び出し回数 = %d, want 1", calls)
		}
		if result.Name != "stub" || result.Value != 7 {
			t.Errorf("result = %+v, want {stub 7}", result)
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("GETリクエストにボディとContent-Typeが含まれないこと", func(t *testing.T) {
		t.Parallel()

		var receivedBody []byte
		var contentType string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedBody, _ = io.ReadAll(r.Body)
			contentType = r.Header.Get("Content-Type")
			json.NewEncoder(w).Encode(testPayload{Name: "ok", Value: 1})
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		if err := client.GetJSON(context.Background(), "/api/test", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if len(receivedBody) != 0 {
			t.Errorf("GETリクエストにボディが含まれている: %q", string(receivedBody))
		}
		if contentType != "" {
			t.Errorf("Content-Type = %q, want empty", contentType)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{invalid json}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		var result testPayload
		if err := client.GetJSON(context.Background(), "/api/test", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		// 存在しないサーバーに接続を試みる
		client := New("http://127.0.0.1:1")
		var result testPayload
		if err := client.GetJSON(context.Background(), "/api/test", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestWithRequestID はWithRequestID関数を検証する。
func TestWithRequestID(t *testing.T) {
	t.Parallel()

	t.Run("コンテキストのリクエストIDがヘッダーに伝播されること", func(t *testing.T) {
		t.Parallel()

		var receivedID string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedID = r.Header.Get(HeaderRequestID)
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL)
		ctx := WithRequestID(context.Background(), "req-123")
		if err := client.PostJSON(ctx, "/", testPayload{}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if receivedID != "req-123" {
			t.Errorf("X-Request-ID = %q, want %q", receivedID, "req-123")
		}
	})

	t.Run("リクエストIDが未設定の場合ヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		if _, ok := RequestIDFrom(context.Background()); ok {
			t.Error("空のコンテキストからリクエストIDが取得された")
		}
	})
}

// TestPostJSON_SerializationError はシリアライズ不可能なボディでエラーが返ることを検証する。
func TestPostJSON_SerializationError(t *testing.T) {
	t.Parallel()

	client := New("http://127.0.0.1:1")
	// json.Marshalでエラーになるチャネル型を渡す
	body := make(chan int)

	if err := client.PostJSON(context.Background(), "/", body, nil); err == nil {
		t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
	}
}
