package users

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はテスト用のusersサーバーをインメモリSQLiteで構築する。
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	svc, _ := setupTestService(t)
	return newServer(svc, discardLogger, prometheus.NewRegistry())
}

// doRequest はテスト用のHTTPリクエストを実行し、レスポンスを返すヘルパー関数。
func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = strings.NewReader(b)
	default:
		jsonBytes, _ := json.Marshal(b)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v, body=%s", err, w.Body.String())
	}
	return body
}

// TestHandleRegister はアカウント登録ハンドラを検証する。
func TestHandleRegister(t *testing.T) {
	t.Parallel()

	t.Run("正常に登録できた場合に201とアカウント情報が返ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)

		w := doRequest(s, http.MethodPost, "/v1/users/register", credentialsRequest{Email: "alice@example.com", Password: "pw"})
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
		}

		body := decodeBody(t, w)
		if body["email"] != "alice@example.com" {
			t.Errorf("email = %v, want alice@example.com", body["email"])
		}
		if id, _ := body["id"].(string); id == "" {
			t.Error("idが返っていない")
		}
		if strings.Contains(w.Body.String(), "$2") || strings.Contains(strings.ToLower(w.Body.String()), "hash") {
			t.Errorf("レスポンスにハッシュが含まれている: %s", w.Body.String())
		}
	})

	t.Run("重複登録の場合に400とDUPLICATE_ACCOUNTが返ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)

		req := credentialsRequest{Email: "dup@example.com", Password: "pw"}
		doRequest(s, http.MethodPost, "/v1/users/register", req)
		w := doRequest(s, http.MethodPost, "/v1/users/register", req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if code := decodeBody(t, w)["code"]; code != "DUPLICATE_ACCOUNT" {
			t.Errorf("code = %v, want DUPLICATE_ACCOUNT", code)
		}
	})

	tests := []struct {
		name string
		body any
	}{
		{name: "メールアドレスが無い", body: map[string]string{"password": "pw"}},
		{name: "パスワードが無い", body: map[string]string{"email": "a@example.com"}},
		{name: "不正なJSON", body: `{"email":`},
		{name: "ボディが空", body: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name+"場合に400とINVALID_INPUTが返ること", func(t *testing.T) {
			t.Parallel()
			s := setupTestServer(t)

			w := doRequest(s, http.MethodPost, "/v1/users/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if code := decodeBody(t, w)["code"]; code != "INVALID_INPUT" {
				t.Errorf("code = %v, want INVALID_INPUT", code)
			}
		})
	}
}

// TestHandleLogin はログインハンドラを検証する。
func TestHandleLogin(t *testing.T) {
	t.Parallel()

	t.Run("正しい認証情報で200とトークンが返ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)

		reg := decodeBody(t, doRequest(s, http.MethodPost, "/v1/users/register", credentialsRequest{Email: "alice@example.com", Password: "pw"}))

		w := doRequest(s, http.MethodPost, "/v1/users/login", credentialsRequest{Email: "alice@example.com", Password: "pw"})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		body := decodeBody(t, w)
		if token, _ := body["token"].(string); strings.Count(token, ".") != 2 {
			t.Errorf("token = %v, want JWT", body["token"])
		}
		if body["id"] != reg["id"] {
			t.Errorf("id = %v, want %v", body["id"], reg["id"])
		}
		if body["email"] != "alice@example.com" {
			t.Errorf("email = %v", body["email"])
		}
		if _, ok := body["expiresAt"].(string); !ok {
			t.Errorf("expiresAtが返っていない: %v", body)
		}
	})

	t.Run("誤った認証情報で401とINVALID_CREDENTIALSが返ること", func(t *testing.T) {
		t.Parallel()
		s := setupTestServer(t)

		doRequest(s, http.MethodPost, "/v1/users/register", credentialsRequest{Email: "alice@example.com", Password: "pw"})

		wrong := doRequest(s, http.MethodPost, "/v1/users/login", credentialsRequest{Email: "alice@example.com", Password: "nope"})
		unknown := doRequest(s, http.MethodPost, "/v1/users/login", credentialsRequest{Email: "ghost@example.com", Password: "pw"})

		for name, w := range map[string]*httptest.ResponseRecorder{"パスワード誤り": wrong, "未登録": unknown} {
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s: ステータスコード = %d, want %d", name, w.Code, http.StatusUnauthorized)
			}
			if code := decodeBody(t, w)["code"]; code != "INVALID_CREDENTIALS" {
				t.Errorf("%s: code = %v, want INVALID_CREDENTIALS", name, code)
			}
		}
		if wrong.Body.String() != unknown.Body.String() {
			t.Errorf("レスポンスが異なる: %s != %s", wrong.Body.String(), unknown.Body.String())
		}
	})
}

// TestHealthAndMetrics はヘルスチェックとメトリクスの公開を検証する。
func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)

	w := doRequest(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	if body := decodeBody(t, w); body["service"] != "users" {
		t.Errorf("service = %v, want users", body["service"])
	}

	w = doRequest(s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `ordergate_http_requests_total{method="GET",route="/health",service="users",status="200"} 1`) {
		t.Errorf("/health のリクエストが記録されていない: %s", w.Body.String())
	}
}
