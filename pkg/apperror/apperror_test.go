package apperror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestErrorIs はerrors.Isによるエラー判定を検証する。
func TestErrorIs(t *testing.T) {
	t.Parallel()

	t.Run("ErrAlreadyCancelledはErrInvalidStateとして判定されること", func(t *testing.T) {
		t.Parallel()

		if !errors.Is(ErrAlreadyCancelled, ErrInvalidState) {
			t.Error("ErrAlreadyCancelledがErrInvalidStateと一致しない")
		}
		if errors.Is(ErrInvalidState, ErrAlreadyCancelled) {
			t.Error("ErrInvalidStateがErrAlreadyCancelledと一致してはならない")
		}
	})

	t.Run("WithMessageで派生したエラーが元のエラーと一致すること", func(t *testing.T) {
		t.Parallel()

		derived := ErrInvalidInput.WithMessage("itemsは1件以上必要です")
		if !errors.Is(derived, ErrInvalidInput) {
			t.Error("派生エラーがErrInvalidInputと一致しない")
		}
		if derived.Status != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", derived.Status, http.StatusBadRequest)
		}
		if derived.Code != "INVALID_INPUT" {
			t.Errorf("Code = %q, want %q", derived.Code, "INVALID_INPUT")
		}
	})

	t.Run("fmt.Errorfでラップしても判定できること", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("注文の更新に失敗: %w", ErrAlreadyCancelled)
		if !errors.Is(wrapped, ErrInvalidState) {
			t.Error("ラップしたエラーがErrInvalidStateと一致しない")
		}
	})
}

// TestWrite はエラーレスポンスの書き込みを検証する。
func TestWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "入力不正は400", err: ErrInvalidInput, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "認証情報不正は401", err: ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "期限切れトークンは401", err: ErrExpiredToken, wantStatus: http.StatusUnauthorized, wantCode: "EXPIRED_TOKEN"},
		{name: "所有者違反は403", err: ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "未検出は404", err: ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "キャンセル済みは400", err: ErrAlreadyCancelled, wantStatus: http.StatusBadRequest, wantCode: "ALREADY_CANCELLED"},
		{name: "上流停止は502", err: ErrUpstreamUnavailable, wantStatus: http.StatusBadGateway, wantCode: "UPSTREAM_UNAVAILABLE"},
		{name: "ラップされたビジネスエラー", err: fmt.Errorf("wrap: %w", ErrForbidden), wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "想定外のエラーは500", err: errors.New("disk I/O error: /data/orders.db"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logBuf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

			router := gin.New()
			router.GET("/test", func(c *gin.Context) {
				Write(c, logger, tt.err)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if body["error"] == "" {
				t.Error("errorメッセージが空")
			}
		})
	}

	t.Run("想定外のエラーの詳細がレスポンスに含まれずログに記録されること", func(t *testing.T) {
		t.Parallel()

		var logBuf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

		router := gin.New()
		router.GET("/test", func(c *gin.Context) {
			Write(c, logger, errors.New("secret-internal-detail"))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if strings.Contains(w.Body.String(), "secret-internal-detail") {
			t.Errorf("内部エラーの詳細がレスポンスに含まれている: %s", w.Body.String())
		}
		if !strings.Contains(logBuf.String(), "secret-internal-detail") {
			t.Errorf("内部エラーの詳細がログに記録されていない: %s", logBuf.String())
		}
	})
}
