package apperror

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error はクライアントへ返却するビジネスエラーを表す。
// HTTPステータスとエラーコードを持ち、レスポンスにそのまま変換される。
type Error struct {
	// Code は機械可読なエラーコード。
	Code string
	// Status はレスポンスのHTTPステータスコード。
	Status int
	// Message はクライアント向けのメッセージ。内部情報を含めてはならない。
	Message string
	// parent は派生元のエラー。errors.Isでの判定に使用する。
	parent *Error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Unwrap は派生元のエラーを返す。
func (e *Error) Unwrap() error {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// WithMessage はメッセージだけを差し替えた派生エラーを返す。
// 派生エラーはerrors.Isで元のエラーと一致する。
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: msg, parent: e}
}

// 定義済みエラー。
var (
	ErrInvalidInput = &Error{
		Code: "INVALID_INPUT", Status: http.StatusBadRequest, Message: "リクエストが不正です",
	}
	ErrDuplicateAccount = &Error{
		Code: "DUPLICATE_ACCOUNT", Status: http.StatusBadRequest, Message: "このメールアドレスは既に登録されています",
	}
	ErrInvalidCredentials = &Error{
		Code: "INVALID_CREDENTIALS", Status: http.StatusUnauthorized, Message: "メールアドレスまたはパスワードが正しくありません",
	}

	ErrMissingHeader = &Error{
		Code: "MISSING_HEADER", Status: http.StatusUnauthorized, Message: "Authorizationヘッダーが必要です",
	}
	ErrMalformedToken = &Error{
		Code: "MALFORMED_TOKEN", Status: http.StatusUnauthorized, Message: "Bearer トークン形式が不正です",
	}
	ErrExpiredToken = &Error{
		Code: "EXPIRED_TOKEN", Status: http.StatusUnauthorized, Message: "トークンの有効期限が切れています",
	}
	ErrInvalidSignature = &Error{
		Code: "INVALID_SIGNATURE", Status: http.StatusUnauthorized, Message: "トークンが無効です",
	}

	ErrNotFound = &Error{
		Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "リソースが見つかりません",
	}
	ErrForbidden = &Error{
		Code: "FORBIDDEN", Status: http.StatusForbidden, Message: "このリソースへのアクセス権がありません",
	}
	ErrInvalidState = &Error{
		Code: "INVALID_STATE", Status: http.StatusBadRequest, Message: "現在の状態ではこの操作は実行できません",
	}

	ErrUpstreamUnavailable = &Error{
		Code: "UPSTREAM_UNAVAILABLE", Status: http.StatusBadGateway, Message: "内部サービスとの通信に失敗しました",
	}
)

// ErrAlreadyCancelled はErrInvalidStateの一種で、キャンセル済み注文の再キャンセルを表す。
var ErrAlreadyCancelled = &Error{
	Code: "ALREADY_CANCELLED", Status: http.StatusBadRequest, Message: "注文は既にキャンセルされています",
	parent: ErrInvalidState,
}

// internalErrorBody は想定外のエラーに対して返す汎用レスポンス。
var internalErrorBody = gin.H{
	"error": "内部サーバーエラーが発生しました",
	"code":  "INTERNAL_ERROR",
}

// Write はエラーをJSONレスポンスとして書き込み、後続のハンドラを中断する。
// ビジネスエラーはそのコードとメッセージを返し、それ以外は詳細をログのみに記録して500を返す。
func Write(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.Status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	logger.ErrorContext(c.Request.Context(), "unexpected error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, internalErrorBody)
}
