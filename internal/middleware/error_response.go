package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/notegraph/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。Detailは開発環境の500応答でのみ設定する。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeErrorBody(w, statusCode, ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteInternalServerErrorWithDetail(w, "")
}

// WriteInternalServerErrorWithDetail は診断用のdetailを付けて500レスポンスを書き込む。
// detailが空の場合はフィールド自体を省略する。
func WriteInternalServerErrorWithDetail(w http.ResponseWriter, detail string) {
	apiErr := model.NewInternalError("an internal error occurred")
	writeErrorBody(w, http.StatusInternalServerError, ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Detail:   detail,
	})
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

var errorDetailContextKey = contextKey("error_detail")

// NewErrorDetailMiddleware は500応答にエラー詳細を含めるかどうかをコンテキストに設定する。
// 開発環境でのみenabledをtrueにする。
func NewErrorDetailMiddleware(enabled bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithErrorDetail(r.Context())))
		})
	}
}

// ContextWithErrorDetail はエラー詳細の出力を有効にしたコンテキストを返す。
func ContextWithErrorDetail(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorDetailContextKey, true)
}

// ErrorDetailEnabled はエラー詳細を出力すべきかを返す。
func ErrorDetailEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(errorDetailContextKey).(bool)
	return enabled
}
