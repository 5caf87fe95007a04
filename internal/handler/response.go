// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/notegraph/internal/middleware"
	"github.com/hitoshi/notegraph/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// apiErrorResponse はAPIエラーレスポンスの統一フォーマット。
type apiErrorResponse = middleware.ErrorResponseBody

// messageResponse は {"message": "..."} 形式の応答。
type messageResponse struct {
	Message string `json:"message"`
}

var validate = newValidator()

// newValidator はJSONタグ名でフィールドを報告するバリデーターを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON はステータスコードとともにJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外のエラーはログに記録し、500として返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	if middleware.ErrorDetailEnabled(r.Context()) {
		middleware.WriteInternalServerErrorWithDetail(w, err.Error())
		return
	}
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeBadRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict, model.ErrCodeLinkExists:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// newMethodNotAllowedError はルートが存在するがメソッドが異なる場合のエラーを生成する。
func newMethodNotAllowedError(method string) *model.APIError {
	return &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "method " + method + " is not allowed",
		Category: "validation",
		Action:   "Check the HTTP method for this endpoint.",
	}
}

// decodeAndValidate はリクエストボディをdstにデコードし、validateタグで検証する。
// 失敗した場合は400応答を書き込み、falseを返す。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readBody(w, r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError(decodeErrorMessage(err)))
			return false
		}
	}

	if err := validate.Struct(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError(validationMessage(err)))
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	_, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	return buf.Bytes(), err
}

func decodeErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has an invalid type", typeErr.Field)
	}
	var idErr *invalidIDError
	if errors.As(err, &idErr) {
		return idErr.Error()
	}
	return "request body must be valid JSON"
}

// validationMessage は最初の検証エラーをクライアント向けのメッセージに変換する。
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// parseIDParam はURLパラメータの正の整数IDを取り出す。
// 不正な場合は400応答を書き込み、falseを返す。
func parseIDParam(w http.ResponseWriter, r *http.Request, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("invalid "+resource+" id"))
		return 0, false
	}
	return id, true
}

// parseIDQuery はクエリパラメータの正の整数IDを取り出す。
// 未指定の場合はpresentがfalseになる。
func parseIDQuery(r *http.Request, name string) (id int64, present bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, true, nil
}

// flexibleID は数値と数字文字列のどちらでも受け付けるJSON上のID。
// nullや空文字列は0として扱う。
type flexibleID int64

type invalidIDError struct {
	raw string
}

func (e *invalidIDError) Error() string {
	return fmt.Sprintf("invalid id %s", e.raw)
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (id *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		unquoted = strings.TrimSpace(unquoted)
		if unquoted == "" {
			*id = 0
			return nil
		}
		raw = unquoted
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return &invalidIDError{raw: string(data)}
	}
	*id = flexibleID(n)
	return nil
}

// ptr はflexibleIDをint64のポインタに変換する。nilの場合はnilを返す。
func (id *flexibleID) ptr() *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
