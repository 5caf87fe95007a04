package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/notegraph/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("title is required"))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Code != model.ErrCodeBadRequest {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeBadRequest)
	}
	if body.Message != "title is required" {
		t.Errorf("message = %q, want %q", body.Message, "title is required")
	}
	if body.Category != "validation" {
		t.Errorf("category = %q, want %q", body.Category, "validation")
	}
	if body.Action == "" {
		t.Error("action should not be empty")
	}
}

// TestWriteErrorResponse_DifferentStatusCodes は異なるステータスコードで正しく動作することを検証する。
func TestWriteErrorResponse_DifferentStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		apiErr     *model.APIError
	}{
		{"Unauthorized", http.StatusUnauthorized, model.NewUnauthorizedError("invalid credentials")},
		{"Forbidden", http.StatusForbidden, model.NewForbiddenError("not the owner of this note")},
		{"NotFound", http.StatusNotFound, model.NewNotFoundError("vault")},
		{"LinkExists", http.StatusConflict, model.NewLinkExistsError()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteErrorResponse(w, tt.statusCode, tt.apiErr)

			resp := w.Result()
			if resp.StatusCode != tt.statusCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.statusCode)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.apiErr.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.apiErr.Code)
			}
			if body.Category != tt.apiErr.Category {
				t.Errorf("category = %q, want %q", body.Category, tt.apiErr.Category)
			}
		})
	}
}

// TestInternalServerError_ReturnsSystemError は内部エラーが統一フォーマットで返り、detailを含まないことを検証する。
func TestInternalServerError_ReturnsSystemError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if raw["code"] != model.ErrCodeInternal {
		t.Errorf("code = %v, want %q", raw["code"], model.ErrCodeInternal)
	}
	if raw["category"] != "system" {
		t.Errorf("category = %v, want %q", raw["category"], "system")
	}
	if _, ok := raw["detail"]; ok {
		t.Error("detail must be omitted when empty")
	}
}

// TestInternalServerErrorWithDetail_IncludesDetail はdetail付きの500応答を検証する。
func TestInternalServerErrorWithDetail_IncludesDetail(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerErrorWithDetail(w, "pq: connection refused")

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Detail != "pq: connection refused" {
		t.Errorf("detail = %q", body.Detail)
	}
}

// TestErrorResponseBody_AllFieldsPresent は全フィールドがJSONレスポンスに含まれることを検証する。
func TestErrorResponseBody_AllFieldsPresent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "CODE",
		Message:  "MSG",
		Category: "CAT",
		Action:   "ACT",
	})

	var raw map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	for _, field := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
}

// TestErrorDetailMiddleware はenabledの場合のみコンテキストにフラグが立つことを検証する。
func TestErrorDetailMiddleware(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		var got bool
		handler := NewErrorDetailMiddleware(enabled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = ErrorDetailEnabled(r.Context())
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got != enabled {
			t.Errorf("enabled=%v: ErrorDetailEnabled = %v", enabled, got)
		}
	}
}
