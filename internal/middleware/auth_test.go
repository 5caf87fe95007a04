package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notegraph/internal/model"
)

// stubTokenParser は登録済みトークンのみを受け付けるTokenParser。
type stubTokenParser struct {
	identities map[string]model.Identity
}

func (p *stubTokenParser) Parse(token string) (model.Identity, error) {
	identity, ok := p.identities[token]
	if !ok {
		return model.Identity{}, errors.New("invalid token")
	}
	return identity, nil
}

func newStubParser() *stubTokenParser {
	return &stubTokenParser{identities: map[string]model.Identity{
		"user-token":  {UserID: 42, Role: model.RoleUser},
		"admin-token": {UserID: model.AdminUserID, Role: model.RoleAdmin},
	}}
}

func TestResolveIdentity(t *testing.T) {
	parser := newStubParser()

	tests := []struct {
		name   string
		header string
		ok     bool
		userID int64
	}{
		{"valid bearer", "Bearer user-token", true, 42},
		{"admin bearer", "Bearer admin-token", true, 0},
		{"missing header", "", false, 0},
		{"wrong scheme", "Basic user-token", false, 0},
		{"empty token", "Bearer ", false, 0},
		{"unknown token", "Bearer forged", false, 0},
		{"lowercase scheme", "bearer user-token", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, ok := ResolveIdentity(parser, tt.header)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if identity.UserID != tt.userID {
				t.Errorf("UserID = %d, want %d", identity.UserID, tt.userID)
			}
		})
	}
}

func TestAuthMiddleware_InjectsIdentity(t *testing.T) {
	var captured model.Identity
	handler := NewAuthMiddleware(newStubParser())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/vaults", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := serve(handler, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured.UserID != 42 || captured.Role != model.RoleUser {
		t.Errorf("identity = %+v", captured)
	}
}

func TestAuthMiddleware_RejectsWithUnifiedError(t *testing.T) {
	handler := NewAuthMiddleware(newStubParser())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/vaults", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := serve(handler, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}

func TestRequireUserMiddleware_RejectsAdminIdentity(t *testing.T) {
	handler := NewAuthMiddleware(newStubParser())(NewRequireUserMiddleware()(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	if w := serve(handler, req); w.Code != http.StatusForbidden {
		t.Errorf("admin: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	if w := serve(handler, req); w.Code != http.StatusOK {
		t.Errorf("user: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithIdentity(req.Context(), model.Identity{Role: model.RoleAdmin})
	if _, err := UserIDFromContext(ctx); err == nil {
		t.Error("expected error for admin identity without user id")
	}

	ctx = ContextWithUserID(req.Context(), 9)
	if id, err := UserIDFromContext(ctx); err != nil || id != 9 {
		t.Errorf("UserIDFromContext = %d, %v; want 9, nil", id, err)
	}
}

// TestMiddlewareChain_WithChiRouter は認証とレート制限のチェーンがchi.Routerで動作することを検証する。
func TestMiddlewareChain_WithChiRouter(t *testing.T) {
	rl := newFrozenRateLimiter(t, testLimiterConfig(2, 1), nil)

	r := chi.NewRouter()
	r.Use(NewRequestIDMiddleware())
	r.Use(NewCORSMiddleware("http://localhost:3000"))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(newStubParser()))
		r.Use(NewRequireUserMiddleware())
		r.Use(rl.GeneralMiddleware())
		r.Get("/vaults", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]int64{"userId": userID})
		})
	})

	// 認証不要のルート
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil)); w.Code != http.StatusOK {
		t.Fatalf("ping: status = %d", w.Code)
	}

	// 認証なしは401
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/vaults", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	authed := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/vaults", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		return req
	}

	w := serve(r, authed())
	if w.Code != http.StatusOK {
		t.Fatalf("first: status = %d", w.Code)
	}
	var body map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["userId"] != 42 {
		t.Errorf("userId = %d, want 42", body["userId"])
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID on response")
	}

	serve(r, authed())
	if w := serve(r, authed()); w.Code != http.StatusTooManyRequests {
		t.Errorf("third: status = %d, want 429", w.Code)
	}
}
