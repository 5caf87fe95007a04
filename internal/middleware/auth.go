// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/notegraph/internal/model"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みIDを格納するためのキー。
var identityContextKey = contextKey("identity")

// TokenParser はセッショントークンを検証してIDを取り出す。
// auth.TokenIssuerの部分集合として定義する。
type TokenParser interface {
	Parse(token string) (model.Identity, error)
}

// ResolveIdentity はAuthorizationヘッダーからIDを解決する。
// ヘッダーがない、形式が違う、トークンが無効のいずれでもfalseを返す。
func ResolveIdentity(parser TokenParser, header string) (model.Identity, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return model.Identity{}, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return model.Identity{}, false
	}
	identity, err := parser.Parse(token)
	if err != nil {
		return model.Identity{}, false
	}
	return identity, true
}

// NewAuthMiddleware はBearerトークンを検証するミドルウェアを返す。
// 認証済みIDをリクエストコンテキストに注入する。
// IDを解決できないリクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := ResolveIdentity(parser, r.Header.Get("Authorization"))
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized,
					model.NewUnauthorizedError("missing or invalid token"))
				return
			}

			recordUserIDForAccessLog(r.Context(), identity.UserID)
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireUserMiddleware はユーザーIDを持たないID（管理者オーバーライド）を拒否する。
// Vaultやノートなど所有者を持つリソースのルートで、NewAuthMiddlewareの後に配置する。
func NewRequireUserMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := UserIDFromContext(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusForbidden,
					model.NewForbiddenError("a user account is required for this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みIDを取得する。
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過し、かつ実在ユーザーのIDを持つ場合のみ有効。
func UserIDFromContext(ctx context.Context) (int64, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID <= 0 {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return identity.UserID, nil
}

// ContextWithIdentity はコンテキストに認証済みIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// ContextWithUserID は一般ユーザーとしてのIDをコンテキストに注入する。
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return ContextWithIdentity(ctx, model.Identity{UserID: userID, Role: model.RoleUser})
}
