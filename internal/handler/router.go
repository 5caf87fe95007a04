package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/notegraph/internal/middleware"
	"github.com/hitoshi/notegraph/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenParser       middleware.TokenParser
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	// ErrorDetail がtrueの場合、500応答にエラー詳細を含める。
	ErrorDetail bool
	// TrustProxyHeaders がtrueの場合、X-Real-IPやX-Forwarded-ForからクライアントIPを復元する。
	// 信頼できる逆プロキシの背後に置く場合のみ有効にする。
	TrustProxyHeaders bool

	// メトリクス。nilの場合は計測しない。
	HTTPRecorder   middleware.HTTPRecorder
	MetricsHandler http.Handler

	// サービス
	AuthService  AuthServiceInterface
	VaultService VaultServiceInterface
	NoteService  NoteServiceInterface
	LinkService  LinkServiceInterface
	DB           Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → ErrorDetail
//
// 保護されたルートではさらに Auth → RequireUser → RateLimit(General) を適用する。
// 登録・ログイン系のルートにはクライアントIP単位のRateLimit(Auth)を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewErrorDetailMiddleware(deps.ErrorDetail))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, newMethodNotAllowedError(r.Method))
	})

	healthHandler := NewHealthHandler(deps.DB)
	userHandler := NewUserHandler(deps.AuthService)
	vaultHandler := NewVaultHandler(deps.VaultService)
	noteHandler := NewNoteHandler(deps.NoteService)
	linkHandler := NewLinkHandler(deps.LinkService)

	// --- 認証不要のルート ---
	r.Get("/ping", healthHandler.Ping)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authenticate := middleware.NewAuthMiddleware(deps.TokenParser)
	requireUser := middleware.NewRequireUserMiddleware()

	r.Route("/users", func(r chi.Router) {
		// 登録・確認・ログイン（クライアントIP単位のレート制限）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", userHandler.Register)
			r.Post("/verify-email", userHandler.VerifyEmail)
			r.Post("/resend-verification", userHandler.ResendVerification)
			r.Post("/login", userHandler.Login)
		})

		// 管理者向け一覧。ロールの判定はサービスが行う。
		r.With(authenticate, deps.RateLimiter.GeneralMiddleware()).Get("/admin/users", userHandler.ListUsers)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireUser)
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", userHandler.UpdateUsername)
				r.Delete("/", userHandler.DeleteAccount)
				r.Put("/password", userHandler.ChangePassword)
			})
		})
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RequireUser → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(requireUser)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/vaults", func(r chi.Router) {
			r.Get("/", vaultHandler.ListVaults)
			r.Post("/", vaultHandler.CreateVault)
			r.Delete("/{id}", vaultHandler.DeleteVault)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", noteHandler.ListNotes)
			r.Post("/", noteHandler.CreateNote)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", noteHandler.GetNote)
				r.Put("/", noteHandler.UpdateNote)
				r.Delete("/", noteHandler.DeleteNote)
			})
		})

		r.Route("/links", func(r chi.Router) {
			r.Get("/", linkHandler.ListLinks)
			r.Post("/", linkHandler.CreateLink)
			r.Delete("/", linkHandler.DeleteLink)
		})
	})

	return r
}
