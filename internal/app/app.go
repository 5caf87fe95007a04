// Package app はアプリケーションの初期化、依存関係のワイヤリング、サブコマンドの実行を提供する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/netutil"

	"github.com/hitoshi/notegraph/internal/auth"
	"github.com/hitoshi/notegraph/internal/config"
	"github.com/hitoshi/notegraph/internal/database"
	"github.com/hitoshi/notegraph/internal/handler"
	"github.com/hitoshi/notegraph/internal/logger"
	"github.com/hitoshi/notegraph/internal/mailer"
	"github.com/hitoshi/notegraph/internal/metrics"
	"github.com/hitoshi/notegraph/internal/middleware"
	"github.com/hitoshi/notegraph/internal/note"
	"github.com/hitoshi/notegraph/internal/repository"
	"github.com/hitoshi/notegraph/internal/vault"
	"github.com/hitoshi/notegraph/internal/worker/cleanup"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
	cleanupInterval = time.Hour
)

// Init はアプリケーションの初期化を行う。
// 環境変数（および.env）からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return err
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := runMigrate(cfg); err != nil {
			return err
		}
	}

	router, stop, err := buildRouter(cfg, db, slog.Default())
	if err != nil {
		return err
	}
	defer stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 期限切れ確認コードの消去をバックグラウンドで定期実行
	go cleanup.NewVerificationCodeJob(db, slog.Default()).Start(ctx, cleanupInterval)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.ServerMaxConnections)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Int("max_connections", cfg.ServerMaxConnections),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouter はリポジトリ、サービス、ミドルウェアをワイヤリングしたHTTPハンドラーを返す。
// 返されたstop関数でレートリミッターのバックグラウンド処理を停止する。
func buildRouter(cfg *config.Config, db *sql.DB, log *slog.Logger) (http.Handler, func(), error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	vaultRepo := repository.NewPostgresVaultRepo(db)
	noteRepo := repository.NewPostgresNoteRepo(db)
	linkRepo := repository.NewPostgresLinkRepo(db)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. 認証
	sender, err := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure mailer: %w", err)
	}

	if cfg.UsesDefaultJWTSecret() {
		log.Warn("JWT_SECRET is not set; using the development signing secret")
	}
	if cfg.AdminOverrideEnabled {
		log.Warn("admin override login is enabled", slog.String("email", cfg.AdminOverrideEmail))
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(
		userRepo,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.RandomCodeGenerator{},
		tokens,
		sender,
		collector,
		auth.ServiceConfig{
			VerificationCodeTTL: cfg.VerificationCodeTTL,
			AdminOverride: auth.AdminOverride{
				Enabled:  cfg.AdminOverrideEnabled,
				Email:    cfg.AdminOverrideEmail,
				Password: cfg.AdminOverridePassword,
			},
		},
	)

	// 4. ドメインサービス
	vaultService := vault.NewService(vaultRepo)
	noteService := note.NewService(vaultRepo, noteRepo, linkRepo)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
		collector,
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		TokenParser:       tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		ErrorDetail:       cfg.IsDevelopment(),
		TrustProxyHeaders: cfg.TrustProxyHeaders,

		HTTPRecorder:   collector,
		MetricsHandler: metrics.Handler(registry),

		AuthService:  handler.NewAuthServiceAdapter(authService),
		VaultService: vaultService,
		NoteService:  handler.NewNoteServiceAdapter(noteService),
		LinkService:  noteService,
		DB:           db,
	})

	return router, rateLimiter.Stop, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(target string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// URLとして解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
