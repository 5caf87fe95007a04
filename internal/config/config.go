// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret は開発用の署名鍵。本番では必ずJWT_SECRETで上書きする。
const DefaultJWTSecret = "dev-secret-change-me"

// 実行環境名。
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Server
	ServerPort           string `env:"SERVER_PORT" envDefault:"8080"`
	ServerMaxConnections int    `env:"SERVER_MAX_CONNECTIONS" envDefault:"512"`
	AppEnv               string `env:"APP_ENV" envDefault:"production"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`

	// Auth
	JWTSecret           string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	VerificationCodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
	BcryptCost          int           `env:"BCRYPT_COST" envDefault:"10"`

	// Admin override
	AdminOverrideEnabled  bool   `env:"ADMIN_OVERRIDE_ENABLED" envDefault:"true"`
	AdminOverrideEmail    string `env:"ADMIN_OVERRIDE_EMAIL" envDefault:"admin"`
	AdminOverridePassword string `env:"ADMIN_OVERRIDE_PASSWORD" envDefault:"admin"`

	// SMTP
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM" envDefault:"no-reply@notegraph.local"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`

	// CORS / Proxy
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`
	TrustProxyHeaders bool   `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAuth    int `env:"RATE_LIMIT_AUTH" envDefault:"20"`
}

// Load はカレントディレクトリの.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。
// 必須環境変数が未設定の場合や値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom は指定した.envファイルと環境変数からConfigを読み込む。
// ファイルが存在しない場合は環境変数のみを使う。
func LoadFrom(dotenvPaths ...string) (*Config, error) {
	for _, path := range dotenvPaths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.ServerPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be a valid port number: %q", c.ServerPort))
	}
	if c.ServerMaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("SERVER_MAX_CONNECTIONS must be positive: %d", c.ServerMaxConnections))
	}
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, production, test: %q", c.AppEnv))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %q", c.LogLevel))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.VerificationCodeTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31: %d", c.BcryptCost))
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		errs = append(errs, fmt.Errorf("SMTP_PORT must be a valid port number: %d", c.SMTPPort))
	}
	if c.SMTPTimeout <= 0 {
		errs = append(errs, errors.New("SMTP_TIMEOUT must be positive"))
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitAuth <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_GENERAL and RATE_LIMIT_AUTH must be positive"))
	}
	if c.AdminOverrideEnabled && (c.AdminOverrideEmail == "" || c.AdminOverridePassword == "") {
		errs = append(errs, errors.New("ADMIN_OVERRIDE_EMAIL and ADMIN_OVERRIDE_PASSWORD are required when the admin override is enabled"))
	}

	return errors.Join(errs...)
}

// IsDevelopment は開発環境かを返す。
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// UsesDefaultJWTSecret は開発用の署名鍵のまま起動しているかを返す。
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}
