// Package auth はユーザー登録、メール確認、ログイン、セッショントークン管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
	"github.com/hitoshi/notegraph/internal/repository"
)

const (
	minUsernameLength = 2
	minPasswordLength = 8
	// bcryptが扱える入力の上限。
	maxPasswordBytes = 72
)

func checkPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return model.NewBadRequestError("password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		return model.NewBadRequestError("password must be at most 72 bytes")
	}
	return nil
}

// CodeSender は確認コードをメールで送信する。
type CodeSender interface {
	SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// TokenManager はセッショントークンの発行と検証を行う。
type TokenManager interface {
	Issue(userID int64, role string) (string, error)
	Parse(token string) (model.Identity, error)
}

// EventRecorder は認証イベントの結果を記録する。
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// AdminOverride は固定の管理者資格情報によるログインの設定。
// Enabledがfalseの場合、資格情報の組は通常のログインとして扱われる。
type AdminOverride struct {
	Enabled  bool
	Email    string
	Password string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	VerificationCodeTTL time.Duration
	AdminOverride       AdminOverride
}

// Result はトークンを発行した認証操作の結果。
// 管理者オーバーライドの場合Userはnil。
type Result struct {
	Token string
	Role  string
	User  *model.PublicUser
}

// VerifyResult はメール確認の結果。
// 確認済みユーザーへの再確認ではAlreadyVerifiedがtrueになり、トークンは発行しない。
type VerifyResult struct {
	AlreadyVerified bool
	Auth            *Result
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    repository.UserRepository
	hasher   Hasher
	codes    CodeGenerator
	tokens   TokenManager
	sender   CodeSender
	recorder EventRecorder
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	users repository.UserRepository,
	hasher Hasher,
	codes CodeGenerator,
	tokens TokenManager,
	sender CodeSender,
	recorder EventRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		codes:    codes,
		tokens:   tokens,
		sender:   sender,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

func (s *Service) record(event, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordAuthEvent(event, outcome)
	}
}

// Register は未確認ユーザーを作成し、確認コードをメールで送信する。
// ユーザー作成をコミットした後に送信するため、送信失敗時もユーザーは残る。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.PublicUser, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, model.NewBadRequestError("username, email and password are required")
	}
	if len([]rune(username)) < minUsernameLength {
		return nil, model.NewBadRequestError("username must be at least 2 characters")
	}
	if err := checkPasswordLength(password); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		s.record("register", "conflict")
		return nil, model.NewConflictError("email already registered")
	}
	existing, err = s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}
	if existing != nil {
		s.record("register", "conflict")
		return nil, model.NewConflictError("username already taken")
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	code, codeHash, expiresAt, err := s.newVerificationCode()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:              username,
		Email:                 email,
		PasswordHash:          passwordHash,
		VerificationCodeHash:  &codeHash,
		VerificationExpiresAt: &expiresAt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.record("register", "conflict")
			return nil, model.NewConflictError("email or username already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", slog.Int64("user_id", user.ID))

	if err := s.sender.SendVerificationCode(ctx, user.Email, code, s.config.VerificationCodeTTL); err != nil {
		slog.Error("failed to send verification email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		s.record("register", "mail_failed")
		return nil, model.NewInternalError("failed to send verification email")
	}

	s.record("register", "success")
	pub := user.Public()
	return &pub, nil
}

// ResendVerification は未確認ユーザーに新しい確認コードを発行し、再送信する。
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewBadRequestError("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return model.NewNotFoundError("user")
	}
	if user.IsVerified {
		return model.NewBadRequestError("email already verified")
	}

	code, codeHash, expiresAt, err := s.newVerificationCode()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationCode(ctx, user.ID, codeHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.sender.SendVerificationCode(ctx, user.Email, code, s.config.VerificationCodeTTL); err != nil {
		slog.Error("failed to resend verification email",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.NewInternalError("failed to send verification email")
	}
	return nil
}

func (s *Service) newVerificationCode() (code, codeHash string, expiresAt time.Time, err error) {
	code, err = s.codes.Generate()
	if err != nil {
		return "", "", time.Time{}, err
	}
	codeHash, err = s.hasher.Hash(code)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return code, codeHash, s.now().Add(s.config.VerificationCodeTTL), nil
}

// VerifyEmail は確認コードを照合し、成功時にユーザーを確認済みにしてトークンを発行する。
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, model.NewBadRequestError("email and code are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("user")
	}
	if user.IsVerified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	if !user.HasPendingVerification() {
		return nil, model.NewBadRequestError("no verification pending")
	}
	if s.now().After(*user.VerificationExpiresAt) {
		s.record("verify_email", "expired")
		return nil, model.NewBadRequestError("code expired")
	}
	if !s.hasher.Verify(code, *user.VerificationCodeHash) {
		s.record("verify_email", "mismatch")
		return nil, model.NewUnauthorizedError("invalid code")
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}
	user.IsVerified = true
	user.VerificationCodeHash = nil
	user.VerificationExpiresAt = nil

	token, err := s.tokens.Issue(user.ID, model.RoleUser)
	if err != nil {
		return nil, err
	}

	slog.Info("email verified", slog.Int64("user_id", user.ID))
	s.record("verify_email", "success")

	pub := user.Public()
	return &VerifyResult{Auth: &Result{Token: token, Role: model.RoleUser, User: &pub}}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// 管理者オーバーライドが有効で資格情報が一致する場合は、ストレージを参照せず
// 合成ユーザーID 0 の管理者トークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if s.isAdminOverride(email, password) {
		token, err := s.tokens.Issue(model.AdminUserID, model.RoleAdmin)
		if err != nil {
			return nil, err
		}
		slog.Warn("admin override login used")
		s.record("login", "admin_override")
		return &Result{Token: token, Role: model.RoleAdmin}, nil
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewBadRequestError("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.record("login", "invalid_credentials")
		return nil, model.NewUnauthorizedError("invalid email or password")
	}
	if !user.IsVerified {
		s.record("login", "unverified")
		return nil, model.NewForbiddenError("email not verified")
	}

	token, err := s.tokens.Issue(user.ID, model.RoleUser)
	if err != nil {
		return nil, err
	}

	s.record("login", "success")
	pub := user.Public()
	return &Result{Token: token, Role: model.RoleUser, User: &pub}, nil
}

func (s *Service) isAdminOverride(email, password string) bool {
	o := s.config.AdminOverride
	return o.Enabled && o.Email != "" && email == o.Email && password == o.Password
}

// ChangeUsername はユーザー名を変更する。
func (s *Service) ChangeUsername(ctx context.Context, id int64, newUsername string) (*model.PublicUser, error) {
	newUsername = strings.TrimSpace(newUsername)
	if len([]rune(newUsername)) < minUsernameLength {
		return nil, model.NewBadRequestError("username must be at least 2 characters")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("user")
	}

	if err := s.users.UpdateUsername(ctx, id, newUsername); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError("username already taken")
		}
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	user.Username = newUsername
	pub := user.Public()
	return &pub, nil
}

// ChangePassword は現在のパスワードを再確認してから新しいパスワードに変更する。
func (s *Service) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return model.NewBadRequestError("currentPassword and newPassword are required")
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewNotFoundError("user")
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		s.record("change_password", "invalid_credentials")
		return model.NewUnauthorizedError("current password is incorrect")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, digest); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.record("change_password", "success")
	return nil
}

// DeleteAccount はパスワードを再確認してから、ユーザーと所有データを削除する。
func (s *Service) DeleteAccount(ctx context.Context, id int64, password string) error {
	if password == "" {
		return model.NewBadRequestError("password is required")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewNotFoundError("user")
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.record("delete_account", "invalid_credentials")
		return model.NewUnauthorizedError("password is incorrect")
	}

	if err := s.users.DeleteWithOwnedData(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	slog.Info("account deleted", slog.Int64("user_id", id))
	s.record("delete_account", "success")
	return nil
}

// ListUsersAsAdmin はトークンが管理者ロールを持つ場合に全ユーザーの公開情報を返す。
func (s *Service) ListUsersAsAdmin(ctx context.Context, token string) ([]model.PublicUser, error) {
	identity, err := s.tokens.Parse(token)
	if err != nil || !identity.IsAdmin() {
		return nil, model.NewForbiddenError("admin role required")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public())
	}
	return result, nil
}
