package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
)

// AuthServiceInterface はユーザーハンドラーが必要とする認証サービスインターフェース。
type AuthServiceInterface interface {
	// Register は未確認ユーザーを作成し、確認コードを送信する。
	Register(ctx context.Context, username, email, password string) (*userResponse, error)
	// VerifyEmail は確認コードを照合する。確認済みの場合はalreadyVerifiedがtrueになる。
	VerifyEmail(ctx context.Context, email, code string) (auth *authResponse, alreadyVerified bool, err error)
	// ResendVerification は新しい確認コードを送信する。
	ResendVerification(ctx context.Context, email string) error
	// Login はトークンを発行する。
	Login(ctx context.Context, email, password string) (*authResponse, error)
	ChangeUsername(ctx context.Context, userID int64, username string) (*userResponse, error)
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID int64, password string) error
	// ListUsersAsAdmin はトークンが管理者ロールを持つ場合に全ユーザーを返す。
	ListUsersAsAdmin(ctx context.Context, token string) ([]userResponse, error)
}

// UserHandler はユーザー登録・認証・アカウント管理のHTTPハンドラー。
type UserHandler struct {
	service AuthServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service AuthServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse はユーザーの公開情報のAPIレスポンス。
type userResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

// authResponse はトークンを発行した操作のAPIレスポンス。
// 管理者オーバーライドではuserを含まない。
type authResponse struct {
	Token string        `json:"token"`
	Role  string        `json:"role"`
	User  *userResponse `json:"user,omitempty"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changeUsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// Register はユーザーを登録する。
// POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// VerifyEmail はメールアドレスの確認コードを検証する。
// POST /users/verify-email
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	auth, alreadyVerified, err := h.service.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if alreadyVerified {
		writeJSON(w, http.StatusOK, messageResponse{Message: "email already verified"})
		return
	}

	writeJSON(w, http.StatusOK, auth)
}

// ResendVerification は確認コードを再送する。
// POST /users/resend-verification
func (h *UserHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendVerificationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "verification code sent"})
}

// Login はメールアドレスとパスワードでログインする。
// POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	auth, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, auth)
}

// UpdateUsername はユーザー名を変更する。
// PUT /users/{id}
func (h *UserHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeSelf(w, r)
	if !ok {
		return
	}

	var req changeUsernameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.ChangeUsername(r.Context(), userID, req.Username)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ChangePassword はパスワードを変更する。
// PUT /users/{id}/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeSelf(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

// DeleteAccount はパスワード確認の上でアカウントと所有データを削除する。
// DELETE /users/{id}
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorizeSelf(w, r)
	if !ok {
		return
	}

	var req deleteAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "user deleted"})
}

// ListUsers は管理者に全ユーザーの公開情報を返す。
// GET /users/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("missing or invalid token"))
		return
	}

	users, err := h.service.ListUsersAsAdmin(r.Context(), strings.TrimSpace(token))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// authorizeSelf はパスの{id}がトークンのユーザーIDと一致することを確認する。
func (h *UserHandler) authorizeSelf(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return 0, false
	}

	pathID, ok := parseIDParam(w, r, "id", "user")
	if !ok {
		return 0, false
	}
	if pathID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("cannot modify another user"))
		return 0, false
	}
	return userID, true
}
