package handler

import (
	"context"

	"github.com/hitoshi/notegraph/internal/auth"
	"github.com/hitoshi/notegraph/internal/model"
	"github.com/hitoshi/notegraph/internal/note"
	"github.com/hitoshi/notegraph/internal/vault"
)

// AuthServiceAdapter は auth.Service を AuthServiceInterface に適合させるアダプタ。
type AuthServiceAdapter struct {
	svc *auth.Service
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service) *AuthServiceAdapter {
	return &AuthServiceAdapter{svc: svc}
}

// Register はユーザーを登録しhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) Register(ctx context.Context, username, email, password string) (*userResponse, error) {
	user, err := a.svc.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(*user)
	return &resp, nil
}

// VerifyEmail は確認コードを照合しhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) VerifyEmail(ctx context.Context, email, code string) (*authResponse, bool, error) {
	result, err := a.svc.VerifyEmail(ctx, email, code)
	if err != nil {
		return nil, false, err
	}
	if result.AlreadyVerified {
		return nil, true, nil
	}
	return toAuthResponse(result.Auth), false, nil
}

// ResendVerification は確認コードを再送する。
func (a *AuthServiceAdapter) ResendVerification(ctx context.Context, email string) error {
	return a.svc.ResendVerification(ctx, email)
}

// Login はログインしhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) Login(ctx context.Context, email, password string) (*authResponse, error) {
	result, err := a.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return toAuthResponse(result), nil
}

// ChangeUsername はユーザー名を変更しhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) ChangeUsername(ctx context.Context, userID int64, username string) (*userResponse, error) {
	user, err := a.svc.ChangeUsername(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(*user)
	return &resp, nil
}

// ChangePassword はパスワードを変更する。
func (a *AuthServiceAdapter) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	return a.svc.ChangePassword(ctx, userID, currentPassword, newPassword)
}

// DeleteAccount はアカウントを削除する。
func (a *AuthServiceAdapter) DeleteAccount(ctx context.Context, userID int64, password string) error {
	return a.svc.DeleteAccount(ctx, userID, password)
}

// ListUsersAsAdmin は全ユーザーをhandlerレスポンス型で返す。
func (a *AuthServiceAdapter) ListUsersAsAdmin(ctx context.Context, token string) ([]userResponse, error) {
	users, err := a.svc.ListUsersAsAdmin(ctx, token)
	if err != nil {
		return nil, err
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return resp, nil
}

// toUserResponse はドメインのPublicUserをhandlerのレスポンス型に変換する。
func toUserResponse(u model.PublicUser) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func toAuthResponse(r *auth.Result) *authResponse {
	resp := &authResponse{Token: r.Token, Role: r.Role}
	if r.User != nil {
		user := toUserResponse(*r.User)
		resp.User = &user
	}
	return resp
}

// NoteServiceAdapter は note.Service を NoteServiceInterface に適合させるアダプタ。
type NoteServiceAdapter struct {
	svc *note.Service
}

// NewNoteServiceAdapter はNoteServiceAdapterを生成する。
func NewNoteServiceAdapter(svc *note.Service) *NoteServiceAdapter {
	return &NoteServiceAdapter{svc: svc}
}

// CreateNote はリクエストの値をnote.CreateInputに詰め替えてノートを作成する。
func (a *NoteServiceAdapter) CreateNote(ctx context.Context, ownerID, vaultID int64, title string, content, hexKey *string) (*model.Note, error) {
	return a.svc.CreateNote(ctx, ownerID, note.CreateInput{
		VaultID: vaultID,
		Title:   title,
		Content: content,
		HexKey:  hexKey,
	})
}

// ListNotes はVault内のノート一覧を返す。
func (a *NoteServiceAdapter) ListNotes(ctx context.Context, ownerID, vaultID int64) ([]*model.Note, error) {
	return a.svc.ListNotes(ctx, ownerID, vaultID)
}

// GetNote はノート詳細を返す。
func (a *NoteServiceAdapter) GetNote(ctx context.Context, ownerID, id int64) (*model.NoteWithLinks, error) {
	return a.svc.GetNote(ctx, ownerID, id)
}

// UpdateNote はノートを更新する。
func (a *NoteServiceAdapter) UpdateNote(ctx context.Context, ownerID, id int64, upd model.NoteUpdate) (*model.Note, error) {
	return a.svc.UpdateNote(ctx, ownerID, id, upd)
}

// DeleteNote はノートを削除する。
func (a *NoteServiceAdapter) DeleteNote(ctx context.Context, ownerID, id int64) error {
	return a.svc.DeleteNote(ctx, ownerID, id)
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ NoteServiceInterface = (*NoteServiceAdapter)(nil)
var _ VaultServiceInterface = (*vault.Service)(nil)
var _ LinkServiceInterface = (*note.Service)(nil)
