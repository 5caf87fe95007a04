package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/notegraph/internal/middleware"
	"github.com/hitoshi/notegraph/internal/model"
)

// VaultServiceInterface はVaultハンドラーが必要とするサービスインターフェース。
type VaultServiceInterface interface {
	List(ctx context.Context, ownerID int64) ([]*model.Vault, error)
	Create(ctx context.Context, ownerID int64, name string) (*model.Vault, error)
	// Delete はVaultと配下のノート・リンクを削除する。
	Delete(ctx context.Context, ownerID, id int64) error
}

// VaultHandler はVault管理のHTTPハンドラー。
type VaultHandler struct {
	service VaultServiceInterface
}

// NewVaultHandler はVaultHandlerを生成する。
func NewVaultHandler(service VaultServiceInterface) *VaultHandler {
	return &VaultHandler{service: service}
}

// vaultResponse はVaultのAPIレスポンス。
type vaultResponse struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type createVaultRequest struct {
	Name string `json:"name"`
}

func toVaultResponse(v *model.Vault) vaultResponse {
	return vaultResponse{
		ID:        v.ID,
		OwnerID:   v.OwnerID,
		Name:      v.Name,
		CreatedAt: v.CreatedAt,
	}
}

// ListVaults は自分のVault一覧を返す。
// GET /vaults
func (h *VaultHandler) ListVaults(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	vaults, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]vaultResponse, len(vaults))
	for i, v := range vaults {
		resp[i] = toVaultResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateVault はVaultを作成する。
// POST /vaults
func (h *VaultHandler) CreateVault(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createVaultRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vault, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVaultResponse(vault))
}

// DeleteVault はVaultを削除する。
// DELETE /vaults/{id}
func (h *VaultHandler) DeleteVault(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r, "id", "vault")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "vault deleted"})
}

// requireUserID はコンテキストから所有者となるユーザーIDを取り出す。
// 取り出せない場合は401応答を書き込む。
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("authentication required"))
		return 0, false
	}
	return userID, true
}
