package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
)

// LinkServiceInterface はリンクハンドラーが必要とするサービスインターフェース。
type LinkServiceInterface interface {
	// CreateLink は自分のノート間に有向リンクを作成する。
	CreateLink(ctx context.Context, ownerID, fromNoteID, toNoteID int64) (*model.NoteLink, error)
	// ListLinks は自分のノートから出るリンクを新しい順に返す。noteIDを指定するとそのノートに接するリンクに絞る。
	ListLinks(ctx context.Context, ownerID int64, noteID *int64) ([]*model.NoteLink, error)
	DeleteLink(ctx context.Context, ownerID, fromNoteID, toNoteID int64) error
}

// LinkHandler はノート間リンクのHTTPハンドラー。
type LinkHandler struct {
	service LinkServiceInterface
}

// NewLinkHandler はLinkHandlerを生成する。
func NewLinkHandler(service LinkServiceInterface) *LinkHandler {
	return &LinkHandler{service: service}
}

// linkResponse はリンクのAPIレスポンス。
type linkResponse struct {
	ID         int64     `json:"id"`
	FromNoteID int64     `json:"fromNoteId"`
	ToNoteID   int64     `json:"toNoteId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// linkRequest はリンクの作成・削除リクエストのボディ。
type linkRequest struct {
	FromNoteID flexibleID `json:"fromNoteId"`
	ToNoteID   flexibleID `json:"toNoteId"`
}

func toLinkResponse(l *model.NoteLink) linkResponse {
	return linkResponse{
		ID:         l.ID,
		FromNoteID: l.FromNoteID,
		ToNoteID:   l.ToNoteID,
		CreatedAt:  l.CreatedAt,
	}
}

// CreateLink はリンクを作成する。
// POST /links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req linkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	link, err := h.service.CreateLink(r.Context(), userID, int64(req.FromNoteID), int64(req.ToNoteID))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLinkResponse(link))
}

// ListLinks はリンク一覧を返す。
// GET /links?noteId=
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	noteID, present, err := parseIDQuery(r, "noteId")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError(err.Error()))
		return
	}
	var filter *int64
	if present {
		filter = &noteID
	}

	links, err := h.service.ListLinks(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]linkResponse, len(links))
	for i, l := range links {
		resp[i] = toLinkResponse(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteLink はリンクを削除する。対象はボディのfromNoteIdとtoNoteIdで指定する。
// DELETE /links
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req linkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.DeleteLink(r.Context(), userID, int64(req.FromNoteID), int64(req.ToNoteID)); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "deleted"})
}
