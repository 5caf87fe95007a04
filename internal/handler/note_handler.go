package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
)

// NoteServiceInterface はノートハンドラーが必要とするサービスインターフェース。
type NoteServiceInterface interface {
	// CreateNote はVaultにノートを作成する。contentとhexKeyは省略可能。
	CreateNote(ctx context.Context, ownerID, vaultID int64, title string, content, hexKey *string) (*model.Note, error)
	// ListNotes はVault内の自分のノートを更新日時の降順で返す。
	ListNotes(ctx context.Context, ownerID, vaultID int64) ([]*model.Note, error)
	// GetNote はノートと入出力リンクを返す。
	GetNote(ctx context.Context, ownerID, id int64) (*model.NoteWithLinks, error)
	// UpdateNote はノートを部分更新する。
	UpdateNote(ctx context.Context, ownerID, id int64, upd model.NoteUpdate) (*model.Note, error)
	// DeleteNote はノートと関連リンクを削除する。
	DeleteNote(ctx context.Context, ownerID, id int64) error
}

// NoteHandler はノート管理のHTTPハンドラー。
type NoteHandler struct {
	service NoteServiceInterface
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(service NoteServiceInterface) *NoteHandler {
	return &NoteHandler{service: service}
}

// noteResponse はノートのAPIレスポンス。
type noteResponse struct {
	ID        int64     `json:"id"`
	VaultID   int64     `json:"vaultId"`
	OwnerID   int64     `json:"ownerId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	HexKey    *string   `json:"hexKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// noteSummaryResponse はリンクの反対側のノートの要約。
type noteSummaryResponse struct {
	ID        int64     `json:"id"`
	VaultID   int64     `json:"vaultId"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type outgoingLinkResponse struct {
	linkResponse
	ToNote noteSummaryResponse `json:"toNote"`
}

type incomingLinkResponse struct {
	linkResponse
	FromNote noteSummaryResponse `json:"fromNote"`
}

// noteDetailResponse はリンク付きのノート詳細のAPIレスポンス。
type noteDetailResponse struct {
	noteResponse
	OutgoingLinks []outgoingLinkResponse `json:"outgoingLinks"`
	IncomingLinks []incomingLinkResponse `json:"incomingLinks"`
}

type createNoteRequest struct {
	Title   string     `json:"title"`
	Content *string    `json:"content"`
	VaultID flexibleID `json:"vaultId"`
	HexKey  *string    `json:"hexKey"`
}

type updateNoteRequest struct {
	Title   string      `json:"title"`
	Content *string     `json:"content"`
	VaultID *flexibleID `json:"vaultId"`
	HexKey  *string     `json:"hexKey"`
}

func toNoteResponse(n *model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		VaultID:   n.VaultID,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Content:   n.Content,
		HexKey:    n.HexKey,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toNoteSummaryResponse(s model.NoteSummary) noteSummaryResponse {
	return noteSummaryResponse{
		ID:        s.ID,
		VaultID:   s.VaultID,
		Title:     s.Title,
		UpdatedAt: s.UpdatedAt,
	}
}

func toNoteDetailResponse(d *model.NoteWithLinks) noteDetailResponse {
	resp := noteDetailResponse{
		noteResponse:  toNoteResponse(&d.Note),
		OutgoingLinks: make([]outgoingLinkResponse, len(d.Outgoing)),
		IncomingLinks: make([]incomingLinkResponse, len(d.Incoming)),
	}
	for i, l := range d.Outgoing {
		resp.OutgoingLinks[i] = outgoingLinkResponse{
			linkResponse: toLinkResponse(&l.Link),
			ToNote:       toNoteSummaryResponse(l.Note),
		}
	}
	for i, l := range d.Incoming {
		resp.IncomingLinks[i] = incomingLinkResponse{
			linkResponse: toLinkResponse(&l.Link),
			FromNote:     toNoteSummaryResponse(l.Note),
		}
	}
	return resp
}

// CreateNote はノートを作成する。
// POST /notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	note, err := h.service.CreateNote(r.Context(), userID, int64(req.VaultID), req.Title, req.Content, req.HexKey)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

// ListNotes はVault内のノート一覧を返す。
// GET /notes?vaultId=
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	vaultID, present, err := parseIDQuery(r, "vaultId")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError(err.Error()))
		return
	}
	if !present {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewBadRequestError("vaultId is required"))
		return
	}

	notes, err := h.service.ListNotes(r.Context(), userID, vaultID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]noteResponse, len(notes))
	for i, n := range notes {
		resp[i] = toNoteResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetNote はリンク付きのノート詳細を返す。
// GET /notes/{id}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	detail, err := h.service.GetNote(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoteDetailResponse(detail))
}

// UpdateNote はノートを更新する。
// PUT /notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	var req updateNoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	note, err := h.service.UpdateNote(r.Context(), userID, id, model.NoteUpdate{
		Title:   req.Title,
		Content: req.Content,
		VaultID: req.VaultID.ptr(),
		HexKey:  req.HexKey,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

// DeleteNote はノートを削除する。
// DELETE /notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r, "id", "note")
	if !ok {
		return
	}

	if err := h.service.DeleteNote(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "deleted"})
}
