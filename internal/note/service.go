// Package note はノートとノート間リンクのドメインロジックを提供する。
package note

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

// CreateInput はノート作成の入力。
type CreateInput struct {
	VaultID int64
	Title   string
	Content *string
	HexKey  *string
}

// Service はノートグラフのサービス層。
// ノートとリンクへのアクセスは、呼び出し元が所有するノートに限定される。
type Service struct {
	vaultRepo repository.VaultRepository
	noteRepo  repository.NoteRepository
	linkRepo  repository.LinkRepository
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	vaultRepo repository.VaultRepository,
	noteRepo repository.NoteRepository,
	linkRepo repository.LinkRepository,
) *Service {
	return &Service{
		vaultRepo: vaultRepo,
		noteRepo:  noteRepo,
		linkRepo:  linkRepo,
		now:       time.Now,
	}
}

// CreateNote はVaultにノートを作成する。
// タイトルは前後の空白を除去した上で必須、Vaultは呼び出し元の所有でなければならない。
func (s *Service) CreateNote(ctx context.Context, ownerID int64, in CreateInput) (*model.Note, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.NewBadRequestError("title is required")
	}
	if in.VaultID <= 0 {
		return nil, model.NewBadRequestError("vaultId is required")
	}

	if err := s.checkVaultOwner(ctx, ownerID, in.VaultID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := &model.Note{
		VaultID:   in.VaultID,
		OwnerID:   ownerID,
		Title:     title,
		HexKey:    in.HexKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Content != nil {
		n.Content = *in.Content
	}

	if err := s.noteRepo.Create(ctx, n); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, model.NewNotFoundError("vault")
		}
		return nil, fmt.Errorf("ノートの作成に失敗しました: %w", err)
	}
	return n, nil
}

// ListNotes はVaultと所有者の両方に一致するノートを更新日時の降順で返す。
func (s *Service) ListNotes(ctx context.Context, ownerID, vaultID int64) ([]*model.Note, error) {
	if vaultID <= 0 {
		return nil, model.NewBadRequestError("vaultId is required")
	}
	notes, err := s.noteRepo.ListByVaultAndOwner(ctx, vaultID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ノート一覧の取得に失敗しました: %w", err)
	}
	return notes, nil
}

// GetNote はノートを、出ていくリンクと入ってくるリンクとあわせて返す。
func (s *Service) GetNote(ctx context.Context, ownerID, id int64) (*model.NoteWithLinks, error) {
	n, err := s.ownedNote(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	outgoing, err := s.linkRepo.ListOutgoing(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リンク先の取得に失敗しました: %w", err)
	}
	incoming, err := s.linkRepo.ListIncoming(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リンク元の取得に失敗しました: %w", err)
	}

	return &model.NoteWithLinks{Note: *n, Outgoing: outgoing, Incoming: incoming}, nil
}

// UpdateNote はノートを部分更新する。
// タイトルは常に必須。nilの任意フィールドは変更しない。
func (s *Service) UpdateNote(ctx context.Context, ownerID, id int64, upd model.NoteUpdate) (*model.Note, error) {
	n, err := s.ownedNote(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(upd.Title)
	if title == "" {
		return nil, model.NewBadRequestError("title is required")
	}
	if upd.VaultID != nil && *upd.VaultID != n.VaultID {
		if *upd.VaultID <= 0 {
			return nil, model.NewBadRequestError("invalid vaultId")
		}
		if err := s.checkVaultOwner(ctx, ownerID, *upd.VaultID); err != nil {
			return nil, err
		}
		n.VaultID = *upd.VaultID
	}

	n.Title = title
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.HexKey != nil {
		n.HexKey = upd.HexKey
	}
	n.UpdatedAt = s.now().UTC()

	if err := s.noteRepo.Update(ctx, n); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, model.NewNotFoundError("vault")
		}
		return nil, fmt.Errorf("ノートの更新に失敗しました: %w", err)
	}
	return n, nil
}

// DeleteNote はノートと、そのノートを端点に持つすべてのリンクを削除する。
func (s *Service) DeleteNote(ctx context.Context, ownerID, id int64) error {
	if _, err := s.ownedNote(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.noteRepo.DeleteWithLinks(ctx, id); err != nil {
		return fmt.Errorf("ノートの削除に失敗しました: %w", err)
	}

	slog.Info("note deleted",
		slog.Int64("user_id", ownerID),
		slog.Int64("note_id", id),
	)
	return nil
}

// CreateLink はfromNoteIDからtoNoteIDへの有向リンクを作成する。
// 両端のノートが呼び出し元の所有であることを確認してから作成する。
func (s *Service) CreateLink(ctx context.Context, ownerID, fromNoteID, toNoteID int64) (*model.NoteLink, error) {
	if fromNoteID <= 0 || toNoteID <= 0 {
		return nil, model.NewBadRequestError("fromNoteId and toNoteId are required")
	}
	if fromNoteID == toNoteID {
		return nil, model.NewBadRequestError("a note cannot link to itself")
	}

	if _, err := s.ownedNote(ctx, ownerID, fromNoteID); err != nil {
		return nil, err
	}
	if _, err := s.ownedNote(ctx, ownerID, toNoteID); err != nil {
		return nil, err
	}

	link := &model.NoteLink{FromNoteID: fromNoteID, ToNoteID: toNoteID}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewLinkExistsError()
		case errors.Is(err, repository.ErrForeignKey):
			return nil, model.NewNotFoundError("note")
		}
		return nil, fmt.Errorf("リンクの作成に失敗しました: %w", err)
	}
	return link, nil
}

// ListLinks はリンク元ノートが呼び出し元に属するリンクをID降順で返す。
// noteIDを指定すると、そのノートを端点に持つリンクに絞り込む。
func (s *Service) ListLinks(ctx context.Context, ownerID int64, noteID *int64) ([]*model.NoteLink, error) {
	if noteID != nil && *noteID <= 0 {
		return nil, model.NewBadRequestError("invalid noteId")
	}
	links, err := s.linkRepo.ListByOwner(ctx, ownerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("リンク一覧の取得に失敗しました: %w", err)
	}
	return links, nil
}

// DeleteLink は向き付きの組に一致するリンクを削除する。
func (s *Service) DeleteLink(ctx context.Context, ownerID, fromNoteID, toNoteID int64) error {
	if fromNoteID <= 0 || toNoteID <= 0 {
		return model.NewBadRequestError("fromNoteId and toNoteId are required")
	}

	link, err := s.linkRepo.FindByPair(ctx, fromNoteID, toNoteID)
	if err != nil {
		return fmt.Errorf("リンクの取得に失敗しました: %w", err)
	}
	if link == nil {
		return model.NewNotFoundError("link")
	}

	from, err := s.noteRepo.FindByID(ctx, fromNoteID)
	if err != nil {
		return fmt.Errorf("ノートの取得に失敗しました: %w", err)
	}
	if from == nil || from.OwnerID != ownerID {
		return model.NewForbiddenError("not the owner of this link")
	}

	deleted, err := s.linkRepo.DeleteByPair(ctx, fromNoteID, toNoteID)
	if err != nil {
		return fmt.Errorf("リンクの削除に失敗しました: %w", err)
	}
	// 確認後に並行して削除された場合
	if deleted == 0 {
		return model.NewNotFoundError("link")
	}
	return nil
}

// ownedNote はノートを取得し、存在と所有者を順に確認する。
func (s *Service) ownedNote(ctx context.Context, ownerID, id int64) (*model.Note, error) {
	if id <= 0 {
		return nil, model.NewBadRequestError("invalid note id")
	}
	n, err := s.noteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ノートの取得に失敗しました: %w", err)
	}
	if n == nil {
		return nil, model.NewNotFoundError("note")
	}
	if n.OwnerID != ownerID {
		return nil, model.NewForbiddenError("not the owner of this note")
	}
	return n, nil
}

func (s *Service) checkVaultOwner(ctx context.Context, ownerID, vaultID int64) error {
	v, err := s.vaultRepo.FindByID(ctx, vaultID)
	if err != nil {
		return fmt.Errorf("Vaultの取得に失敗しました: %w", err)
	}
	if v == nil {
		return model.NewNotFoundError("vault")
	}
	if v.OwnerID != ownerID {
		return model.NewForbiddenError("not the owner of this vault")
	}
	return nil
}
