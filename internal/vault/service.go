// Package vault はVault管理のドメインロジックを提供する。
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/notegraph/internal/model"
	"github.com/hitoshi/notegraph/internal/repository"
)

// Service はVault管理のサービス層。
// すべての操作は呼び出し元ユーザーが所有するVaultに限定される。
type Service struct {
	vaultRepo repository.VaultRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(vaultRepo repository.VaultRepository) *Service {
	return &Service{vaultRepo: vaultRepo}
}

// List は所有者のVaultを作成日時の昇順で返す。
func (s *Service) List(ctx context.Context, ownerID int64) ([]*model.Vault, error) {
	vaults, err := s.vaultRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Vault一覧の取得に失敗しました: %w", err)
	}
	return vaults, nil
}

// Create はVaultを作成する。名前は前後の空白を除去して保存する。
func (s *Service) Create(ctx context.Context, ownerID int64, name string) (*model.Vault, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewBadRequestError("name is required")
	}

	v := &model.Vault{OwnerID: ownerID, Name: name}
	if err := s.vaultRepo.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError("vault name already exists")
		}
		return nil, fmt.Errorf("Vaultの作成に失敗しました: %w", err)
	}
	return v, nil
}

// Delete はVaultを削除する。配下のノートとそれらのリンクも同時に削除される。
// 存在確認を所有者確認より先に行う。
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if id <= 0 {
		return model.NewBadRequestError("invalid vault id")
	}

	v, err := s.vaultRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("Vaultの取得に失敗しました: %w", err)
	}
	if v == nil {
		return model.NewNotFoundError("vault")
	}
	if v.OwnerID != ownerID {
		return model.NewForbiddenError("not the owner of this vault")
	}

	if err := s.vaultRepo.DeleteWithNotes(ctx, id); err != nil {
		return fmt.Errorf("Vaultの削除に失敗しました: %w", err)
	}

	slog.Info("vault deleted",
		slog.Int64("user_id", ownerID),
		slog.Int64("vault_id", id),
	)
	return nil
}
