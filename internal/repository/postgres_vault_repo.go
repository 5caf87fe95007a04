package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/notegraph/internal/model"
)

// PostgresVaultRepo はPostgreSQLを使用したVaultリポジトリ。
type PostgresVaultRepo struct {
	db *sql.DB
}

// NewPostgresVaultRepo はPostgresVaultRepoを生成する。
func NewPostgresVaultRepo(db *sql.DB) *PostgresVaultRepo {
	return &PostgresVaultRepo{db: db}
}

// FindByID は指定IDのVaultを取得する。見つからない場合はnilを返す。
func (r *PostgresVaultRepo) FindByID(ctx context.Context, id int64) (*model.Vault, error) {
	v := &model.Vault{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM vaults WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.OwnerID, &v.Name, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vault by ID: %w", err)
	}
	return v, nil
}

// ListByOwner は所有者のVaultを作成日時の昇順で返す。
func (r *PostgresVaultRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Vault, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at FROM vaults
		 WHERE owner_id = $1
		 ORDER BY created_at ASC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []*model.Vault
	for rows.Next() {
		v := &model.Vault{}
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vaults: %w", err)
	}
	return vaults, nil
}

// Create はVaultを作成し、採番されたIDと作成日時をvaultに設定する。
func (r *PostgresVaultRepo) Create(ctx context.Context, vault *model.Vault) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO vaults (owner_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		vault.OwnerID, vault.Name,
	).Scan(&vault.ID, &vault.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vault: %w", translateError(err))
	}
	return nil
}

// DeleteWithNotes はVault配下のリンク、ノート、Vault本体の順に削除する。
func (r *PostgresVaultRepo) DeleteWithNotes(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_links
			 WHERE from_note_id IN (SELECT id FROM notes WHERE vault_id = $1)
			    OR to_note_id IN (SELECT id FROM notes WHERE vault_id = $1)`,
			id,
		); err != nil {
			return fmt.Errorf("failed to delete links in vault: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE vault_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete notes in vault: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vaults WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete vault: %w", err)
		}
		return nil
	})
}

// compile-time interface check
var _ VaultRepository = (*PostgresVaultRepo)(nil)
