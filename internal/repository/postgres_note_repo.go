package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/notegraph/internal/model"
)

const noteColumns = `id, vault_id, owner_id, title, content, hex_key, created_at, updated_at`

// PostgresNoteRepo はPostgreSQLを使用したノートリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

func scanNote(row rowScanner) (*model.Note, error) {
	n := &model.Note{}
	err := row.Scan(&n.ID, &n.VaultID, &n.OwnerID, &n.Title, &n.Content, &n.HexKey, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
func (r *PostgresNoteRepo) FindByID(ctx context.Context, id int64) (*model.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note by ID: %w", err)
	}
	return n, nil
}

// ListByVaultAndOwner はVaultと所有者の両方に一致するノートを更新日時の降順で返す。
func (r *PostgresNoteRepo) ListByVaultAndOwner(ctx context.Context, vaultID, ownerID int64) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE vault_id = $1 AND owner_id = $2
		 ORDER BY updated_at DESC, id DESC`,
		vaultID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Create はノートを作成し、採番されたIDをnoteに設定する。
// CreatedAt/UpdatedAt は呼び出し側が設定した値をそのまま保存する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notes (vault_id, owner_id, title, content, hex_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		note.VaultID, note.OwnerID, note.Title, note.Content, note.HexKey, note.CreatedAt, note.UpdatedAt,
	).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", translateError(err))
	}
	return nil
}

// Update はノートのタイトル、本文、Vault、鍵素材と更新日時を上書きする。
func (r *PostgresNoteRepo) Update(ctx context.Context, note *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notes
		 SET title = $1, content = $2, vault_id = $3, hex_key = $4, updated_at = $5
		 WHERE id = $6`,
		note.Title, note.Content, note.VaultID, note.HexKey, note.UpdatedAt, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", translateError(err))
	}
	return nil
}

// DeleteWithLinks はノートを参照するリンクを削除してからノートを削除する。
func (r *PostgresNoteRepo) DeleteWithLinks(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_links WHERE from_note_id = $1 OR to_note_id = $1`,
			id,
		); err != nil {
			return fmt.Errorf("failed to delete links of note: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		return nil
	})
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
