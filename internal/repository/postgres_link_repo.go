package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/notegraph/internal/model"
)

// PostgresLinkRepo はPostgreSQLを使用したノート間リンクのリポジトリ。
type PostgresLinkRepo struct {
	db *sql.DB
}

// NewPostgresLinkRepo はPostgresLinkRepoを生成する。
func NewPostgresLinkRepo(db *sql.DB) *PostgresLinkRepo {
	return &PostgresLinkRepo{db: db}
}

// Create はリンクを作成し、採番されたIDと作成日時をlinkに設定する。
func (r *PostgresLinkRepo) Create(ctx context.Context, link *model.NoteLink) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO note_links (from_note_id, to_note_id) VALUES ($1, $2) RETURNING id, created_at`,
		link.FromNoteID, link.ToNoteID,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", translateError(err))
	}
	return nil
}

// FindByPair は向き付きのノートIDの組でリンクを取得する。見つからない場合はnilを返す。
func (r *PostgresLinkRepo) FindByPair(ctx context.Context, fromNoteID, toNoteID int64) (*model.NoteLink, error) {
	l := &model.NoteLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, from_note_id, to_note_id, created_at FROM note_links
		 WHERE from_note_id = $1 AND to_note_id = $2`,
		fromNoteID, toNoteID,
	).Scan(&l.ID, &l.FromNoteID, &l.ToNoteID, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return l, nil
}

// DeleteByPair は向き付きのノートIDの組でリンクを削除し、削除件数を返す。
func (r *PostgresLinkRepo) DeleteByPair(ctx context.Context, fromNoteID, toNoteID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM note_links WHERE from_note_id = $1 AND to_note_id = $2`,
		fromNoteID, toNoteID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete link: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListByOwner はリンク元ノートが所有者に属するリンクをID降順で返す。
func (r *PostgresLinkRepo) ListByOwner(ctx context.Context, ownerID int64, noteID *int64) ([]*model.NoteLink, error) {
	query := `SELECT l.id, l.from_note_id, l.to_note_id, l.created_at
		FROM note_links l
		JOIN notes n ON n.id = l.from_note_id
		WHERE n.owner_id = $1`
	args := []any{ownerID}
	if noteID != nil {
		query += ` AND (l.from_note_id = $2 OR l.to_note_id = $2)`
		args = append(args, *noteID)
	}
	query += ` ORDER BY l.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*model.NoteLink
	for rows.Next() {
		l := &model.NoteLink{}
		if err := rows.Scan(&l.ID, &l.FromNoteID, &l.ToNoteID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}
	return links, nil
}

// ListOutgoing はノートから出るリンクをリンク先ノートの要約付きで返す。
func (r *PostgresLinkRepo) ListOutgoing(ctx context.Context, noteID int64) ([]model.LinkedNote, error) {
	return r.listLinked(ctx,
		`SELECT l.id, l.from_note_id, l.to_note_id, l.created_at, n.id, n.vault_id, n.title, n.updated_at
		 FROM note_links l
		 JOIN notes n ON n.id = l.to_note_id
		 WHERE l.from_note_id = $1
		 ORDER BY l.id`,
		noteID,
	)
}

// ListIncoming はノートに入るリンクをリンク元ノートの要約付きで返す。
func (r *PostgresLinkRepo) ListIncoming(ctx context.Context, noteID int64) ([]model.LinkedNote, error) {
	return r.listLinked(ctx,
		`SELECT l.id, l.from_note_id, l.to_note_id, l.created_at, n.id, n.vault_id, n.title, n.updated_at
		 FROM note_links l
		 JOIN notes n ON n.id = l.from_note_id
		 WHERE l.to_note_id = $1
		 ORDER BY l.id`,
		noteID,
	)
}

func (r *PostgresLinkRepo) listLinked(ctx context.Context, query string, noteID int64) ([]model.LinkedNote, error) {
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked notes: %w", err)
	}
	defer rows.Close()

	linked := []model.LinkedNote{}
	for rows.Next() {
		var ln model.LinkedNote
		if err := rows.Scan(
			&ln.Link.ID, &ln.Link.FromNoteID, &ln.Link.ToNoteID, &ln.Link.CreatedAt,
			&ln.Note.ID, &ln.Note.VaultID, &ln.Note.Title, &ln.Note.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan linked note: %w", err)
		}
		linked = append(linked, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked notes: %w", err)
	}
	return linked, nil
}

// compile-time interface check
var _ LinkRepository = (*PostgresLinkRepo)(nil)
