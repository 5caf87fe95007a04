package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
)

const userColumns = `id, username, email, password_hash, is_verified,
	verification_code_hash, verification_expires_at, created_at, updated_at`

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.VerificationCodeHash, &u.VerificationExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepo) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by %s: %w", where, err)
	}
	return u, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username", username)
}

// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_verified, verification_code_hash, verification_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, user.IsVerified,
		user.VerificationCodeHash, user.VerificationExpiresAt,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}
	return nil
}

// SetVerificationCode は認証コードのダイジェストと有効期限を設定する。
func (r *PostgresUserRepo) SetVerificationCode(ctx context.Context, id int64, codeHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET verification_code_hash = $1, verification_expires_at = $2, updated_at = now()
		 WHERE id = $3`,
		codeHash, expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	return nil
}

// MarkVerified は確認済みフラグを立て、認証コード関連のフィールドをクリアする。
func (r *PostgresUserRepo) MarkVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET is_verified = true, verification_code_hash = NULL, verification_expires_at = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// UpdateUsername はユーザー名を変更する。
func (r *PostgresUserRepo) UpdateUsername(ctx context.Context, id int64, username string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = $1, updated_at = now() WHERE id = $2`,
		username, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", translateError(err))
	}
	return nil
}

// UpdatePassword はパスワードダイジェストを変更する。
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteWithOwnedData はユーザーの所有データを依存の末端から順に削除する。
// 削除順序: note_links → notes → vaults → users
func (r *PostgresUserRepo) DeleteWithOwnedData(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM note_links
			 WHERE from_note_id IN (SELECT id FROM notes WHERE owner_id = $1)
			    OR to_note_id IN (SELECT id FROM notes WHERE owner_id = $1)`,
			id,
		); err != nil {
			return fmt.Errorf("failed to delete links of user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete notes of user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vaults WHERE owner_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete vaults of user: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("user not found: %d", id)
		}
		return nil
	})
}

// List は全ユーザーをID昇順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
