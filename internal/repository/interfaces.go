// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/notegraph/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// email または username が重複する場合は ErrDuplicate を返す。
	Create(ctx context.Context, user *model.User) error

	// SetVerificationCode は認証コードのダイジェストと有効期限を設定する。
	SetVerificationCode(ctx context.Context, id int64, codeHash string, expiresAt time.Time) error

	// MarkVerified は確認済みフラグを立て、認証コード関連のフィールドをクリアする。
	MarkVerified(ctx context.Context, id int64) error

	// UpdateUsername はユーザー名を変更する。重複時は ErrDuplicate を返す。
	UpdateUsername(ctx context.Context, id int64, username string) error

	// UpdatePassword はパスワードダイジェストを変更する。
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// DeleteWithOwnedData はユーザーと、そのユーザーが所有するリンク・ノート・Vaultを
	// 同一トランザクションで削除する。
	DeleteWithOwnedData(ctx context.Context, id int64) error

	// List は全ユーザーをID昇順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// VaultRepository はVaultの永続化インターフェース。
type VaultRepository interface {
	// FindByID は指定IDのVaultを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Vault, error)

	// ListByOwner は所有者のVaultを作成日時の昇順で返す。
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Vault, error)

	// Create はVaultを作成する。同一所有者で名前が重複する場合は ErrDuplicate を返す。
	Create(ctx context.Context, vault *model.Vault) error

	// DeleteWithNotes はVaultと配下のノート、それらに接続するリンクを
	// 同一トランザクションで削除する。
	DeleteWithNotes(ctx context.Context, id int64) error
}

// NoteRepository はノートの永続化インターフェース。
type NoteRepository interface {
	// FindByID は指定IDのノートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Note, error)

	// ListByVaultAndOwner はVaultと所有者の両方に一致するノートを更新日時の降順で返す。
	ListByVaultAndOwner(ctx context.Context, vaultID, ownerID int64) ([]*model.Note, error)

	// Create はノートを作成する。
	Create(ctx context.Context, note *model.Note) error

	// Update はノートのタイトル、本文、Vault、鍵素材と更新日時を上書きする。
	Update(ctx context.Context, note *model.Note) error

	// DeleteWithLinks はノートを参照するリンクを削除してからノートを削除する。
	// 両者は同一トランザクションで実行される。
	DeleteWithLinks(ctx context.Context, id int64) error
}

// LinkRepository はノート間リンクの永続化インターフェース。
type LinkRepository interface {
	// Create はリンクを作成する。
	// 同じ向きのリンクが存在する場合は ErrDuplicate、端点のノートが存在しない場合は ErrForeignKey を返す。
	Create(ctx context.Context, link *model.NoteLink) error

	// FindByPair は向き付きのノートIDの組でリンクを取得する。見つからない場合はnilを返す。
	FindByPair(ctx context.Context, fromNoteID, toNoteID int64) (*model.NoteLink, error)

	// DeleteByPair は向き付きのノートIDの組でリンクを削除する。削除件数を返す。
	DeleteByPair(ctx context.Context, fromNoteID, toNoteID int64) (int64, error)

	// ListByOwner はリンク元ノートが所有者に属するリンクをID降順で返す。
	// noteIDが指定された場合は、そのノートを端点に持つリンクに絞り込む。
	ListByOwner(ctx context.Context, ownerID int64, noteID *int64) ([]*model.NoteLink, error)

	// ListOutgoing はノートから出るリンクをリンク先ノートの要約付きで返す。
	ListOutgoing(ctx context.Context, noteID int64) ([]model.LinkedNote, error)

	// ListIncoming はノートに入るリンクをリンク元ノートの要約付きで返す。
	ListIncoming(ctx context.Context, noteID int64) ([]model.LinkedNote, error)
}
