package model

import "time"

// Vault はユーザーが所有するノートのコンテナ。
// (OwnerID, Name) は一意。
type Vault struct {
	ID        int64
	OwnerID   int64
	Name      string
	CreatedAt time.Time
}

// Note はVaultに属するノート。
// HexKeyはクライアント側の暗号鍵素材で、サーバーは解釈しない。
type Note struct {
	ID        int64
	VaultID   int64
	OwnerID   int64
	Title     string
	Content   string
	HexKey    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteLink はノート間の有向リンク。(FromNoteID, ToNoteID) は一意。
type NoteLink struct {
	ID         int64
	FromNoteID int64
	ToNoteID   int64
	CreatedAt  time.Time
}

// NoteSummary はリンク先・リンク元として返すノートの要約。
type NoteSummary struct {
	ID        int64
	VaultID   int64
	Title     string
	UpdatedAt time.Time
}

// LinkedNote はリンクと、その反対側のノートの組。
type LinkedNote struct {
	Link NoteLink
	Note NoteSummary
}

// NoteWithLinks はノート本体と入出力リンクをまとめたもの。
type NoteWithLinks struct {
	Note     Note
	Outgoing []LinkedNote
	Incoming []LinkedNote
}

// NoteUpdate はノートの部分更新内容。nilのフィールドは変更しない。
type NoteUpdate struct {
	Title   string
	Content *string
	VaultID *int64
	HexKey  *string
}
