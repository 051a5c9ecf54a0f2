package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite はユーザーと章テキストをSQLiteに保存するストアです。
type SQLite struct {
	db *sql.DB
}

// Open はSQLiteファイルを開き、必要なテーブルを作成します。
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  nickname TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chapters (
  user_id TEXT NOT NULL,
  chapter_id TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, chapter_id)
);
`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close はデータベース接続を閉じます。
func (s *SQLite) Close() error { return s.db.Close() }

// CreateUser はユーザーを新規作成します。
func (s *SQLite) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, nickname, email, password_hash, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Nickname,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UnixMilli(),
	)
	return err
}

// UserByID はIDでユーザーを取得します。存在しない場合は ErrNotFound を返します。
func (s *SQLite) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, nickname, email, password_hash, created_at
       FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// UserByUsername はユーザー名でユーザーを取得します。存在しない場合は ErrNotFound を返します。
func (s *SQLite) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, nickname, email, password_hash, created_at
       FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		user      User
		createdMs int64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.Nickname, &user.Email, &user.PasswordHash, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(createdMs)
	return &user, nil
}

// UpsertChapter は章テキストを保存します（既存の場合は上書き）。
func (s *SQLite) UpsertChapter(ctx context.Context, userID, chapterID, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (user_id, chapter_id, content, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(user_id, chapter_id) DO UPDATE SET
           content = excluded.content,
           updated_at = excluded.updated_at`,
		userID, chapterID, content, time.Now().UnixMilli(),
	)
	return err
}

// ChapterByID は指定ユーザーの章を1件取得します。存在しない場合は ErrNotFound を返します。
func (s *SQLite) ChapterByID(ctx context.Context, userID, chapterID string) (*Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, chapter_id, content, updated_at
       FROM chapters WHERE user_id = ? AND chapter_id = ?`, userID, chapterID)
	var (
		chapter   Chapter
		updatedMs int64
	)
	if err := row.Scan(&chapter.UserID, &chapter.ChapterID, &chapter.Content, &updatedMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	chapter.UpdatedAt = time.UnixMilli(updatedMs)
	return &chapter, nil
}

// ChapterContents は指定ユーザーの保存済み章テキストを chapter_id をキーに返します。
// 保存順には依存しません（並び順は文書スキーマ側で固定されます）。
func (s *SQLite) ChapterContents(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter_id, content FROM chapters WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contents := make(map[string]string)
	for rows.Next() {
		var chapterID, content string
		if err := rows.Scan(&chapterID, &content); err != nil {
			return nil, err
		}
		contents[chapterID] = content
	}
	return contents, rows.Err()
}
