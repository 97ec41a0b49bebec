package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnavailable is wrapped into every error returned when the backing
// database cannot be reached or queried. Callers check it with errors.Is
// and treat it as fatal for the current publish cycle.
var ErrUnavailable = errors.New("post store unavailable")

// Post is one published-post record.
type Post struct {
	Shortcode   string
	PublishedAt time.Time
	Caption     string
}

// Store tracks which Instagram posts have already been published,
// backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		shortcode TEXT PRIMARY KEY,
		publication_date DATETIME NOT NULL,
		caption TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether a post with the given shortcode has been recorded.
// A plain miss is (false, nil), not an error.
func (s *Store) Exists(ctx context.Context, shortcode string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE shortcode = ?)`, shortcode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w: %w", shortcode, ErrUnavailable, err)
	}
	return exists, nil
}

// Insert records a post as published, stamping it with the current time.
// Returns false if the shortcode is already recorded; the existing row is
// left untouched.
func (s *Store) Insert(ctx context.Context, shortcode, caption string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (shortcode, publication_date, caption)
		VALUES (?, ?, ?)
		ON CONFLICT(shortcode) DO NOTHING
	`, shortcode, time.Now(), nullable(caption))
	if err != nil {
		return false, fmt.Errorf("insert %s: %w: %w", shortcode, ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s: %w: %w", shortcode, ErrUnavailable, err)
	}
	return n > 0, nil
}

// Delete removes a recorded post, reporting whether anything was removed.
func (s *Store) Delete(ctx context.Context, shortcode string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM posts WHERE shortcode = ?`, shortcode)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w: %w", shortcode, ErrUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w: %w", shortcode, ErrUnavailable, err)
	}
	return n > 0, nil
}

// ListAll returns every recorded post. Row order is not part of the contract.
func (s *Store) ListAll(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shortcode, publication_date, caption FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var caption sql.NullString
		if err := rows.Scan(&p.Shortcode, &p.PublishedAt, &caption); err != nil {
			return nil, fmt.Errorf("list posts: %w: %w", ErrUnavailable, err)
		}
		p.Caption = caption.String
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w: %w", ErrUnavailable, err)
	}
	return posts, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
