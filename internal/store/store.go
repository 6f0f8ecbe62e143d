// Package store keeps collected archives in SQLite so several runs can be
// kept side by side and queried.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperifyio/litarchive/internal/archive"
)

// ErrNotFound is returned when no archive has the requested id.
var ErrNotFound = errors.New("archive not found")

// Store is a SQLite-backed archive store.
type Store struct {
	db *sql.DB
}

// Summary describes a stored archive without its texts.
type Summary struct {
	ID          uuid.UUID
	Author      string
	AuthorURL   string
	CollectedAt time.Time
	Books       int
	Items       int
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS archives (
		id TEXT PRIMARY KEY,
		author TEXT NOT NULL,
		author_url TEXT NOT NULL,
		collected_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS books (
		archive_id TEXT NOT NULL REFERENCES archives(id),
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (archive_id, position)
	);

	CREATE TABLE IF NOT EXISTS items (
		archive_id TEXT NOT NULL REFERENCES archives(id),
		book_position INTEGER NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (archive_id, book_position, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArchive stores a in one transaction and returns its new id.
func (s *Store) SaveArchive(ctx context.Context, a *archive.AuthorArchive, authorURL string) (uuid.UUID, error) {
	id := uuid.New()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archives (id, author, author_url, collected_at) VALUES (?, ?, ?, ?)`,
		id.String(), a.Author, authorURL, a.CollectedAt.Format(time.RFC3339),
	); err != nil {
		return uuid.Nil, fmt.Errorf("insert archive: %w", err)
	}
	for bi, b := range a.Books {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO books (archive_id, position, title, url) VALUES (?, ?, ?, ?)`,
			id.String(), bi, b.Title, b.URL,
		); err != nil {
			return uuid.Nil, fmt.Errorf("insert book %q: %w", b.Title, err)
		}
		for ii, it := range b.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO items (archive_id, book_position, position, title, text) VALUES (?, ?, ?, ?, ?)`,
				id.String(), bi, ii, it.ItemTitle, it.Text,
			); err != nil {
				return uuid.Nil, fmt.Errorf("insert item %q: %w", it.ItemTitle, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// LoadArchive rebuilds the archive stored under id.
func (s *Store) LoadArchive(ctx context.Context, id uuid.UUID) (*archive.AuthorArchive, error) {
	var author, collectedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT author, collected_at FROM archives WHERE id = ?`, id.String(),
	).Scan(&author, &collectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	at, err := time.Parse(time.RFC3339, collectedAt)
	if err != nil {
		return nil, fmt.Errorf("parse collected_at: %w", err)
	}
	a := archive.New(author, at)

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, url FROM books WHERE archive_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	for rows.Next() {
		var c archive.Collection
		if err := rows.Scan(&c.Title, &c.URL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan book: %w", err)
		}
		a.Add(c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT book_position, title, text FROM items WHERE archive_id = ? ORDER BY book_position, position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		var it archive.ContentItem
		if err := rows.Scan(&pos, &it.ItemTitle, &it.Text); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if pos < 0 || pos >= len(a.Books) {
			return nil, fmt.Errorf("item refers to missing book %d", pos)
		}
		a.Books[pos].Items = append(a.Books[pos].Items, it)
	}
	return a, rows.Err()
}

// ListArchives returns summaries of all stored archives, newest first.
func (s *Store) ListArchives(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.author, a.author_url, a.collected_at,
			(SELECT COUNT(*) FROM books b WHERE b.archive_id = a.id),
			(SELECT COUNT(*) FROM items i WHERE i.archive_id = a.id)
		FROM archives a
		ORDER BY a.collected_at DESC, a.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var id, collectedAt string
		if err := rows.Scan(&id, &sum.Author, &sum.AuthorURL, &collectedAt, &sum.Books, &sum.Items); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse id: %w", err)
		}
		if sum.CollectedAt, err = time.Parse(time.RFC3339, collectedAt); err != nil {
			return nil, fmt.Errorf("parse collected_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
