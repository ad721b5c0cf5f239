package vfs

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteVFS wraps MemVFS for the hot path and persists every version entry
// to a SQLite-backed version-history table. Reads are served from the
// in-memory layer; SQLite exists so history survives a process restart.
type SQLiteVFS struct {
	*MemVFS
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLiteVFS opens (creating if absent) a SQLite file at dsn and replays
// its latest-content rows into a fresh MemVFS.
func OpenSQLiteVFS(dsn string) (*SQLiteVFS, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vfs: open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("vfs: migrate schema: %w", err)
	}

	mem := NewMemVFS()
	rows, err := db.Query(`SELECT path, content FROM vfs_current`)
	if err != nil {
		return nil, fmt.Errorf("vfs: load current: %w", err)
	}
	for rows.Next() {
		var path, content string
		if err := rows.Scan(&path, &content); err != nil {
			rows.Close()
			return nil, fmt.Errorf("vfs: scan current: %w", err)
		}
		mem.files[path] = &file{content: content}
	}
	rows.Close()

	s := &SQLiteVFS{MemVFS: mem, db: db}
	if err := s.loadHistory(); err != nil {
		return nil, err
	}
	return s, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS vfs_current (
	path    TEXT PRIMARY KEY,
	content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS vfs_history (
	path      TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	ts        INTEGER NOT NULL,
	author    TEXT NOT NULL,
	diff      TEXT NOT NULL,
	size      INTEGER NOT NULL,
	PRIMARY KEY (path, seq)
);
`

func (s *SQLiteVFS) loadHistory() error {
	rows, err := s.db.Query(`SELECT path, ts, author, diff, size FROM vfs_history ORDER BY path, seq`)
	if err != nil {
		return fmt.Errorf("vfs: load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, author, diff string
		var ts int64
		var size int
		if err := rows.Scan(&path, &ts, &author, &diff, &size); err != nil {
			return fmt.Errorf("vfs: scan history: %w", err)
		}
		f, ok := s.files[path]
		if !ok {
			f = &file{}
			s.files[path] = f
		}
		f.history = append(f.history, VersionEntry{
			Timestamp: time.Unix(0, ts),
			Author:    author,
			Diff:      diff,
			Size:      size,
		})
	}
	return nil
}

// Write persists to SQLite first, then delegates to the in-memory layer so
// subscribers still see the write synchronously and in the same order.
func (s *SQLiteVFS) Write(p, content, author string) error {
	p = Normalize(p)
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("vfs: begin tx: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO vfs_current(path, content) VALUES(?, ?)
		ON CONFLICT(path) DO UPDATE SET content = excluded.content`, p, content); err != nil {
		tx.Rollback()
		return fmt.Errorf("vfs: upsert current: %w", err)
	}
	var seq int
	row := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM vfs_history WHERE path = ?`, p)
	if err := row.Scan(&seq); err != nil {
		tx.Rollback()
		return fmt.Errorf("vfs: next seq: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO vfs_history(path, seq, ts, author, diff, size) VALUES(?, ?, ?, ?, ?, ?)`,
		p, seq, time.Now().UnixNano(), author, summarizeDiff(content), len(content)); err != nil {
		tx.Rollback()
		return fmt.Errorf("vfs: insert history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vfs: commit: %w", err)
	}

	return s.MemVFS.Write(p, content, author)
}

// Delete removes the path's current row and leaves its history rows in
// SQLite. The in-memory layer forgets the path entirely, so History(path)
// returns nil afterwards in this process.
func (s *SQLiteVFS) Delete(p string) error {
	p = Normalize(p)
	s.mu.Lock()
	if _, err := s.db.Exec(`DELETE FROM vfs_current WHERE path = ?`, p); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("vfs: delete current: %w", err)
	}
	s.mu.Unlock()
	return s.MemVFS.Delete(p)
}

// Close releases the underlying SQLite handle.
func (s *SQLiteVFS) Close() error {
	return s.db.Close()
}

var _ VFS = (*SQLiteVFS)(nil)
