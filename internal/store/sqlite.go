// Package store persists items, their embeddings and extracted links per
// domain in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/linkmap/internal/corpus"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

const schemaVersion = 1

// Store is a SQLite-backed item and link store.
// Cluster ids change only through ApplyClusterIDs and ClearClusterIDs.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens (creating if needed) the store at path.
// If path is empty, an in-memory store is created for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, lmerrors.StoreError(fmt.Sprintf("failed to create directory %s", dir), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, lmerrors.StoreError("failed to open database", err)
	}

	// Single writer; an in-memory database also needs the one connection
	// kept alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	if path != "" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, lmerrors.StoreError("failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, lmerrors.New(lmerrors.ErrCodeStoreCorrupt, "failed to initialize schema", err)
	}

	slog.Debug("store_opened", slog.String("path", path))
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS items (
		domain     TEXT NOT NULL,
		id         TEXT NOT NULL,
		url        TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL DEFAULT '',
		embedding  BLOB,
		dim        INTEGER,
		cluster_id INTEGER,
		PRIMARY KEY (domain, id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_domain_url ON items(domain, url);

	CREATE TABLE IF NOT EXISTS links (
		domain     TEXT NOT NULL,
		source_url TEXT NOT NULL,
		target_url TEXT NOT NULL,
		anchor     TEXT NOT NULL DEFAULT '',
		nofollow   INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_links_domain_source ON links(domain, source_url);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion)
	return err
}

// Path returns the database path ("" for in-memory).
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	if s.closed {
		return lmerrors.StoreError("store is closed", nil)
	}
	return nil
}

// UpsertItems inserts or updates items of a domain. Text fields are
// replaced; an item without embedding keeps its stored one. Cluster ids
// are never touched here.
func (s *Store) UpsertItems(ctx context.Context, domain string, items []corpus.Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var n int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = upsertItemsTx(ctx, tx, domain, items)
		return err
	})
	if err != nil {
		return 0, lmerrors.StoreError("failed to upsert items", err)
	}
	return n, nil
}

// IngestPages upserts items and replaces the links of every page in
// linksBySource within one transaction. Nothing is written when any
// statement fails.
func (s *Store) IngestPages(ctx context.Context, domain string, items []corpus.Item, linksBySource map[string][]corpus.Link) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	sources := make([]string, 0, len(linksBySource))
	for src := range linksBySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var n int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if n, err = upsertItemsTx(ctx, tx, domain, items); err != nil {
			return err
		}
		for _, src := range sources {
			if err := replaceLinksTx(ctx, tx, domain, src, linksBySource[src]); err != nil {
				return fmt.Errorf("links of %s: %w", src, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, lmerrors.StoreError("failed to ingest pages", err)
	}
	return n, nil
}

func upsertItemsTx(ctx context.Context, tx *sql.Tx, domain string, items []corpus.Item) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (domain, id, url, title, content, embedding, dim)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain, id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			content = excluded.content,
			embedding = COALESCE(excluded.embedding, items.embedding),
			dim = COALESCE(excluded.dim, items.dim)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	var n int
	for _, it := range items {
		var blob any
		var dim sql.NullInt64
		if it.HasEmbedding() {
			blob = encodeVector(it.Embedding)
			dim = sql.NullInt64{Int64: int64(len(it.Embedding)), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, domain, it.ID, it.URL, it.Title, it.Content, blob, dim); err != nil {
			return 0, fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
		n++
	}
	return n, nil
}

// Items returns every item of a domain in ID order.
func (s *Store) Items(ctx context.Context, domain string) ([]corpus.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, content, embedding, cluster_id
		FROM items WHERE domain = ? ORDER BY id`, domain)
	if err != nil {
		return nil, lmerrors.StoreError("failed to query items", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]corpus.Item, 0)
	for rows.Next() {
		var (
			it        corpus.Item
			blob      []byte
			clusterID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.URL, &it.Title, &it.Content, &blob, &clusterID); err != nil {
			return nil, lmerrors.StoreError("failed to scan item", err)
		}
		if len(blob) > 0 {
			vec, err := decodeVector(blob)
			if err != nil {
				return nil, lmerrors.New(lmerrors.ErrCodeStoreCorrupt, "bad embedding for item "+it.ID, err)
			}
			it.Embedding = vec
		}
		if clusterID.Valid {
			c := int(clusterID.Int64)
			it.ClusterID = &c
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, lmerrors.StoreError("failed to read items", err)
	}
	return items, nil
}

// ApplyClusterIDs writes cluster ids (nil resets to null) in one
// transaction and returns how many rows changed.
func (s *Store) ApplyClusterIDs(ctx context.Context, domain string, ids map[string]*int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var changed int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE items SET cluster_id = ?
			WHERE domain = ? AND id = ? AND cluster_id IS NOT ?`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for id, c := range ids {
			var v sql.NullInt64
			if c != nil {
				v = sql.NullInt64{Int64: int64(*c), Valid: true}
			}
			res, err := stmt.ExecContext(ctx, v, domain, id, v)
			if err != nil {
				return fmt.Errorf("update item %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			changed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, lmerrors.StoreError("failed to apply cluster ids", err)
	}
	return changed, nil
}

// ClearClusterIDs resets every cluster id of a domain to null and returns
// how many rows changed. A second call changes nothing.
func (s *Store) ClearClusterIDs(ctx context.Context, domain string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var changed int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET cluster_id = NULL WHERE domain = ? AND cluster_id IS NOT NULL`, domain)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = int(n)
		return err
	})
	if err != nil {
		return 0, lmerrors.StoreError("failed to clear cluster ids", err)
	}
	return changed, nil
}

// ReplaceLinks stores the links found on one page, replacing any links
// previously stored for that source URL.
func (s *Store) ReplaceLinks(ctx context.Context, domain, sourceURL string, found []corpus.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return replaceLinksTx(ctx, tx, domain, sourceURL, found)
	})
	if err != nil {
		return lmerrors.StoreError("failed to store links", err)
	}
	return nil
}

func replaceLinksTx(ctx context.Context, tx *sql.Tx, domain, sourceURL string, found []corpus.Link) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM links WHERE domain = ? AND source_url = ?`, domain, sourceURL); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO links (domain, source_url, target_url, anchor, nofollow)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, l := range found {
		if _, err := stmt.ExecContext(ctx, domain, sourceURL, l.TargetURL, l.Anchor, l.Nofollow); err != nil {
			return err
		}
	}
	return nil
}

// Links returns every stored link of a domain in insertion order.
func (s *Store) Links(ctx context.Context, domain string) ([]corpus.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_url, target_url, anchor, nofollow
		FROM links WHERE domain = ? ORDER BY rowid`, domain)
	if err != nil {
		return nil, lmerrors.StoreError("failed to query links", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]corpus.Link, 0)
	for rows.Next() {
		var l corpus.Link
		if err := rows.Scan(&l.SourceURL, &l.TargetURL, &l.Anchor, &l.Nofollow); err != nil {
			return nil, lmerrors.StoreError("failed to scan link", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, lmerrors.StoreError("failed to read links", err)
	}
	return out, nil
}

// Domains lists the domains that hold items.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT domain FROM items ORDER BY domain`)
	if err != nil {
		return nil, lmerrors.StoreError("failed to query domains", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, lmerrors.StoreError("failed to scan domain", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
