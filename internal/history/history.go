// Package history keeps a local journal of uploaded images and published
// items. The journal is only written after successful API calls and is never
// consulted by the publishing flows.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Journal struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	j := &Journal{writeDB: writeDB}
	if err := j.init(); err != nil {
		j.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	j.readDB = readDB
	return j, nil
}

func (j *Journal) init() error {
	_, err := j.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS uploads (
			url         TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			media_type  TEXT NOT NULL,
			source_file TEXT NOT NULL,
			recorded_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_uploads_recorded ON uploads(recorded_at DESC);

		CREATE TABLE IF NOT EXISTS items (
			id          TEXT PRIMARY KEY,
			url         TEXT NOT NULL,
			title       TEXT NOT NULL,
			tags        TEXT NOT NULL DEFAULT '',
			private     INTEGER NOT NULL DEFAULT 1,
			action      TEXT NOT NULL,
			created_at  DATETIME,
			updated_at  DATETIME,
			recorded_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_items_recorded ON items(recorded_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	var errs []error
	if j.readDB != nil {
		errs = append(errs, j.readDB.Close())
	}
	if j.writeDB != nil {
		errs = append(errs, j.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func (j *Journal) RecordUpload(u Upload) error {
	if u.RecordedAt.IsZero() {
		u.RecordedAt = time.Now()
	}
	_, err := j.writeDB.Exec(`
		INSERT INTO uploads (url, name, media_type, source_file, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			media_type = excluded.media_type,
			source_file = excluded.source_file,
			recorded_at = excluded.recorded_at
	`, u.URL, u.Name, u.MediaType, u.SourceFile, u.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording upload %s: %w", u.URL, err)
	}
	return nil
}

// RecordItem upserts an item by id; the latest action wins.
func (j *Journal) RecordItem(it Item) error {
	if it.RecordedAt.IsZero() {
		it.RecordedAt = time.Now()
	}
	_, err := j.writeDB.Exec(`
		INSERT INTO items (id, url, title, tags, private, action, created_at, updated_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			tags = excluded.tags,
			private = excluded.private,
			action = excluded.action,
			updated_at = excluded.updated_at,
			recorded_at = excluded.recorded_at
	`, it.ID, it.URL, it.Title, strings.Join(it.Tags, ","), it.Private, it.Action, it.CreatedAt, it.UpdatedAt, it.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording item %s: %w", it.ID, err)
	}
	return nil
}

func buildQuery(base, table string, opts QueryOpts) (string, []interface{}) {
	var args []interface{}
	query := base + " FROM " + table
	if !opts.Since.IsZero() {
		query += " WHERE recorded_at >= ?"
		args = append(args, opts.Since)
	}
	query += " ORDER BY recorded_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	return query, args
}

func (j *Journal) Items(opts QueryOpts) ([]Item, error) {
	query, args := buildQuery("SELECT id, url, title, tags, private, action, created_at, updated_at, recorded_at", "items", opts)
	rows, err := j.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it      Item
			tags    string
			created sql.NullTime
			updated sql.NullTime
		)
		if err := rows.Scan(&it.ID, &it.URL, &it.Title, &tags, &it.Private, &it.Action, &created, &updated, &it.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		if tags != "" {
			it.Tags = strings.Split(tags, ",")
		}
		it.CreatedAt = created.Time
		it.UpdatedAt = updated.Time
		items = append(items, it)
	}
	return items, rows.Err()
}

func (j *Journal) Uploads(opts QueryOpts) ([]Upload, error) {
	query, args := buildQuery("SELECT url, name, media_type, source_file, recorded_at", "uploads", opts)
	rows, err := j.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.URL, &u.Name, &u.MediaType, &u.SourceFile, &u.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// Prune deletes entries recorded before now minus olderThan and returns the
// number of rows removed.
func (j *Journal) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	var total int64
	for _, table := range []string{"uploads", "items"} {
		res, err := j.writeDB.Exec("DELETE FROM "+table+" WHERE recorded_at < ?", cutoff) //nolint:gosec
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if total > 0 {
		if _, err := j.writeDB.Exec("VACUUM"); err != nil {
			return total, fmt.Errorf("vacuum: %w", err)
		}
	}
	return total, nil
}

type Stats struct {
	Items   int
	Uploads int
	Size    int64
}

func (j *Journal) Stats(dbPath string) (Stats, error) {
	var s Stats
	if err := j.readDB.QueryRow("SELECT COUNT(*) FROM items").Scan(&s.Items); err != nil {
		return s, fmt.Errorf("counting items: %w", err)
	}
	if err := j.readDB.QueryRow("SELECT COUNT(*) FROM uploads").Scan(&s.Uploads); err != nil {
		return s, fmt.Errorf("counting uploads: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	s.Size = info.Size()
	return s, nil
}
