package indexdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type MessageRow struct {
	Seq        uint64 `json:"seq"`
	Source     string `json:"source"`
	Kind       string `json:"kind"`
	Response   string `json:"response,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	ExplorerID string `json:"explorer_id,omitempty"`
	Dropped    bool   `json:"dropped,omitempty"`
	Digest     string `json:"digest"`
}

type AsteroidRow struct {
	Seq        uint64 `json:"seq"`
	AsteroidID string `json:"asteroid_id"`
	Defended   bool   `json:"defended"`
}

type SnapshotRow struct {
	Seq            uint64 `json:"seq"`
	Path           string `json:"path"`
	Started        bool   `json:"started"`
	CellCharged    bool   `json:"cell_charged"`
	HasRocket      bool   `json:"has_rocket"`
	WarningPending bool   `json:"warning_pending"`
	Digest         string `json:"digest"`
}

// Reader runs read-only queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// Messages returns the newest rows first. kind filters when non-empty.
func (r *Reader) Messages(ctx context.Context, kind string, limit int) ([]MessageRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT seq,source,kind,response,outcome,explorer_id,dropped,digest FROM messages ORDER BY seq DESC LIMIT ?`
	args := []any{limit}
	if kind != "" {
		q = `SELECT seq,source,kind,response,outcome,explorer_id,dropped,digest FROM messages WHERE kind=? ORDER BY seq DESC LIMIT ?`
		args = []any{kind, limit}
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		var seq int64
		var dropped int
		if err := rows.Scan(&seq, &m.Source, &m.Kind, &m.Response, &m.Outcome, &m.ExplorerID, &dropped, &m.Digest); err != nil {
			return nil, err
		}
		m.Seq = uint64(seq)
		m.Dropped = dropped != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Reader) Asteroids(ctx context.Context, limit int) ([]AsteroidRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT seq,asteroid_id,defended FROM asteroids ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AsteroidRow
	for rows.Next() {
		var a AsteroidRow
		var seq int64
		var defended int
		if err := rows.Scan(&seq, &a.AsteroidID, &defended); err != nil {
			return nil, err
		}
		a.Seq = uint64(seq)
		a.Defended = defended != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT seq,path,started,cell_charged,has_rocket,warning_pending,digest FROM snapshots ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		var seq int64
		var started, charged, rocket, warning int
		if err := rows.Scan(&seq, &s.Path, &started, &charged, &rocket, &warning, &s.Digest); err != nil {
			return nil, err
		}
		s.Seq = uint64(seq)
		s.Started = started != 0
		s.CellCharged = charged != 0
		s.HasRocket = rocket != 0
		s.WarningPending = warning != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// Meta returns every key in the meta table.
func (r *Reader) Meta(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key,value FROM meta ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
