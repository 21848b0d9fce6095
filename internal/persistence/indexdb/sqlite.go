package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"airfryer.ai/internal/persistence/snapshot"
	"airfryer.ai/internal/sim/planet"
)

const SchemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEntry    atomic.Uint64
	dropSnapshot atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqEntry reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	entry    planet.JournalEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Seq            uint64
	Path           string
	Started        bool
	CellCharged    bool
	HasRocket      bool
	WarningPending bool
	Digest         string
}

// Stats reports queue health. Drops mean the writer fell behind; the journal
// files remain complete.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropEntryTotal    uint64
	DropSnapshotTotal uint64
	WriteErrorTotal   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			kind TEXT NOT NULL,
			response TEXT NOT NULL,
			outcome TEXT NOT NULL,
			explorer_id TEXT NOT NULL,
			dropped INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_kind_seq ON messages(kind, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_explorer_seq ON messages(explorer_id, seq);`,
		`CREATE TABLE IF NOT EXISTS asteroids (
			seq INTEGER PRIMARY KEY,
			asteroid_id TEXT NOT NULL,
			defended INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			started INTEGER NOT NULL,
			cell_charged INTEGER NOT NULL,
			has_rocket INTEGER NOT NULL,
			warning_pending INTEGER NOT NULL,
			digest TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEntryTotal:    s.dropEntry.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// WriteEntry implements planet.Journal. It never blocks the planet loop.
func (s *SQLiteIndex) WriteEntry(entry planet.JournalEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEntry, entry: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropEntry.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Seq:            snap.Header.Seq,
		Path:           path,
		Started:        snap.Started,
		CellCharged:    snap.CellCharged,
		HasRocket:      snap.HasRocket,
		WarningPending: snap.WarningPending,
		Digest:         snap.Digest,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertConfig stores the planet id and the configuration actually applied
// (canonical JSON plus digest) in meta.
func (s *SQLiteIndex) UpsertConfig(planetID string, cfg any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, kv := range [][2]string{
		{"schema_version", SchemaVersion},
		{"planet_id", planetID},
		{"config_json", string(b)},
		{"config_digest", hex.EncodeToString(sum[:])},
		{"config_updated_at", now},
	} {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertMessage, _ := s.db.Prepare(`INSERT OR REPLACE INTO messages(seq,source,kind,response,outcome,explorer_id,dropped,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertAsteroid, _ := s.db.Prepare(`INSERT OR REPLACE INTO asteroids(seq,asteroid_id,defended) VALUES(?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(seq,path,started,cell_charged,has_rocket,warning_pending,digest) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMessage, insertAsteroid, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.writeErrors.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// Commit when the queue drains so readers see fresh rows.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEntry:
			e := r.entry
			raw, _ := json.Marshal(e)
			if insertMessage != nil {
				if _, err := tx.Stmt(insertMessage).Exec(
					int64(e.Seq),
					e.Source,
					string(e.Message.Kind),
					string(e.Response),
					e.Outcome,
					e.Message.ExplorerID,
					boolInt(e.Dropped),
					e.Digest,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if e.Message.Kind == planet.KindAsteroid && e.Response == planet.KindAsteroidAck && insertAsteroid != nil {
				if _, err := tx.Stmt(insertAsteroid).Exec(
					int64(e.Seq),
					e.Message.AsteroidID,
					boolInt(e.Outcome == planet.OutcomeDefended),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Seq),
					sn.Path,
					boolInt(sn.Started),
					boolInt(sn.CellCharged),
					boolInt(sn.HasRocket),
					boolInt(sn.WarningPending),
					sn.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
