// Package indexdb maintains a SQLite index of slot writes, level-up
// history and the active catalogs. It is a secondary index for tooling;
// the slot files and journals remain the source of truth.
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

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSave    atomic.Int64
	dropLevelUp atomic.Int64
}

// Stats reports rows discarded because the indexer fell behind.
type Stats struct {
	DropSaveTotal    int64
	DropLevelUpTotal int64
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		DropSaveTotal:    s.dropSave.Load(),
		DropLevelUpTotal: s.dropLevelUp.Load(),
	}
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqLevelUp
)

type req struct {
	kind reqKind

	save    SaveRow
	levelUp LevelUpRow
}

// SaveRow is one indexed slot write; the newest write per slot wins.
type SaveRow struct {
	Slot       string
	Version    int
	Scene      string
	SavedUTC   int64
	Day        int
	Hour       int
	Owned      int
	Pending    int
	SHA256     string
	Path       string
	RecordedAt string
}

// LevelUpRow is one level gained, in insertion order.
type LevelUpRow struct {
	Seq        int64
	SpiritID   string
	Level      int
	GameHour   float64
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
		// Level-ups can burst when a big XP grant lands.
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			scene TEXT NOT NULL,
			saved_utc INTEGER NOT NULL,
			day INTEGER NOT NULL,
			hour INTEGER NOT NULL,
			owned INTEGER NOT NULL,
			pending INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS level_ups (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			spirit_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			game_hour REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_level_ups_spirit ON level_ups(spirit_id, seq);`,
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

// RecordSave satisfies the game's save index hook.
func (s *SQLiteIndex) RecordSave(res save.WriteResult, doc save.SaveV4) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SaveRow{
		Slot:       res.Slot,
		Version:    doc.Version,
		Scene:      doc.Scene,
		SavedUTC:   doc.SavedUTCTicks,
		Day:        doc.Day,
		Hour:       doc.Hour,
		Owned:      len(doc.OwnedSpiritIDs),
		Pending:    len(doc.PendingSpiritIDs),
		SHA256:     res.SHA256,
		Path:       res.Path,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		// Drop if the indexer falls behind; slot files remain the source of truth.
		s.dropSave.Add(1)
	}
}

func (s *SQLiteIndex) RecordLevelUp(spiritID string, level int, gameHour float64) {
	if s == nil || s.closed.Load() {
		return
	}
	if spiritID == "" || level < 1 {
		return
	}
	r := LevelUpRow{
		SpiritID:   spiritID,
		Level:      level,
		GameHour:   gameHour,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqLevelUp, levelUp: r}:
	default:
		s.dropLevelUp.Add(1)
	}
}

// UpsertCatalogs stores the loaded catalog files and the applied tuning
// so tooling can tell which definitions a session ran with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := map[string][]byte{}
	read := func(name, path string) {
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		raw[name] = b
	}
	if configDir != "" {
		read("actions", filepath.Join(configDir, "actions.json"))
		read("spirits", filepath.Join(configDir, "spirits.json"))
		read("items", filepath.Join(configDir, "items.json"))
		read("leveling", filepath.Join(configDir, "leveling.json"))
	}

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b := raw["actions"]; len(b) > 0 {
		rows = append(rows, kv{name: "actions", digest: cats.Actions.Digest, json: b})
	}
	if b := raw["spirits"]; len(b) > 0 {
		rows = append(rows, kv{name: "spirits", digest: cats.Spirits.Digest, json: b})
	}
	if b := raw["items"]; len(b) > 0 {
		rows = append(rows, kv{name: "items", digest: cats.Items.Digest, json: b})
	}
	if b := raw["leveling"]; len(b) > 0 {
		rows = append(rows, kv{name: "leveling", digest: cats.Leveling.Digest, json: b})
	}
	{
		// Store the values we actually apply, not the file, so overrides show up.
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(slot,version,scene,saved_utc,day,hour,owned,pending,sha256,path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertLevel, _ := s.db.Prepare(`INSERT INTO level_ups(spirit_id,level,game_hour,recorded_at) VALUES(?,?,?,?)`)
	defer func() {
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertLevel != nil {
			_ = insertLevel.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
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
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					sv.Slot,
					sv.Version,
					sv.Scene,
					sv.SavedUTC,
					sv.Day,
					sv.Hour,
					sv.Owned,
					sv.Pending,
					sv.SHA256,
					sv.Path,
					sv.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqLevelUp:
			lv := r.levelUp
			if insertLevel != nil {
				if _, err := tx.Stmt(insertLevel).Exec(
					lv.SpiritID,
					lv.Level,
					lv.GameHour,
					lv.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}

		// Rows trickle in compared to a hot event stream, so commit as
		// soon as the queue drains instead of waiting out the batch.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

// Saves lists the indexed slots, newest write first.
func (s *SQLiteIndex) Saves(ctx context.Context) ([]SaveRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot,version,scene,saved_utc,day,hour,owned,pending,sha256,path,recorded_at FROM saves ORDER BY saved_utc DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		if err := rows.Scan(&r.Slot, &r.Version, &r.Scene, &r.SavedUTC, &r.Day, &r.Hour, &r.Owned, &r.Pending, &r.SHA256, &r.Path, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LevelUps lists gained levels, newest first, optionally for one
// spirit. limit <= 0 means no limit.
func (s *SQLiteIndex) LevelUps(ctx context.Context, spiritID string, limit int) ([]LevelUpRow, error) {
	q := `SELECT seq,spirit_id,level,game_hour,recorded_at FROM level_ups`
	var args []any
	if spiritID != "" {
		q += ` WHERE spirit_id = ?`
		args = append(args, spiritID)
	}
	q += ` ORDER BY seq DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LevelUpRow
	for rows.Next() {
		var r LevelUpRow
		if err := rows.Scan(&r.Seq, &r.SpiritID, &r.Level, &r.GameHour, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CatalogRow is one stored catalog document.
type CatalogRow struct {
	Name      string
	Digest    string
	JSON      string
	UpdatedAt string
}

func (s *SQLiteIndex) Catalogs(ctx context.Context) ([]CatalogRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,digest,json,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CatalogRow
	for rows.Next() {
		var r CatalogRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.JSON, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
