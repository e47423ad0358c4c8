package indexdb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

// RemoteConfig points the index at an HTTP ingest endpoint instead of a
// local SQLite file. Rows are batched and posted as JSON.
type RemoteConfig struct {
	Endpoint      string
	Token         string
	SessionID     string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

type RemoteIndex struct {
	cfg        RemoteConfig
	httpClient *http.Client

	ch   chan remoteEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type remoteEvent struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id"`
	Payload   any    `json:"payload"`
}

type remoteSavePayload struct {
	Slot       string `json:"slot"`
	Version    int    `json:"version"`
	Scene      string `json:"scene"`
	SavedUTC   int64  `json:"saved_utc"`
	Day        int    `json:"day"`
	Hour       int    `json:"hour"`
	Owned      int    `json:"owned"`
	Pending    int    `json:"pending"`
	SHA256     string `json:"sha256"`
	Path       string `json:"path"`
	RecordedAt string `json:"recorded_at"`
}

type remoteLevelUpPayload struct {
	SpiritID   string  `json:"spirit_id"`
	Level      int     `json:"level"`
	GameHour   float64 `json:"game_hour"`
	RecordedAt string  `json:"recorded_at"`
}

type remoteCatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenRemote(cfg RemoteConfig) (*RemoteIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.SessionID = strings.TrimSpace(cfg.SessionID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty ingest endpoint")
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("empty session id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	r := &RemoteIndex{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan remoteEvent, 4096),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()

	return r, nil
}

func (r *RemoteIndex) Close() error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.closed.Store(true)
		close(r.ch)
		r.wg.Wait()
	})
	return nil
}

func (r *RemoteIndex) RecordSave(res save.WriteResult, doc save.SaveV4) {
	if r == nil || r.closed.Load() {
		return
	}
	p := remoteSavePayload{
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
	r.enqueue(remoteEvent{Kind: "save", SessionID: r.cfg.SessionID, Payload: p})
}

func (r *RemoteIndex) RecordLevelUp(spiritID string, level int, gameHour float64) {
	if r == nil || r.closed.Load() {
		return
	}
	if spiritID == "" || level < 1 {
		return
	}
	p := remoteLevelUpPayload{
		SpiritID:   spiritID,
		Level:      level,
		GameHour:   gameHour,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	r.enqueue(remoteEvent{Kind: "level_up", SessionID: r.cfg.SessionID, Payload: p})
}

func (r *RemoteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if r == nil || r.closed.Load() || cats == nil {
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

	type row struct {
		name   string
		digest string
		data   []byte
	}
	rows := make([]row, 0, 5)
	if b := raw["actions"]; len(b) > 0 {
		rows = append(rows, row{name: "actions", digest: cats.Actions.Digest, data: b})
	}
	if b := raw["spirits"]; len(b) > 0 {
		rows = append(rows, row{name: "spirits", digest: cats.Spirits.Digest, data: b})
	}
	if b := raw["items"]; len(b) > 0 {
		rows = append(rows, row{name: "items", digest: cats.Items.Digest, data: b})
	}
	if b := raw["leveling"]; len(b) > 0 {
		rows = append(rows, row{name: "leveling", digest: cats.Leveling.Digest, data: b})
	}
	if b, err := json.Marshal(tune); err == nil && len(b) > 0 {
		sum := sha256.Sum256(b)
		rows = append(rows, row{name: "tuning", digest: hex.EncodeToString(sum[:]), data: b})
	}

	for _, rw := range rows {
		if rw.name == "" || rw.digest == "" || len(rw.data) == 0 {
			continue
		}
		r.enqueue(remoteEvent{Kind: "catalog", SessionID: r.cfg.SessionID, Payload: remoteCatalogPayload{
			Name:      rw.name,
			Digest:    rw.digest,
			JSON:      string(rw.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (r *RemoteIndex) enqueue(ev remoteEvent) {
	if r == nil || r.closed.Load() {
		return
	}
	select {
	case r.ch <- ev:
	default:
		r.printf("remote index queue full; drop kind=%s session=%s", ev.Kind, ev.SessionID)
	}
}

func (r *RemoteIndex) loop() {
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]remoteEvent, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.sendBatch(batch); err != nil {
			r.printf("remote index flush failed batch=%d err=%v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *RemoteIndex) sendBatch(events []remoteEvent) error {
	if len(events) == 0 {
		return nil
	}

	body := struct {
		Events []remoteEvent `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, r.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if r.cfg.Token != "" {
			req.Header.Set("x-gm-index-token", r.cfg.Token)
		}

		resp, err := r.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (r *RemoteIndex) printf(format string, args ...any) {
	if r != nil && r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}
