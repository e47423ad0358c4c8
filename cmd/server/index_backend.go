package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/indexdb"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

type runtimeIndex interface {
	game.SaveIndex
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
}

func openRuntimeIndex(sessionDir, sessionID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(sessionDir, "index", "spirits.sqlite")
		return indexdb.OpenSQLite(dbPath)
	case "remote":
		endpoint := strings.TrimSpace(os.Getenv("GM_INDEX_REMOTE_INGEST_URL"))
		token := strings.TrimSpace(os.Getenv("GM_INDEX_REMOTE_TOKEN"))
		if endpoint == "" {
			return nil, fmt.Errorf("GM_INDEX_BACKEND=remote but GM_INDEX_REMOTE_INGEST_URL is empty")
		}
		flushMS := envInt("GM_INDEX_REMOTE_FLUSH_MS", 500)
		batchSize := envInt("GM_INDEX_REMOTE_BATCH_SIZE", 128)
		return indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint:      endpoint,
			Token:         token,
			SessionID:     sessionID,
			BatchSize:     batchSize,
			FlushInterval: time.Duration(flushMS) * time.Millisecond,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported GM_INDEX_BACKEND: %s", backend)
	}
}
