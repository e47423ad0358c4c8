package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/backup"
)

type backupMirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *backup.Mirror
}

func buildBackupMirrorRuntime(sessionDir, sessionID string, logger *log.Logger) (*backupMirrorRuntime, error) {
	enabled := envBool("GM_BACKUP_MIRROR", false)
	if !enabled {
		return &backupMirrorRuntime{enabled: false}, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("GM_BACKUP_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("GM_BACKUP_BUCKET"))
	accessKeyID := strings.TrimSpace(os.Getenv("GM_BACKUP_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("GM_BACKUP_SECRET_ACCESS_KEY"))
	prefix := strings.TrimSpace(os.Getenv("GM_BACKUP_PREFIX"))
	if prefix == "" {
		prefix = "sessions/" + sessionID
	}

	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("GM_BACKUP_MIRROR=true but GM_BACKUP_ENDPOINT/GM_BACKUP_BUCKET/GM_BACKUP_ACCESS_KEY_ID/GM_BACKUP_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := backup.New(endpoint, bucket, accessKeyID, secretAccessKey)
	if err != nil {
		return nil, err
	}

	workers := envInt("GM_BACKUP_UPLOAD_WORKERS", 2)
	mirror := backup.NewMirror(client, sessionDir, prefix, workers, 0, 0, logger)

	return &backupMirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute journal segments to lower RPO.
		mirror:       mirror,
	}, nil
}

func (b *backupMirrorRuntime) Close() {
	if b == nil || b.mirror == nil {
		return
	}
	b.mirror.Close()
}

func (b *backupMirrorRuntime) Enqueue(localPath string) {
	if b == nil || !b.enabled || b.mirror == nil {
		return
	}
	b.mirror.Enqueue(localPath)
}

func (b *backupMirrorRuntime) Stats() (backup.Stats, bool) {
	if b == nil || !b.enabled || b.mirror == nil {
		return backup.Stats{}, false
	}
	return b.mirror.Stats(), true
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
