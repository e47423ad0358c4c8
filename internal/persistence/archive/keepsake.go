// Package archive files away weekly keepsake copies of the save so a
// session keeps a browsable history beside its always-overwritten
// slots.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
)

type KeepsakeMeta struct {
	Week      int    `json:"week"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Scene     string `json:"scene"`
	Slot      string `json:"slot"`
	Archive   string `json:"archive"`
	SHA256    string `json:"sha256"`
	CreatedAt string `json:"created_at"`
}

// WriteKeepsake compresses a just-written slot file into
// `dataDir/archives/week_<NNN>/` with a meta.json beside it. The digest
// in the meta covers the uncompressed slot bytes, so it matches the
// gateway's write result for the same content.
func WriteKeepsake(dataDir string, week int, slotPath string, doc save.SaveV4) (archivedPath string, archived bool, err error) {
	if week <= 0 {
		return "", false, nil
	}
	raw, err := os.ReadFile(slotPath)
	if err != nil {
		return "", false, err
	}

	weekDir := filepath.Join(dataDir, "archives", fmt.Sprintf("week_%03d", week))
	if err := os.MkdirAll(weekDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(weekDir, filepath.Base(slotPath)+".zst")
	if err := writeCompressed(dst, raw); err != nil {
		return "", false, err
	}

	sum := sha256.Sum256(raw)
	meta := KeepsakeMeta{
		Week:      week,
		Day:       doc.Day,
		Hour:      doc.Hour,
		Scene:     doc.Scene,
		Slot:      strings.TrimSuffix(filepath.Base(slotPath), ".json"),
		Archive:   filepath.Base(dst),
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(weekDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func writeCompressed(path string, raw []byte) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return out.Close()
}

// ReadArchived decompresses one archived keepsake back to the original
// slot bytes.
func ReadArchived(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return io.ReadAll(dec)
}

// List returns the archived weeks found under dataDir, sorted by week
// directory name, with their metas when present.
func List(dataDir string) ([]KeepsakeMeta, error) {
	root := filepath.Join(dataDir, "archives")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []KeepsakeMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(root, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var meta KeepsakeMeta
		if err := json.Unmarshal(b, &meta); err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}
