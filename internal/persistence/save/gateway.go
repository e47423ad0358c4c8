package save

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Gateway stores save documents as <slot>.json files under one
// directory. Writes go through a temp file and rename so a crash can
// never leave a half-written slot behind.
type Gateway struct {
	dir string
}

func NewGateway(dir string) (*Gateway, error) {
	if dir == "" {
		return nil, fmt.Errorf("save: empty slot directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Gateway{dir: dir}, nil
}

func (g *Gateway) Dir() string { return g.dir }

// ValidSlot reports whether the name is usable as a slot: 1..64 chars
// of letters, digits, underscore or dash. Anything else could escape
// the slot directory or collide with temp files.
func ValidSlot(slot string) bool {
	if slot == "" || len(slot) > 64 {
		return false
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

func (g *Gateway) Path(slot string) (string, error) {
	if !ValidSlot(slot) {
		return "", fmt.Errorf("save: invalid slot %q", slot)
	}
	return filepath.Join(g.dir, slot+".json"), nil
}

// WriteResult describes one completed slot write.
type WriteResult struct {
	Slot   string
	Path   string
	Bytes  int
	SHA256 string
}

// Write marshals the document and replaces the slot atomically. The
// digest covers the exact bytes on disk.
func (g *Gateway) Write(slot string, doc SaveV4) (WriteResult, error) {
	path, err := g.Path(slot)
	if err != nil {
		return WriteResult{}, err
	}
	doc.Version = CurrentVersion
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return WriteResult{}, fmt.Errorf("save: marshal: %w", err)
	}
	b = append(b, '\n')
	if err := writeFileAtomic(path, b); err != nil {
		return WriteResult{}, err
	}
	sum := sha256.Sum256(b)
	return WriteResult{
		Slot:   slot,
		Path:   path,
		Bytes:  len(b),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// ReadRaw returns the slot's bytes without decoding them. Callers probe
// the version themselves so the load path can cascade by version.
func (g *Gateway) ReadRaw(slot string) ([]byte, error) {
	path, err := g.Path(slot)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (g *Gateway) Exists(slot string) bool {
	path, err := g.Path(slot)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// SlotInfo summarizes one stored slot for listings.
type SlotInfo struct {
	Slot          string    `json:"slot"`
	Path          string    `json:"path"`
	Version       int       `json:"version"`
	Scene         string    `json:"scene"`
	Day           int       `json:"day"`
	Hour          int       `json:"hour"`
	OwnedCount    int       `json:"ownedCount"`
	SavedUTCTicks int64     `json:"savedUtcTicks"`
	Size          int64     `json:"size"`
	ModTime       time.Time `json:"modTime"`
}

// List scans the slot directory and summarizes every readable slot,
// sorted by slot name. Unreadable files are skipped rather than failing
// the whole listing.
func (g *Gateway) List() ([]SlotInfo, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	var out []SlotInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		slot := strings.TrimSuffix(name, ".json")
		if !ValidSlot(slot) {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(g.dir, name))
		if err != nil {
			continue
		}
		doc, ver, err := Upgrade(raw)
		if err != nil {
			continue
		}
		info := SlotInfo{
			Slot:          slot,
			Path:          filepath.Join(g.dir, name),
			Version:       ver,
			Scene:         doc.Scene,
			Day:           doc.Day,
			Hour:          doc.Hour,
			OwnedCount:    len(doc.OwnedSpiritIDs),
			SavedUTCTicks: doc.SavedUTCTicks,
		}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.ModTime = fi.ModTime()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
