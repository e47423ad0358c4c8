package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
)

// DigestOf hashes the canonical JSON of a save document with the wall
// timestamp zeroed, so identical session state yields an identical
// digest across captures.
func DigestOf(doc save.SaveV4) string {
	doc.SavedUTCTicks = 0
	b, _ := json.Marshal(doc)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StateDigest fingerprints the live session.
func (g *Game) StateDigest() string {
	return DigestOf(g.ExportSave())
}

func (g *Game) nowUTCTicks() int64 {
	return time.Now().UTC().UnixNano()
}
