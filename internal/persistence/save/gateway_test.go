package save

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleDoc(scene string, day int) SaveV4 {
	return SaveV4{
		SaveV3: SaveV3{
			SaveV2: SaveV2{
				SaveV1: SaveV1{
					Version:       CurrentVersion,
					Scene:         scene,
					SavedUTCTicks: 123456789,
					PlayerX:       3.5,
					PlayerYaw:     180,
					Day:           day,
					Hour:          8,
				},
				OwnedSpiritIDs: []string{"sylph", "moss"},
			},
			PendingSpiritIDs: []string{"ember"},
		},
		SpiritStates: []SpiritStateV4{{
			ID: "sylph", Level: 2, XP01: 0.5,
			Serenity01: 0.7, Appetite01: 0.4, Integrity01: 0.95,
			DaysOwned: 3,
			Cooldowns: []CooldownV4{{ActionID: "offering", NextAllowedGameHour: 38}},
		}},
	}
}

func TestGatewayWriteReadRoundTrip(t *testing.T) {
	gw, err := NewGateway(t.TempDir())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	want := sampleDoc("home", 2)
	res, err := gw.Write("slot1", want)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := gw.ReadRaw("slot1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) != res.Bytes {
		t.Fatalf("bytes on disk = %d, result says %d", len(raw), res.Bytes)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != res.SHA256 {
		t.Fatalf("digest mismatch with bytes on disk")
	}
	if raw[len(raw)-1] != '\n' {
		t.Fatalf("slot file should end with a newline")
	}

	got, ver, err := Upgrade(raw)
	if err != nil || ver != CurrentVersion {
		t.Fatalf("upgrade: ver=%d err=%v", ver, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGatewayWriteReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewGateway(dir)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	if _, err := gw.Write("slot1", sampleDoc("home", 1)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := gw.Write("slot1", sampleDoc("garden", 9)); err != nil {
		t.Fatalf("second write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("slot dir has %d entries, want 1", len(entries))
	}

	raw, err := gw.ReadRaw("slot1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc, _, err := Upgrade(raw)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if doc.Scene != "garden" || doc.Day != 9 {
		t.Fatalf("second write did not replace the first: %+v", doc.SaveV1)
	}
}

func TestGatewayWriteForcesCurrentVersion(t *testing.T) {
	gw, err := NewGateway(t.TempDir())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	doc := sampleDoc("home", 1)
	doc.Version = 0
	if _, err := gw.Write("slot1", doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, _ := gw.ReadRaw("slot1")
	if Probe(raw) != CurrentVersion {
		t.Fatalf("written version = %d, want %d", Probe(raw), CurrentVersion)
	}
}

func TestGatewayRejectsInvalidSlots(t *testing.T) {
	gw, err := NewGateway(t.TempDir())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	if _, err := gw.Write("../escape", sampleDoc("home", 1)); err == nil {
		t.Fatalf("path-escaping slot accepted")
	}
	if _, err := gw.ReadRaw(""); err == nil {
		t.Fatalf("empty slot accepted")
	}
	if gw.Exists("../escape") {
		t.Fatalf("invalid slot reported as existing")
	}
}

func TestGatewayList(t *testing.T) {
	dir := t.TempDir()
	gw, err := NewGateway(dir)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	if _, err := gw.Write("beta", sampleDoc("home", 4)); err != nil {
		t.Fatalf("write beta: %v", err)
	}
	if _, err := gw.Write("alpha", sampleDoc("garden", 2)); err != nil {
		t.Fatalf("write alpha: %v", err)
	}
	legacy := `{"version":1,"scene":"home","day":3,"hour":5}`
	if err := os.WriteFile(filepath.Join(dir, "old.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	// Unreadable and unrelated files are skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write broken: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	infos, err := gw.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("listed %d slots, want 3", len(infos))
	}
	if infos[0].Slot != "alpha" || infos[1].Slot != "beta" || infos[2].Slot != "old" {
		t.Fatalf("listing order = %s, %s, %s", infos[0].Slot, infos[1].Slot, infos[2].Slot)
	}
	if infos[0].Scene != "garden" || infos[0].Day != 2 || infos[0].OwnedCount != 2 {
		t.Fatalf("alpha summary = %+v", infos[0])
	}
	if infos[2].Version != 1 || infos[2].OwnedCount != 0 {
		t.Fatalf("legacy summary = %+v", infos[2])
	}
	if !gw.Exists("alpha") || gw.Exists("missing") {
		t.Fatalf("exists checks wrong")
	}
}
