package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

// simulateCmd loads a slot into a throwaway session and fast-forwards
// the clock to preview meter drift, assignment completion and level-ups.
// The slot file is never rewritten.
func simulateCmd(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	configDir := fs.String("configs", "./configs", "catalog directory")
	tuningPath := fs.String("tuning", "", "tuning file (default <configs>/tuning.yaml)")
	days := fs.Int("days", 7, "game days to fast-forward (1..365)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage("usage: savetool simulate [-data DIR] [-session ID] [-configs DIR] [-days N] <slot>")
	}
	if *days < 1 || *days > 365 {
		usage("simulate: -days must be within 1..365")
	}
	slot := fs.Arg(0)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fatal("load catalogs:", err)
	}
	tunePath := *tuningPath
	if tunePath == "" {
		tunePath = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tunePath)
	if err != nil && !os.IsNotExist(err) {
		fatal("load tuning:", err)
	}

	gw, err := save.NewGateway(slotsDir(*dataDir, *session))
	if err != nil {
		fatal("open slots:", err)
	}
	raw, err := gw.ReadRaw(slot)
	if err != nil {
		fatal("read:", err)
	}
	doc, _, err := save.Upgrade(raw)
	if err != nil {
		fatal("decode:", err)
	}

	// Start the session in the document's scene so the load commits
	// immediately.
	g, err := game.New(game.Config{
		Scene:   doc.Scene,
		Gateway: gw,
		Logger:  log.New(io.Discard, "", 0),
	}, tune, cats)
	if err != nil {
		fatal("game:", err)
	}
	if res := g.Apply(game.Request{Kind: game.KindLoad, Slot: slot}); !res.OK {
		fatal("load:", res.Code, res.Detail)
	}

	before := spiritRows(g)
	st := status(g)
	fmt.Printf("loaded slot=%s scene=%s day=%d %02d:%02d owned=%d pending=%d\n",
		slot, st.Scene, st.Day, st.Hour, st.Minute, st.OwnedCount, st.PendingCount)

	startLevelUps := g.Snapshot().LevelUps
	if res := g.Apply(game.Request{Kind: game.KindAdvanceMinutes, Minutes: float64(*days) * 24 * 60}); !res.OK {
		fatal("advance:", res.Code, res.Detail)
	}

	after := spiritRows(g)
	st = status(g)
	fmt.Printf("after %d day(s): day=%d %02d:%02d level-ups=%d\n",
		*days, st.Day, st.Hour, st.Minute, g.Snapshot().LevelUps-startLevelUps)

	byID := map[string]notifyproto.SpiritState{}
	for _, row := range before {
		byID[row.ID] = row
	}
	for _, now := range after {
		was, ok := byID[now.ID]
		if !ok {
			was = now
		}
		fmt.Printf("  %-14s lvl %d->%d  xp %.2f->%.2f  serenity %.2f->%.2f  appetite %.2f->%.2f  integrity %.2f->%.2f  assignments %d->%d\n",
			now.ID, was.Level, now.Level, was.XP01, now.XP01,
			was.Serenity01, now.Serenity01, was.Appetite01, now.Appetite01,
			was.Integrity01, now.Integrity01, len(was.Assignments), len(now.Assignments))
	}
}

func spiritRows(g *game.Game) []notifyproto.SpiritState {
	res := g.Apply(game.Request{Kind: game.KindSpiritList})
	if !res.OK {
		fatal("spirit list:", res.Code, res.Detail)
	}
	var body struct {
		Spirits []notifyproto.SpiritState `json:"spirits"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		fatal("decode spirit list:", err)
	}
	return body.Spirits
}

func status(g *game.Game) game.StatusInfo {
	res := g.Apply(game.Request{Kind: game.KindStatus})
	if !res.OK {
		fatal("status:", res.Code, res.Detail)
	}
	var st game.StatusInfo
	if err := json.Unmarshal(res.Body, &st); err != nil {
		fatal("decode status:", err)
	}
	return st
}
