package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/archive"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
)

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	asJSON := fs.Bool("json", false, "print slot summaries as JSON")
	archives := fs.Bool("archives", false, "list weekly keepsake archives instead of slots")
	_ = fs.Parse(args)

	if *archives {
		listArchives(sessionDir(*dataDir, *session), *asJSON)
		return
	}

	gw, err := save.NewGateway(slotsDir(*dataDir, *session))
	if err != nil {
		fatal("open slots:", err)
	}
	infos, err := gw.List()
	if err != nil {
		fatal("list:", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(infos)
		return
	}

	fmt.Printf("%-16s %3s %-12s %5s %4s %5s %8s %s\n", "SLOT", "VER", "SCENE", "DAY", "HR", "OWNED", "BYTES", "SAVED")
	for _, in := range infos {
		fmt.Printf("%-16s %3d %-12s %5d %4d %5d %8d %s\n",
			in.Slot, in.Version, in.Scene, in.Day, in.Hour, in.OwnedCount, in.Size, formatSavedAt(in.SavedUTCTicks))
	}
}

func listArchives(sessionDir string, asJSON bool) {
	metas, err := archive.List(sessionDir)
	if err != nil {
		fatal("list archives:", err)
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(metas)
		return
	}
	fmt.Printf("%4s %5s %4s %-12s %-16s %-12s %s\n", "WEEK", "DAY", "HR", "SCENE", "SLOT", "SHA256", "CREATED")
	for _, m := range metas {
		fmt.Printf("%4d %5d %4d %-12s %-16s %-12s %s\n",
			m.Week, m.Day, m.Hour, m.Scene, m.Slot, short(m.SHA256, 12), m.CreatedAt)
	}
}

// resolveSaveBytes accepts either a slot name within the session or a
// file path, including .zst keepsakes.
func resolveSaveBytes(dataDir, session, arg string) (string, []byte, error) {
	looksLikePath := strings.ContainsAny(arg, "/\\") ||
		strings.HasSuffix(arg, ".json") || strings.HasSuffix(arg, ".zst")
	if looksLikePath {
		if strings.HasSuffix(arg, ".zst") {
			raw, err := archive.ReadArchived(arg)
			return arg, raw, err
		}
		raw, err := os.ReadFile(arg)
		return arg, raw, err
	}

	gw, err := save.NewGateway(slotsDir(dataDir, session))
	if err != nil {
		return "", nil, err
	}
	path, err := gw.Path(arg)
	if err != nil {
		return "", nil, err
	}
	raw, err := gw.ReadRaw(arg)
	return path, raw, err
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	asJSON := fs.Bool("json", false, "print the upgraded document as JSON")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage("usage: savetool inspect [-data DIR] [-session ID] [-json] <slot|path>")
	}

	path, raw, err := resolveSaveBytes(*dataDir, *session, fs.Arg(0))
	if err != nil {
		fatal("read:", err)
	}

	doc, ver, err := save.Upgrade(raw)
	if err != nil {
		fatal("decode:", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(doc)
		return
	}

	sum := sha256.Sum256(raw)
	fmt.Printf("path:    %s\n", path)
	fmt.Printf("version: %d (reads as %d)\n", ver, save.CurrentVersion)
	fmt.Printf("scene:   %s\n", doc.Scene)
	fmt.Printf("clock:   day %d, %02d:%02d\n", doc.Day, doc.Hour, doc.Minute)
	fmt.Printf("player:  (%.2f, %.2f, %.2f) yaw %.1f\n", doc.PlayerX, doc.PlayerY, doc.PlayerZ, doc.PlayerYaw)
	fmt.Printf("owned:   %d %v\n", len(doc.OwnedSpiritIDs), doc.OwnedSpiritIDs)
	fmt.Printf("pending: %d %v\n", len(doc.PendingSpiritIDs), doc.PendingSpiritIDs)
	fmt.Printf("states:  %d\n", len(doc.SpiritStates))
	for _, st := range doc.SpiritStates {
		fmt.Printf("  %-12s lvl %2d xp %.3f serenity %.3f appetite %.3f integrity %.3f cooldowns %d assignments %d\n",
			st.ID, st.Level, st.XP01, st.Serenity01, st.Appetite01, st.Integrity01, len(st.Cooldowns), len(st.Assignments))
	}
	fmt.Printf("sha256:  %s\n", hex.EncodeToString(sum[:]))
	fmt.Printf("saved:   %s\n", formatSavedAt(doc.SavedUTCTicks))
}

func migrateCmd(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	outPath := fs.String("out", "", "output path (default: rewrite the slot in place)")
	force := fs.Bool("force", false, "rewrite even when the slot is already current")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage("usage: savetool migrate [-data DIR] [-session ID] [-out PATH] [-force] <slot>")
	}
	slot := fs.Arg(0)

	gw, err := save.NewGateway(slotsDir(*dataDir, *session))
	if err != nil {
		fatal("open slots:", err)
	}
	raw, err := gw.ReadRaw(slot)
	if err != nil {
		fatal("read:", err)
	}

	ver := save.Probe(raw)
	if ver == save.CurrentVersion && !*force && strings.TrimSpace(*outPath) == "" {
		fmt.Printf("slot %s is already version %d\n", slot, ver)
		return
	}

	doc, _, err := save.Upgrade(raw)
	if err != nil {
		fatal("decode:", err)
	}

	if strings.TrimSpace(*outPath) != "" {
		doc.Version = save.CurrentVersion
		b, err := json.Marshal(doc)
		if err != nil {
			fatal("encode:", err)
		}
		b = append(b, '\n')
		if err := os.WriteFile(*outPath, b, 0o644); err != nil {
			fatal("write:", err)
		}
		fmt.Printf("migrated slot=%s v%d -> v%d out=%s\n", slot, ver, save.CurrentVersion, *outPath)
		return
	}

	res, err := gw.Write(slot, doc)
	if err != nil {
		fatal("write:", err)
	}
	fmt.Printf("migrated slot=%s v%d -> v%d bytes=%d sha256=%s\n", slot, ver, save.CurrentVersion, res.Bytes, res.SHA256)
}
