package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/indexdb"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/journal"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
)

// journalCmd prints raw entries from the session's hour or audit
// journals, newest segments last.
func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	kind := fs.String("kind", "hours", "journal kind: hours or audit")
	tail := fs.Int("tail", 20, "print only the last N entries (0 = all)")
	spirit := fs.String("spirit", "", "audit kind: keep entries for one spirit id")
	action := fs.String("action", "", "audit kind: keep entries for one action id")
	_ = fs.Parse(args)

	if *kind != "hours" && *kind != "audit" {
		usage("journal: -kind must be hours or audit")
	}
	if (*spirit != "" || *action != "") && *kind != "audit" {
		usage("journal: -spirit and -action apply to -kind audit")
	}

	keep := func([]byte) bool { return true }
	if *spirit != "" || *action != "" {
		keep = func(line []byte) bool {
			var e game.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return false
			}
			if *spirit != "" && e.SpiritID != *spirit {
				return false
			}
			return *action == "" || e.ActionID == *action
		}
	}

	dir := filepath.Join(sessionDir(*dataDir, *session), *kind)
	files, err := journal.Files(dir, *kind)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("no %s journal in %s\n", *kind, dir)
			return
		}
		fatal("list journal:", err)
	}

	var lines []string
	for _, path := range files {
		err := journal.ForEach(path, func(line []byte) error {
			if !keep(line) {
				return nil
			}
			lines = append(lines, string(line))
			if *tail > 0 && len(lines) > *tail {
				lines = lines[1:]
			}
			return nil
		})
		if err != nil {
			fatal("read journal:", err)
		}
	}
	for _, l := range lines {
		fmt.Println(l)
	}
}

// historyCmd reads the session's save index offline. The server keeps
// the sqlite file under <session>/index; no running server is needed.
func historyCmd(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	spirit := fs.String("spirit", "", "filter level-ups to one spirit id")
	limit := fs.Int("limit", 20, "max level-up rows")
	saves := fs.Bool("saves", false, "print indexed saves instead of level-ups")
	cats := fs.Bool("catalogs", false, "print indexed catalog digests instead of level-ups")
	_ = fs.Parse(args)

	dbPath := filepath.Join(sessionDir(*dataDir, *session), "index", "spirits.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		fatal("no index database:", dbPath)
	}
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		fatal("open index:", err)
	}
	defer idx.Close()

	ctx := context.Background()
	switch {
	case *saves:
		rows, err := idx.Saves(ctx)
		if err != nil {
			fatal("query saves:", err)
		}
		fmt.Printf("%-16s %3s %-12s %5s %4s %5s %7s %-12s %s\n", "SLOT", "VER", "SCENE", "DAY", "HR", "OWNED", "PENDING", "SHA256", "RECORDED")
		for _, r := range rows {
			fmt.Printf("%-16s %3d %-12s %5d %4d %5d %7d %-12s %s\n",
				r.Slot, r.Version, r.Scene, r.Day, r.Hour, r.Owned, r.Pending, short(r.SHA256, 12), r.RecordedAt)
		}
	case *cats:
		rows, err := idx.Catalogs(ctx)
		if err != nil {
			fatal("query catalogs:", err)
		}
		fmt.Printf("%-12s %-16s %s\n", "NAME", "DIGEST", "UPDATED")
		for _, r := range rows {
			fmt.Printf("%-12s %-16s %s\n", r.Name, short(r.Digest, 16), r.UpdatedAt)
		}
	default:
		rows, err := idx.LevelUps(ctx, *spirit, *limit)
		if err != nil {
			fatal("query level-ups:", err)
		}
		fmt.Printf("%6s %-16s %5s %10s %s\n", "SEQ", "SPIRIT", "LEVEL", "GAME_HOUR", "RECORDED")
		for _, r := range rows {
			fmt.Printf("%6d %-16s %5d %10.2f %s\n", r.Seq, r.SpiritID, r.Level, r.GameHour, r.RecordedAt)
		}
	}
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
