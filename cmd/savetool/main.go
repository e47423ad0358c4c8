package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "validate":
			validateCmd(os.Args[2:])
			return
		case "migrate":
			migrateCmd(os.Args[2:])
			return
		case "journal":
			journalCmd(os.Args[2:])
			return
		case "history":
			historyCmd(os.Args[2:])
			return
		case "simulate":
			simulateCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		default:
			if !strings.HasPrefix(os.Args[1], "-") {
				usage("unknown command:", os.Args[1], "(expected list, inspect, validate, migrate, simulate, journal or history)")
			}
		}
	}
	listCmd(os.Args[1:])
}

func sessionDir(dataDir, session string) string {
	return filepath.Join(dataDir, "sessions", session)
}

func slotsDir(dataDir, session string) string {
	return filepath.Join(sessionDir(dataDir, session), "slots")
}

func fatal(v ...any) {
	fmt.Fprintln(os.Stderr, v...)
	os.Exit(1)
}

func usage(v ...any) {
	fmt.Fprintln(os.Stderr, v...)
	os.Exit(2)
}

func formatSavedAt(ticks int64) string {
	if ticks == 0 {
		return "-"
	}
	return time.Unix(0, ticks).UTC().Format(time.RFC3339)
}
