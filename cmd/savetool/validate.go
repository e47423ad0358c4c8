package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
)

// validateCmd checks a save document structurally against the shipped
// schema and semantically against the content catalogs. Unknown spirit
// ids are not flagged: the engine accepts externally assigned ids and
// runs them on default multipliers.
func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	session := fs.String("session", "session_1", "session id")
	configDir := fs.String("configs", "./configs", "catalog directory")
	schemaDir := fs.String("schemas", "./schemas", "schema directory")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		usage("usage: savetool validate [-data DIR] [-session ID] [-configs DIR] [-schemas DIR] <slot|path>")
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fatal("load catalogs:", err)
	}

	path, raw, err := resolveSaveBytes(*dataDir, *session, fs.Arg(0))
	if err != nil {
		fatal("read:", err)
	}
	doc, ver, err := save.Upgrade(raw)
	if err != nil {
		fatal("decode:", err)
	}

	var problems []string
	addf := func(format string, a ...any) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	// The schema describes the written format, so the structural pass
	// only applies to documents already at the current version.
	if ver == save.CurrentVersion {
		schemaPath := filepath.Join(*schemaDir, "save_v4.schema.json")
		if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
			fmt.Printf("note: %s not found, skipping structural check\n", schemaPath)
		} else {
			schema, err := jsonschema.Compile(schemaPath)
			if err != nil {
				fatal("compile schema:", err)
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				addf("structural: %v", err)
			} else if err := schema.Validate(v); err != nil {
				addf("structural: %v", err)
			}
		}
	}

	if ver > save.CurrentVersion {
		addf("version %d is newer than this build (reads tolerantly as %d)", ver, save.CurrentVersion)
	}
	if doc.Day < 1 {
		addf("day %d out of range", doc.Day)
	}
	if doc.Hour < 0 || doc.Hour > 23 {
		addf("hour %d out of range", doc.Hour)
	}
	if doc.Minute < 0 || doc.Minute > 59 {
		addf("minute %d out of range", doc.Minute)
	}

	owned := map[string]bool{}
	for _, id := range doc.OwnedSpiritIDs {
		if id == "" {
			addf("owned roster has empty id")
			continue
		}
		if owned[id] {
			addf("owned roster lists %s twice", id)
		}
		owned[id] = true
	}
	pending := map[string]bool{}
	for _, id := range doc.PendingSpiritIDs {
		if id == "" {
			addf("pending queue has empty id")
			continue
		}
		if pending[id] {
			addf("pending queue lists %s twice", id)
		}
		pending[id] = true
		if owned[id] {
			addf("%s is both owned and pending", id)
		}
	}

	states := map[string]bool{}
	for _, st := range doc.SpiritStates {
		if st.ID == "" {
			addf("spirit state with empty id")
			continue
		}
		if states[st.ID] {
			addf("%s: duplicate spirit state", st.ID)
		}
		states[st.ID] = true
		if !owned[st.ID] {
			addf("%s: state without ownership", st.ID)
		}

		if st.Level < 1 || st.Level > cats.Leveling.LevelCap {
			addf("%s: level %d outside [1,%d]", st.ID, st.Level, cats.Leveling.LevelCap)
		}
		if st.XP01 < 0 || st.XP01 >= 1 {
			addf("%s: xp01 %.4f outside [0,1)", st.ID, st.XP01)
		}
		checkMeter(addf, st.ID, "serenity01", st.Serenity01)
		checkMeter(addf, st.ID, "appetite01", st.Appetite01)
		checkMeter(addf, st.ID, "integrity01", st.Integrity01)
		if st.DaysOwned < 0 {
			addf("%s: negative days_owned", st.ID)
		}

		for _, cd := range st.Cooldowns {
			def, ok := cats.Actions.ByID[cd.ActionID]
			if !ok {
				addf("%s: cooldown for unknown action %s", st.ID, cd.ActionID)
			} else if def.CooldownHours <= 0 && !def.CooldownOnQueue {
				addf("%s: cooldown for action %s which has none", st.ID, cd.ActionID)
			}
			if cd.NextAllowedGameHour < 0 {
				addf("%s: cooldown %s expires at negative hour", st.ID, cd.ActionID)
			}
		}
		for _, as := range st.Assignments {
			def, ok := cats.Actions.ByID[as.ActionID]
			if !ok {
				addf("%s: assignment for unknown action %s", st.ID, as.ActionID)
			} else if def.AssignmentDurationHours <= 0 {
				addf("%s: assignment for instant action %s", st.ID, as.ActionID)
			}
			if as.CompleteAtGameHour < 0 {
				addf("%s: assignment %s completes at negative hour", st.ID, as.ActionID)
			}
		}
	}

	if len(problems) > 0 {
		fmt.Printf("%s: %d problem(s)\n", path, len(problems))
		for _, p := range problems {
			fmt.Println(" -", p)
		}
		os.Exit(1)
	}
	fmt.Printf("%s: ok (v%d, %d owned, %d pending, %d states)\n",
		path, ver, len(doc.OwnedSpiritIDs), len(doc.PendingSpiritIDs), len(doc.SpiritStates))
}

func checkMeter(addf func(string, ...any), id, name string, v float64) {
	if v < 0 || v > 1 {
		addf("%s: %s %.4f outside [0,1]", id, name, v)
	}
}
