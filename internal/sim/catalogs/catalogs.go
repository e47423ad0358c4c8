package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs are the read-only definition tables the simulation consumes:
// executable actions, spirit definitions, offering items, and the leveling
// table. Loaded once at startup, immutable afterwards. Digests cover the
// raw file bytes so clients and the save index can detect drift.
type Catalogs struct {
	Actions  ActionCatalog
	Spirits  SpiritCatalog
	Items    ItemCatalog
	Leveling LevelingCatalog
}

type ActionCatalog struct {
	ByID   map[string]ActionDef
	Order  []string // sorted ids, for deterministic listings
	Digest string
}

// ActionDef describes one catalog action. A zero AssignmentDurationHours
// means the action applies instantly; a positive value schedules an
// assignment that the hourly tick resolves.
type ActionDef struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`

	SerenityDelta  float64 `json:"serenity_delta,omitempty"`
	AppetiteDelta  float64 `json:"appetite_delta,omitempty"`
	IntegrityDelta float64 `json:"integrity_delta,omitempty"`
	XPGain01       float64 `json:"xp_gain01,omitempty"`

	CooldownHours           float64 `json:"cooldown_hours,omitempty"`
	AssignmentDurationHours float64 `json:"assignment_duration_hours,omitempty"`
	// CooldownOnQueue starts the cooldown when a deferred action is
	// queued, so it cannot be re-queued while in flight.
	CooldownOnQueue bool `json:"cooldown_on_queue,omitempty"`

	Cost *ItemCost `json:"cost,omitempty"`
}

type ItemCost struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type SpiritCatalog struct {
	ByID   map[string]SpiritDef
	Order  []string
	Digest string
}

// SpiritDef carries presentation metadata and the per-spirit formula
// multipliers. Multipliers default to 1 when omitted.
type SpiritDef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	SerenityRegenMult    float64 `json:"serenity_regen_mult,omitempty"`
	AppetiteDecayMult    float64 `json:"appetite_decay_mult,omitempty"`
	IntegrityRegenKMult  float64 `json:"integrity_regen_k_mult,omitempty"`
	AppetitePenaltyKMult float64 `json:"appetite_penalty_k_mult,omitempty"`
}

type ItemCatalog struct {
	ByID   map[string]ItemDef
	Order  []string
	Digest string
}

type ItemDef struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	// StartCount seeds the player's ledger on a fresh game.
	StartCount int `json:"start_count,omitempty"`
}

type LevelingCatalog struct {
	LevelCap      int
	DefaultReward LevelReward
	ByLevel       map[int]LevelReward
	Digest        string
}

// LevelReward is the meter bonus applied when a spirit reaches a level.
type LevelReward struct {
	Level          int     `json:"level,omitempty"`
	SerenityDelta  float64 `json:"serenity_delta,omitempty"`
	AppetiteDelta  float64 `json:"appetite_delta,omitempty"`
	IntegrityDelta float64 `json:"integrity_delta,omitempty"`
}

// RewardFor returns the configured reward for reaching level, falling
// back to the default reward when no per-level override exists.
func (l LevelingCatalog) RewardFor(level int) LevelReward {
	if r, ok := l.ByLevel[level]; ok {
		return r
	}
	return l.DefaultReward
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadActions(filepath.Join(configDir, "actions.json"), &c.Actions); err != nil {
		return nil, err
	}
	if err := loadSpirits(filepath.Join(configDir, "spirits.json"), &c.Spirits); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadLeveling(filepath.Join(configDir, "leveling.json"), &c.Leveling); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadActions(path string, out *ActionCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ActionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("actions.json: %w", err)
	}
	out.ByID = map[string]ActionDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("actions.json: empty id")
		}
		if d.AssignmentDurationHours < 0 {
			return fmt.Errorf("actions.json: %s: negative assignment_duration_hours", d.ID)
		}
		if d.CooldownHours < 0 {
			return fmt.Errorf("actions.json: %s: negative cooldown_hours", d.ID)
		}
		if d.Cost != nil && (d.Cost.Item == "" || d.Cost.Count <= 0) {
			return fmt.Errorf("actions.json: %s: bad cost", d.ID)
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedIDs(out.ByID)
	return nil
}

func loadSpirits(path string, out *SpiritCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// The registry accepts externally assigned ids, so a missing
		// spirit catalog just means every spirit runs on defaults.
		if os.IsNotExist(err) {
			out.ByID = map[string]SpiritDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []SpiritDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("spirits.json: %w", err)
	}
	out.ByID = map[string]SpiritDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("spirits.json: empty id")
		}
		// Multipliers must stay positive; omitted values mean 1.
		if d.SerenityRegenMult <= 0 {
			d.SerenityRegenMult = 1
		}
		if d.AppetiteDecayMult <= 0 {
			d.AppetiteDecayMult = 1
		}
		if d.IntegrityRegenKMult <= 0 {
			d.IntegrityRegenKMult = 1
		}
		if d.AppetitePenaltyKMult <= 0 {
			d.AppetitePenaltyKMult = 1
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedIDsOfSpirits(out.ByID)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.ByID = map[string]ItemDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.ByID = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.StartCount < 0 {
			return fmt.Errorf("items.json: %s: negative start_count", d.ID)
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedIDsOfItems(out.ByID)
	return nil
}

func loadLeveling(path string, out *LevelingCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var file struct {
		LevelCap      int           `json:"level_cap"`
		DefaultReward LevelReward   `json:"default_reward"`
		Rewards       []LevelReward `json:"rewards"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("leveling.json: %w", err)
	}
	if file.LevelCap < 1 {
		return fmt.Errorf("leveling.json: level_cap must be >= 1")
	}
	out.LevelCap = file.LevelCap
	out.DefaultReward = file.DefaultReward
	out.ByLevel = map[int]LevelReward{}
	for _, r := range file.Rewards {
		if r.Level < 2 || r.Level > file.LevelCap {
			return fmt.Errorf("leveling.json: reward level %d out of range", r.Level)
		}
		out.ByLevel[r.Level] = r
	}
	return nil
}

func sortedIDs(m map[string]ActionDef) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedIDsOfSpirits(m map[string]SpiritDef) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedIDsOfItems(m map[string]ItemDef) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
