package spirits

import (
	"math"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
)

// Assignment is a deferred catalog action waiting for the hourly tick
// that reaches its completion hour.
type Assignment struct {
	ActionID           string
	CompleteAtGameHour float64
}

// State is the mutable runtime record of one owned spirit. A state
// exists exactly while its id is owned. External callers receive value
// copies; only the manager mutates the canonical record.
type State struct {
	ID string

	Level int
	XP01  float64

	Serenity01  float64
	Appetite01  float64
	Integrity01 float64

	DaysOwned     int
	AcquiredAtUTC time.Time

	SerenityRegenMult    float64
	AppetiteDecayMult    float64
	IntegrityRegenKMult  float64
	AppetitePenaltyKMult float64

	Cooldowns   map[string]float64 // actionID -> next allowed game hour
	Assignments []Assignment
}

func newState(id string, def catalogs.SpiritDef, acquired time.Time) *State {
	st := &State{
		ID:            id,
		Level:         1,
		Serenity01:    0.5,
		Appetite01:    1,
		Integrity01:   1,
		AcquiredAtUTC: acquired,

		SerenityRegenMult:    def.SerenityRegenMult,
		AppetiteDecayMult:    def.AppetiteDecayMult,
		IntegrityRegenKMult:  def.IntegrityRegenKMult,
		AppetitePenaltyKMult: def.AppetitePenaltyKMult,
	}
	st.initDefaults()
	return st
}

// initDefaults backfills zero values left by construction or decoding so
// downstream math never divides into a zero multiplier or a level 0.
func (s *State) initDefaults() {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.DaysOwned < 0 {
		s.DaysOwned = 0
	}
	if s.SerenityRegenMult <= 0 {
		s.SerenityRegenMult = 1
	}
	if s.AppetiteDecayMult <= 0 {
		s.AppetiteDecayMult = 1
	}
	if s.IntegrityRegenKMult <= 0 {
		s.IntegrityRegenKMult = 1
	}
	if s.AppetitePenaltyKMult <= 0 {
		s.AppetitePenaltyKMult = 1
	}
	if s.Cooldowns == nil {
		s.Cooldowns = map[string]float64{}
	}
}

func (s *State) applyDeltas(serenity, appetite, integrity float64) {
	s.Serenity01 += serenity
	s.Appetite01 += appetite
	s.Integrity01 += integrity
	s.clampMeters()
}

func (s *State) clampMeters() {
	s.Serenity01 = clamp01(s.Serenity01)
	s.Appetite01 = clamp01(s.Appetite01)
	s.Integrity01 = clamp01(s.Integrity01)
}

// clampXP keeps XP01 in [0,1). At the level cap a whole-unit remainder
// cannot convert into a level, so it collapses to just under 1.
func (s *State) clampXP() {
	if s.XP01 < 0 {
		s.XP01 = 0
	}
	if s.XP01 >= 1 {
		s.XP01 = math.Nextafter(1, 0)
	}
}

func (s *State) copy() State {
	out := *s
	out.Cooldowns = make(map[string]float64, len(s.Cooldowns))
	for k, v := range s.Cooldowns {
		out.Cooldowns[k] = v
	}
	out.Assignments = append([]Assignment(nil), s.Assignments...)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
