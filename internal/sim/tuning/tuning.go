package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation constants. Values load once at startup and
// are treated as immutable afterwards.
type Tuning struct {
	AppetiteDecayPerHour float64 `yaml:"appetite_decay_per_hour"`
	SerenityRegenPerHour float64 `yaml:"serenity_regen_per_hour"`
	NightMultiplier      float64 `yaml:"night_multiplier"`
	IntegrityRegenK      float64 `yaml:"integrity_regen_k"`
	AppetitePenaltyK     float64 `yaml:"appetite_penalty_k"`

	SunriseHour int `yaml:"sunrise_hour"`
	SunsetHour  int `yaml:"sunset_hour"`

	ArchiveEveryDays int `yaml:"archive_every_days"`
}

func Defaults() Tuning {
	return Tuning{
		AppetiteDecayPerHour: 0.03,
		SerenityRegenPerHour: 0.02,
		NightMultiplier:      1.5,
		IntegrityRegenK:      0.04,
		AppetitePenaltyK:     0.06,
		SunriseHour:          6,
		SunsetHour:           20,
		ArchiveEveryDays:     7,
	}
}

// Load reads a tuning file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
