package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreSane(t *testing.T) {
	d := Defaults()
	if d.AppetiteDecayPerHour <= 0 || d.SerenityRegenPerHour <= 0 {
		t.Fatalf("non-positive rates: %+v", d)
	}
	if d.NightMultiplier < 1 {
		t.Fatalf("night multiplier below 1: %v", d.NightMultiplier)
	}
	if d.SunriseHour < 0 || d.SunriseHour > 23 || d.SunsetHour < 0 || d.SunsetHour > 23 {
		t.Fatalf("sun hours out of range: %d/%d", d.SunriseHour, d.SunsetHour)
	}
	if d.ArchiveEveryDays <= 0 {
		t.Fatalf("archive_every_days not positive: %d", d.ArchiveEveryDays)
	}
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "appetite_decay_per_hour: 0.05\nsunset_hour: 21\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AppetiteDecayPerHour != 0.05 {
		t.Fatalf("appetite_decay_per_hour = %v, want 0.05", got.AppetiteDecayPerHour)
	}
	if got.SunsetHour != 21 {
		t.Fatalf("sunset_hour = %d, want 21", got.SunsetHour)
	}
	d := Defaults()
	if got.SerenityRegenPerHour != d.SerenityRegenPerHour || got.NightMultiplier != d.NightMultiplier {
		t.Fatalf("omitted keys lost defaults: %+v", got)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("sunrise_hour: [nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}
