package spirits

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/inventory"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

type fakeClock struct {
	gameHour float64
	night    bool
}

func (c *fakeClock) GameHour() float64  { return c.gameHour }
func (c *fakeClock) IsNightAt(int) bool { return c.night }

// recordingSink logs every notification in arrival order so tests can
// assert both counts and ordering within a batch.
type recordingSink struct {
	log         []string
	lastOwned   []string
	lastPending []string
}

func (s *recordingSink) OwnershipChanged(owned, pending []string) {
	s.lastOwned = owned
	s.lastPending = pending
	s.log = append(s.log, "ownership")
}

func (s *recordingSink) StatesChanged() { s.log = append(s.log, "states") }

func (s *recordingSink) LevelUp(id string, level int) {
	s.log = append(s.log, fmt.Sprintf("levelup:%s:%d", id, level))
}

func (s *recordingSink) reset() { s.log = nil }

func wantLog(t *testing.T, sink *recordingSink, want ...string) {
	t.Helper()
	if len(want) == 0 && len(sink.log) == 0 {
		return
	}
	if !reflect.DeepEqual(sink.log, want) {
		t.Fatalf("notification log = %v, want %v", sink.log, want)
	}
}

func catsWith(actions ...catalogs.ActionDef) *catalogs.Catalogs {
	c := &catalogs.Catalogs{
		Actions:  catalogs.ActionCatalog{ByID: map[string]catalogs.ActionDef{}},
		Spirits:  catalogs.SpiritCatalog{ByID: map[string]catalogs.SpiritDef{}},
		Items:    catalogs.ItemCatalog{ByID: map[string]catalogs.ItemDef{}},
		Leveling: catalogs.LevelingCatalog{LevelCap: 5},
	}
	for _, a := range actions {
		c.Actions.ByID[a.ID] = a
		c.Actions.Order = append(c.Actions.Order, a.ID)
	}
	return c
}

func newTestManager(t *testing.T, tune tuning.Tuning, cats *catalogs.Catalogs) (*Manager, *recordingSink, *fakeClock, *inventory.Ledger) {
	t.Helper()
	clk := &fakeClock{}
	led := inventory.NewLedger()
	sink := &recordingSink{}
	m, err := New(Config{Tuning: tune, Catalogs: cats, Clock: clk, Ledger: led, Sink: sink})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, sink, clk, led
}

func TestAddOwnedCreatesStateWithDefaults(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	if !m.AddOwned("sylph") {
		t.Fatalf("first add should succeed")
	}
	if !m.Has("sylph") {
		t.Fatalf("sylph should be owned")
	}
	st, ok := m.TryGetState("sylph")
	if !ok {
		t.Fatalf("owned spirit must have a state")
	}
	if st.Level != 1 || st.XP01 != 0 || st.DaysOwned != 0 {
		t.Fatalf("unexpected progression defaults: %+v", st)
	}
	if st.Serenity01 != 0.5 || st.Appetite01 != 1 || st.Integrity01 != 1 {
		t.Fatalf("unexpected meter defaults: %+v", st)
	}
	if st.SerenityRegenMult != 1 || st.AppetiteDecayMult != 1 ||
		st.IntegrityRegenKMult != 1 || st.AppetitePenaltyKMult != 1 {
		t.Fatalf("multipliers should default to 1: %+v", st)
	}
	if st.AcquiredAtUTC.IsZero() {
		t.Fatalf("acquisition time should be set")
	}
	wantLog(t, sink, "ownership", "states")
	if !reflect.DeepEqual(sink.lastOwned, []string{"sylph"}) {
		t.Fatalf("ownership payload = %v", sink.lastOwned)
	}
}

func TestAddOwnedDuplicateIsNoOp(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.AddOwned("sylph")
	sink.reset()
	if m.AddOwned("sylph") {
		t.Fatalf("duplicate add should be rejected")
	}
	wantLog(t, sink)
	if got := m.OwnedCount(); got != 1 {
		t.Fatalf("owned count = %d, want 1", got)
	}
}

func TestRemoveOwnedNotifiesOwnershipOnly(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.AddOwned("sylph")
	m.AddOwned("moss")
	sink.reset()
	if !m.RemoveOwned("sylph") {
		t.Fatalf("remove should succeed")
	}
	if m.Has("sylph") {
		t.Fatalf("sylph should be gone")
	}
	if _, ok := m.TryGetState("sylph"); ok {
		t.Fatalf("state must not outlive ownership")
	}
	wantLog(t, sink, "ownership")
	if !reflect.DeepEqual(m.OwnedIDs(), []string{"moss"}) {
		t.Fatalf("owned ids = %v", m.OwnedIDs())
	}
	sink.reset()
	if m.RemoveOwned("sylph") {
		t.Fatalf("second remove should report false")
	}
	wantLog(t, sink)
}

func TestClearOwnedEmitsOnePair(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.AddOwned("sylph")
	m.AddOwned("moss")
	m.QueuePending("fern")
	sink.reset()
	m.ClearOwned()
	if m.OwnedCount() != 0 {
		t.Fatalf("roster should be empty")
	}
	if !reflect.DeepEqual(m.PendingIDs(), []string{"fern"}) {
		t.Fatalf("pending queue should survive a clear, got %v", m.PendingIDs())
	}
	wantLog(t, sink, "ownership", "states")
	sink.reset()
	m.ClearOwned()
	wantLog(t, sink)
}

func TestSetOwnedFromListPrunesAndPreserves(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.AddOwned("a")
	m.AddOwned("b")
	m.states["b"].Serenity01 = 0.9
	sink.reset()
	m.SetOwnedFromList([]string{"b", "c", "b", ""})
	if !reflect.DeepEqual(m.OwnedIDs(), []string{"b", "c"}) {
		t.Fatalf("owned ids = %v, want [b c]", m.OwnedIDs())
	}
	if _, ok := m.TryGetState("a"); ok {
		t.Fatalf("a's state should be pruned")
	}
	b, _ := m.TryGetState("b")
	if b.Serenity01 != 0.9 {
		t.Fatalf("retained id must keep its state, serenity = %v", b.Serenity01)
	}
	c, _ := m.TryGetState("c")
	if c.Serenity01 != 0.5 {
		t.Fatalf("new id should get defaults, serenity = %v", c.Serenity01)
	}
	wantLog(t, sink, "ownership", "states")
}

func TestQueuePendingIsIdempotent(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	if !m.QueuePending("fern") {
		t.Fatalf("first queue should succeed")
	}
	wantLog(t, sink, "ownership")
	sink.reset()
	if m.QueuePending("fern") {
		t.Fatalf("duplicate queue should be rejected")
	}
	wantLog(t, sink)
	if !reflect.DeepEqual(m.PendingIDs(), []string{"fern"}) {
		t.Fatalf("pending = %v", m.PendingIDs())
	}
}

func TestCompleteSummonPromotesInOrder(t *testing.T) {
	m, sink, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.QueuePending("a")
	m.QueuePending("b")
	sink.reset()

	id, ok := m.CompleteSummon()
	if !ok || id != "a" {
		t.Fatalf("summon = %q %v, want a true", id, ok)
	}
	if !m.Has("a") {
		t.Fatalf("a should be owned after summon")
	}
	if !reflect.DeepEqual(m.PendingIDs(), []string{"b"}) {
		t.Fatalf("pending = %v, want [b]", m.PendingIDs())
	}
	// One batched pair even though the summon both pops the queue and
	// adds to the roster.
	wantLog(t, sink, "ownership", "states")

	sink.reset()
	if id, ok := m.CompleteSummon(); !ok || id != "b" {
		t.Fatalf("second summon = %q %v", id, ok)
	}
	sink.reset()
	if _, ok := m.CompleteSummon(); ok {
		t.Fatalf("empty queue should not summon")
	}
	wantLog(t, sink)
}

func TestReturnedStatesAreDetachedCopies(t *testing.T) {
	m, _, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	m.AddOwned("sylph")
	st, _ := m.TryGetState("sylph")
	st.Cooldowns["hack"] = 5
	st.Assignments = append(st.Assignments, Assignment{ActionID: "hack"})
	fresh, _ := m.TryGetState("sylph")
	if len(fresh.Cooldowns) != 0 || len(fresh.Assignments) != 0 {
		t.Fatalf("caller mutation leaked into canonical state: %+v", fresh)
	}
}

func TestGetOrCreateStateRequiresOwnership(t *testing.T) {
	m, _, _, _ := newTestManager(t, tuning.Defaults(), catsWith())
	if _, ok := m.GetOrCreateState("ghost"); ok {
		t.Fatalf("unowned id must not get a state")
	}
	m.AddOwned("sylph")
	delete(m.states, "sylph") // simulate a missing record
	st, ok := m.GetOrCreateState("sylph")
	if !ok || st.Level != 1 {
		t.Fatalf("owned id should be backfilled, got %+v %v", st, ok)
	}
}

func TestMultipliersComeFromSpiritCatalog(t *testing.T) {
	cats := catsWith()
	cats.Spirits.ByID["moss"] = catalogs.SpiritDef{ID: "moss", AppetiteDecayMult: 2}
	m, _, _, _ := newTestManager(t, tuning.Defaults(), cats)
	m.AddOwned("moss")
	st, _ := m.TryGetState("moss")
	if st.AppetiteDecayMult != 2 {
		t.Fatalf("decay mult = %v, want 2", st.AppetiteDecayMult)
	}
	if st.SerenityRegenMult != 1 {
		t.Fatalf("unset mults should default to 1, got %v", st.SerenityRegenMult)
	}
}
