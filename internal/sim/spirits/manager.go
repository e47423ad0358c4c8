package spirits

import (
	"errors"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

// TimeSource is the slice of the game clock the manager needs. The
// manager never advances time; it only reads it.
type TimeSource interface {
	GameHour() float64
	IsNightAt(hour int) bool
}

// Ledger is the item store actions draw their costs from.
type Ledger interface {
	CountOf(itemID string) int
	TryConsume(itemID string, count int) bool
}

// Config carries the manager's collaborators. Tuning, Catalogs, Clock
// and Ledger are required; a nil Sink falls back to NopSink.
type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Clock    TimeSource
	Ledger   Ledger
	Sink     Sink
}

// Manager owns the full spirit roster: the ordered owned set, the
// pending summon queue, and one State per owned id. It is not safe for
// concurrent use; the game loop serializes access.
type Manager struct {
	tune tuning.Tuning
	cats *catalogs.Catalogs

	clock  TimeSource
	ledger Ledger
	sink   Sink

	owned    []string
	ownedSet map[string]struct{}
	pending  []string
	states   map[string]*State

	cur *batch
}

func New(cfg Config) (*Manager, error) {
	if cfg.Catalogs == nil {
		return nil, errors.New("spirits: catalogs required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("spirits: clock required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("spirits: ledger required")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		tune:     cfg.Tuning,
		cats:     cfg.Catalogs,
		clock:    cfg.Clock,
		ledger:   cfg.Ledger,
		sink:     sink,
		ownedSet: map[string]struct{}{},
		states:   map[string]*State{},
	}, nil
}

// Has reports whether the id is currently owned.
func (m *Manager) Has(id string) bool {
	_, ok := m.ownedSet[id]
	return ok
}

func (m *Manager) OwnedCount() int   { return len(m.owned) }
func (m *Manager) PendingCount() int { return len(m.pending) }

// OwnedIDs returns the owned ids in acquisition order.
func (m *Manager) OwnedIDs() []string {
	return append([]string(nil), m.owned...)
}

// PendingIDs returns the summon queue front first.
func (m *Manager) PendingIDs() []string {
	return append([]string(nil), m.pending...)
}

// TryGetState returns a copy of the state for an owned id.
func (m *Manager) TryGetState(id string) (State, bool) {
	st, ok := m.states[id]
	if !ok {
		return State{}, false
	}
	return st.copy(), true
}

// GetOrCreateState returns a copy of the state for an owned id, lazily
// creating the record if it is somehow missing. Unowned ids never get a
// state.
func (m *Manager) GetOrCreateState(id string) (State, bool) {
	if !m.Has(id) {
		return State{}, false
	}
	return m.ensureState(id).copy(), true
}

// AddOwned appends the id to the owned set and creates its state with
// defaults. Duplicate adds are no-ops.
func (m *Manager) AddOwned(id string) bool {
	if id == "" || m.Has(id) {
		return false
	}
	b := m.begin()
	defer m.flush(b)
	m.ownedSet[id] = struct{}{}
	m.owned = append(m.owned, id)
	m.ensureState(id)
	m.markOwnership()
	m.markStates()
	return true
}

// RemoveOwned drops the id and its state. Only ownership listeners are
// told; the per-spirit state simply ceases to exist.
func (m *Manager) RemoveOwned(id string) bool {
	if !m.Has(id) {
		return false
	}
	b := m.begin()
	defer m.flush(b)
	delete(m.ownedSet, id)
	delete(m.states, id)
	for i, got := range m.owned {
		if got == id {
			m.owned = append(m.owned[:i], m.owned[i+1:]...)
			break
		}
	}
	m.markOwnership()
	return true
}

// ClearOwned empties the roster. The pending queue is untouched.
func (m *Manager) ClearOwned() {
	if len(m.owned) == 0 {
		return
	}
	b := m.begin()
	defer m.flush(b)
	m.owned = nil
	m.ownedSet = map[string]struct{}{}
	m.states = map[string]*State{}
	m.markOwnership()
	m.markStates()
}

// SetOwnedFromList replaces the owned set wholesale, keeping the given
// order with duplicates and empties dropped. States for ids leaving the
// set are pruned; new ids get default states. This is the bulk load
// path, so it always notifies even when the roster is unchanged.
func (m *Manager) SetOwnedFromList(ids []string) {
	b := m.begin()
	defer m.flush(b)
	order := make([]string, 0, len(ids))
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		order = append(order, id)
	}
	for id := range m.states {
		if _, keep := set[id]; !keep {
			delete(m.states, id)
		}
	}
	m.owned = order
	m.ownedSet = set
	for _, id := range order {
		m.ensureState(id)
	}
	m.markOwnership()
	m.markStates()
}

// SetPendingFromList replaces the summon queue wholesale (bulk load
// path), keeping order with duplicates and empties dropped.
func (m *Manager) SetPendingFromList(ids []string) {
	b := m.begin()
	defer m.flush(b)
	queue := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, id)
	}
	m.pending = queue
	m.markOwnership()
}

// QueuePending appends the id to the summon queue unless it is already
// waiting there.
func (m *Manager) QueuePending(id string) bool {
	if id == "" {
		return false
	}
	for _, got := range m.pending {
		if got == id {
			return false
		}
	}
	b := m.begin()
	defer m.flush(b)
	m.pending = append(m.pending, id)
	m.markOwnership()
	return true
}

// CompleteSummon pops the front of the pending queue and promotes it to
// the owned set. Returns the promoted id, or false if nothing waits.
func (m *Manager) CompleteSummon() (string, bool) {
	if len(m.pending) == 0 {
		return "", false
	}
	b := m.begin()
	defer m.flush(b)
	id := m.pending[0]
	m.pending = append([]string(nil), m.pending[1:]...)
	m.AddOwned(id)
	m.markOwnership()
	return id, true
}

func (m *Manager) ensureState(id string) *State {
	if st, ok := m.states[id]; ok {
		return st
	}
	st := newState(id, m.cats.Spirits.ByID[id], time.Now().UTC())
	m.states[id] = st
	return st
}
