package spirits

// Sink receives the manager's batched notifications. Every public
// mutating operation flushes at most one ownership-changed and one
// states-changed call, plus one LevelUp per level actually gained,
// regardless of how many internal steps it took.
type Sink interface {
	OwnershipChanged(owned, pending []string)
	StatesChanged()
	LevelUp(spiritID string, level int)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) OwnershipChanged([]string, []string) {}
func (NopSink) StatesChanged()                      {}
func (NopSink) LevelUp(string, int)                 {}

type levelUpEvent struct {
	spiritID string
	level    int
}

// batch coalesces notification intent for one logical operation.
type batch struct {
	ownership bool
	states    bool
	levelUps  []levelUpEvent
}

// begin opens a batch for the calling operation. A nested call (a public
// operation invoked from inside another) gets nil back and its marks land
// in the outer batch, so the outer operation flushes exactly once.
func (m *Manager) begin() *batch {
	if m.cur != nil {
		return nil
	}
	m.cur = &batch{}
	return m.cur
}

func (m *Manager) flush(b *batch) {
	if b == nil || m.cur != b {
		return
	}
	m.cur = nil
	if b.ownership {
		m.sink.OwnershipChanged(m.OwnedIDs(), m.PendingIDs())
	}
	for _, lu := range b.levelUps {
		m.sink.LevelUp(lu.spiritID, lu.level)
	}
	if b.states {
		m.sink.StatesChanged()
	}
}

func (m *Manager) markOwnership() {
	if m.cur != nil {
		m.cur.ownership = true
	}
}

func (m *Manager) markStates() {
	if m.cur != nil {
		m.cur.states = true
	}
}

func (m *Manager) markLevelUp(spiritID string, level int) {
	if m.cur != nil {
		m.cur.levelUps = append(m.cur.levelUps, levelUpEvent{spiritID: spiritID, level: level})
	}
}
