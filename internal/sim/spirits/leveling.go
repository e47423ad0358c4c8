package spirits

// TryAddXP grants normalized XP to an owned spirit, converting whole
// units into levels up to the catalog cap. Non-positive grants and
// unowned ids are rejected without side effects.
func (m *Manager) TryAddXP(id string, delta01 float64) bool {
	if delta01 <= 0 || !m.Has(id) {
		return false
	}
	b := m.begin()
	defer m.flush(b)
	m.grantXP(m.ensureState(id), delta01)
	m.markStates()
	return true
}

// grantXP accumulates XP and consumes whole units one level at a time,
// applying the per-level reward and marking a level-up for each. The
// final clamp keeps XP01 in [0,1); at the cap any leftover is lost.
func (m *Manager) grantXP(st *State, delta01 float64) {
	st.XP01 += delta01
	levelCap := m.cats.Leveling.LevelCap
	for st.XP01 >= 1 && st.Level < levelCap {
		st.Level++
		st.XP01 -= 1
		r := m.cats.Leveling.RewardFor(st.Level)
		st.applyDeltas(r.SerenityDelta, r.AppetiteDelta, r.IntegrityDelta)
		m.markLevelUp(st.ID, st.Level)
	}
	st.clampXP()
}
