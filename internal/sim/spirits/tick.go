package spirits

// HourChanged runs the wellbeing pass for one game hour, then resolves
// any assignments whose completion hour has arrived. Meters move first
// so a resolving action's deltas land on this hour's values, and every
// spirit is visited in acquisition order. One states-changed covers the
// whole pass.
func (m *Manager) HourChanged(hour int) {
	b := m.begin()
	defer m.flush(b)

	night := m.clock.IsNightAt(hour)
	t := m.tune
	for _, id := range m.owned {
		st := m.ensureState(id)

		st.Appetite01 -= t.AppetiteDecayPerHour * st.AppetiteDecayMult

		regen := t.SerenityRegenPerHour
		if night {
			regen *= t.NightMultiplier
		}
		st.Serenity01 += regen * st.SerenityRegenMult

		// Integrity reads the serenity and appetite just computed,
		// before the clamp.
		st.Integrity01 += st.Serenity01*t.IntegrityRegenK*st.IntegrityRegenKMult -
			(1-st.Appetite01)*t.AppetitePenaltyK*st.AppetitePenaltyKMult

		st.clampMeters()
	}

	now := m.clock.GameHour()
	for _, id := range m.owned {
		m.resolveDueAssignments(m.ensureState(id), now)
	}

	m.markStates()
}

// DayStarted advances the ownership-age counter on every owned spirit.
func (m *Manager) DayStarted(day int) {
	b := m.begin()
	defer m.flush(b)
	for _, id := range m.owned {
		m.ensureState(id).DaysOwned++
	}
	m.markStates()
}

// resolveDueAssignments applies and removes every assignment at or past
// its completion hour. Entries whose action definition no longer exists
// in the catalog are dropped without effect.
func (m *Manager) resolveDueAssignments(st *State, nowGameHour float64) {
	if len(st.Assignments) == 0 {
		return
	}
	remaining := st.Assignments[:0]
	for _, as := range st.Assignments {
		if as.CompleteAtGameHour > nowGameHour {
			remaining = append(remaining, as)
			continue
		}
		def, ok := m.cats.Actions.ByID[as.ActionID]
		if !ok {
			continue
		}
		st.applyDeltas(def.SerenityDelta, def.AppetiteDelta, def.IntegrityDelta)
		if def.XPGain01 > 0 {
			m.grantXP(st, def.XPGain01)
		}
	}
	st.Assignments = remaining
}
