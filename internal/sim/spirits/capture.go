package spirits

import (
	"sort"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
)

// CaptureStates exports one DTO per owned spirit, in acquisition order.
// Cooldown entries are sorted by action id so the same roster always
// serializes to the same bytes.
func (m *Manager) CaptureStates() []save.SpiritStateV4 {
	out := make([]save.SpiritStateV4, 0, len(m.owned))
	for _, id := range m.owned {
		st := m.ensureState(id)
		dto := save.SpiritStateV4{
			ID:          st.ID,
			Level:       st.Level,
			XP01:        st.XP01,
			Serenity01:  st.Serenity01,
			Appetite01:  st.Appetite01,
			Integrity01: st.Integrity01,
			DaysOwned:   st.DaysOwned,

			SerenityRegenMult:    st.SerenityRegenMult,
			AppetiteDecayMult:    st.AppetiteDecayMult,
			IntegrityRegenKMult:  st.IntegrityRegenKMult,
			AppetitePenaltyKMult: st.AppetitePenaltyKMult,
		}
		if !st.AcquiredAtUTC.IsZero() {
			dto.AcquiredUTCTicks = st.AcquiredAtUTC.UnixNano()
		}
		if len(st.Cooldowns) > 0 {
			dto.Cooldowns = make([]save.CooldownV4, 0, len(st.Cooldowns))
			for actionID, next := range st.Cooldowns {
				dto.Cooldowns = append(dto.Cooldowns, save.CooldownV4{
					ActionID:            actionID,
					NextAllowedGameHour: next,
				})
			}
			sort.Slice(dto.Cooldowns, func(i, j int) bool {
				return dto.Cooldowns[i].ActionID < dto.Cooldowns[j].ActionID
			})
		}
		if len(st.Assignments) > 0 {
			dto.Assignments = make([]save.AssignmentV4, 0, len(st.Assignments))
			for _, as := range st.Assignments {
				dto.Assignments = append(dto.Assignments, save.AssignmentV4{
					ActionID:           as.ActionID,
					CompleteAtGameHour: as.CompleteAtGameHour,
				})
			}
		}
		out = append(out, dto)
	}
	return out
}

// ApplyStates restores per-spirit state from save DTOs. DTOs for ids
// that are not currently owned are ignored, owned ids without a DTO
// keep their defaults, and every restored record is clamped back into
// range so a hand-edited file cannot smuggle invalid values in.
func (m *Manager) ApplyStates(dtos []save.SpiritStateV4) {
	b := m.begin()
	defer m.flush(b)
	for _, d := range dtos {
		if !m.Has(d.ID) {
			continue
		}
		st := &State{
			ID:          d.ID,
			Level:       d.Level,
			XP01:        d.XP01,
			Serenity01:  d.Serenity01,
			Appetite01:  d.Appetite01,
			Integrity01: d.Integrity01,
			DaysOwned:   d.DaysOwned,

			SerenityRegenMult:    d.SerenityRegenMult,
			AppetiteDecayMult:    d.AppetiteDecayMult,
			IntegrityRegenKMult:  d.IntegrityRegenKMult,
			AppetitePenaltyKMult: d.AppetitePenaltyKMult,
		}
		if d.AcquiredUTCTicks > 0 {
			st.AcquiredAtUTC = time.Unix(0, d.AcquiredUTCTicks).UTC()
		} else {
			st.AcquiredAtUTC = time.Now().UTC()
		}
		for _, cd := range d.Cooldowns {
			if cd.ActionID == "" {
				continue
			}
			if st.Cooldowns == nil {
				st.Cooldowns = map[string]float64{}
			}
			st.Cooldowns[cd.ActionID] = cd.NextAllowedGameHour
		}
		for _, as := range d.Assignments {
			if as.ActionID == "" {
				continue
			}
			st.Assignments = append(st.Assignments, Assignment{
				ActionID:           as.ActionID,
				CompleteAtGameHour: as.CompleteAtGameHour,
			})
		}
		st.initDefaults()
		st.clampMeters()
		st.clampXP()
		m.states[d.ID] = st
	}
	m.markStates()
}
