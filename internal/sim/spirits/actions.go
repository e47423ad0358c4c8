package spirits

import (
	"fmt"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
)

// TryExecuteAction validates and runs one catalog action against one
// owned spirit. On failure it returns false with a protocol error code
// and a human detail, and the spirit, its cooldowns and the item ledger
// are all untouched. Validation runs in a fixed order: definition,
// ownership, cooldown, cost.
func (m *Manager) TryExecuteAction(spiritID, actionID string) (bool, string, string) {
	if spiritID == "" || actionID == "" {
		return false, notifyproto.ErrBadRequest, "missing spirit or action id"
	}
	def, ok := m.cats.Actions.ByID[actionID]
	if !ok {
		return false, notifyproto.ErrUnknownAction, actionID
	}
	if def.Disabled {
		return false, notifyproto.ErrActionDisabled, actionID
	}
	if !m.Has(spiritID) {
		return false, notifyproto.ErrNotOwned, spiritID
	}
	st := m.ensureState(spiritID)

	now := m.clock.GameHour()
	if next, held := st.Cooldowns[actionID]; held && now < next {
		return false, notifyproto.ErrCooldown, fmt.Sprintf("%.1fh remaining", next-now)
	}

	// Cost is all or nothing; the consume below is the first mutation
	// on any path, so a rejection above leaves no trace.
	if def.Cost != nil && !m.ledger.TryConsume(def.Cost.Item, def.Cost.Count) {
		return false, notifyproto.ErrNoResource,
			fmt.Sprintf("need %dx %s", def.Cost.Count, def.Cost.Item)
	}

	b := m.begin()
	defer m.flush(b)

	if def.AssignmentDurationHours <= 0 {
		st.applyDeltas(def.SerenityDelta, def.AppetiteDelta, def.IntegrityDelta)
		if def.XPGain01 > 0 {
			m.grantXP(st, def.XPGain01)
		}
		if def.CooldownHours > 0 {
			st.Cooldowns[actionID] = now + def.CooldownHours
		}
	} else {
		st.Assignments = append(st.Assignments, Assignment{
			ActionID:           actionID,
			CompleteAtGameHour: now + def.AssignmentDurationHours,
		})
		if def.CooldownOnQueue && def.CooldownHours > 0 {
			st.Cooldowns[actionID] = now + def.CooldownHours
		}
	}

	m.markStates()
	return true, "", ""
}
