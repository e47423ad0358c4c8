package game

import (
	"encoding/json"
	"sort"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/spirits"
)

// The game is the spirit manager's notification sink: batched domain
// events become protocol pushes. These run on the loop goroutine.

func (g *Game) OwnershipChanged(owned, pending []string) {
	g.broadcast(notifyproto.OwnershipMsg{
		Type:            notifyproto.TypeOwnership,
		ProtocolVersion: notifyproto.Version,
		GameHour:        g.clock.GameHour(),
		Owned:           owned,
		Pending:         pending,
	})
}

func (g *Game) StatesChanged() {
	g.broadcast(notifyproto.SpiritStatesMsg{
		Type:            notifyproto.TypeSpiritStates,
		ProtocolVersion: notifyproto.Version,
		GameHour:        g.clock.GameHour(),
		Spirits:         g.buildSpiritStates(),
	})
}

func (g *Game) LevelUp(spiritID string, level int) {
	g.levelUps.Add(1)
	if g.saveIndex != nil {
		g.saveIndex.RecordLevelUp(spiritID, level, g.clock.GameHour())
	}
	g.broadcast(notifyproto.LevelUpMsg{
		Type:            notifyproto.TypeLevelUp,
		ProtocolVersion: notifyproto.Version,
		GameHour:        g.clock.GameHour(),
		SpiritID:        spiritID,
		Level:           level,
	})
}

func (g *Game) broadcastClock() {
	g.broadcast(g.clockMsg())
}

func (g *Game) clockMsg() notifyproto.ClockMsg {
	return notifyproto.ClockMsg{
		Type:            notifyproto.TypeClock,
		ProtocolVersion: notifyproto.Version,
		Day:             g.clock.Day(),
		Hour:            g.clock.Hour(),
		Minute:          g.clock.Minute(),
		GameHour:        g.clock.GameHour(),
		IsNight:         g.clock.IsNight(),
	}
}

func (g *Game) broadcast(msg any) {
	if len(g.subs) == 0 {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, ch := range g.subs {
		sendLatest(ch, b)
	}
}

// sendRefresh pushes the full picture to one newly subscribed channel.
func (g *Game) sendRefresh(ch chan []byte) {
	for _, msg := range []any{
		g.clockMsg(),
		notifyproto.OwnershipMsg{
			Type:            notifyproto.TypeOwnership,
			ProtocolVersion: notifyproto.Version,
			GameHour:        g.clock.GameHour(),
			Owned:           g.spirits.OwnedIDs(),
			Pending:         g.spirits.PendingIDs(),
		},
		notifyproto.SpiritStatesMsg{
			Type:            notifyproto.TypeSpiritStates,
			ProtocolVersion: notifyproto.Version,
			GameHour:        g.clock.GameHour(),
			Spirits:         g.buildSpiritStates(),
		},
	} {
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(ch, b)
	}
}

func (g *Game) buildSpiritStates() []notifyproto.SpiritState {
	ids := g.spirits.OwnedIDs()
	out := make([]notifyproto.SpiritState, 0, len(ids))
	for _, id := range ids {
		st, ok := g.spirits.TryGetState(id)
		if !ok {
			continue
		}
		out = append(out, g.toProtoState(st))
	}
	return out
}

func (g *Game) toProtoState(st spirits.State) notifyproto.SpiritState {
	row := notifyproto.SpiritState{
		ID:          st.ID,
		Name:        g.cats.Spirits.ByID[st.ID].Name,
		Level:       st.Level,
		XP01:        st.XP01,
		Serenity01:  st.Serenity01,
		Appetite01:  st.Appetite01,
		Integrity01: st.Integrity01,
		DaysOwned:   st.DaysOwned,
	}
	if len(st.Cooldowns) > 0 {
		row.Cooldowns = make([]notifyproto.CooldownEntry, 0, len(st.Cooldowns))
		for actionID, next := range st.Cooldowns {
			row.Cooldowns = append(row.Cooldowns, notifyproto.CooldownEntry{
				ActionID:            actionID,
				NextAllowedGameHour: next,
			})
		}
		sort.Slice(row.Cooldowns, func(i, j int) bool {
			return row.Cooldowns[i].ActionID < row.Cooldowns[j].ActionID
		})
	}
	for _, as := range st.Assignments {
		row.Assignments = append(row.Assignments, notifyproto.AssignmentEntry{
			ActionID:           as.ActionID,
			CompleteAtGameHour: as.CompleteAtGameHour,
		})
	}
	return row
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
