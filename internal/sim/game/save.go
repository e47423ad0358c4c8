package game

import (
	"github.com/google/uuid"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
)

// ExportSave captures the whole session as a current-version document.
func (g *Game) ExportSave() save.SaveV4 {
	return save.SaveV4{
		SaveV3: save.SaveV3{
			SaveV2: save.SaveV2{
				SaveV1: save.SaveV1{
					Version:       save.CurrentVersion,
					Scene:         g.scene,
					SavedUTCTicks: g.nowUTCTicks(),
					PlayerX:       g.playerX,
					PlayerY:       g.playerY,
					PlayerZ:       g.playerZ,
					PlayerYaw:     g.playerYaw,
					Day:           g.clock.Day(),
					Hour:          g.clock.Hour(),
					Minute:        g.clock.Minute(),
				},
				OwnedSpiritIDs: g.spirits.OwnedIDs(),
			},
			PendingSpiritIDs: g.spirits.PendingIDs(),
		},
		SpiritStates: g.spirits.CaptureStates(),
	}
}

// The appliers cascade oldest to newest: each version restores its own
// additions after delegating to the previous one. Loads always run the
// full chain on a lifted document, so a v1 file resets the collections
// later versions introduced.

func (g *Game) applyV1(v save.SaveV1) {
	if v.Scene != "" {
		g.scene = v.Scene
	}
	g.playerX, g.playerY, g.playerZ, g.playerYaw = v.PlayerX, v.PlayerY, v.PlayerZ, v.PlayerYaw
	g.clock.SetTime(v.Day, v.Hour, v.Minute)
	g.gameHourMilli.Store(int64(g.clock.GameHour() * 1000))
}

func (g *Game) applyV2(v save.SaveV2) {
	g.applyV1(v.SaveV1)
	g.spirits.SetOwnedFromList(v.OwnedSpiritIDs)
}

func (g *Game) applyV3(v save.SaveV3) {
	g.applyV2(v.SaveV2)
	g.spirits.SetPendingFromList(v.PendingSpiritIDs)
}

func (g *Game) applyV4(v save.SaveV4) {
	g.applyV3(v.SaveV3)
	g.spirits.ApplyStates(v.SpiritStates)
}

func (g *Game) handleSave(slot string) Response {
	if !save.ValidSlot(slot) {
		return fail(notifyproto.ErrSlotInvalid, slot)
	}
	if g.gateway == nil {
		return fail(notifyproto.ErrInternal, "no save gateway")
	}
	doc := g.ExportSave()
	res, err := g.gateway.Write(slot, doc)
	if err != nil {
		g.saveErrors.Add(1)
		return fail(notifyproto.ErrInternal, err.Error())
	}
	g.savesWritten.Add(1)
	if g.saveIndex != nil {
		g.saveIndex.RecordSave(res, doc)
	}
	g.logger.Printf("saved slot %s (%d bytes)", slot, res.Bytes)
	return okBody(res)
}

type pendingLoad struct {
	token string
	slot  string
	ver   int
	doc   save.SaveV4
}

// handleLoad prepares a two-phase load. The document is read and
// decoded up front so a broken slot fails fast; the commit happens
// immediately when the document's scene is already active, otherwise it
// waits for SceneReady or an explicit commit. A newer prepare always
// replaces an older one.
func (g *Game) handleLoad(slot string) Response {
	if !save.ValidSlot(slot) {
		return fail(notifyproto.ErrSlotInvalid, slot)
	}
	if g.gateway == nil {
		return fail(notifyproto.ErrInternal, "no save gateway")
	}
	raw, err := g.gateway.ReadRaw(slot)
	if err != nil {
		return fail(notifyproto.ErrSlotInvalid, "read slot: "+err.Error())
	}
	doc, ver, err := save.Upgrade(raw)
	if err != nil {
		return fail(notifyproto.ErrInternal, err.Error())
	}

	p := &pendingLoad{token: uuid.NewString(), slot: slot, ver: ver, doc: doc}
	g.pendingLoad = p

	res := LoadResult{Token: p.token, Version: ver, Scene: doc.Scene}
	if doc.Scene == "" || doc.Scene == g.scene {
		g.commitPendingLoad()
		res.Committed = true
		res.Scene = g.scene
	}
	return okBody(res)
}

func (g *Game) handleLoadCommit(token string) Response {
	p := g.pendingLoad
	if p == nil {
		return fail(notifyproto.ErrNoPendingLoad, "nothing prepared")
	}
	if token == "" || token != p.token {
		return fail(notifyproto.ErrNoPendingLoad, "stale load token")
	}
	g.commitPendingLoad()
	return okBody(g.statusInfo())
}

// handleSceneReady is the presentation's signal that the destination
// scene finished loading. It commits a pending load recorded for that
// scene.
func (g *Game) handleSceneReady(scene string) Response {
	p := g.pendingLoad
	if p == nil {
		return fail(notifyproto.ErrNoPendingLoad, "nothing prepared")
	}
	if scene == "" || scene != p.doc.Scene {
		return fail(notifyproto.ErrSceneNotReady, "prepared for scene "+p.doc.Scene)
	}
	g.commitPendingLoad()
	return okBody(g.statusInfo())
}

func (g *Game) commitPendingLoad() {
	p := g.pendingLoad
	if p == nil {
		return
	}
	g.pendingLoad = nil
	g.applyV4(p.doc)
	g.loadsCommitted.Add(1)
	g.broadcastClock()
	g.logger.Printf("loaded slot %s (v%d, scene %s)", p.slot, p.ver, g.scene)
}
