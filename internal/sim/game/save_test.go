package game

import (
	"os"
	"testing"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

func richSessionActions() []catalogs.ActionDef {
	return []catalogs.ActionDef{
		{ID: "offering", SerenityDelta: 0.2, XPGain01: 0.4, CooldownHours: 6},
		{ID: "errand", IntegrityDelta: 0.1, XPGain01: 0.3, AssignmentDurationHours: 8},
	}
}

func buildRichSession(t *testing.T) *Game {
	t.Helper()
	g := testGame(t, tuning.Defaults(), richSessionActions()...)
	g.Apply(Request{Kind: KindAddOwned, SpiritID: "sylph"})
	g.Apply(Request{Kind: KindAddOwned, SpiritID: "moss"})
	g.Apply(Request{Kind: KindQueuePending, SpiritID: "ember"})
	g.Apply(Request{Kind: KindSetPlayer, X: 4.5, Y: 1, Z: -2.25, Yaw: 90})
	if resp := g.Apply(Request{Kind: KindExecuteAction, SpiritID: "sylph", ActionID: "offering"}); !resp.OK {
		t.Fatalf("offering failed: %s %s", resp.Code, resp.Detail)
	}
	if resp := g.Apply(Request{Kind: KindExecuteAction, SpiritID: "moss", ActionID: "errand"}); !resp.OK {
		t.Fatalf("errand failed: %s %s", resp.Code, resp.Detail)
	}
	g.StepMinutes(90) // 8:00 -> 9:30, one hourly tick
	return g
}

func TestExportApplyDigestEquality(t *testing.T) {
	g := buildRichSession(t)
	doc := g.ExportSave()
	d1 := DigestOf(doc)

	g2 := testGame(t, tuning.Defaults(), richSessionActions()...)
	g2.applyV4(doc)
	if d2 := g2.StateDigest(); d2 != d1 {
		t.Fatalf("digest after apply = %s, want %s", d2, d1)
	}

	var st StatusInfo
	decodeBody(t, g2.Apply(Request{Kind: KindStatus}), &st)
	if st.Day != 1 || st.Hour != 9 || st.Minute != 30 {
		t.Fatalf("clock not restored: %+v", st)
	}
	if st.OwnedCount != 2 || st.PendingCount != 1 {
		t.Fatalf("roster not restored: %+v", st)
	}
	if st.PlayerX != 4.5 || st.PlayerYaw != 90 {
		t.Fatalf("transform not restored: %+v", st)
	}
}

func TestSaveThenLoadSameSceneAutoCommits(t *testing.T) {
	g := buildRichSession(t)
	want := g.StateDigest()

	var res save.WriteResult
	decodeBody(t, g.Apply(Request{Kind: KindSave, Slot: "slot1"}), &res)
	if res.Slot != "slot1" || res.Bytes == 0 || res.SHA256 == "" {
		t.Fatalf("write result = %+v", res)
	}

	// Diverge, then load the slot back.
	g.Apply(Request{Kind: KindAddOwned, SpiritID: "intruder"})
	g.StepMinutes(5 * 60)

	var lr LoadResult
	decodeBody(t, g.Apply(Request{Kind: KindLoad, Slot: "slot1"}), &lr)
	if !lr.Committed || lr.Version != save.CurrentVersion || lr.Token == "" {
		t.Fatalf("load result = %+v", lr)
	}
	if got := g.StateDigest(); got != want {
		t.Fatalf("digest after load = %s, want %s", got, want)
	}
	if g.spirits.Has("intruder") {
		t.Fatalf("load should replace the roster wholesale")
	}
	if g.Snapshot().LoadsCommitted != 1 {
		t.Fatalf("loads committed = %d", g.Snapshot().LoadsCommitted)
	}
}

func TestLoadRejectsBadSlots(t *testing.T) {
	g := testGame(t, tuning.Defaults())
	if resp := g.Apply(Request{Kind: KindLoad, Slot: "../evil"}); resp.OK || resp.Code != notifyproto.ErrSlotInvalid {
		t.Fatalf("path-escaping slot accepted: %+v", resp)
	}
	if resp := g.Apply(Request{Kind: KindLoad, Slot: "missing"}); resp.OK || resp.Code != notifyproto.ErrSlotInvalid {
		t.Fatalf("missing slot should fail as invalid: %+v", resp)
	}
	if resp := g.Apply(Request{Kind: KindSave, Slot: ""}); resp.OK || resp.Code != notifyproto.ErrSlotInvalid {
		t.Fatalf("empty save slot accepted: %+v", resp)
	}
}

func TestTwoPhaseLoadWaitsForScene(t *testing.T) {
	g := buildRichSession(t)
	g.Apply(Request{Kind: KindSave, Slot: "camp"})

	// Walk to another scene, then ask for the camp save.
	g.Apply(Request{Kind: KindSetPlayer, Scene: "garden"})
	g.Apply(Request{Kind: KindAddOwned, SpiritID: "intruder"})

	var lr LoadResult
	decodeBody(t, g.Apply(Request{Kind: KindLoad, Slot: "camp"}), &lr)
	if lr.Committed || lr.Scene != "home" || lr.Token == "" {
		t.Fatalf("load result = %+v", lr)
	}
	if !g.spirits.Has("intruder") {
		t.Fatalf("deferred load must not touch state yet")
	}

	if resp := g.Apply(Request{Kind: KindSceneReady, Scene: "valley"}); resp.OK || resp.Code != notifyproto.ErrSceneNotReady {
		t.Fatalf("wrong scene should not commit: %+v", resp)
	}
	if resp := g.Apply(Request{Kind: KindSceneReady, Scene: "home"}); !resp.OK {
		t.Fatalf("scene ready failed: %s %s", resp.Code, resp.Detail)
	}
	if g.scene != "home" || g.spirits.Has("intruder") {
		t.Fatalf("commit did not restore the saved session")
	}
}

func TestLoadCommitTokens(t *testing.T) {
	g := buildRichSession(t)
	g.Apply(Request{Kind: KindSave, Slot: "first"})
	g.StepMinutes(60)
	g.Apply(Request{Kind: KindSave, Slot: "second"})
	g.Apply(Request{Kind: KindSetPlayer, Scene: "garden"})

	var first, second LoadResult
	decodeBody(t, g.Apply(Request{Kind: KindLoad, Slot: "first"}), &first)
	decodeBody(t, g.Apply(Request{Kind: KindLoad, Slot: "second"}), &second)

	// The second prepare replaced the first; its token is dead.
	if resp := g.Apply(Request{Kind: KindLoadCommit, Token: first.Token}); resp.OK || resp.Code != notifyproto.ErrNoPendingLoad {
		t.Fatalf("stale token accepted: %+v", resp)
	}
	if resp := g.Apply(Request{Kind: KindLoadCommit, Token: second.Token}); !resp.OK {
		t.Fatalf("live token rejected: %s %s", resp.Code, resp.Detail)
	}
	var st StatusInfo
	decodeBody(t, g.Apply(Request{Kind: KindStatus}), &st)
	if st.Hour != 10 {
		t.Fatalf("committed wrong document: hour = %d, want 10", st.Hour)
	}

	if resp := g.Apply(Request{Kind: KindLoadCommit, Token: second.Token}); resp.OK || resp.Code != notifyproto.ErrNoPendingLoad {
		t.Fatalf("spent token accepted: %+v", resp)
	}
}

func TestLoadLegacyV1File(t *testing.T) {
	g := buildRichSession(t)

	path, err := g.gateway.Path("legacy")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	raw := []byte(`{"version":1,"scene":"home","savedUtcTicks":1,"playerX":10,"day":3,"hour":5,"minute":0}`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	var lr LoadResult
	decodeBody(t, g.Apply(Request{Kind: KindLoad, Slot: "legacy"}), &lr)
	if !lr.Committed || lr.Version != 1 {
		t.Fatalf("load result = %+v", lr)
	}

	var st StatusInfo
	decodeBody(t, g.Apply(Request{Kind: KindStatus}), &st)
	if st.Day != 3 || st.Hour != 5 || st.PlayerX != 10 {
		t.Fatalf("v1 fields not applied: %+v", st)
	}
	if st.OwnedCount != 0 || st.PendingCount != 0 {
		t.Fatalf("v1 load must clear the collections it predates: %+v", st)
	}
}
