package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
)

type Kind int

const (
	KindStatus Kind = iota + 1
	KindBootstrap
	KindSpiritList
	KindSpiritGet
	KindAddOwned
	KindRemoveOwned
	KindClearOwned
	KindSetOwned
	KindQueuePending
	KindCompleteSummon
	KindExecuteAction
	KindAddXP
	KindSetPlayer
	KindSave
	KindLoad
	KindLoadCommit
	KindSceneReady
	KindAdvanceMinutes
	KindSubscribe
	KindUnsubscribe
)

// Request is the single envelope for everything the loop can be asked
// to do; only the fields the Kind needs are set.
type Request struct {
	Kind Kind

	SpiritID string
	ActionID string
	IDs      []string
	XP       float64

	Slot  string
	Token string
	Scene string

	Minutes float64

	X, Y, Z, Yaw float64

	Sub   chan []byte
	SubID int64

	resp chan Response
}

// Response carries the outcome: a protocol error code on failure, a
// kind-specific JSON body on success.
type Response struct {
	OK     bool
	Code   string
	Detail string
	Body   []byte
	SubID  int64
}

func fail(code, detail string) Response {
	if !notifyproto.IsKnownCode(code) {
		code = notifyproto.ErrInternal
	}
	return Response{Code: code, Detail: detail}
}

func okBody(v any) Response {
	b, err := json.Marshal(v)
	if err != nil {
		return fail(notifyproto.ErrInternal, "encode response")
	}
	return Response{OK: true, Body: b}
}

// StatusInfo is the status endpoint payload.
type StatusInfo struct {
	Scene        string         `json:"scene"`
	Day          int            `json:"day"`
	Hour         int            `json:"hour"`
	Minute       int            `json:"minute"`
	GameHour     float64        `json:"game_hour"`
	IsNight      bool           `json:"is_night"`
	OwnedCount   int            `json:"owned_count"`
	PendingCount int            `json:"pending_count"`
	Items        map[string]int `json:"items"`
	PlayerX      float64        `json:"player_x"`
	PlayerY      float64        `json:"player_y"`
	PlayerZ      float64        `json:"player_z"`
	PlayerYaw    float64        `json:"player_yaw"`
	Digest       string         `json:"digest"`
}

// OwnershipResult reports a roster mutation: whether anything changed
// and the resulting lists.
type OwnershipResult struct {
	Changed  bool     `json:"changed"`
	SpiritID string   `json:"spirit_id,omitempty"`
	Owned    []string `json:"owned"`
	Pending  []string `json:"pending"`
}

// LoadResult reports a prepared (and possibly auto-committed) load.
type LoadResult struct {
	Token     string `json:"token"`
	Version   int    `json:"version"`
	Scene     string `json:"scene"`
	Committed bool   `json:"committed"`
}

// Do posts a request to the running loop and waits for its response.
func (g *Game) Do(ctx context.Context, r Request) (Response, error) {
	r.resp = make(chan Response, 1)
	select {
	case g.reqs <- r:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-g.stop:
		return Response{}, context.Canceled
	}
	select {
	case out := <-r.resp:
		return out, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Apply handles a request synchronously on the calling goroutine. It is
// the deterministic path for tests and tools and must not race a
// running loop.
func (g *Game) Apply(r Request) Response {
	r.resp = make(chan Response, 1)
	g.handle(r)
	return <-r.resp
}

// Subscribe registers an outbound notification channel and returns its
// session id. The channel immediately receives a full refresh.
func (g *Game) Subscribe(ctx context.Context, ch chan []byte) (int64, error) {
	out, err := g.Do(ctx, Request{Kind: KindSubscribe, Sub: ch})
	if err != nil {
		return 0, err
	}
	return out.SubID, nil
}

func (g *Game) Unsubscribe(ctx context.Context, id int64) {
	_, _ = g.Do(ctx, Request{Kind: KindUnsubscribe, SubID: id})
}

// Bootstrap returns the bootstrap payload for new observers.
func (g *Game) Bootstrap(ctx context.Context) ([]byte, error) {
	out, err := g.Do(ctx, Request{Kind: KindBootstrap})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (g *Game) handle(r Request) {
	var out Response
	switch r.Kind {
	case KindStatus:
		out = okBody(g.statusInfo())

	case KindBootstrap:
		out = okBody(g.bootstrapInfo())

	case KindSpiritList:
		out = okBody(struct {
			Spirits []notifyproto.SpiritState `json:"spirits"`
		}{g.buildSpiritStates()})

	case KindSpiritGet:
		st, ok := g.spirits.TryGetState(r.SpiritID)
		if !ok {
			out = fail(notifyproto.ErrNotOwned, r.SpiritID)
			break
		}
		out = okBody(g.toProtoState(st))

	case KindAddOwned:
		if r.SpiritID == "" {
			out = fail(notifyproto.ErrBadRequest, "missing spirit id")
			break
		}
		changed := g.spirits.AddOwned(r.SpiritID)
		out = okBody(g.ownershipResult(changed, ""))

	case KindRemoveOwned:
		if r.SpiritID == "" {
			out = fail(notifyproto.ErrBadRequest, "missing spirit id")
			break
		}
		changed := g.spirits.RemoveOwned(r.SpiritID)
		out = okBody(g.ownershipResult(changed, ""))

	case KindClearOwned:
		g.spirits.ClearOwned()
		out = okBody(g.ownershipResult(true, ""))

	case KindSetOwned:
		g.spirits.SetOwnedFromList(r.IDs)
		out = okBody(g.ownershipResult(true, ""))

	case KindQueuePending:
		if r.SpiritID == "" {
			out = fail(notifyproto.ErrBadRequest, "missing spirit id")
			break
		}
		changed := g.spirits.QueuePending(r.SpiritID)
		out = okBody(g.ownershipResult(changed, ""))

	case KindCompleteSummon:
		id, ok := g.spirits.CompleteSummon()
		if !ok {
			out = fail(notifyproto.ErrPendingEmpty, "no pending summon")
			break
		}
		out = okBody(g.ownershipResult(true, id))

	case KindExecuteAction:
		out = g.handleExecute(r.SpiritID, r.ActionID)

	case KindAddXP:
		if r.SpiritID == "" || r.XP <= 0 {
			out = fail(notifyproto.ErrBadRequest, "missing spirit id or grant")
			break
		}
		if !g.spirits.TryAddXP(r.SpiritID, r.XP) {
			out = fail(notifyproto.ErrNotOwned, r.SpiritID)
			break
		}
		st, _ := g.spirits.TryGetState(r.SpiritID)
		out = okBody(g.toProtoState(st))

	case KindSetPlayer:
		g.playerX, g.playerY, g.playerZ, g.playerYaw = r.X, r.Y, r.Z, r.Yaw
		if r.Scene != "" {
			g.scene = r.Scene
		}
		out = okBody(g.statusInfo())

	case KindSave:
		out = g.handleSave(r.Slot)

	case KindLoad:
		out = g.handleLoad(r.Slot)

	case KindLoadCommit:
		out = g.handleLoadCommit(r.Token)

	case KindSceneReady:
		out = g.handleSceneReady(r.Scene)

	case KindAdvanceMinutes:
		if r.Minutes <= 0 || r.Minutes > 24*60*365 {
			out = fail(notifyproto.ErrBadRequest, "minutes out of range")
			break
		}
		g.advanceMinutes(r.Minutes)
		out = okBody(g.statusInfo())

	case KindSubscribe:
		if r.Sub == nil {
			out = fail(notifyproto.ErrBadRequest, "missing channel")
			break
		}
		g.nextSub++
		id := g.nextSub
		g.subs[id] = r.Sub
		g.notifySessions.Store(int64(len(g.subs)))
		g.sendRefresh(r.Sub)
		out = Response{OK: true, SubID: id}

	case KindUnsubscribe:
		delete(g.subs, r.SubID)
		g.notifySessions.Store(int64(len(g.subs)))
		out = Response{OK: true}

	default:
		out = fail(notifyproto.ErrBadRequest, "unknown request kind")
	}

	if r.resp != nil {
		r.resp <- out
	}
}

func (g *Game) handleExecute(spiritID, actionID string) Response {
	ok, code, detail := g.spirits.TryExecuteAction(spiritID, actionID)
	if ok {
		g.actionsOK.Add(1)
	} else {
		g.actionsDenied.Add(1)
	}

	msg := notifyproto.ActionResultMsg{
		Type:            notifyproto.TypeActionResult,
		ProtocolVersion: notifyproto.Version,
		GameHour:        g.clock.GameHour(),
		SpiritID:        spiritID,
		ActionID:        actionID,
		OK:              ok,
		Code:            code,
		Detail:          detail,
	}
	g.broadcast(msg)

	if g.auditLogger != nil {
		_ = g.auditLogger.WriteAudit(AuditEntry{
			GameHour: msg.GameHour,
			Actor:    "player",
			SpiritID: spiritID,
			ActionID: actionID,
			OK:       ok,
			Code:     code,
			Detail:   detail,
			At:       time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	out := okBody(msg)
	out.OK = ok
	out.Code = code
	out.Detail = detail
	return out
}

func (g *Game) ownershipResult(changed bool, summoned string) OwnershipResult {
	return OwnershipResult{
		Changed:  changed,
		SpiritID: summoned,
		Owned:    g.spirits.OwnedIDs(),
		Pending:  g.spirits.PendingIDs(),
	}
}

func (g *Game) statusInfo() StatusInfo {
	return StatusInfo{
		Scene:        g.scene,
		Day:          g.clock.Day(),
		Hour:         g.clock.Hour(),
		Minute:       g.clock.Minute(),
		GameHour:     g.clock.GameHour(),
		IsNight:      g.clock.IsNight(),
		OwnedCount:   g.spirits.OwnedCount(),
		PendingCount: g.spirits.PendingCount(),
		Items:        g.ledger.Counts(),
		PlayerX:      g.playerX,
		PlayerY:      g.playerY,
		PlayerZ:      g.playerZ,
		PlayerYaw:    g.playerYaw,
		Digest:       g.StateDigest(),
	}
}

func (g *Game) bootstrapInfo() notifyproto.BootstrapResponse {
	return notifyproto.BootstrapResponse{
		ProtocolVersion: notifyproto.Version,
		Scene:           g.scene,
		Day:             g.clock.Day(),
		Hour:            g.clock.Hour(),
		Minute:          g.clock.Minute(),
		GameHour:        g.clock.GameHour(),
		OwnedCount:      g.spirits.OwnedCount(),
		PendingCount:    g.spirits.PendingCount(),
		Catalogs: notifyproto.CatalogDigests{
			Actions:  g.cats.Actions.Digest,
			Spirits:  g.cats.Spirits.Digest,
			Items:    g.cats.Items.Digest,
			Leveling: g.cats.Leveling.Digest,
		},
	}
}
