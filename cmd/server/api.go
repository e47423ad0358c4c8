package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/notifyproto"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
)

// apiServer maps the loop's request envelope onto loopback-only JSON
// endpoints. The companion app is the only intended caller.
type apiServer struct {
	game       *game.Game
	logger     *log.Logger
	debugClock bool
}

func newAPIServer(g *game.Game, logger *log.Logger) *apiServer {
	return &apiServer{
		game:       g,
		logger:     logger,
		debugClock: envBool("GM_DEBUG_CLOCK", false),
	}
}

func (a *apiServer) register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/status", a.handleStatus)
	mux.HandleFunc("/v1/spirits", a.handleSpiritList)
	mux.HandleFunc("/v1/spirits/", a.handleSpiritGet)

	mux.HandleFunc("/v1/roster/own", a.handleOwn)
	mux.HandleFunc("/v1/roster/release", a.handleRelease)
	mux.HandleFunc("/v1/roster/clear", a.handleRosterClear)
	mux.HandleFunc("/v1/roster/set", a.handleRosterSet)
	mux.HandleFunc("/v1/pending/queue", a.handlePendingQueue)
	mux.HandleFunc("/v1/pending/summon", a.handleSummon)

	mux.HandleFunc("/v1/actions/execute", a.handleExecute)
	mux.HandleFunc("/v1/xp/grant", a.handleGrantXP)
	mux.HandleFunc("/v1/player", a.handleSetPlayer)

	mux.HandleFunc("/v1/save", a.handleSave)
	mux.HandleFunc("/v1/load", a.handleLoad)
	mux.HandleFunc("/v1/load/commit", a.handleLoadCommit)
	mux.HandleFunc("/v1/scene/ready", a.handleSceneReady)

	mux.HandleFunc("/v1/clock/advance", a.handleClockAdvance)
}

func (a *apiServer) handleStatus(rw http.ResponseWriter, r *http.Request) {
	if !a.gate(rw, r, http.MethodGet) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindStatus})
}

func (a *apiServer) handleSpiritList(rw http.ResponseWriter, r *http.Request) {
	if !a.gate(rw, r, http.MethodGet) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindSpiritList})
}

func (a *apiServer) handleSpiritGet(rw http.ResponseWriter, r *http.Request) {
	if !a.gate(rw, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/spirits/")
	if id == "" || strings.Contains(id, "/") {
		writeAPIError(rw, http.StatusBadRequest, notifyproto.ErrBadRequest, "bad spirit path")
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindSpiritGet, SpiritID: id})
}

func (a *apiServer) handleOwn(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		SpiritID string `json:"spirit_id"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindAddOwned, SpiritID: body.SpiritID})
}

func (a *apiServer) handleRelease(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		SpiritID string `json:"spirit_id"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindRemoveOwned, SpiritID: body.SpiritID})
}

func (a *apiServer) handleRosterClear(rw http.ResponseWriter, r *http.Request) {
	if !a.gatePost(rw, r, nil) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindClearOwned})
}

func (a *apiServer) handleRosterSet(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Owned []string `json:"owned"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindSetOwned, IDs: body.Owned})
}

func (a *apiServer) handlePendingQueue(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		SpiritID string `json:"spirit_id"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindQueuePending, SpiritID: body.SpiritID})
}

func (a *apiServer) handleSummon(rw http.ResponseWriter, r *http.Request) {
	if !a.gatePost(rw, r, nil) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindCompleteSummon})
}

func (a *apiServer) handleExecute(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		SpiritID string `json:"spirit_id"`
		ActionID string `json:"action_id"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindExecuteAction, SpiritID: body.SpiritID, ActionID: body.ActionID})
}

func (a *apiServer) handleGrantXP(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		SpiritID string  `json:"spirit_id"`
		XP       float64 `json:"xp"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindAddXP, SpiritID: body.SpiritID, XP: body.XP})
}

func (a *apiServer) handleSetPlayer(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Z     float64 `json:"z"`
		Yaw   float64 `json:"yaw"`
		Scene string  `json:"scene"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{
		Kind: game.KindSetPlayer,
		X:    body.X, Y: body.Y, Z: body.Z, Yaw: body.Yaw,
		Scene: body.Scene,
	})
}

func (a *apiServer) handleSave(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Slot string `json:"slot"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindSave, Slot: body.Slot})
}

func (a *apiServer) handleLoad(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Slot string `json:"slot"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindLoad, Slot: body.Slot})
}

func (a *apiServer) handleLoadCommit(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindLoadCommit, Token: body.Token})
}

func (a *apiServer) handleSceneReady(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Scene string `json:"scene"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindSceneReady, Scene: body.Scene})
}

func (a *apiServer) handleClockAdvance(rw http.ResponseWriter, r *http.Request) {
	if !a.debugClock {
		writeAPIError(rw, http.StatusForbidden, notifyproto.ErrBadRequest, "debug clock disabled")
		return
	}
	var body struct {
		Minutes float64 `json:"minutes"`
	}
	if !a.gatePost(rw, r, &body) {
		return
	}
	a.dispatch(rw, r, game.Request{Kind: game.KindAdvanceMinutes, Minutes: body.Minutes})
}

// gate rejects non-loopback callers and wrong methods.
func (a *apiServer) gate(rw http.ResponseWriter, r *http.Request, method string) bool {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return false
	}
	if r.Method != method {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// gatePost gates a POST endpoint and, when v is non-nil, decodes the
// JSON body into it. Empty bodies decode to zero values.
func (a *apiServer) gatePost(rw http.ResponseWriter, r *http.Request, v any) bool {
	if !a.gate(rw, r, http.MethodPost) {
		return false
	}
	if v == nil {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeAPIError(rw, http.StatusBadRequest, notifyproto.ErrBadRequest, "bad json body")
		return false
	}
	return true
}

func (a *apiServer) dispatch(rw http.ResponseWriter, r *http.Request, req game.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := a.game.Do(ctx, req)
	if err != nil {
		a.logger.Printf("api %s: %v", r.URL.Path, err)
		writeAPIError(rw, http.StatusServiceUnavailable, notifyproto.ErrInternal, "loop unavailable")
		return
	}
	if !resp.OK {
		writeAPIError(rw, httpStatusFor(resp.Code), resp.Code, resp.Detail)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write(resp.Body)
}

func httpStatusFor(code string) int {
	switch code {
	case notifyproto.ErrBadRequest, notifyproto.ErrSlotInvalid:
		return http.StatusBadRequest
	case notifyproto.ErrUnknownAction, notifyproto.ErrNotOwned:
		return http.StatusNotFound
	case notifyproto.ErrActionDisabled, notifyproto.ErrCooldown, notifyproto.ErrNoResource,
		notifyproto.ErrPendingEmpty, notifyproto.ErrNoPendingLoad, notifyproto.ErrSceneNotReady:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeAPIError(rw http.ResponseWriter, status int, code, detail string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(struct {
		OK     bool   `json:"ok"`
		Code   string `json:"code"`
		Detail string `json:"detail,omitempty"`
	}{false, code, detail})
}
