package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

func testCatalogs() *catalogs.Catalogs {
	c := &catalogs.Catalogs{
		Actions:  catalogs.ActionCatalog{ByID: map[string]catalogs.ActionDef{}, Digest: "a"},
		Spirits:  catalogs.SpiritCatalog{ByID: map[string]catalogs.SpiritDef{}, Digest: "s"},
		Items:    catalogs.ItemCatalog{ByID: map[string]catalogs.ItemDef{}, Digest: "i"},
		Leveling: catalogs.LevelingCatalog{LevelCap: 5, Digest: "l"},
	}
	offering := catalogs.ActionDef{ID: "offering", SerenityDelta: 0.2, XPGain01: 0.4, CooldownHours: 6}
	c.Actions.ByID[offering.ID] = offering
	c.Actions.Order = append(c.Actions.Order, offering.ID)
	return c
}

func newTestAPI(t *testing.T) (*httptest.Server, *game.Game) {
	t.Helper()
	gw, err := save.NewGateway(t.TempDir())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	g, err := game.New(game.Config{
		Scene:     "home",
		StartDay:  1,
		StartHour: 8,
		Gateway:   gw,
		Logger:    log.New(io.Discard, "", 0),
	}, tuning.Defaults(), testCatalogs())
	if err != nil {
		t.Fatalf("new game: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	mux := http.NewServeMux()
	newAPIServer(g, log.New(io.Discard, "", 0)).register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, g
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func decodeResp(t *testing.T, resp *http.Response, wantStatus int, v any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, wantStatus, raw)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

type apiError struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func TestAPIStatusAndRoster(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	var status game.StatusInfo
	decodeResp(t, resp, http.StatusOK, &status)
	if status.Scene != "home" || status.Day != 1 || status.Hour != 8 {
		t.Fatalf("status=%+v", status)
	}

	var own game.OwnershipResult
	decodeResp(t, postJSON(t, srv, "/v1/roster/own", map[string]string{"spirit_id": "sylph"}), http.StatusOK, &own)
	if !own.Changed || len(own.Owned) != 1 || own.Owned[0] != "sylph" {
		t.Fatalf("own=%+v", own)
	}

	resp, err = http.Get(srv.URL + "/v1/spirits/sylph")
	if err != nil {
		t.Fatalf("get spirit: %v", err)
	}
	var spirit struct {
		ID    string `json:"id"`
		Level int    `json:"level"`
	}
	decodeResp(t, resp, http.StatusOK, &spirit)
	if spirit.ID != "sylph" || spirit.Level != 1 {
		t.Fatalf("spirit=%+v", spirit)
	}

	resp, err = http.Get(srv.URL + "/v1/spirits/ghost")
	if err != nil {
		t.Fatalf("get unowned: %v", err)
	}
	var apiErr apiError
	decodeResp(t, resp, http.StatusNotFound, &apiErr)
	if apiErr.Code != "E_NOT_OWNED" {
		t.Fatalf("code=%s", apiErr.Code)
	}

	decodeResp(t, postJSON(t, srv, "/v1/roster/own", map[string]string{}), http.StatusBadRequest, &apiErr)
	if apiErr.Code != "E_BAD_REQUEST" {
		t.Fatalf("code=%s", apiErr.Code)
	}

	resp, err = http.Get(srv.URL + "/v1/roster/own")
	if err != nil {
		t.Fatalf("get on post endpoint: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("method gate status=%d", resp.StatusCode)
	}
}

func TestAPIActionAndSummonErrors(t *testing.T) {
	srv, _ := newTestAPI(t)

	var apiErr apiError
	decodeResp(t, postJSON(t, srv, "/v1/pending/summon", nil), http.StatusConflict, &apiErr)
	if apiErr.Code != "E_PENDING_EMPTY" {
		t.Fatalf("summon code=%s", apiErr.Code)
	}

	postJSON(t, srv, "/v1/roster/own", map[string]string{"spirit_id": "sylph"}).Body.Close()

	decodeResp(t, postJSON(t, srv, "/v1/actions/execute", map[string]string{"spirit_id": "sylph", "action_id": "vanish"}), http.StatusNotFound, &apiErr)
	if apiErr.Code != "E_UNKNOWN_ACTION" {
		t.Fatalf("execute code=%s", apiErr.Code)
	}

	var state struct {
		Serenity float64 `json:"serenity01"`
	}
	decodeResp(t, postJSON(t, srv, "/v1/actions/execute", map[string]string{"spirit_id": "sylph", "action_id": "offering"}), http.StatusOK, &state)

	// Second execute hits the 6h cooldown.
	decodeResp(t, postJSON(t, srv, "/v1/actions/execute", map[string]string{"spirit_id": "sylph", "action_id": "offering"}), http.StatusConflict, &apiErr)
	if apiErr.Code != "E_COOLDOWN" {
		t.Fatalf("cooldown code=%s", apiErr.Code)
	}
}

func TestAPISaveLoadFlow(t *testing.T) {
	srv, _ := newTestAPI(t)

	postJSON(t, srv, "/v1/roster/own", map[string]string{"spirit_id": "sylph"}).Body.Close()

	var wrote save.WriteResult
	decodeResp(t, postJSON(t, srv, "/v1/save", map[string]string{"slot": "slot_1"}), http.StatusOK, &wrote)
	if wrote.Slot != "slot_1" || wrote.Bytes == 0 || wrote.SHA256 == "" {
		t.Fatalf("write result=%+v", wrote)
	}

	var loaded game.LoadResult
	decodeResp(t, postJSON(t, srv, "/v1/load", map[string]string{"slot": "slot_1"}), http.StatusOK, &loaded)
	if !loaded.Committed || loaded.Version != save.CurrentVersion {
		t.Fatalf("load result=%+v", loaded)
	}

	var apiErr apiError
	decodeResp(t, postJSON(t, srv, "/v1/load", map[string]string{"slot": "../evil"}), http.StatusBadRequest, &apiErr)
	if apiErr.Code != "E_SLOT_INVALID" {
		t.Fatalf("load code=%s", apiErr.Code)
	}

	decodeResp(t, postJSON(t, srv, "/v1/load/commit", map[string]string{"token": "stale"}), http.StatusConflict, &apiErr)
	if apiErr.Code != "E_NO_PENDING_LOAD" {
		t.Fatalf("commit code=%s", apiErr.Code)
	}
}

func TestAPIClockAdvanceIsGated(t *testing.T) {
	srv, _ := newTestAPI(t)

	var apiErr apiError
	decodeResp(t, postJSON(t, srv, "/v1/clock/advance", map[string]float64{"minutes": 60}), http.StatusForbidden, &apiErr)

	t.Setenv("GM_DEBUG_CLOCK", "1")
	srv2, _ := newTestAPI(t)

	var status game.StatusInfo
	decodeResp(t, postJSON(t, srv2, "/v1/clock/advance", map[string]float64{"minutes": 60}), http.StatusOK, &status)
	if status.Hour != 9 {
		t.Fatalf("hour=%d want=9", status.Hour)
	}

	decodeResp(t, postJSON(t, srv2, "/v1/clock/advance", map[string]float64{"minutes": -5}), http.StatusBadRequest, &apiErr)
	if apiErr.Code != "E_BAD_REQUEST" {
		t.Fatalf("advance code=%s", apiErr.Code)
	}
}
