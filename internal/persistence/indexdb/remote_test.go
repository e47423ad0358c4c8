package indexdb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestRemoteIndex_PostsBatchedEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		tokens []string
		events []remoteEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode ingest body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		tokens = append(tokens, r.Header.Get("x-gm-index-token"))
		for _, raw := range body.Events {
			var ev remoteEvent
			_ = json.Unmarshal(raw, &ev)
			events = append(events, ev)
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	idx, err := OpenRemote(RemoteConfig{
		Endpoint:      srv.URL,
		Token:         "secret",
		SessionID:     "home-1",
		FlushInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("OpenRemote: %v", err)
	}

	idx.RecordSave(saveFixture("auto", "home", 2))
	idx.RecordLevelUp("sylph", 2, 40)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("events=%d want=2", len(events))
	}
	kinds := map[string]bool{}
	for _, ev := range events {
		kinds[ev.Kind] = true
		if ev.SessionID != "home-1" {
			t.Fatalf("session=%q", ev.SessionID)
		}
	}
	if !kinds["save"] || !kinds["level_up"] {
		t.Fatalf("kinds=%v", kinds)
	}
	for _, tok := range tokens {
		if tok != "secret" {
			t.Fatalf("token header=%q", tok)
		}
	}
}

func TestOpenRemoteValidatesConfig(t *testing.T) {
	if _, err := OpenRemote(RemoteConfig{SessionID: "s"}); err == nil {
		t.Fatalf("empty endpoint accepted")
	}
	if _, err := OpenRemote(RemoteConfig{Endpoint: "http://x"}); err == nil {
		t.Fatalf("empty session id accepted")
	}
}
