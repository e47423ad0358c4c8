package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/archive"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/indexdb"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/journal"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/transport/notify"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "session_1", "session id (scopes the data dir and backup prefix)")
		scene      = flag.String("scene", "home", "starting scene for a fresh session")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the save index (slot files and journals are still written)")

		resumeSlot = flag.String("slot", "", "slot to resume from (optional)")
		resumeAuto = flag.Bool("resume_auto", true, "resume from the autosave slot if present (when -slot is empty)")

		timeScale     = flag.Float64("time_scale", 1, "game minutes advanced per wall second")
		startDay      = flag.Int("start_day", 1, "starting day for a fresh session")
		startHour     = flag.Int("start_hour", 8, "starting hour for a fresh session")
		autosaveHours = flag.Int("autosave_hours", 6, "autosave cadence in game hours (0 disables)")
		autosaveSlot  = flag.String("autosave_slot", "auto", "autosave slot name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	// Optional: read-model index backend (never the source of truth).
	idx, err := openRuntimeIndex(sessionDir, *sessionID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	mirror, err := buildBackupMirrorRuntime(sessionDir, *sessionID, logger)
	if err != nil {
		logger.Fatalf("init backup mirror: %v", err)
	}
	defer mirror.Close()

	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	gw, err := save.NewGateway(filepath.Join(sessionDir, "slots"))
	if err != nil {
		logger.Fatalf("open save gateway: %v", err)
	}

	g, err := game.New(game.Config{
		Scene:              *scene,
		StartDay:           *startDay,
		StartHour:          *startHour,
		TimeScale:          *timeScale,
		AutosaveEveryHours: *autosaveHours,
		AutosaveSlot:       *autosaveSlot,
		Gateway:            gw,
		Logger:             logger,
	}, tune, cats)
	if err != nil {
		logger.Fatalf("game: %v", err)
	}

	logOpts := journal.Options{}
	if mirror.enabled {
		logOpts.RotateLayout = mirror.rotateLayout
		logOpts.OnClose = mirror.Enqueue
	}
	tickJournal := journal.NewTickJournalWithOptions(sessionDir, logOpts)
	auditJournal := journal.NewAuditJournalWithOptions(sessionDir, logOpts)
	defer tickJournal.Close()
	defer auditJournal.Close()
	g.SetTickLogger(tickJournal)
	g.SetAuditLogger(auditJournal)
	if idx != nil {
		g.SetSaveIndex(idx)
	}

	// Off-loop save writer: periodic jobs carry a full capture, so slow
	// disks or uploads never stall the loop.
	saveCh := make(chan game.SaveJob, 4)
	g.SetSaveSink(saveCh)
	saveDone := make(chan struct{})
	go func() {
		defer close(saveDone)
		for job := range saveCh {
			writeSaveJob(job, gw, idx, mirror, sessionDir, logger)
		}
	}()

	bootResume(g, gw, *resumeSlot, *resumeAuto, *autosaveSlot, logger)

	ctx, cancel := signalContext()
	defer cancel()

	loopCtx, loopCancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := g.Run(loopCtx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeGameMetrics(rw, *sessionID, g.Snapshot())
		writeIndexMetrics(rw, idx)
		writeBackupMirrorMetrics(rw, mirror)
	})

	newAPIServer(g, logger).register(mux)

	notifySrv := notify.NewServer(g, logger)
	mux.HandleFunc("/v1/ws", notifySrv.WSHandler())
	mux.HandleFunc("/v1/bootstrap", notifySrv.BootstrapHandler())

	if envBool("GM_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s session=%s", *addr, *sessionID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Final save while the loop is still serving requests, then drain
	// the writer so nothing queued is lost.
	func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		resp, err := g.Do(ctx2, game.Request{Kind: game.KindSave, Slot: *autosaveSlot})
		switch {
		case err != nil:
			logger.Printf("final save: %v", err)
		case !resp.OK:
			logger.Printf("final save: %s %s", resp.Code, resp.Detail)
		default:
			logger.Printf("final save written slot=%s", *autosaveSlot)
			if path, err := gw.Path(*autosaveSlot); err == nil {
				mirror.Enqueue(path)
			}
		}
	}()
	loopCancel()
	<-loopDone
	close(saveCh)
	<-saveDone
}

// bootResume restores a previous session before the loop starts. Loads
// into another scene are committed immediately; at boot there is no
// client mid-transition to wait for.
func bootResume(g *game.Game, gw *save.Gateway, slot string, resumeAuto bool, autosaveSlot string, logger *log.Logger) {
	slot = strings.TrimSpace(slot)
	if slot == "" && resumeAuto && gw.Exists(autosaveSlot) {
		slot = autosaveSlot
	}
	if slot == "" {
		return
	}

	resp := g.Apply(game.Request{Kind: game.KindLoad, Slot: slot})
	if !resp.OK {
		logger.Fatalf("resume slot=%s: %s %s", slot, resp.Code, resp.Detail)
	}
	var res game.LoadResult
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		logger.Fatalf("resume slot=%s: decode: %v", slot, err)
	}
	if !res.Committed {
		ready := g.Apply(game.Request{Kind: game.KindSceneReady, Scene: res.Scene})
		if !ready.OK {
			logger.Fatalf("resume slot=%s scene=%s: %s %s", slot, res.Scene, ready.Code, ready.Detail)
		}
	}
	logger.Printf("resumed slot=%s version=%d scene=%s", slot, res.Version, res.Scene)
}

func writeSaveJob(job game.SaveJob, gw *save.Gateway, idx runtimeIndex, mirror *backupMirrorRuntime, sessionDir string, logger *log.Logger) {
	res, err := gw.Write(job.Slot, job.Doc)
	if err != nil {
		logger.Printf("save reason=%s slot=%s: %v", job.Reason, job.Slot, err)
		return
	}
	if idx != nil {
		idx.RecordSave(res, job.Doc)
	}
	mirror.Enqueue(res.Path)

	if job.ArchiveWeek > 0 {
		archivedPath, ok, err := archive.WriteKeepsake(sessionDir, job.ArchiveWeek, res.Path, job.Doc)
		if err != nil {
			logger.Printf("keepsake week=%d slot=%s: %v", job.ArchiveWeek, job.Slot, err)
			return
		}
		if ok {
			mirror.Enqueue(archivedPath)
			enqueueIfExists(mirror, filepath.Join(filepath.Dir(archivedPath), "meta.json"))
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func enqueueIfExists(m *backupMirrorRuntime, path string) {
	if m == nil || !m.enabled {
		return
	}
	if _, err := os.Stat(path); err == nil {
		m.Enqueue(path)
	}
}

func writeGameMetrics(rw http.ResponseWriter, sessionID string, st game.Stats) {
	fmt.Fprintf(rw, "# HELP gm_game_hour Absolute game hour of the session clock.\n")
	fmt.Fprintf(rw, "# TYPE gm_game_hour gauge\n")
	fmt.Fprintf(rw, "gm_game_hour{session=%q} %.3f\n", sessionID, st.GameHour)

	fmt.Fprintf(rw, "# HELP gm_minutes_ticked_total Game minutes advanced.\n")
	fmt.Fprintf(rw, "# TYPE gm_minutes_ticked_total counter\n")
	fmt.Fprintf(rw, "gm_minutes_ticked_total{session=%q} %d\n", sessionID, st.MinutesTicked)

	fmt.Fprintf(rw, "# HELP gm_hours_ticked_total Hour boundaries crossed.\n")
	fmt.Fprintf(rw, "# TYPE gm_hours_ticked_total counter\n")
	fmt.Fprintf(rw, "gm_hours_ticked_total{session=%q} %d\n", sessionID, st.HoursTicked)

	fmt.Fprintf(rw, "# HELP gm_days_ticked_total Day boundaries crossed.\n")
	fmt.Fprintf(rw, "# TYPE gm_days_ticked_total counter\n")
	fmt.Fprintf(rw, "gm_days_ticked_total{session=%q} %d\n", sessionID, st.DaysTicked)

	fmt.Fprintf(rw, "# HELP gm_actions_total Action executions by outcome.\n")
	fmt.Fprintf(rw, "# TYPE gm_actions_total counter\n")
	fmt.Fprintf(rw, "gm_actions_total{session=%q,outcome=%q} %d\n", sessionID, "ok", st.ActionsOK)
	fmt.Fprintf(rw, "gm_actions_total{session=%q,outcome=%q} %d\n", sessionID, "denied", st.ActionsDenied)

	fmt.Fprintf(rw, "# HELP gm_level_ups_total Spirit level ups.\n")
	fmt.Fprintf(rw, "# TYPE gm_level_ups_total counter\n")
	fmt.Fprintf(rw, "gm_level_ups_total{session=%q} %d\n", sessionID, st.LevelUps)

	fmt.Fprintf(rw, "# HELP gm_saves_written_total Slot writes handled on the loop.\n")
	fmt.Fprintf(rw, "# TYPE gm_saves_written_total counter\n")
	fmt.Fprintf(rw, "gm_saves_written_total{session=%q} %d\n", sessionID, st.SavesWritten)

	fmt.Fprintf(rw, "# HELP gm_save_errors_total Failed slot writes.\n")
	fmt.Fprintf(rw, "# TYPE gm_save_errors_total counter\n")
	fmt.Fprintf(rw, "gm_save_errors_total{session=%q} %d\n", sessionID, st.SaveErrors)

	fmt.Fprintf(rw, "# HELP gm_loads_committed_total Committed slot loads.\n")
	fmt.Fprintf(rw, "# TYPE gm_loads_committed_total counter\n")
	fmt.Fprintf(rw, "gm_loads_committed_total{session=%q} %d\n", sessionID, st.LoadsCommitted)

	fmt.Fprintf(rw, "# HELP gm_notify_sessions Connected notify subscribers.\n")
	fmt.Fprintf(rw, "# TYPE gm_notify_sessions gauge\n")
	fmt.Fprintf(rw, "gm_notify_sessions{session=%q} %d\n", sessionID, st.NotifySessions)
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	s, ok := idx.(*indexdb.SQLiteIndex)
	if !ok || s == nil {
		return
	}
	st := s.Stats()
	fmt.Fprintf(rw, "# HELP gm_index_dropped_total Index rows dropped because the writer queue was full.\n")
	fmt.Fprintf(rw, "# TYPE gm_index_dropped_total counter\n")
	fmt.Fprintf(rw, "gm_index_dropped_total{kind=%q} %d\n", "save", st.DropSaveTotal)
	fmt.Fprintf(rw, "gm_index_dropped_total{kind=%q} %d\n", "level_up", st.DropLevelUpTotal)
}

func writeBackupMirrorMetrics(rw http.ResponseWriter, mirror *backupMirrorRuntime) {
	s, ok := mirror.Stats()
	if !ok {
		return
	}
	fmt.Fprintf(rw, "# HELP gm_backup_queue_depth Current backup mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_queue_depth gauge\n")
	fmt.Fprintf(rw, "gm_backup_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP gm_backup_queue_capacity Backup mirror queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_queue_capacity gauge\n")
	fmt.Fprintf(rw, "gm_backup_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP gm_backup_enqueued_total Total backup enqueue attempts.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_enqueued_total counter\n")
	fmt.Fprintf(rw, "gm_backup_enqueued_total %d\n", s.EnqueuedTotal)

	fmt.Fprintf(rw, "# HELP gm_backup_queue_saturated_total Enqueue attempts that found the queue full.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_queue_saturated_total counter\n")
	fmt.Fprintf(rw, "gm_backup_queue_saturated_total %d\n", s.QueueSaturatedTotal)

	fmt.Fprintf(rw, "# HELP gm_backup_dropped_total Files dropped because the queue stayed full.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_dropped_total counter\n")
	fmt.Fprintf(rw, "gm_backup_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP gm_backup_upload_success_total Successful uploads.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_upload_success_total counter\n")
	fmt.Fprintf(rw, "gm_backup_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(rw, "# HELP gm_backup_upload_fail_total Uploads that failed after retries.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_upload_fail_total counter\n")
	fmt.Fprintf(rw, "gm_backup_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP gm_backup_last_success_unix Unix time of the last successful upload.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_last_success_unix gauge\n")
	fmt.Fprintf(rw, "gm_backup_last_success_unix %d\n", s.LastSuccessUnix)

	fmt.Fprintf(rw, "# HELP gm_backup_last_error_unix Unix time of the last failed upload.\n")
	fmt.Fprintf(rw, "# TYPE gm_backup_last_error_unix gauge\n")
	fmt.Fprintf(rw, "gm_backup_last_error_unix %d\n", s.LastErrorUnix)
}
