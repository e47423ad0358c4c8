// Package game hosts the aggregate root of one play session: the scene,
// the player transform, the clock, the item ledger and the spirit
// roster, all mutated by a single loop goroutine. Everything outside
// the loop talks to it through the request envelope.
package game

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/gametime"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/persistence/save"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/catalogs"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/inventory"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/spirits"
	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/tuning"
)

// HourLogEntry is one line of the hourly tick journal.
type HourLogEntry struct {
	Day      int     `json:"day"`
	Hour     int     `json:"hour"`
	GameHour float64 `json:"game_hour"`
	IsNight  bool    `json:"is_night"`
	Owned    int     `json:"owned"`
	Pending  int     `json:"pending"`
	Digest   string  `json:"digest"`
}

// AuditEntry records one action execution attempt.
type AuditEntry struct {
	GameHour float64 `json:"game_hour"`
	Actor    string  `json:"actor"`
	SpiritID string  `json:"spirit_id"`
	ActionID string  `json:"action_id"`
	OK       bool    `json:"ok"`
	Code     string  `json:"code,omitempty"`
	Detail   string  `json:"detail,omitempty"`
	At       string  `json:"at"`
}

type TickLogger interface {
	WriteHour(e HourLogEntry) error
}

type AuditLogger interface {
	WriteAudit(e AuditEntry) error
}

// SaveIndex receives completed writes and level-up history rows. All
// methods must be non-blocking; the loop calls them inline.
type SaveIndex interface {
	RecordSave(res save.WriteResult, doc save.SaveV4)
	RecordLevelUp(spiritID string, level int, gameHour float64)
}

// SaveJob is handed to the off-loop save writer for periodic and
// shutdown saves. ArchiveWeek > 0 asks the writer to also place a
// keepsake copy for that week.
type SaveJob struct {
	Doc         save.SaveV4
	Slot        string
	Reason      string
	ArchiveWeek int
}

type Config struct {
	Scene       string
	StartDay    int
	StartHour   int
	StartMinute int

	// TimeScale is game minutes advanced per wall-clock second.
	TimeScale float64

	// AutosaveEveryHours is the autosave cadence in game hours; 0
	// disables periodic saves. AutosaveSlot defaults to "auto".
	AutosaveEveryHours int
	AutosaveSlot       string

	Gateway *save.Gateway
	Logger  *log.Logger
}

type Game struct {
	cfg    Config
	logger *log.Logger

	tune tuning.Tuning
	cats *catalogs.Catalogs

	clock   *gametime.Clock
	ledger  *inventory.Ledger
	spirits *spirits.Manager
	gateway *save.Gateway

	scene     string
	playerX   float64
	playerY   float64
	playerZ   float64
	playerYaw float64

	pendingLoad *pendingLoad

	subs    map[int64]chan []byte
	nextSub int64

	tickLogger  TickLogger
	auditLogger AuditLogger
	saveIndex   SaveIndex
	saveSink    chan<- SaveJob

	reqs chan Request
	stop chan struct{}

	// Counters read by /metrics from other goroutines.
	minutesTicked  atomic.Int64
	hoursTicked    atomic.Int64
	daysTicked     atomic.Int64
	actionsOK      atomic.Int64
	actionsDenied  atomic.Int64
	levelUps       atomic.Int64
	savesWritten   atomic.Int64
	saveErrors     atomic.Int64
	loadsCommitted atomic.Int64
	notifySessions atomic.Int64
	gameHourMilli  atomic.Int64
}

func New(cfg Config, tune tuning.Tuning, cats *catalogs.Catalogs) (*Game, error) {
	if cats == nil {
		return nil, errors.New("game: catalogs required")
	}
	if cfg.Scene == "" {
		cfg.Scene = "home"
	}
	if cfg.StartDay < 1 {
		cfg.StartDay = 1
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	if cfg.AutosaveSlot == "" {
		cfg.AutosaveSlot = "auto"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	g := &Game{
		cfg:     cfg,
		logger:  logger,
		tune:    tune,
		cats:    cats,
		gateway: cfg.Gateway,
		scene:   cfg.Scene,
		subs:    map[int64]chan []byte{},
		reqs:    make(chan Request, 256),
		stop:    make(chan struct{}),
	}

	g.clock = gametime.New(cfg.StartDay, cfg.StartHour, cfg.StartMinute, tune.SunriseHour, tune.SunsetHour)
	g.ledger = inventory.NewLedger()
	for id, def := range cats.Items.ByID {
		if def.StartCount > 0 {
			g.ledger.Add(id, def.StartCount)
		}
	}

	mgr, err := spirits.New(spirits.Config{
		Tuning:   tune,
		Catalogs: cats,
		Clock:    g.clock,
		Ledger:   g.ledger,
		Sink:     g,
	})
	if err != nil {
		return nil, err
	}
	g.spirits = mgr

	g.clock.OnDayStarted(g.onDayStarted)
	g.clock.OnHourChanged(g.onHourChanged)
	g.gameHourMilli.Store(int64(g.clock.GameHour() * 1000))
	return g, nil
}

func (g *Game) SetTickLogger(l TickLogger)    { g.tickLogger = l }
func (g *Game) SetAuditLogger(l AuditLogger)  { g.auditLogger = l }
func (g *Game) SetSaveIndex(idx SaveIndex)    { g.saveIndex = idx }
func (g *Game) SetSaveSink(ch chan<- SaveJob) { g.saveSink = ch }

// Run drives the session in real time until the context ends: one wall
// second advances TimeScale game minutes, and queued requests are
// handled between ticks.
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case r := <-g.reqs:
			g.handle(r)
		case <-ticker.C:
			g.advanceMinutes(g.cfg.TimeScale)
		}
	}
}

func (g *Game) Stop() { close(g.stop) }

// StepMinutes advances game time synchronously. It shares the loop's
// semantics and exists for tests, tools and the debug clock endpoint;
// it must not race a running loop.
func (g *Game) StepMinutes(minutes float64) {
	g.advanceMinutes(minutes)
}

func (g *Game) advanceMinutes(minutes float64) {
	if minutes <= 0 {
		return
	}
	g.clock.Advance(minutes)
	g.minutesTicked.Add(int64(minutes))
	g.gameHourMilli.Store(int64(g.clock.GameHour() * 1000))
}

// onHourChanged is the hourly boundary: spirits tick first, then the
// journal line, the clock push and the autosave check.
func (g *Game) onHourChanged(hour int) {
	g.hoursTicked.Add(1)
	g.spirits.HourChanged(hour)

	if g.tickLogger != nil {
		_ = g.tickLogger.WriteHour(HourLogEntry{
			Day:      g.clock.Day(),
			Hour:     hour,
			GameHour: g.clock.GameHour(),
			IsNight:  g.clock.IsNight(),
			Owned:    g.spirits.OwnedCount(),
			Pending:  g.spirits.PendingCount(),
			Digest:   g.StateDigest(),
		})
	}

	g.broadcastClock()

	if g.cfg.AutosaveEveryHours > 0 && hour%g.cfg.AutosaveEveryHours == 0 {
		g.enqueueSave(g.cfg.AutosaveSlot, "autosave", 0)
	}
}

func (g *Game) onDayStarted(day int) {
	g.daysTicked.Add(1)
	g.spirits.DayStarted(day)

	if n := g.tune.ArchiveEveryDays; n > 0 && day%n == 0 {
		g.enqueueSave(g.cfg.AutosaveSlot, "keepsake", day/n)
	}
}

// enqueueSave hands a capture to the off-loop writer, dropping the job
// if the writer is backed up. Slot files always carry the newest state
// eventually, so a dropped periodic save is harmless.
func (g *Game) enqueueSave(slot, reason string, archiveWeek int) {
	if g.saveSink == nil {
		return
	}
	job := SaveJob{Doc: g.ExportSave(), Slot: slot, Reason: reason, ArchiveWeek: archiveWeek}
	select {
	case g.saveSink <- job:
	default:
	}
}

// Stats is a point-in-time copy of the loop counters, safe to read from
// any goroutine.
type Stats struct {
	GameHour       float64
	MinutesTicked  int64
	HoursTicked    int64
	DaysTicked     int64
	ActionsOK      int64
	ActionsDenied  int64
	LevelUps       int64
	SavesWritten   int64
	SaveErrors     int64
	LoadsCommitted int64
	NotifySessions int64
}

func (g *Game) Snapshot() Stats {
	return Stats{
		GameHour:       float64(g.gameHourMilli.Load()) / 1000,
		MinutesTicked:  g.minutesTicked.Load(),
		HoursTicked:    g.hoursTicked.Load(),
		DaysTicked:     g.daysTicked.Load(),
		ActionsOK:      g.actionsOK.Load(),
		ActionsDenied:  g.actionsDenied.Load(),
		LevelUps:       g.levelUps.Load(),
		SavesWritten:   g.savesWritten.Load(),
		SaveErrors:     g.saveErrors.Load(),
		LoadsCommitted: g.loadsCommitted.Load(),
		NotifySessions: g.notifySessions.Load(),
	}
}
