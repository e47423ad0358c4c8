// Package journal persists the session's hourly tick entries and action
// audit trail as zstd-compressed JSONL, one file per wall-clock hour.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/OfficialRoyalFrog/GoodMourningMain/internal/sim/game"
)

// Options tune segment rotation. RotateLayout overrides the wall-clock
// stamp layout (shorter layouts mean smaller segments and a lower
// backup RPO); OnClose fires with the path of every finished segment.
type Options struct {
	RotateLayout string
	OnClose      func(path string)
}

// Writer appends JSON lines to hour-stamped .jsonl.zst files under one
// directory. Rotation is lazy: the first write of a new wall-clock hour
// closes the previous file and opens the next.
type Writer struct {
	baseDir string
	prefix  string
	layout  string
	onClose func(path string)

	mu      sync.Mutex
	curHour string
	curPath string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return NewWriterWithOptions(baseDir, prefix, Options{})
}

func NewWriterWithOptions(baseDir, prefix string, opts Options) *Writer {
	layout := strings.TrimSpace(opts.RotateLayout)
	if layout == "" {
		layout = "2006-01-02-15"
	}
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		layout:  layout,
		onClose: opts.OnClose,
	}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format(w.layout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	w.curPath = path
	return nil
}

func (w *Writer) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	if w.curPath != "" && w.onClose != nil {
		w.onClose(w.curPath)
	}
	w.curPath = ""
	return err1
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickJournal records one entry per game hour (compressed).
type TickJournal struct{ w *Writer }

func NewTickJournal(dataDir string) *TickJournal {
	return NewTickJournalWithOptions(dataDir, Options{})
}

func NewTickJournalWithOptions(dataDir string, opts Options) *TickJournal {
	return &TickJournal{w: NewWriterWithOptions(filepath.Join(dataDir, "hours"), "hours", opts)}
}

func (j *TickJournal) WriteHour(e game.HourLogEntry) error { return j.w.Write(e) }
func (j *TickJournal) Close() error                        { return j.w.Close() }

// AuditJournal records action execution attempts (compressed).
type AuditJournal struct{ w *Writer }

func NewAuditJournal(dataDir string) *AuditJournal {
	return NewAuditJournalWithOptions(dataDir, Options{})
}

func NewAuditJournalWithOptions(dataDir string, opts Options) *AuditJournal {
	return &AuditJournal{w: NewWriterWithOptions(filepath.Join(dataDir, "audit"), "audit", opts)}
}

func (j *AuditJournal) WriteAudit(e game.AuditEntry) error { return j.w.Write(e) }
func (j *AuditJournal) Close() error                       { return j.w.Close() }

// Files lists a journal directory's segment files for one prefix,
// oldest first. The hour stamp in the name is the sort key.
func Files(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ForEach decompresses one segment file and calls fn for every line.
// The line buffer is only valid for the duration of the call.
func ForEach(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}
