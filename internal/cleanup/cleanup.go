// Package cleanup implements the daily log-rotation collaborator: a
// direct extension of original_source/src/cleanup.rs's 24-hour retention
// sweep, enriched with gzip compression of logs older than a day before
// their eventual deletion at the three-day mark, sharing the same
// robfig/cron scheduler instance internal/janitor uses for its own
// periodic tick.
package cleanup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/robfig/cron/v3"
)

const (
	compressAfter = 24 * time.Hour
	deleteAfter   = 72 * time.Hour
	dateLayout    = "2006-01-02"
)

// Sweeper rotates the alert log directory: files whose name carries a
// date suffix older than compressAfter are gzip-compressed in place;
// files (gzipped or not) older than deleteAfter are removed.
type Sweeper struct {
	dir      string
	baseName string
	running  bool
}

// New constructs a Sweeper watching dir for files named baseName.YYYY-MM-DD
// (optionally suffixed .gz), matching the naming convention a rotating
// file logger (lumberjack) produces alongside the dedicated alert log.
func New(dir, baseName string) *Sweeper {
	return &Sweeper{dir: dir, baseName: baseName}
}

// Start registers the daily sweep on cronRunner and blocks until ctx is
// cancelled; starting and stopping cronRunner is left to its owner. Sharing one cron.Cron instance with internal/janitor
// keeps a single background scheduler goroutine for both periodic tasks.
func (s *Sweeper) Start(ctx context.Context, cronRunner *cron.Cron) error {
	if _, err := cronRunner.AddFunc("@daily", s.sweep); err != nil {
		return err
	}
	s.running = true
	<-ctx.Done()
	s.running = false
	return nil
}

// Running reports whether the sweep has been scheduled.
func (s *Sweeper) Running() bool { return s.running }

// Sweep performs one pass immediately; exported for tests and for a
// manual "rotate now" operator action.
func (s *Sweeper) Sweep() { s.sweep() }

func (s *Sweeper) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Error("cleanup: reading log directory", "dir", s.dir, "error", err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		date, ok := s.parseDate(name)
		if !ok {
			continue
		}

		age := now.Sub(date)
		path := filepath.Join(s.dir, name)

		switch {
		case age >= deleteAfter:
			if err := os.Remove(path); err != nil {
				slog.Error("cleanup: removing old log", "path", path, "error", err)
			} else {
				slog.Info("cleanup: removed old log", "path", path)
			}
		case age >= compressAfter && !strings.HasSuffix(name, ".gz"):
			if err := compressFile(path); err != nil {
				slog.Error("cleanup: compressing log", "path", path, "error", err)
			} else {
				slog.Info("cleanup: compressed log", "path", path)
			}
		}
	}
}

// parseDate extracts the trailing "YYYY-MM-DD" (optionally followed by
// ".gz") from a rotated log filename, matching cleanup.rs's "strip
// everything up to the last dot, parse as a date" rule extended to
// tolerate a ".gz" suffix already appended by a previous sweep.
func (s *Sweeper) parseDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, s.baseName) {
		return time.Time{}, false
	}
	trimmed := strings.TrimSuffix(name, ".gz")
	idx := strings.LastIndex(trimmed, ".")
	if idx < 0 {
		return time.Time{}, false
	}
	date, err := time.Parse(dateLayout, trimmed[idx+1:])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	in.Close()
	return os.Remove(path)
}
