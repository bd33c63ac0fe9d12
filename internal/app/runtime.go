// Package app wires the criteria engine, storage and event feed into a
// runnable process.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/wergy/milestone/internal/criteria/loader"
	"github.com/wergy/milestone/internal/engine"
	"github.com/wergy/milestone/internal/event"
	"github.com/wergy/milestone/internal/matcher"
	"github.com/wergy/milestone/internal/progress"
	"github.com/wergy/milestone/internal/storage"
	"github.com/wergy/milestone/internal/storage/sqlite"
)

// RuntimeConfig controls engine startup and loop behavior.
type RuntimeConfig struct {
	DefinitionsPath string
	DBPath          string
	EventsPath      string
	TickInterval    time.Duration
	FlushInterval   time.Duration
	Logger          *slog.Logger
}

const (
	defaultDBPath        = "data/milestone.db"
	defaultTickInterval  = time.Second
	defaultFlushInterval = time.Second
)

var tracer = otel.Tracer("github.com/wergy/milestone/internal/app")

// Notifier receives node completions as they are detected. Implementations
// must not block; they run on the event-processing path.
type Notifier interface {
	NotifyCompletion(engine.Completion)
}

// Run loads definitions, opens storage, replays the event feed through the
// engine and flushes resulting changes until the feed ends or ctx is done.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.DefinitionsPath) == "" {
		return fmt.Errorf("definitions path is required")
	}
	if strings.TrimSpace(cfg.EventsPath) == "" {
		return fmt.Errorf("events path is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defs, err := loader.LoadFile(cfg.DefinitionsPath)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}
	logger.Info("definitions loaded",
		"criteria", defs.CriterionCount(),
		"nodes", defs.NodeCount(),
	)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("close sqlite store", "error", closeErr)
		}
	}()

	match, err := matcher.New(logger)
	if err != nil {
		return fmt.Errorf("build matcher: %w", err)
	}

	journal := progress.NewJournal()
	eng, err := engine.New(defs, match, journal, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	if err := eng.ValidateTickInterval(cfg.TickInterval); err != nil {
		return fmt.Errorf("tick interval: %w", err)
	}

	flusher, err := NewFlusher(journal, store, cfg.FlushInterval, logger)
	if err != nil {
		return fmt.Errorf("build flusher: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		flusher.Run(loopCtx)
	}()

	feed, err := os.Open(cfg.EventsPath)
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("open event feed: %w", err)
	}
	defer feed.Close()

	notifier := &logNotifier{logger: logger}
	replayCtx, span := tracer.Start(ctx, "feed.replay")
	replayErr := replay(replayCtx, feed, eng, store, notifier, cfg.TickInterval)
	if replayErr != nil {
		span.RecordError(replayErr)
	}
	span.End()

	// Stop the flush loop before the final flush inside flusher.Run.
	cancel()
	wg.Wait()

	if replayErr != nil {
		return fmt.Errorf("replay events: %w", replayErr)
	}
	return nil
}

// replay feeds decoded events into the engine, attaching each subject with
// its stored snapshot on first sight. Timed windows expire against the feed
// clock: the event timestamps drive eng.Tick, so a historical feed is judged
// by the times it carries, not by the wall clock during replay.
func replay(ctx context.Context, feed io.Reader, eng *engine.Engine, store storage.SnapshotStore, notifier Notifier, tickInterval time.Duration) error {
	attached := make(map[event.Subject]bool)
	var lastTick time.Time

	return ReadEvents(feed, func(se SourceEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if at := se.Event.Timestamp; !at.IsZero() {
			if lastTick.IsZero() {
				lastTick = at
			} else if at.Sub(lastTick) >= tickInterval {
				eng.Tick(at)
				lastTick = at
			}
		}

		subject := se.Event.Subject
		if !attached[subject] {
			snap, err := store.LoadSnapshot(ctx, string(subject.Kind), subject.ID)
			if err != nil {
				return fmt.Errorf("load snapshot for %s/%s: %w", subject.Kind, subject.ID, err)
			}
			if _, err := eng.Attach(subject, se.Faction, snap); err != nil {
				return fmt.Errorf("attach %s/%s: %w", subject.Kind, subject.ID, err)
			}
			attached[subject] = true
		}

		completions, err := eng.HandleEvent(&se.Event)
		if err != nil {
			return err
		}
		for _, c := range completions {
			notifier.NotifyCompletion(c)
		}
		return nil
	})
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) NotifyCompletion(c engine.Completion) {
	n.logger.Info("node completed",
		"subject_kind", c.Subject.Kind,
		"subject_id", c.Subject.ID,
		"node", c.NodeID,
		"at", c.At,
	)
}
