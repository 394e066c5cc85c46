//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
)

// cronLogger routes scheduler messages to the global logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// Start installs the cron schedules and file watches and returns a stop
// function. Cycles started by a trigger are not cancelled by ctx; stop
// waits for them, each bounded by the cycle timeout.
func (r *Runner) Start(ctx context.Context) (stop func(), err error) {
	r.startTime = time.Now()
	runCtx := context.WithoutCancel(ctx)

	sched, err := r.schedule(runCtx)
	if err != nil {
		return nil, err
	}
	watchCtx, cancelWatch := context.WithCancel(ctx)
	watcher, watchDone, err := r.watch(watchCtx, runCtx)
	if err != nil {
		cancelWatch()
		if sched != nil {
			sched.Stop()
		}
		return nil, err
	}

	reportCtx, cancelReport := context.WithCancel(ctx)
	if r.reportInterval > 0 {
		go r.reporter(reportCtx)
	}

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancelReport()
			cancelWatch()
			if watcher != nil {
				watcher.Close()
				<-watchDone
			}
			if sched != nil {
				<-sched.Stop().Done()
			}
			r.guard.wait(context.Background())
		})
	}
	return stop, nil
}

// Run starts the triggers and blocks until ctx is cancelled, then waits
// for in-flight cycles to finish.
func (r *Runner) Run(ctx context.Context) error {
	stop, err := r.Start(ctx)
	if err != nil {
		return err
	}

	logging.Info().
		Int("feeds", len(r.feeds)).
		Msg("Runner started")

	<-ctx.Done()
	stop()
	return nil
}

// trigger runs a feed in response to a schedule or file event. A feed
// that is still running is skipped.
func (r *Runner) trigger(ctx context.Context, f *config.FeedConfig, reason string) {
	logging.Debug().Str("feed", f.Name).Str("trigger", reason).Msg("Feed triggered")

	_, err := r.RunFeed(ctx, f.Name)
	switch {
	case errors.Is(err, ErrFeedRunning):
		logging.Warn().Str("feed", f.Name).Str("trigger", reason).Msg("Skipping trigger; previous cycle still running")
	case errors.Is(err, ErrRunnerStopped):
		logging.Debug().Str("feed", f.Name).Str("trigger", reason).Msg("Skipping trigger; runner stopped")
	}
}

// schedule registers every feed with a schedule. It returns nil when no
// feed is scheduled.
func (r *Runner) schedule(ctx context.Context) (*cron.Cron, error) {
	var scheduled []*config.FeedConfig
	for _, f := range r.feeds {
		if f.Schedule != "" {
			scheduled = append(scheduled, f)
		}
	}
	if len(scheduled) == 0 {
		return nil, nil
	}

	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{})),
	)
	for _, f := range scheduled {
		if _, err := c.AddFunc(f.Schedule, func() { r.trigger(ctx, f, "schedule") }); err != nil {
			return nil, fmt.Errorf("feed %s: invalid schedule %q: %w", f.Name, f.Schedule, err)
		}
		logging.Info().Str("feed", f.Name).Str("schedule", f.Schedule).Msg("Scheduled feed")
	}
	c.Start()
	return c, nil
}

// watch reruns watched file feeds when their file is written or replaced.
// Events are debounced per feed so a file written in several chunks
// triggers one cycle. It returns nil when no feed is watched.
func (r *Runner) watch(watchCtx, runCtx context.Context) (*fsnotify.Watcher, <-chan struct{}, error) {
	byPath := make(map[string][]*config.FeedConfig)
	for _, f := range r.feeds {
		if !f.Watch {
			continue
		}
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("feed %s: bad path %q: %w", f.Name, f.Path, err)
		}
		byPath[abs] = append(byPath[abs], f)
	}
	if len(byPath) == 0 {
		return nil, nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch directories so files replaced by rename are still seen.
	dirs := make(map[string]bool)
	for path := range byPath {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				abs, _ := filepath.Abs(event.Name)
				for _, f := range byPath[abs] {
					if t, exists := timers[f.Name]; exists {
						t.Stop()
					}
					timers[f.Name] = time.AfterFunc(r.debounce, func() {
						r.trigger(runCtx, f, "watch")
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn().Err(err).Msg("File watcher error")
			}
		}
	}()

	logging.Info().Int("files", len(byPath)).Msg("Watching feed files")
	return watcher, done, nil
}
