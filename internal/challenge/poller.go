package challenge

import (
	"context"
	"time"

	"kompanion-sync/internal/metrics"
	"kompanion-sync/internal/notify"
)

// pollTask is one running poll loop. Stopping cancels the loop's
// context and waits for the goroutine to exit, so at most one loop ever
// runs per store.
type pollTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *pollTask) stop() {
	t.cancel()
	<-t.done
}

// StartPolling begins the background event poll loop. Any loop already
// running is stopped first. The first poll happens immediately,
// subsequent polls at the store's poll interval, until StopPolling is
// called or ctx is cancelled.
func (s *Store) StartPolling(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.poll != nil {
		s.poll.stop()
		s.poll = nil
	}

	ctx, cancel := context.WithCancel(ctx)
	task := &pollTask{cancel: cancel, done: make(chan struct{})}
	s.poll = task

	go s.runPollLoop(ctx, task.done)
}

// StopPolling stops the background poll loop and waits for it to exit.
// A no-op when no loop is running.
func (s *Store) StopPolling() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.poll != nil {
		s.poll.stop()
		s.poll = nil
	}
}

func (s *Store) runPollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	metrics.PollerActive.Set(1)
	defer metrics.PollerActive.Set(0)

	s.logger.Info("event polling started", "interval", s.pollInterval)

	s.PollEvents(ctx)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event polling stopped")
			return
		case <-ticker.C:
			s.PollEvents(ctx)
		}
	}
}

// PollEvents runs a single poll cycle: fetch events newer than the
// cursor, advance the cursor to the server's latest timestamp, refetch
// the challenge collection when anything arrived, and surface the
// events that warrant a user notification. Poll failures are logged and
// counted, never surfaced; the next tick retries with the same cursor.
func (s *Store) PollEvents(ctx context.Context) {
	s.mu.Lock()
	since := s.lastEventTimestamp
	s.mu.Unlock()

	batch, err := s.api.Events(ctx, since)
	if err != nil {
		s.logger.Error("event poll failed", "error", err)
		metrics.PollCyclesTotal.WithLabelValues(metrics.PollOutcomeError).Inc()
		return
	}

	if len(batch.Events) == 0 {
		metrics.PollCyclesTotal.WithLabelValues(metrics.PollOutcomeEmpty).Inc()
		return
	}

	metrics.PollCyclesTotal.WithLabelValues(metrics.PollOutcomeEvents).Inc()
	for _, ev := range batch.Events {
		metrics.EventsReceivedTotal.WithLabelValues(string(ev.Type)).Inc()
	}

	if batch.LatestTimestamp != nil {
		s.advanceCursor(*batch.LatestTimestamp)
	}

	s.FetchChallenges(ctx)

	for _, ev := range batch.Events {
		switch ev.Type {
		case EventCompleted:
			s.notifier.Notify(notify.LevelSuccess, "Challenge completed! 🎉")
		case EventMilestoneReached:
			s.notifier.Notify(notify.LevelSuccess, "Milestone reached! 🔥")
		}
	}

	s.logger.Debug("poll cycle applied events", "count", len(batch.Events), "cursor", s.LastEventTimestamp())
}

// advanceCursor moves the cursor forward, never backward. The guard
// compares against the cursor at write time, not the value a poll cycle
// read at its start, so an overlapping cycle that resolves late with an
// older timestamp cannot regress it. RFC 3339 timestamps in UTC compare
// chronologically as strings, and "" sorts before any real timestamp.
// The mutex is held across persistence so the stored cursor cannot be
// overwritten out of order either.
func (s *Store) advanceCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cursor <= s.lastEventTimestamp {
		return
	}
	s.lastEventTimestamp = cursor

	if s.cursors != nil {
		if err := s.cursors.SaveCursor(cursor); err != nil {
			s.logger.Warn("failed to persist poll cursor", "error", err)
		}
	}
}
