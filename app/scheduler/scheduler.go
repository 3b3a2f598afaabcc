// Package scheduler drives per-feed polling cadence. Every configured feed
// gets its own recurring timer; feeds never block on one another.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/feedhook/feedhook/app/config"
)

// FeedProcessor runs one feed's poll cycle
type FeedProcessor interface {
	Run(ctx context.Context, feedConfig *config.FeedConfig) error
}

// Scheduler owns one independent recurring timer per configured feed.
//
// Polls for a single feed are serialized: the feed's goroutine blocks on the
// poll in flight and ticker ticks that fire during it are dropped, so a slow
// poll skips ticks rather than overlapping itself. Feeds are otherwise fully
// independent; a failing feed never affects another feed's ticks.
type Scheduler struct {
	feeds     []*config.FeedConfig
	processor FeedProcessor
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler for the given feeds
func NewScheduler(feeds []*config.FeedConfig, processor FeedProcessor) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		feeds:     feeds,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches one polling goroutine per feed. Each feed polls once
// immediately, then on every tick of its own interval.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", "feeds", len(s.feeds))

	for _, feedConfig := range s.feeds {
		s.wg.Add(1)
		go s.pollLoop(feedConfig)
	}
}

// Stop cancels all polling loops and waits for in-flight polls to finish
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// Wait blocks by joining the per-feed polling goroutines. It returns only
// after Stop (or context cancellation) has wound them down.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) pollLoop(feedConfig *config.FeedConfig) {
	defer s.wg.Done()

	ticker := time.NewTicker(feedConfig.GetInterval())
	defer ticker.Stop()

	s.poll(feedConfig)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.poll(feedConfig)
		}
	}
}

// poll runs one cycle and absorbs its failure: the error is logged with the
// feed identifier and the feed's future ticks continue unaffected.
func (s *Scheduler) poll(feedConfig *config.FeedConfig) {
	start := time.Now()

	if err := s.processor.Run(s.ctx, feedConfig); err != nil {
		slog.Error("Feed processing failed", "feed", feedConfig.ID, "error", err)
		return
	}

	slog.Debug("Poll cycle finished",
		"feed", feedConfig.ID, "duration", time.Since(start))
}
