package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// PendingFlusher retries score writes left over by failed flushes.
type PendingFlusher interface {
	RetryPendingFlushes(ctx context.Context) int
}

// FlushRetrier periodically retries pending score flushes.
type FlushRetrier struct {
	cron    *cron.Cron
	flusher PendingFlusher
	timeout time.Duration
}

// NewFlushRetrier schedules flusher on spec, a cron expression such as
// "@every 1m". Each run is bounded by timeout and overlapping runs are skipped.
func NewFlushRetrier(flusher PendingFlusher, spec string, timeout time.Duration) (*FlushRetrier, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	r := &FlushRetrier{cron: c, flusher: flusher, timeout: timeout}

	if _, err := c.AddFunc(spec, r.run); err != nil {
		return nil, fmt.Errorf("failed to schedule flush retries: %w", err)
	}
	return r, nil
}

func (r *FlushRetrier) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if failed := r.flusher.RetryPendingFlushes(ctx); failed > 0 {
		log.Warn().Int("chats", failed).Msg("Scores still pending after retry")
	}
}

// Start begins running the schedule in the background.
func (r *FlushRetrier) Start() {
	r.cron.Start()
	log.Info().Msg("Flush retrier started")
}

// Stop halts the schedule and waits for a running retry to finish.
func (r *FlushRetrier) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("Flush retrier stopped")
}
