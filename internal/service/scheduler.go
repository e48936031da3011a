package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PollScheduler triggers ingestion passes on a fixed interval. A manual
// trigger shares the same entry point; the pass guard in IngestionService
// keeps them from overlapping.
type PollScheduler struct {
	ingest   *IngestionService
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPollScheduler creates a new poll scheduler
func NewPollScheduler(ingest *IngestionService, interval time.Duration) *PollScheduler {
	return &PollScheduler{
		ingest:   ingest,
		interval: interval,
	}
}

// Start starts the polling loop
func (s *PollScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	log.Info().Dur("interval", s.interval).Msg("review polling scheduler started")
}

// Stop stops scheduling new passes and waits for the loop, including any
// in-flight pass, to finish.
func (s *PollScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("review polling scheduler stopped")
}

func (s *PollScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			log.Info().Msg("scheduled review check triggered")
			// The pass runs on a background context: Stop only ends the
			// loop, an in-flight pass always completes its current review.
			if _, err := s.ingest.ProcessAllApps(context.Background()); err != nil {
				if errors.Is(err, ErrPassInProgress) {
					log.Debug().Msg("scheduled check skipped - pass already running")
					continue
				}
				log.Error().Err(err).Msg("scheduled review check failed")
			}
		}
	}
}
