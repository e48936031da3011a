package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/biz/usecase"
	"github.com/glintlab/review-responder/internal/conf"
)

// ErrPassInProgress is returned when a polling pass is already running.
// Overlapping passes would duplicate composition cost, so triggers that lose
// the race simply report back.
var ErrPassInProgress = errors.New("a review check is already running")

// notifyInterval is the minimum delay between outward notifications, a
// property of the Feishu channel's per-chat rate limit.
const notifyInterval = 1200 * time.Millisecond

// CredentialsCheck reports whether a platform's credentials are configured.
// A missing configuration skips the app with a warning; it is not an error.
type CredentialsCheck func(platform domain.Platform) bool

// IngestionService drives one polling pass across all configured apps
type IngestionService struct {
	apps        []conf.AppConfig
	adapters    repo.AdapterSet
	store       repo.ReviewRepo
	composer    *usecase.ComposerUsecase
	notifier    repo.NotifierRepo
	configured  CredentialsCheck
	running     *semaphore.Weighted
	notifyLimit *rate.Limiter
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	apps []conf.AppConfig,
	adapters repo.AdapterSet,
	store repo.ReviewRepo,
	composer *usecase.ComposerUsecase,
	notifier repo.NotifierRepo,
	configured CredentialsCheck,
) *IngestionService {
	return &IngestionService{
		apps:        apps,
		adapters:    adapters,
		store:       store,
		composer:    composer,
		notifier:    notifier,
		configured:  configured,
		running:     semaphore.NewWeighted(1),
		notifyLimit: rate.NewLimiter(rate.Every(notifyInterval), 1),
	}
}

// ProcessAllApps runs one polling pass and returns the number of newly
// processed reviews. Failures are isolated per review and per app; only an
// already-running pass aborts the call.
func (s *IngestionService) ProcessAllApps(ctx context.Context) (int, error) {
	if !s.running.TryAcquire(1) {
		return 0, ErrPassInProgress
	}
	defer s.running.Release(1)

	log.Info().Msg("starting review check for all apps")
	newCount := 0

	for _, app := range s.apps {
		if !s.configured(app.Platform) {
			log.Warn().Str("app", app.Name).Str("platform", string(app.Platform)).
				Msg("skipping app - credentials not configured")
			continue
		}

		n, err := s.processApp(ctx, app)
		newCount += n
		if err != nil {
			log.Error().Err(err).Str("app", app.Name).Str("platform", string(app.Platform)).
				Msg("error processing app reviews")
		}
	}

	log.Info().Int("new_count", newCount).Msg("review check complete")
	return newCount, nil
}

func (s *IngestionService) processApp(ctx context.Context, app conf.AppConfig) (int, error) {
	adapter := s.adapters.For(app.Platform)
	if adapter == nil {
		return 0, fmt.Errorf("no adapter registered for platform %q", app.Platform)
	}

	reviews, err := adapter.FetchUnrespondedReviews(ctx, app.ID, app.Name)
	if err != nil {
		return 0, fmt.Errorf("fetch reviews: %w", err)
	}

	newCount := 0
	for i := range reviews {
		review := &reviews[i]

		exists, err := s.store.Exists(ctx, review.Key())
		if err != nil {
			log.Error().Err(err).Str("review", review.Key()).Msg("dedup check failed")
			continue
		}
		if exists {
			continue
		}

		if err := s.processReview(ctx, review, app.ReplyContext); err != nil {
			log.Error().Err(err).Str("review", review.ReviewID).Str("app", app.Name).
				Msg("error processing individual review")
			continue
		}
		newCount++
	}

	if newCount > 0 {
		log.Info().Str("app", app.Name).Str("platform", string(app.Platform)).
			Int("new_count", newCount).Msg("processed new reviews")
	}
	return newCount, nil
}

// processReview runs translate -> generate -> persist -> notify for one new
// review. A failure before Insert leaves no trace, so the review is simply
// re-discovered on the next pass.
func (s *IngestionService) processReview(ctx context.Context, n *domain.NormalizedReview, appContext string) error {
	translated, err := s.composer.Translate(ctx, n.OriginalText, n.ReviewerLanguage)
	if err != nil {
		return err
	}

	composed, err := s.composer.Generate(ctx, usecase.ComposeRequest{
		Platform:         n.Platform,
		AppName:          n.AppName,
		AppContext:       appContext,
		AuthorName:       n.AuthorName,
		StarRating:       n.StarRating,
		OriginalText:     n.OriginalText,
		TranslatedText:   translated,
		ReviewerLanguage: n.ReviewerLanguage,
	})
	if err != nil {
		return err
	}

	review := domain.NewReview(n, translated, composed.Reply, composed.ReplyTranslated)
	if err := s.store.Insert(ctx, review); err != nil {
		return err
	}

	// Throttle outward sends to respect the channel rate limit
	if err := s.notifyLimit.Wait(ctx); err != nil {
		return err
	}

	ref, err := s.notifier.Notify(ctx, review)
	if err != nil {
		// The review is persisted; a lost notification is an operator-visible
		// inconsistency, not a pipeline abort.
		log.Warn().Err(err).Str("review", review.Key).Msg("notification send failed")
		return nil
	}

	if err := s.store.SetOutwardRef(ctx, review.Key, ref); err != nil {
		log.Warn().Err(err).Str("review", review.Key).Msg("failed to record outward ref")
		return nil
	}

	log.Info().Str("review", n.ReviewID).Str("platform", string(n.Platform)).
		Int("stars", n.StarRating).Msg("sent review notification")
	return nil
}
