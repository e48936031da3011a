package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
)

// ActionOutcome classifies the result of an operator action
type ActionOutcome int

const (
	// OutcomeOK means the action was applied
	OutcomeOK ActionOutcome = iota
	// OutcomeAlreadyHandled means the review had left the pending state
	// before the action ran
	OutcomeAlreadyHandled
	// OutcomeFailed means the action hit an error and can be retried
	OutcomeFailed
)

// ActionResult is the user-visible outcome of approve/skip/regenerate.
// Message is shown to the operator as-is; internal errors never surface here.
type ActionResult struct {
	Outcome ActionOutcome
	Message string
}

func resultOK(msg string) ActionResult {
	return ActionResult{Outcome: OutcomeOK, Message: msg}
}

func resultAlreadyHandled(status domain.ReviewStatus) ActionResult {
	return ActionResult{Outcome: OutcomeAlreadyHandled, Message: fmt.Sprintf("Already %s.", status)}
}

func resultFailed(msg string) ActionResult {
	return ActionResult{Outcome: OutcomeFailed, Message: msg}
}

// AppContextLookup resolves the configured reply context for an app, ""
// when the app is unknown.
type AppContextLookup func(platform domain.Platform, appID string) string

// LifecycleUsecase applies operator actions to stored reviews. Actions on
// the same review are serialized with a per-key mutex on top of the store's
// atomic status transition; actions on different reviews run concurrently.
type LifecycleUsecase struct {
	store      repo.ReviewRepo
	adapters   repo.AdapterSet
	notifier   repo.NotifierRepo
	composer   *ComposerUsecase
	appContext AppContextLookup

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a per-review mutex with a waiter refcount so the lock map can
// shrink once the last action on a key finishes
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLifecycleUsecase creates a new lifecycle usecase
func NewLifecycleUsecase(
	store repo.ReviewRepo,
	adapters repo.AdapterSet,
	notifier repo.NotifierRepo,
	composer *ComposerUsecase,
	appContext AppContextLookup,
) *LifecycleUsecase {
	return &LifecycleUsecase{
		store:      store,
		adapters:   adapters,
		notifier:   notifier,
		composer:   composer,
		appContext: appContext,
		locks:      make(map[string]*keyLock),
	}
}

// lockKey serializes actions per review identity. The map entry is dropped
// when the last holder releases, so the map stays bounded by in-flight
// actions rather than lifetime review count.
func (uc *LifecycleUsecase) lockKey(key string) func() {
	uc.mu.Lock()
	l, ok := uc.locks[key]
	if !ok {
		l = &keyLock{}
		uc.locks[key] = l
	}
	l.refs++
	uc.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		uc.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(uc.locks, key)
		}
		uc.mu.Unlock()
	}
}

// Approve submits the stored reply to the platform and marks the review
// replied. An adapter failure leaves the review pending so the operator can
// retry.
func (uc *LifecycleUsecase) Approve(ctx context.Context, key string) ActionResult {
	defer uc.lockKey(key)()

	review, err := uc.store.GetByKey(ctx, key)
	if err != nil {
		if err == domain.ErrNotFound {
			return resultFailed("Review not found.")
		}
		log.Error().Err(err).Str("review", key).Msg("approve: load failed")
		return resultFailed("Failed to load review. Check logs.")
	}
	if review.Status != domain.StatusPending {
		return resultAlreadyHandled(review.Status)
	}
	if review.GeneratedReply == "" {
		return resultFailed("No generated reply available.")
	}

	adapter := uc.adapters.For(review.Platform)
	if adapter == nil {
		log.Error().Str("review", key).Str("platform", string(review.Platform)).
			Msg("approve: no adapter for platform")
		return resultFailed("Platform is not configured.")
	}

	if err := adapter.ReplyToReview(ctx, review.AppID, review.ReviewID, review.GeneratedReply); err != nil {
		log.Error().Err(err).Str("review", key).Msg("approve: reply submission failed")
		return resultFailed("Failed to send reply. Try again.")
	}

	ok, err := uc.store.Transition(ctx, key, domain.StatusReplied)
	if err != nil {
		log.Error().Err(err).Str("review", key).Msg("approve: transition failed")
		return resultFailed("Reply sent but status update failed. Check logs.")
	}
	if !ok {
		return resultAlreadyHandled(review.Status)
	}

	review.Status = domain.StatusReplied
	uc.editCard(ctx, review)

	log.Info().Str("review", key).Str("platform", string(review.Platform)).
		Msg("reply submitted to store")
	return resultOK("Reply sent!")
}

// Skip marks the review skipped without contacting the platform
func (uc *LifecycleUsecase) Skip(ctx context.Context, key string) ActionResult {
	defer uc.lockKey(key)()

	review, err := uc.store.GetByKey(ctx, key)
	if err != nil {
		if err == domain.ErrNotFound {
			return resultFailed("Review not found.")
		}
		log.Error().Err(err).Str("review", key).Msg("skip: load failed")
		return resultFailed("Failed to load review. Check logs.")
	}
	if review.Status != domain.StatusPending {
		return resultAlreadyHandled(review.Status)
	}

	ok, err := uc.store.Transition(ctx, key, domain.StatusSkipped)
	if err != nil {
		log.Error().Err(err).Str("review", key).Msg("skip: transition failed")
		return resultFailed("Failed to skip review. Check logs.")
	}
	if !ok {
		return resultAlreadyHandled(review.Status)
	}

	review.Status = domain.StatusSkipped
	uc.editCard(ctx, review)

	return resultOK("Review skipped.")
}

// Regenerate recomposes the reply using the previous draft plus the
// operator's comments. The review stays pending and keeps its action
// buttons.
func (uc *LifecycleUsecase) Regenerate(ctx context.Context, key, comments string) ActionResult {
	defer uc.lockKey(key)()

	review, err := uc.store.GetByKey(ctx, key)
	if err != nil {
		if err == domain.ErrNotFound {
			return resultFailed("Review not found.")
		}
		log.Error().Err(err).Str("review", key).Msg("regenerate: load failed")
		return resultFailed("Failed to load review. Check logs.")
	}
	if review.Status != domain.StatusPending {
		return resultAlreadyHandled(review.Status)
	}

	req := ComposeRequestFromReview(review, uc.appContext(review.Platform, review.AppID), comments)
	composed, err := uc.composer.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("review", key).Msg("regenerate: composition failed")
		return resultFailed("Failed to regenerate reply. Check logs.")
	}

	ok, err := uc.store.UpdateReply(ctx, key, composed.Reply, composed.ReplyTranslated)
	if err != nil {
		log.Error().Err(err).Str("review", key).Msg("regenerate: update failed")
		return resultFailed("Failed to save regenerated reply. Check logs.")
	}
	if !ok {
		// The review went terminal while we were composing
		if current, err := uc.store.GetByKey(ctx, key); err == nil {
			return resultAlreadyHandled(current.Status)
		}
		return resultAlreadyHandled(domain.StatusReplied)
	}

	review.GeneratedReply = composed.Reply
	review.ReplyTranslated = composed.ReplyTranslated
	uc.editCard(ctx, review)

	log.Info().Str("review", key).Msg("regenerated reply with operator comments")
	return resultOK("Reply updated!")
}

// editCard re-renders the outward card. Edit failures after the store write
// are logged and tolerated; the persisted state stands.
func (uc *LifecycleUsecase) editCard(ctx context.Context, review *domain.Review) {
	if review.Outward.Zero() {
		return
	}
	if err := uc.notifier.Update(ctx, review); err != nil {
		log.Warn().Err(err).Str("review", review.Key).Msg("notification edit failed")
	}
}
