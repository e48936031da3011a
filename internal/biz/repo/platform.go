package repo

import (
	"context"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// PlatformAdapter is the capability surface of one app store. Implementations
// fetch reviews that lack a developer reply and submit replies back. They
// never retry internally; every failure is returned to the caller per call.
type PlatformAdapter interface {
	// Name returns the human-readable platform name for logging.
	Name() string

	// FetchUnrespondedReviews returns reviews without a developer reply.
	// Implementations page through all available results but cap the total
	// per call so a single polling pass stays finite. The slice is rebuilt
	// from the beginning on every call; fetches are not resumable.
	FetchUnrespondedReviews(ctx context.Context, appID, appName string) ([]domain.NormalizedReview, error)

	// ReplyToReview submits a developer reply. Text longer than the
	// platform's hard character limit is truncated before submission.
	ReplyToReview(ctx context.Context, appID, reviewID, text string) error
}

// AdapterSet is the immutable platform -> adapter mapping built once at
// startup and injected into whoever needs it.
type AdapterSet map[domain.Platform]PlatformAdapter

// For returns the adapter for a platform, or nil when none is registered.
func (s AdapterSet) For(p domain.Platform) PlatformAdapter {
	return s[p]
}
