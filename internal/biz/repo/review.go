package repo

import (
	"context"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// StatusCounts summarizes the store by lifecycle state.
type StatusCounts struct {
	Pending int
	Replied int
	Skipped int
}

// ReviewRepo is the persisted review store (SQLite).
type ReviewRepo interface {
	// Exists reports whether a review with the composite key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Insert persists a new review. Inserting an existing key is an error;
	// callers are expected to check Exists first.
	Insert(ctx context.Context, review *domain.Review) error

	// GetByKey returns a review by composite key, or domain.ErrNotFound.
	GetByKey(ctx context.Context, key string) (*domain.Review, error)

	// GetByOutwardRef returns the review announced by the given notification
	// message, or domain.ErrNotFound.
	GetByOutwardRef(ctx context.Context, ref domain.OutwardRef) (*domain.Review, error)

	// UpdateReply overwrites the generated reply and its translation. The
	// update only applies while the review is still pending; terminal
	// reviews are frozen and the call reports false.
	UpdateReply(ctx context.Context, key, reply, replyTranslated string) (bool, error)

	// SetOutwardRef records the notification message reference after the
	// first send.
	SetOutwardRef(ctx context.Context, key string, ref domain.OutwardRef) error

	// Transition atomically moves a pending review to a terminal status.
	// It returns false when the review was not pending anymore; the check
	// and the write are a single statement, so two racing transitions can
	// never both succeed.
	Transition(ctx context.Context, key string, target domain.ReviewStatus) (bool, error)

	// CountByStatus returns per-status totals for operator reporting.
	CountByStatus(ctx context.Context) (StatusCounts, error)

	// Close releases the underlying database handle.
	Close() error
}
