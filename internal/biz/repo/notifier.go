package repo

import (
	"context"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// NotifierRepo maps stored reviews to editable outward messages in the
// operator channel.
type NotifierRepo interface {
	// Notify sends the initial review card with approve/skip actions and
	// returns the reference of the created message.
	Notify(ctx context.Context, review *domain.Review) (domain.OutwardRef, error)

	// Update re-renders the review's card in place. The rendering follows
	// the review status: pending keeps the action buttons, replied and
	// skipped drop them.
	Update(ctx context.Context, review *domain.Review) error

	// SendText posts a plain informational message to the operator chat.
	SendText(ctx context.Context, text string) error
}
