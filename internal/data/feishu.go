package data

import (
	"context"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/infra/feishu"
)

// feishuNotifier implements the Notifier repository on Feishu interactive
// cards
type feishuNotifier struct {
	client        *feishu.Client
	chatID        string
	preferredLang string
}

// NewFeishuNotifier creates the Feishu-backed notifier. All review cards go
// to the configured operator chat.
func NewFeishuNotifier(client *feishu.Client, chatID, preferredLang string) repo.NotifierRepo {
	return &feishuNotifier{
		client:        client,
		chatID:        chatID,
		preferredLang: preferredLang,
	}
}

// Notify sends the initial review card with approve/skip actions
func (n *feishuNotifier) Notify(ctx context.Context, review *domain.Review) (domain.OutwardRef, error) {
	card := BuildReviewCard(review, n.preferredLang)
	msgID, err := n.client.SendCard(ctx, n.chatID, card)
	if err != nil {
		return domain.OutwardRef{}, err
	}
	return domain.OutwardRef{ChatID: n.chatID, MessageID: msgID}, nil
}

// Update re-renders the review's card in place
func (n *feishuNotifier) Update(ctx context.Context, review *domain.Review) error {
	card := BuildReviewCard(review, n.preferredLang)
	return n.client.PatchCard(ctx, review.Outward.MessageID, card)
}

// SendText posts a plain informational message to the operator chat
func (n *feishuNotifier) SendText(ctx context.Context, text string) error {
	return n.client.SendText(ctx, n.chatID, text)
}
