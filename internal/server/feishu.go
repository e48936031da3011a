package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/biz/usecase"
	"github.com/glintlab/review-responder/internal/data"
	"github.com/glintlab/review-responder/internal/infra/feishu"
	"github.com/glintlab/review-responder/internal/service"
)

// FeishuServer routes inbound operator events (card actions, comments,
// commands) to the lifecycle and ingestion layers.
type FeishuServer struct {
	feishuClient *feishu.Client
	chatID       string
	pollInterval time.Duration

	store     repo.ReviewRepo
	notifier  repo.NotifierRepo
	lifecycle *usecase.LifecycleUsecase
	ingest    *service.IngestionService
	scheduler *service.PollScheduler
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	feishuClient *feishu.Client,
	chatID string,
	pollInterval time.Duration,
	store repo.ReviewRepo,
	notifier repo.NotifierRepo,
	lifecycle *usecase.LifecycleUsecase,
	ingest *service.IngestionService,
	scheduler *service.PollScheduler,
) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		chatID:       chatID,
		pollInterval: pollInterval,
		store:        store,
		notifier:     notifier,
		lifecycle:    lifecycle,
		ingest:       ingest,
		scheduler:    scheduler,
	}
}

// Start registers handlers, starts the scheduler, and blocks on the Feishu
// websocket connection.
func (s *FeishuServer) Start() error {
	s.scheduler.Start(context.Background())

	s.feishuClient.OnCardAction(s.handleCardAction)
	s.feishuClient.OnMessage(s.handleMessage)
	return s.feishuClient.Start()
}

// Stop stops the scheduler and disconnects from Feishu
func (s *FeishuServer) Stop() {
	s.scheduler.Stop()
	s.feishuClient.Stop()
}

// handleCardAction applies an approve/skip button press. The returned string
// is shown to the operator as a toast.
func (s *FeishuServer) handleCardAction(action *feishu.CardAction) string {
	kind, _ := action.Value[data.CardValueAction].(string)
	key, _ := action.Value[data.CardValueReviewKey].(string)
	if kind == "" || key == "" {
		return ""
	}

	ctx := context.Background()

	var result usecase.ActionResult
	switch kind {
	case data.CardActionApprove:
		result = s.lifecycle.Approve(ctx, key)
	case data.CardActionSkip:
		result = s.lifecycle.Skip(ctx, key)
	default:
		log.Warn().Str("action", kind).Msg("unknown card action")
		return ""
	}

	return result.Message
}

// handleMessage routes operator text: replies to a review card adjust the
// draft, top-level messages are commands.
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if msg.ChatID != s.chatID {
		log.Warn().Str("chat", msg.ChatID).Msg("ignoring message from unauthorized chat")
		return
	}

	ctx := context.Background()

	if msg.ParentMsgID != "" {
		s.handleComment(ctx, msg)
		return
	}

	switch msg.Content {
	case "/check", "check":
		s.handleCheck(ctx)
	case "/status", "status":
		s.handleStatus(ctx)
	case "/help", "help":
		s.sendText(ctx, helpText(s.pollInterval))
	}
}

// handleComment regenerates the draft of the review whose card the operator
// replied to.
func (s *FeishuServer) handleComment(ctx context.Context, msg *feishu.Message) {
	ref := domain.OutwardRef{ChatID: msg.ChatID, MessageID: msg.ParentMsgID}
	review, err := s.store.GetByOutwardRef(ctx, ref)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("msg", msg.ParentMsgID).Msg("outward ref lookup failed")
		}
		// Replies to non-review messages are just chatter
		return
	}

	s.replyText(ctx, msg.MsgID, "🔄 Regenerating reply...")
	result := s.lifecycle.Regenerate(ctx, review.Key, msg.Content)
	s.replyText(ctx, msg.MsgID, result.Message)
}

// handleCheck runs a manual ingestion pass and reports the outcome
func (s *FeishuServer) handleCheck(ctx context.Context) {
	s.sendText(ctx, "🔍 Checking for new reviews...")

	count, err := s.ingest.ProcessAllApps(ctx)
	if err != nil {
		if errors.Is(err, service.ErrPassInProgress) {
			s.sendText(ctx, "A review check is already running.")
			return
		}
		log.Error().Err(err).Msg("manual review check failed")
		s.sendText(ctx, "❌ Error checking reviews. Check the logs for details.")
		return
	}

	if count == 0 {
		s.sendText(ctx, "No new reviews found.")
		return
	}
	noun := "reviews"
	if count == 1 {
		noun = "review"
	}
	s.sendText(ctx, fmt.Sprintf("✅ Found %d new %s", count, noun))
}

// handleStatus reports store totals per lifecycle state
func (s *FeishuServer) handleStatus(ctx context.Context) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		log.Error().Err(err).Msg("status query failed")
		s.sendText(ctx, "❌ Error reading review status. Check the logs.")
		return
	}
	s.sendText(ctx, fmt.Sprintf("Reviews: %d pending, %d replied, %d skipped",
		counts.Pending, counts.Replied, counts.Skipped))
}

func (s *FeishuServer) sendText(ctx context.Context, text string) {
	if err := s.notifier.SendText(ctx, text); err != nil {
		log.Warn().Err(err).Msg("failed to send chat message")
	}
}

func (s *FeishuServer) replyText(ctx context.Context, msgID, text string) {
	if err := s.feishuClient.ReplyText(ctx, msgID, text); err != nil {
		log.Warn().Err(err).Msg("failed to send chat reply")
	}
}

func helpText(pollInterval time.Duration) string {
	return fmt.Sprintf(`AI Review Responder

Commands:
/check - Check for new reviews now
/status - Show review counts
/help - Show this message

Adjusting replies:
Reply to any review card with your comments (e.g. "make it shorter") and the draft is regenerated.

Polling:
Reviews are checked automatically every %d minutes.`, int(pollInterval.Minutes()))
}
