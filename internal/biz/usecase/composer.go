package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
)

// ErrBadCompletion marks a provider response that was empty or did not match
// the expected two-field shape. The review is not persisted and is retried on
// the next pass.
var ErrBadCompletion = errors.New("malformed completion")

// ComposerConfig carries the language settings the composer needs
type ComposerConfig struct {
	// PreferredLanguage is the operator's BCP-47 language code
	PreferredLanguage string
	// PreferredLanguageName is its display name, used in prompts
	PreferredLanguageName string
}

// ComposerUsecase produces translations and drafted replies
type ComposerUsecase struct {
	ai  repo.AIRepo
	cfg ComposerConfig
}

// NewComposerUsecase creates a new composer usecase
func NewComposerUsecase(ai repo.AIRepo, cfg ComposerConfig) *ComposerUsecase {
	return &ComposerUsecase{ai: ai, cfg: cfg}
}

// Translate translates text into the preferred language. It returns "" when
// the source is already in the preferred language; no provider call is made
// in that case.
func (uc *ComposerUsecase) Translate(ctx context.Context, text, sourceLang string) (string, error) {
	if sourceLang == uc.cfg.PreferredLanguage {
		return "", nil
	}

	system := fmt.Sprintf("You are a precise translator. Translate the following text to %s. "+
		"If the text is already in %s, return it unchanged. "+
		"Return ONLY the translated text, nothing else.",
		uc.cfg.PreferredLanguageName, uc.cfg.PreferredLanguageName)

	out, err := uc.ai.Complete(ctx, system, text)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ComposeRequest is the input to Generate
type ComposeRequest struct {
	Platform         domain.Platform
	AppName          string
	AppContext       string
	AuthorName       string
	StarRating       int
	OriginalText     string
	TranslatedText   string
	ReviewerLanguage string

	// PreviousReply and AdjustmentComments, when both set, switch the
	// prompt into revision mode.
	PreviousReply      string
	AdjustmentComments string
}

// ComposeRequestFromReview rebuilds a compose request from a stored review,
// used by the regenerate path.
func ComposeRequestFromReview(review *domain.Review, appContext, comments string) ComposeRequest {
	return ComposeRequest{
		Platform:           review.Platform,
		AppName:            review.AppName,
		AppContext:         appContext,
		AuthorName:         review.AuthorName,
		StarRating:         review.StarRating,
		OriginalText:       review.OriginalText,
		TranslatedText:     review.TranslatedText,
		ReviewerLanguage:   review.ReviewerLanguage,
		PreviousReply:      review.GeneratedReply,
		AdjustmentComments: comments,
	}
}

// ComposedReply is the two-field result of a generation
type ComposedReply struct {
	// Reply is in the reviewer's language and bounded by the platform's
	// character limit.
	Reply string `json:"reply"`
	// ReplyTranslated is the preferred-language rendering of the reply.
	ReplyTranslated string `json:"replyTranslated"`
}

// Generate drafts a reply for the review. The provider output is validated
// against the two-field shape and the reply is truncated to the platform
// limit regardless of what the provider returned.
func (uc *ComposerUsecase) Generate(ctx context.Context, req ComposeRequest) (*ComposedReply, error) {
	system := uc.buildSystemPrompt(req)
	user := buildUserPrompt(req, uc.cfg.PreferredLanguageName)

	out, err := uc.ai.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrBadCompletion)
	}

	var reply ComposedReply
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCompletion, err)
	}
	if reply.Reply == "" || reply.ReplyTranslated == "" {
		return nil, fmt.Errorf("%w: missing reply fields", ErrBadCompletion)
	}

	reply.Reply = domain.TruncateReply(req.Platform, reply.Reply)

	log.Debug().
		Str("reviewer_lang", req.ReviewerLanguage).
		Int("reply_length", len([]rune(reply.Reply))).
		Int("char_limit", req.Platform.CharLimit()).
		Msg("generated reply")
	return &reply, nil
}

func (uc *ComposerUsecase) buildSystemPrompt(req ComposeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional app developer replying to user reviews on the %s.\n\n", req.Platform.Label())
	fmt.Fprintf(&b, "App: %s\n", req.AppName)
	if req.AppContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.AppContext)
	}
	fmt.Fprintf(&b, `
RULES:
1. Reply in the SAME LANGUAGE as the original review.
2. Be professional, empathetic, and constructive.
3. Address specific concerns mentioned in the review.
4. For positive reviews: thank the user sincerely without being sycophantic.
5. For negative reviews: apologize for the bad experience, acknowledge the issue, and mention that feedback is being considered.
6. Do NOT promise specific features or timelines.
7. Keep the reply under %d characters (this is a hard platform limit).
8. Do NOT include any greeting like "Dear user" - be concise and direct.

OUTPUT FORMAT:
Respond with a JSON object containing exactly two fields:
{
  "reply": "The reply in the reviewer's language",
  "replyTranslated": "The %s translation of the reply (if the reply is already in %s, set this to the same value as reply)"
}`, req.Platform.CharLimit(), uc.cfg.PreferredLanguageName, uc.cfg.PreferredLanguageName)
	return b.String()
}

func buildUserPrompt(req ComposeRequest, preferredLangName string) string {
	lang := req.ReviewerLanguage
	if lang == "auto" {
		lang = "auto-detect from review text"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review (%d/5 stars) by %s:\nLanguage: %s\n\nOriginal text:\n%q",
		req.StarRating, req.AuthorName, lang, req.OriginalText)

	if req.TranslatedText != "" {
		fmt.Fprintf(&b, "\n\n%s translation:\n%q", preferredLangName, req.TranslatedText)
	}

	if req.PreviousReply != "" && req.AdjustmentComments != "" {
		fmt.Fprintf(&b, "\n\n--- REVISION REQUEST ---\nPrevious reply:\n%q\n\nAdjustment comments from the developer:\n%q\n\nPlease generate a revised reply incorporating these comments while following all the rules above.",
			req.PreviousReply, req.AdjustmentComments)
	}

	return b.String()
}
