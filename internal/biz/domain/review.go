package domain

import (
	"errors"
	"time"
)

// Platform identifies an app store.
type Platform string

const (
	PlatformGooglePlay Platform = "google_play"
	PlatformAppStore   Platform = "app_store"
	PlatformMock       Platform = "mock"
)

// Label returns the human-readable store name.
func (p Platform) Label() string {
	switch p {
	case PlatformGooglePlay:
		return "Google Play"
	case PlatformAppStore:
		return "App Store"
	case PlatformMock:
		return "Mock Store"
	default:
		return string(p)
	}
}

// CharLimit returns the hard reply character limit enforced by the store.
func (p Platform) CharLimit() int {
	switch p {
	case PlatformAppStore:
		return 5970
	default:
		// Google Play developer replies are capped at 350 characters.
		// The mock store mirrors the stricter limit.
		return 350
	}
}

// ReviewStatus is the lifecycle state of a stored review.
type ReviewStatus string

const (
	StatusPending ReviewStatus = "pending"
	StatusReplied ReviewStatus = "replied"
	StatusSkipped ReviewStatus = "skipped"
)

// Terminal reports whether the status permits no further transitions.
func (s ReviewStatus) Terminal() bool {
	return s == StatusReplied || s == StatusSkipped
}

// ErrNotFound is returned by repositories when a review does not exist.
var ErrNotFound = errors.New("review not found")

// CompositeKey builds the deterministic identity of a review. It is the only
// place key construction happens; callers must never concatenate by hand.
func CompositeKey(platform Platform, appID, reviewID string) string {
	return string(platform) + ":" + appID + ":" + reviewID
}

// NormalizedReview is the platform-agnostic adapter output. It is produced
// fresh on every fetch and never persisted as-is.
type NormalizedReview struct {
	ReviewID   string
	Platform   Platform
	AppID      string // package name (Google Play) or numeric app ID (App Store)
	AppName    string
	AuthorName string
	StarRating int
	// OriginalText is the review body in the reviewer's language.
	OriginalText string
	// ReviewerLanguage is a BCP-47 code, or "auto" when the store does not
	// report one.
	ReviewerLanguage string
	Territory        string
}

// Key returns the composite identity of the normalized review.
func (r *NormalizedReview) Key() string {
	return CompositeKey(r.Platform, r.AppID, r.ReviewID)
}

// OutwardRef locates the notification message a review was announced with.
// Once set it is stable for the lifetime of the review; edits always target
// the same message.
type OutwardRef struct {
	ChatID    string
	MessageID string
}

// Zero reports whether the reference has not been set yet.
func (r OutwardRef) Zero() bool {
	return r.ChatID == "" && r.MessageID == ""
}

// Review is the persisted entity. Key is the composite identity and the sole
// idempotency guard against re-ingesting the same store review.
type Review struct {
	Key        string
	ReviewID   string
	Platform   Platform
	AppID      string
	AppName    string
	AuthorName string
	StarRating int

	OriginalText string
	// TranslatedText is empty when the review is already in the preferred
	// language.
	TranslatedText   string
	ReviewerLanguage string
	Territory        string

	GeneratedReply  string
	ReplyTranslated string

	Outward OutwardRef
	Status  ReviewStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReview builds a pending Review from a normalized review and its composed
// reply. Composition happens before the row exists, so the reply fields are
// populated at creation time.
func NewReview(n *NormalizedReview, translatedText, reply, replyTranslated string) *Review {
	now := time.Now().UTC()
	return &Review{
		Key:              n.Key(),
		ReviewID:         n.ReviewID,
		Platform:         n.Platform,
		AppID:            n.AppID,
		AppName:          n.AppName,
		AuthorName:       n.AuthorName,
		StarRating:       n.StarRating,
		OriginalText:     n.OriginalText,
		TranslatedText:   translatedText,
		ReviewerLanguage: n.ReviewerLanguage,
		Territory:        n.Territory,
		GeneratedReply:   reply,
		ReplyTranslated:  replyTranslated,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CanTransition reports whether moving to target is a legal lifecycle step.
// pending -> replied and pending -> skipped are the only transitions; both
// targets are terminal.
func (r *Review) CanTransition(target ReviewStatus) bool {
	if r.Status != StatusPending {
		return false
	}
	return target == StatusReplied || target == StatusSkipped
}

// TruncateReply trims text to the platform's hard character limit. Truncation
// is by runes so a multi-byte reply is never cut mid-character.
func TruncateReply(p Platform, text string) string {
	limit := p.CharLimit()
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
