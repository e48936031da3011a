// Package mockstore implements a simulated platform adapter for end-to-end
// testing without store credentials.
package mockstore

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

type seed struct {
	authorName       string
	starRating       int
	originalText     string
	reviewerLanguage string
	territory        string
}

var seeds = []seed{
	{
		authorName:       "John Smith",
		starRating:       5,
		originalText:     "Amazing app! Works perfectly and the UI is very intuitive. Highly recommend to everyone.",
		reviewerLanguage: "en",
		territory:        "US",
	},
	{
		authorName:       "Hans Mueller",
		starRating:       2,
		originalText:     "Die App stuerzt staendig ab wenn ich versuche mich einzuloggen. Sehr frustrierend, bitte beheben Sie das Problem.",
		reviewerLanguage: "de",
		territory:        "DE",
	},
	{
		authorName:       "Yuki Tanaka",
		starRating:       4,
		originalText:     "とても便利なアプリですが、ダークモードがあればもっと良いと思います。",
		reviewerLanguage: "ja",
		territory:        "JP",
	},
	{
		authorName:       "Maria Garcia",
		starRating:       1,
		originalText:     "La peor aplicacion que he usado. Se congela todo el tiempo y perdi todos mis datos. Quiero un reembolso.",
		reviewerLanguage: "es",
		territory:        "ES",
	},
	{
		authorName:       "Pierre Dubois",
		starRating:       3,
		originalText:     "L'application est correcte mais il manque beaucoup de fonctionnalites par rapport a la concurrence. Le design est agreable cependant.",
		reviewerLanguage: "fr",
		territory:        "FR",
	},
}

// Adapter produces one random seeded review per fetch. Review IDs are
// time-derived, so every fetch looks like a fresh review to the pipeline.
type Adapter struct {
	now func() time.Time
}

// New creates a mock adapter
func New() *Adapter {
	return &Adapter{now: time.Now}
}

// Name returns the platform name
func (a *Adapter) Name() string {
	return domain.PlatformMock.Label()
}

// FetchUnrespondedReviews returns a single simulated review
func (a *Adapter) FetchUnrespondedReviews(_ context.Context, appID, appName string) ([]domain.NormalizedReview, error) {
	s := seeds[rand.Intn(len(seeds))]

	review := domain.NormalizedReview{
		ReviewID:         fmt.Sprintf("mock-%d", a.now().UnixMilli()),
		Platform:         domain.PlatformMock,
		AppID:            appID,
		AppName:          appName,
		AuthorName:       s.authorName,
		StarRating:       s.starRating,
		OriginalText:     s.originalText,
		ReviewerLanguage: s.reviewerLanguage,
		Territory:        s.territory,
	}

	log.Info().Str("app", appID).Msg("generated mock review")
	return []domain.NormalizedReview{review}, nil
}

// ReplyToReview logs the reply and succeeds
func (a *Adapter) ReplyToReview(_ context.Context, appID, reviewID, text string) error {
	log.Info().Str("app", appID).Str("review", reviewID).
		Int("reply_length", len([]rune(text))).
		Msg("mock reply submitted")
	return nil
}
