// Package googleplay implements the platform adapter for Google Play
// developer replies via the androidpublisher v3 API.
package googleplay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

// maxFetch caps the reviews collected in one fetch so a polling pass stays
// finite even on a backlog.
const maxFetch = 200

// Adapter talks to the Google Play publisher API
type Adapter struct {
	keyFile string
	svc     *androidpublisher.Service
}

// New creates a Google Play adapter. The API client is built lazily on first
// use so a misconfigured key file only fails the apps that need it.
func New(keyFile string) *Adapter {
	return &Adapter{keyFile: keyFile}
}

// Name returns the platform name
func (a *Adapter) Name() string {
	return domain.PlatformGooglePlay.Label()
}

func (a *Adapter) service(ctx context.Context) (*androidpublisher.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := androidpublisher.NewService(ctx,
		option.WithCredentialsFile(a.keyFile),
		option.WithScopes(androidpublisher.AndroidpublisherScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init androidpublisher client: %w", err)
	}
	a.svc = svc
	return svc, nil
}

// FetchUnrespondedReviews pages through the app's reviews and keeps the ones
// without a developer comment. The "unresponded" filter is client-side: the
// API returns replies embedded in the review resource.
func (a *Adapter) FetchUnrespondedReviews(ctx context.Context, appID, appName string) ([]domain.NormalizedReview, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}

	var unresponded []domain.NormalizedReview
	pageToken := ""

	for {
		call := svc.Reviews.List(appID).MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.Token(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list reviews for %s: %w", appID, err)
		}

		unresponded = appendPage(unresponded, resp.Reviews, appID, appName)

		if resp.TokenPagination == nil || resp.TokenPagination.NextPageToken == "" || len(unresponded) >= maxFetch {
			break
		}
		pageToken = resp.TokenPagination.NextPageToken
	}

	log.Info().Str("app", appID).Int("count", len(unresponded)).
		Msg("fetched unresponded google play reviews")
	return unresponded, nil
}

// ReplyToReview submits a developer reply, truncated to the 350 character
// store limit.
func (a *Adapter) ReplyToReview(ctx context.Context, appID, reviewID, text string) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}

	trimmed := domain.TruncateReply(domain.PlatformGooglePlay, text)
	_, err = svc.Reviews.Reply(appID, reviewID, &androidpublisher.ReviewsReplyRequest{
		ReplyText: trimmed,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reply to review %s: %w", reviewID, err)
	}

	log.Info().Str("app", appID).Str("review", reviewID).Msg("replied to google play review")
	return nil
}

// appendPage filters and normalizes one page of reviews onto dst, never
// growing it past maxFetch.
func appendPage(dst []domain.NormalizedReview, page []*androidpublisher.Review, appID, appName string) []domain.NormalizedReview {
	for _, review := range page {
		if len(dst) >= maxFetch {
			break
		}
		if hasDeveloperReply(review) {
			continue
		}
		if normalized, ok := normalize(review, appID, appName); ok {
			dst = append(dst, normalized)
		}
	}
	return dst
}

func hasDeveloperReply(review *androidpublisher.Review) bool {
	for _, c := range review.Comments {
		if c.DeveloperComment != nil {
			return true
		}
	}
	return false
}

func normalize(review *androidpublisher.Review, appID, appName string) (domain.NormalizedReview, bool) {
	var user *androidpublisher.UserComment
	for _, c := range review.Comments {
		if c.UserComment != nil {
			user = c.UserComment
			break
		}
	}
	if user == nil {
		return domain.NormalizedReview{}, false
	}

	author := review.AuthorName
	if author == "" {
		author = "Anonymous"
	}
	lang := user.ReviewerLanguage
	if lang == "" {
		lang = "auto"
	}

	return domain.NormalizedReview{
		ReviewID:         review.ReviewId,
		Platform:         domain.PlatformGooglePlay,
		AppID:            appID,
		AppName:          appName,
		AuthorName:       author,
		StarRating:       int(user.StarRating),
		OriginalText:     user.Text,
		ReviewerLanguage: lang,
	}, true
}
