package mockstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

func TestFetchUnrespondedReviews(t *testing.T) {
	a := New()
	a.now = func() time.Time { return time.UnixMilli(1700000000000) }

	reviews, err := a.FetchUnrespondedReviews(context.Background(), "app-1", "Example")
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 1 {
		t.Fatalf("reviews = %d, want 1", len(reviews))
	}

	r := reviews[0]
	if r.ReviewID != "mock-1700000000000" {
		t.Errorf("review ID = %s", r.ReviewID)
	}
	if r.Platform != domain.PlatformMock {
		t.Errorf("platform = %s", r.Platform)
	}
	if r.AppID != "app-1" || r.AppName != "Example" {
		t.Errorf("app identity not carried: %s / %s", r.AppID, r.AppName)
	}
	if r.AuthorName == "" || r.OriginalText == "" || r.ReviewerLanguage == "" {
		t.Error("seed fields must be populated")
	}
	if r.StarRating < 1 || r.StarRating > 5 {
		t.Errorf("star rating = %d", r.StarRating)
	}
}

func TestFetchUnrespondedReviews_FreshIDsPerFetch(t *testing.T) {
	a := New()
	ms := int64(1700000000000)
	a.now = func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		reviews, err := a.FetchUnrespondedReviews(context.Background(), "app-1", "Example")
		if err != nil {
			t.Fatal(err)
		}
		id := reviews[0].ReviewID
		if !strings.HasPrefix(id, "mock-") {
			t.Errorf("review ID %s must carry the mock prefix", id)
		}
		if seen[id] {
			t.Errorf("duplicate review ID %s", id)
		}
		seen[id] = true
	}
}

func TestReplyToReview_NoOp(t *testing.T) {
	a := New()
	if err := a.ReplyToReview(context.Background(), "app-1", "mock-1", "Thanks!"); err != nil {
		t.Errorf("mock reply must succeed: %v", err)
	}
}
