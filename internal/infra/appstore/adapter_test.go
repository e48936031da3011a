package appstore

import (
	"testing"

	"github.com/glintlab/review-responder/internal/biz/domain"
)

func TestNormalize(t *testing.T) {
	var review ascReview
	review.ID = "rev-123"
	review.Attributes.Rating = 2
	review.Attributes.Title = "Crashes a lot"
	review.Attributes.Body = "The app crashes on launch."
	review.Attributes.ReviewerNickname = "appfan42"
	review.Attributes.Territory = "DEU"

	n := normalize(review, "1234567890", "Example")

	if n.ReviewID != "rev-123" || n.Platform != domain.PlatformAppStore {
		t.Errorf("identity not carried: %+v", n)
	}
	if n.AppID != "1234567890" || n.AppName != "Example" {
		t.Errorf("app identity not carried: %s / %s", n.AppID, n.AppName)
	}
	if n.OriginalText != "Crashes a lot\nThe app crashes on launch." {
		t.Errorf("text = %q, want title joined with body", n.OriginalText)
	}
	if n.AuthorName != "appfan42" {
		t.Errorf("author = %q", n.AuthorName)
	}
	if n.Territory != "DEU" {
		t.Errorf("territory = %q", n.Territory)
	}
	if n.ReviewerLanguage != "auto" {
		t.Errorf("language = %q, want auto", n.ReviewerLanguage)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	var review ascReview
	review.ID = "rev-456"
	review.Attributes.Rating = 5
	review.Attributes.Body = "Great app."

	n := normalize(review, "1234567890", "Example")

	if n.OriginalText != "Great app." {
		t.Errorf("text = %q, empty title must not add a newline", n.OriginalText)
	}
	if n.AuthorName != "Anonymous" {
		t.Errorf("author = %q, want Anonymous", n.AuthorName)
	}
	if n.Territory != "USA" {
		t.Errorf("territory = %q, want USA", n.Territory)
	}
}

func TestAppendPage_CapsAtMaxFetch(t *testing.T) {
	page := make([]ascReview, maxFetch+49)
	for i := range page {
		page[i].ID = "rev"
		page[i].Attributes.Rating = 4
		page[i].Attributes.Body = "Nice."
	}

	got := appendPage(nil, page, "1234567890", "Example")
	if len(got) != maxFetch {
		t.Errorf("collected %d reviews, want cap of %d", len(got), maxFetch)
	}

	// An already-full slice takes nothing more
	got = appendPage(got, page, "1234567890", "Example")
	if len(got) != maxFetch {
		t.Errorf("full slice grew to %d", len(got))
	}
}
