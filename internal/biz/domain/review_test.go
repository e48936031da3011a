package domain

import (
	"strings"
	"testing"
)

func TestCompositeKey(t *testing.T) {
	key := CompositeKey(PlatformGooglePlay, "com.example.app", "review-123")
	if key != "google_play:com.example.app:review-123" {
		t.Errorf("unexpected key: %s", key)
	}
}

func TestCompositeKey_MatchesNormalizedReview(t *testing.T) {
	n := &NormalizedReview{
		ReviewID: "abc",
		Platform: PlatformAppStore,
		AppID:    "1234567",
	}
	if n.Key() != CompositeKey(PlatformAppStore, "1234567", "abc") {
		t.Error("NormalizedReview.Key must agree with CompositeKey")
	}
}

func TestCharLimit(t *testing.T) {
	if got := PlatformGooglePlay.CharLimit(); got != 350 {
		t.Errorf("google play limit = %d, want 350", got)
	}
	if got := PlatformAppStore.CharLimit(); got != 5970 {
		t.Errorf("app store limit = %d, want 5970", got)
	}
	if got := PlatformMock.CharLimit(); got != 350 {
		t.Errorf("mock limit = %d, want 350", got)
	}
}

func TestCanTransition(t *testing.T) {
	review := &Review{Status: StatusPending}

	if !review.CanTransition(StatusReplied) {
		t.Error("pending -> replied should be legal")
	}
	if !review.CanTransition(StatusSkipped) {
		t.Error("pending -> skipped should be legal")
	}
	if review.CanTransition(StatusPending) {
		t.Error("pending -> pending is not a transition")
	}

	review.Status = StatusReplied
	if review.CanTransition(StatusSkipped) {
		t.Error("replied is terminal")
	}

	review.Status = StatusSkipped
	if review.CanTransition(StatusReplied) {
		t.Error("skipped is terminal")
	}
}

func TestTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Error("pending is not terminal")
	}
	if !StatusReplied.Terminal() || !StatusSkipped.Terminal() {
		t.Error("replied and skipped are terminal")
	}
}

func TestTruncateReply_UnderLimit(t *testing.T) {
	text := "Thanks for the feedback!"
	if got := TruncateReply(PlatformGooglePlay, text); got != text {
		t.Errorf("short reply must pass through, got %q", got)
	}
}

func TestTruncateReply_OverLimit(t *testing.T) {
	text := strings.Repeat("a", 400)
	got := TruncateReply(PlatformGooglePlay, text)
	if len([]rune(got)) != 350 {
		t.Errorf("truncated length = %d, want 350", len([]rune(got)))
	}
}

func TestTruncateReply_MultiByte(t *testing.T) {
	text := strings.Repeat("あ", 400)
	got := TruncateReply(PlatformMock, text)
	if len([]rune(got)) != 350 {
		t.Errorf("truncated rune length = %d, want 350", len([]rune(got)))
	}
	// No mangled trailing bytes
	for _, r := range got {
		if r != 'あ' {
			t.Fatalf("unexpected rune %q after truncation", r)
		}
	}
}

func TestNewReview(t *testing.T) {
	n := &NormalizedReview{
		ReviewID:         "r1",
		Platform:         PlatformGooglePlay,
		AppID:            "com.example.app",
		AppName:          "Example",
		AuthorName:       "Hans Mueller",
		StarRating:       2,
		OriginalText:     "Die App stuerzt ab.",
		ReviewerLanguage: "de",
	}

	review := NewReview(n, "The app crashes.", "Es tut uns leid.", "We are sorry.")

	if review.Key != n.Key() {
		t.Errorf("key = %s, want %s", review.Key, n.Key())
	}
	if review.Status != StatusPending {
		t.Errorf("status = %s, want pending", review.Status)
	}
	if review.TranslatedText != "The app crashes." {
		t.Error("translation not carried over")
	}
	if review.GeneratedReply != "Es tut uns leid." || review.ReplyTranslated != "We are sorry." {
		t.Error("reply fields not carried over")
	}
	if !review.Outward.Zero() {
		t.Error("outward ref must start unset")
	}
	if review.CreatedAt.IsZero() || review.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}
