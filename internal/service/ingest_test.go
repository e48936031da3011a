package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/biz/usecase"
	"github.com/glintlab/review-responder/internal/conf"
)

type stubAI struct{}

func (stubAI) Complete(context.Context, string, string) (string, error) {
	return "translated text", nil
}

func (stubAI) CompleteJSON(context.Context, string, string) (string, error) {
	return `{"reply": "Thank you!", "replyTranslated": "Danke!"}`, nil
}

type failingAI struct{ stubAI }

func (failingAI) CompleteJSON(context.Context, string, string) (string, error) {
	return "", errors.New("model unavailable")
}

// listAdapter serves a fixed review list and counts fetches
type listAdapter struct {
	mu       sync.Mutex
	reviews  []domain.NormalizedReview
	fetchErr error
	fetches  int
}

func (a *listAdapter) Name() string { return "List Store" }

func (a *listAdapter) FetchUnrespondedReviews(_ context.Context, appID, appName string) ([]domain.NormalizedReview, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	out := make([]domain.NormalizedReview, len(a.reviews))
	copy(out, a.reviews)
	for i := range out {
		out[i].AppID = appID
		out[i].AppName = appName
	}
	return out, nil
}

func (a *listAdapter) ReplyToReview(context.Context, string, string, string) error { return nil }

// recordingStore is a minimal in-memory ReviewRepo for ingestion tests
type recordingStore struct {
	mu      sync.Mutex
	reviews map[string]*domain.Review
	refs    map[string]domain.OutwardRef
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		reviews: make(map[string]*domain.Review),
		refs:    make(map[string]domain.OutwardRef),
	}
}

func (s *recordingStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reviews[key]
	return ok, nil
}

func (s *recordingStore) Insert(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[review.Key]; ok {
		return errors.New("duplicate key")
	}
	cp := *review
	s.reviews[review.Key] = &cp
	return nil
}

func (s *recordingStore) GetByKey(_ context.Context, key string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, ok := s.reviews[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *review
	return &cp, nil
}

func (s *recordingStore) GetByOutwardRef(context.Context, domain.OutwardRef) (*domain.Review, error) {
	return nil, domain.ErrNotFound
}

func (s *recordingStore) UpdateReply(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (s *recordingStore) SetOutwardRef(_ context.Context, key string, ref domain.OutwardRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key] = ref
	return nil
}

func (s *recordingStore) Transition(context.Context, string, domain.ReviewStatus) (bool, error) {
	return false, nil
}

func (s *recordingStore) CountByStatus(context.Context) (repo.StatusCounts, error) {
	return repo.StatusCounts{}, nil
}

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

// countingNotifier records sends
type countingNotifier struct {
	mu        sync.Mutex
	notifyErr error
	sent      []string
}

func (n *countingNotifier) Notify(_ context.Context, review *domain.Review) (domain.OutwardRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.notifyErr != nil {
		return domain.OutwardRef{}, n.notifyErr
	}
	n.sent = append(n.sent, review.Key)
	return domain.OutwardRef{ChatID: "chat-1", MessageID: "msg-" + review.Key}, nil
}

func (n *countingNotifier) Update(context.Context, *domain.Review) error { return nil }
func (n *countingNotifier) SendText(context.Context, string) error       { return nil }

func (n *countingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func allConfigured(domain.Platform) bool { return true }

func testComposer(ai repo.AIRepo) *usecase.ComposerUsecase {
	return usecase.NewComposerUsecase(ai, usecase.ComposerConfig{
		PreferredLanguage:     "en",
		PreferredLanguageName: "English",
	})
}

func sampleReview(id string) domain.NormalizedReview {
	return domain.NormalizedReview{
		ReviewID:         id,
		Platform:         domain.PlatformMock,
		AuthorName:       "Hans Mueller",
		StarRating:       2,
		OriginalText:     "Die App stuerzt ab.",
		ReviewerLanguage: "de",
	}
}

func TestProcessAllApps_IngestsNewReviews(t *testing.T) {
	adapter := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}
	store := newRecordingStore()
	notifier := &countingNotifier{}

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformMock, ID: "app-1"}},
		repo.AdapterSet{domain.PlatformMock: adapter},
		store, testComposer(stubAI{}), notifier, allConfigured,
	)

	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("new count = %d, want 1", n)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1", store.count())
	}
	if notifier.sentCount() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.sentCount())
	}

	key := domain.CompositeKey(domain.PlatformMock, "app-1", "r1")
	review, err := store.GetByKey(context.Background(), key)
	if err != nil {
		t.Fatalf("review not stored under composite key: %v", err)
	}
	if review.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", review.Status)
	}
	if review.GeneratedReply != "Thank you!" {
		t.Errorf("reply = %q", review.GeneratedReply)
	}
	if ref := store.refs[key]; ref.MessageID == "" {
		t.Error("outward ref must be recorded after notification")
	}
}

func TestProcessAllApps_SecondPassDeduplicates(t *testing.T) {
	adapter := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}
	store := newRecordingStore()
	notifier := &countingNotifier{}

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformMock, ID: "app-1"}},
		repo.AdapterSet{domain.PlatformMock: adapter},
		store, testComposer(stubAI{}), notifier, allConfigured,
	)

	if _, err := svc.ProcessAllApps(context.Background()); err != nil {
		t.Fatal(err)
	}
	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second pass new count = %d, want 0", n)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1", store.count())
	}
	if notifier.sentCount() != 1 {
		t.Errorf("notifications = %d, want 1", notifier.sentCount())
	}
}

func TestProcessAllApps_AppFailureIsolated(t *testing.T) {
	broken := &listAdapter{fetchErr: errors.New("quota exceeded")}
	healthy := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}
	store := newRecordingStore()

	svc := NewIngestionService(
		[]conf.AppConfig{
			{Name: "Broken", Platform: domain.PlatformGooglePlay, ID: "com.broken"},
			{Name: "Healthy", Platform: domain.PlatformMock, ID: "app-1"},
		},
		repo.AdapterSet{
			domain.PlatformGooglePlay: broken,
			domain.PlatformMock:       healthy,
		},
		store, testComposer(stubAI{}), &countingNotifier{}, allConfigured,
	)

	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatalf("an app failure must not fail the pass: %v", err)
	}
	if n != 1 {
		t.Errorf("new count = %d, want 1", n)
	}
	if healthy.fetches != 1 {
		t.Error("healthy app must still be processed")
	}
}

func TestProcessAllApps_ReviewFailureIsolated(t *testing.T) {
	adapter := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}
	store := newRecordingStore()

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformMock, ID: "app-1"}},
		repo.AdapterSet{domain.PlatformMock: adapter},
		store, testComposer(failingAI{}), &countingNotifier{}, allConfigured,
	)

	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("new count = %d, want 0", n)
	}
	if store.count() != 0 {
		t.Error("a failed composition must leave no stored trace")
	}
}

func TestProcessAllApps_SkipsUnconfiguredPlatform(t *testing.T) {
	adapter := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformGooglePlay, ID: "com.example"}},
		repo.AdapterSet{domain.PlatformGooglePlay: adapter},
		newRecordingStore(), testComposer(stubAI{}), &countingNotifier{},
		func(domain.Platform) bool { return false },
	)

	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("new count = %d, want 0", n)
	}
	if adapter.fetches != 0 {
		t.Error("unconfigured platform must not be fetched")
	}
}

func TestProcessAllApps_NotificationFailureKeepsReview(t *testing.T) {
	adapter := &listAdapter{reviews: []domain.NormalizedReview{sampleReview("r1")}}
	store := newRecordingStore()
	notifier := &countingNotifier{notifyErr: errors.New("websocket down")}

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformMock, ID: "app-1"}},
		repo.AdapterSet{domain.PlatformMock: adapter},
		store, testComposer(stubAI{}), notifier, allConfigured,
	)

	n, err := svc.ProcessAllApps(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("new count = %d, want 1", n)
	}
	if store.count() != 1 {
		t.Error("review must stay persisted when the notification fails")
	}
}

func TestProcessAllApps_RejectsOverlappingPass(t *testing.T) {
	release := make(chan struct{})
	adapter := &blockingAdapter{release: release, started: make(chan struct{})}

	svc := NewIngestionService(
		[]conf.AppConfig{{Name: "Example", Platform: domain.PlatformMock, ID: "app-1"}},
		repo.AdapterSet{domain.PlatformMock: adapter},
		newRecordingStore(), testComposer(stubAI{}), &countingNotifier{}, allConfigured,
	)

	done := make(chan error, 1)
	go func() {
		_, err := svc.ProcessAllApps(context.Background())
		done <- err
	}()
	<-adapter.started

	_, err := svc.ProcessAllApps(context.Background())
	if !errors.Is(err, ErrPassInProgress) {
		t.Errorf("overlapping pass error = %v, want ErrPassInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	// The guard releases once the pass completes
	if _, err := svc.ProcessAllApps(context.Background()); err != nil {
		t.Errorf("follow-up pass failed: %v", err)
	}
}

// blockingAdapter parks inside the fetch until released
type blockingAdapter struct {
	release <-chan struct{}
	started chan struct{}
	once    sync.Once
}

func (a *blockingAdapter) Name() string { return "Blocking Store" }

func (a *blockingAdapter) FetchUnrespondedReviews(context.Context, string, string) ([]domain.NormalizedReview, error) {
	a.once.Do(func() { close(a.started) })
	<-a.release
	return nil, nil
}

func (a *blockingAdapter) ReplyToReview(context.Context, string, string, string) error { return nil }
