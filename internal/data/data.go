package data

import (
	"github.com/glintlab/review-responder/internal/biz/domain"
	"github.com/glintlab/review-responder/internal/biz/repo"
	"github.com/glintlab/review-responder/internal/conf"
	"github.com/glintlab/review-responder/internal/infra/appstore"
	"github.com/glintlab/review-responder/internal/infra/feishu"
	"github.com/glintlab/review-responder/internal/infra/googleplay"
	"github.com/glintlab/review-responder/internal/infra/mockstore"
)

// Repositories contains all repositories
type Repositories struct {
	Review   repo.ReviewRepo
	AI       repo.AIRepo
	Notifier repo.NotifierRepo
	Adapters repo.AdapterSet
}

// NewRepositories creates all repositories. The adapter set is built once
// here and injected everywhere it is needed.
func NewRepositories(feishuClient *feishu.Client, cfg *conf.Config) (*Repositories, error) {
	reviewRepo, err := NewReviewRepo(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	adapters := repo.AdapterSet{
		domain.PlatformGooglePlay: googleplay.New(cfg.GooglePlay.KeyFile),
		domain.PlatformAppStore:   appstore.New(cfg.AppStore.KeyID, cfg.AppStore.IssuerID, cfg.AppStore.PrivateKeyFile),
		domain.PlatformMock:       mockstore.New(),
	}

	return &Repositories{
		Review:   reviewRepo,
		AI:       NewAIRepo(cfg.OpenAI),
		Notifier: NewFeishuNotifier(feishuClient, cfg.Feishu.ChatID, cfg.PreferredLanguageName()),
		Adapters: adapters,
	}, nil
}
