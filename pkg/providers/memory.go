package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"
)

// InMemoryGitRepoProvider clones every requested repository straight into
// memory. Nothing survives the request, which suits one-off analyses and
// keeps tests free of disk state; large histories pay the full clone on
// every request.
type InMemoryGitRepoProvider struct {
	Logger *zap.SugaredLogger
}

// NewInMemoryGitRepoProvider returns an InMemoryGitRepoProvider using the
// configured logger
func NewInMemoryGitRepoProvider(logger *zap.SugaredLogger) GitRepoProvider {
	return &InMemoryGitRepoProvider{
		Logger: logger,
	}
}

// FetchRepo clones the requested repository into memory. The clone is never
// shallow since the full commit history is what gets mined.
func (im *InMemoryGitRepoProvider) FetchRepo(url string) (GitRepo, error) {
	im.Logger.Debugf("Cloning repo into memory: %s", url)

	inMemRepo, err := git.Clone(memory.NewStorage(), nil, &git.CloneOptions{
		URL:          url,
		SingleBranch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not clone repo into memory: %s", err.Error())
	}

	return &InMemoryGitRepo{
		url:  url,
		repo: inMemRepo,
	}, nil
}

// InMemoryGitRepo wraps one in-memory clone.
type InMemoryGitRepo struct {
	url  string
	repo *git.Repository
}

// GetRepo returns the opened go-git repository
func (im *InMemoryGitRepo) GetRepo() *git.Repository {
	return im.repo
}

// Done releases nothing: the in-memory clone is garbage collected with the
// request.
func (im *InMemoryGitRepo) Done() {}
