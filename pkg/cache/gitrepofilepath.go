package cache

import (
	"sync"

	"github.com/go-git/go-git/v5"
)

// GitRepoFilePath is one cache element: the mapping from a repository's
// remote URL to its clone directory on disk, guarded by a mutex so a history
// walk in progress blocks eviction and concurrent analysis of the same repo.
//
// Call "Done" as soon as mining of the repo is finished, otherwise the
// element stays locked and every later analysis request for that repository
// deadlocks.
type GitRepoFilePath struct {
	// Held for the whole time an analysis request is walking the clone.
	// The cache locks it before handing the element out; Done releases it.
	lock sync.Mutex

	// key is the repository's remote URL, the same URL analysis requests
	// carry.
	key string

	// path is the clone directory inside the cache dir.
	path string
}

// OpenAndFetch opens the on-disk clone and pulls the latest history, so a
// re-analysis of a cached repository sees commits pushed since the last run.
// An already up to date clone is not an error.
func (g *GitRepoFilePath) OpenAndFetch() (*git.Repository, error) {
	repo, err := git.PlainOpen(g.path)
	if err != nil {
		return nil, err
	}

	w, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	err = w.Pull(&git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, err
	}

	return repo, nil
}

// Done releases the element for eviction and for other analysis requests.
func (g *GitRepoFilePath) Done() {
	g.lock.Unlock()
}
