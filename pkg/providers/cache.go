package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/openworkflow/evolog/pkg/cache"
)

// NeverEvictRepos holds all the repos that must never be evicted in the LRU
// cache where the key is the URL of the repo. Repositories that are re-mined
// on a schedule belong here.
type NeverEvictRepos map[string]bool

// LRUCacheGitRepoProvider hands out repositories from an on-disk LRU cache so
// a re-analysis of a known repository only pulls the commits added since its
// last run instead of re-cloning the whole history.
type LRUCacheGitRepoProvider struct {
	logger   *zap.SugaredLogger
	LRUCache *cache.GitRepoLRUCache
}

// NewLRUCacheGitRepoProvider returns an LRUCacheGitRepoProvider caching into
// the given directory and keeping at least minFreeDisk Gb of disk free.
func NewLRUCacheGitRepoProvider(cacheDir string, minFreeDisk uint64, l *zap.SugaredLogger, neverEvictRepos NeverEvictRepos) (GitRepoProvider, error) {
	repoCache, err := cache.NewGitRepoLRUCache(cacheDir, minFreeDisk, neverEvictRepos)
	if err != nil {
		return nil, fmt.Errorf("could not initialize a new LRU cache: %s", err.Error())
	}

	return &LRUCacheGitRepoProvider{
		logger:   l,
		LRUCache: repoCache,
	}, nil
}

// FetchRepo returns the repository from the cache, cloning it to disk first
// on a miss, and pulls its latest history so the mining run sees every
// commit. The returned CachedGitRepo holds the cache entry locked until Done.
func (lc *LRUCacheGitRepoProvider) FetchRepo(URL string) (GitRepo, error) {
	var err error

	lc.logger.Debugf("Getting repo from LRU cache: %s", URL)

	repoInCache := lc.LRUCache.Get(URL)
	if repoInCache == nil {
		lc.logger.Debugf("Cache miss. Putting to cache: %s", URL)
		repoInCache, err = lc.LRUCache.Put(URL)
		if err != nil {
			return nil, fmt.Errorf("could not put to the git repo LRU cache: %s", err.Error())
		}
	}

	lc.logger.Debugf("Opening and fetching repo: %s", URL)
	repo, err := repoInCache.OpenAndFetch()
	if err != nil {
		return nil, fmt.Errorf("could not open and fetch repo: %s", err.Error())
	}

	return &CachedGitRepo{
		url:        URL,
		cacheEntry: repoInCache,
		repo:       repo,
	}, nil
}

// CachedGitRepo wraps one locked cache entry and its opened clone.
type CachedGitRepo struct {
	url        string
	cacheEntry *cache.GitRepoFilePath
	repo       *git.Repository
}

// GetRepo returns the opened go-git repository
func (lc *CachedGitRepo) GetRepo() *git.Repository {
	return lc.repo
}

// Done unlocks the cache entry. Skipping it leaves the entry locked and
// blocks every later analysis of the same repository, so the server defers
// Done as soon as it fetches the repo.
func (lc *CachedGitRepo) Done() {
	lc.cacheEntry.Done()
}
