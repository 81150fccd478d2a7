package providers

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/cache"
)

// NeverEvictRepos holds all the repos that must never be evicted in the LRU cache
// where the key is the URL of the repo
type NeverEvictRepos map[string]bool

// LRUCacheGitRepoProvider is a git repository provider that keeps bare clones
// of feed repositories in an on-disk Least Recently Used cache and only
// fetches new commits on later requests. LRUCacheGitRepoProvider implements
// and satisfies the GitRepoProvider interface.
type LRUCacheGitRepoProvider struct {
	logger   *zap.SugaredLogger
	LRUCache *cache.GitRepoLRUCache
}

// NewLRUCacheGitRepoProvider returns a new LRUCacheGitRepoProvider using the
// configured cache directory and sets the minimum amount of free disk for the
// cache to keep.
func NewLRUCacheGitRepoProvider(cacheDir string, minFreeDisk uint64, l *zap.SugaredLogger, neverEvictRepos NeverEvictRepos) (GitRepoProvider, error) {
	lruCache, err := cache.NewGitRepoLRUCache(cacheDir, minFreeDisk, neverEvictRepos)
	if err != nil {
		return nil, fmt.Errorf("could not initialize a new LRU cache: %s", err.Error())
	}

	return &LRUCacheGitRepoProvider{
		logger:   l,
		LRUCache: lruCache,
	}, nil
}

// FetchRepo returns a CachedGitRepo which satisfies the GitRepo interface.
// Cache misses are cloned to disk and placed at the front of the cache, see
// GitRepoLRUCache for details. Every branch is fetched, so branch only
// matters to the caller.
func (lc *LRUCacheGitRepoProvider) FetchRepo(_ context.Context, URL string, branch string) (GitRepo, error) {
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

	lc.logger.Debugf("Opening and fetching repo for branch %s: %s", branch, URL)
	repo, err := repoInCache.OpenAndFetch()
	if err != nil {
		repoInCache.Done()
		return nil, fmt.Errorf("could not open and fetch repo: %s", err.Error())
	}

	return &CachedGitRepo{
		url:        URL,
		cacheEntry: repoInCache,
		repo:       repo,
	}, nil
}

// CachedGitRepo implements the GitRepo interface
type CachedGitRepo struct {
	url        string
	cacheEntry *cache.GitRepoFilePath
	repo       *git.Repository
}

// GetRepo returns the opened go-git repository
func (lc *CachedGitRepo) GetRepo() *git.Repository {
	return lc.repo
}

// Done releases the cached clone so other goroutines, and eviction, may use
// it again.
//
// It is critical that "Done()" is called when operations are completed on a
// CachedGitRepo so the lock may be released.
func (lc *CachedGitRepo) Done() {
	lc.cacheEntry.Done()
}
