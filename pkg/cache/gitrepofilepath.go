package cache

import (
	"sync"

	"github.com/go-git/go-git/v5"
)

// GitRepoFilePath pairs the key of a feed repository (typically its remote
// URL) with the on-disk path of its bare clone. It is the element type of
// GitRepoLRUCache.
//
// Elements come out of the cache locked. Always call "Done" once the
// benchmark feed has been read so other goroutines, and eviction, can get at
// the clone again.
// Example: "repo.Done()"
type GitRepoFilePath struct {
	// lock guards the clone on disk while a feed is being read from it or
	// while it is being fetched or evicted.
	lock sync.Mutex

	// key is generally the remote URL of the repository
	key string

	// path is the on-disk location of the bare clone
	path string
}

// OpenAndFetch opens the bare clone and fetches every branch from origin so
// remote tracking refs (e.g. "origin/gh-pages") point at the latest
// published benchmark data. git.NoErrAlreadyUpToDate is not treated as an
// error.
func (g *GitRepoFilePath) OpenAndFetch() (*git.Repository, error) {
	repo, err := git.PlainOpen(g.path)
	if err != nil {
		return nil, err
	}

	err = repo.Fetch(&git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Force:      true,
		Tags:       git.NoTags,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, err
	}

	return repo, nil
}

// Key returns the cache key, generally the remote URL.
func (g *GitRepoFilePath) Key() string {
	return g.key
}

// Done unlocks the element. It must ALWAYS be called once processing of a
// GitRepoFilePath returned by the cache has finished.
func (g *GitRepoFilePath) Done() {
	g.lock.Unlock()
}
