package cache

import (
	"os"
	"sync"
	"testing"

	"github.com/open-sauced/benchtrend/pkg/gittest"
)

// These tests require at least 1 Gb free disk space to work correctly.
//
// Each call to NewGitRepoLRUCache uses "1" as the minimum amount of free
// disk space before the LRU cache automatically begins evicting elements.

const feedFile = "dev/bench/data.js"

// fixtureRepos creates n local feed repositories usable as cache keys.
func fixtureRepos(t *testing.T, n int) []string {
	t.Helper()

	repos := make([]string, n)
	for i := range repos {
		repos[i] = gittest.FeedRepo(t, "gh-pages", map[string]string{
			feedFile: "window.BENCHMARK_DATA = {\"entries\": {}}\n",
		})
	}

	return repos
}

// validateCache checks the cache holds exactly expected, most recent first,
// and that every clone exists on disk.
func validateCache(t *testing.T, c *GitRepoLRUCache, expected []string) {
	t.Helper()

	if len(c.hm) != len(expected) {
		t.Fatalf("cache hashmap not the expected size: %d, %d", len(c.hm), len(expected))
	}

	if c.dll.Len() != len(expected) {
		t.Fatalf("cache doubly linked list not the expected size: %d, %d", c.dll.Len(), len(expected))
	}

	node := c.dll.Front()
	i := 0

	for node != nil {
		if node.Value.(*GitRepoFilePath).key != expected[i] {
			t.Fatalf("GitRepoFilePath and expected key are not the same: %s, %s", node.Value.(*GitRepoFilePath).key, expected[i])
		}

		_, err := os.Stat(node.Value.(*GitRepoFilePath).path)
		if err != nil {
			t.Fatalf("unexpected err on checking if cloned repo present: %s", err.Error())
		}

		node = node.Next()
		i++
	}
}

func TestNewGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		cacheDir        string
		wantErr         bool
		neverEvictRepos map[string]bool
	}{
		{
			name:     "Default case",
			cacheDir: t.TempDir(),
			wantErr:  false,
			neverEvictRepos: map[string]bool{
				"no-test": true,
			},
		},
		{
			name:            "Nil never evict list",
			cacheDir:        t.TempDir(),
			wantErr:         false,
			neverEvictRepos: nil,
		},
		{
			name:     "Fails when directory doesn't exist",
			cacheDir: "/should/not/exist",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(tt.cacheDir, 1, tt.neverEvictRepos)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected err: %s", err.Error())
			}

			if c.dir != tt.cacheDir {
				t.Fatalf("unexpected cache dir found. Expected: %s. Actual: %s.", tt.cacheDir, c.dir)
			}

			if c.Len() != 0 {
				t.Fatalf("expected new cache to be empty. Actual: %d.", c.Len())
			}
		})
	}
}

func TestPutGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	repos := fixtureRepos(t, 3)

	tests := []struct {
		name                  string
		repos                 []string
		expectedCacheOrdering []string
	}{
		{
			name:                  "Puts repos into cache in sequential order",
			repos:                 []string{repos[0], repos[1], repos[2]},
			expectedCacheOrdering: []string{repos[2], repos[1], repos[0]},
		},
		{
			name: "Most recently used is first in order",
			// repos[0] is "Put" last and should appear first in the cache
			repos:                 []string{repos[0], repos[1], repos[2], repos[0]},
			expectedCacheOrdering: []string{repos[0], repos[2], repos[1]},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
			if err != nil {
				t.Fatalf("unexpected err: %s", err.Error())
			}

			for _, repo := range tt.repos {
				repoFp, err := c.Put(repo)
				if err != nil {
					t.Fatalf("unexpected err putting to cache: %s", err.Error())
				}
				repoFp.Done()
			}

			validateCache(t, c, tt.expectedCacheOrdering)
		})
	}
}

func TestPutFailedCloneIsForgotten(t *testing.T) {
	t.Parallel()

	c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected err: %s", err.Error())
	}

	_, err = c.Put("/should/not/exist/repo")
	if err == nil {
		t.Fatal("expected clone of missing repo to fail")
	}

	validateCache(t, c, []string{})
}

func TestTryEvict(t *testing.T) {
	t.Parallel()

	repos := fixtureRepos(t, 3)

	tests := []struct {
		name                  string
		repos                 []string
		expectedCacheOrdering []string
		neverEvictRepos       map[string]bool
		wantErr               bool
	}{
		{
			name:                  "Evicts repos when size limit reached",
			repos:                 repos,
			expectedCacheOrdering: []string{},
			neverEvictRepos:       map[string]bool{},
		},
		{
			name:                  "Never evicts protected repos",
			repos:                 repos,
			expectedCacheOrdering: []string{repos[2]},
			neverEvictRepos:       map[string]bool{repos[2]: true},
			wantErr:               true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(t.TempDir(), 1, tt.neverEvictRepos)
			if err != nil {
				t.Fatalf("unexpected err: %s", err.Error())
			}

			for _, repo := range tt.repos {
				repoFp, err := c.Put(repo)
				if err != nil {
					t.Fatalf("unexpected err putting to cache: %s", err.Error())
				}
				repoFp.Done()
			}

			// Reset the cache with a very, very large min free Gb field
			// in order to force the eviction algorithm to evict all repos
			c.minFreeDiskGb = 10000000
			err = c.tryEvict()
			if tt.wantErr && err == nil {
				t.Fatal("expected eviction to run out of evictable repos")
			}

			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected err attempting to evict repos: %s", err.Error())
			}

			validateCache(t, c, tt.expectedCacheOrdering)
		})
	}
}

func TestGetGitRepoLRUCache(t *testing.T) {
	t.Parallel()

	repos := fixtureRepos(t, 3)

	tests := []struct {
		name                  string
		loadToCache           []string
		getFromCache          []string
		expectedCacheOrdering []string
		wantNil               bool
	}{
		{
			name:                  "Gets queried repo and inserts it to front of cache",
			loadToCache:           repos,
			getFromCache:          []string{repos[0]},
			expectedCacheOrdering: []string{repos[0], repos[2], repos[1]},
			wantNil:               false,
		},
		{
			name:                  "Returns nothing if repo not in cache",
			loadToCache:           repos,
			getFromCache:          []string{"https://github.com/open-sauced/ai"},
			expectedCacheOrdering: []string{repos[2], repos[1], repos[0]},
			wantNil:               true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
			if err != nil {
				t.Fatalf("unexpected err creating cache: %s", err.Error())
			}

			for _, repo := range tt.loadToCache {
				repoFp, err := c.Put(repo)
				if err != nil {
					t.Fatalf("unexpected err putting to cache: %s", err.Error())
				}
				repoFp.Done()
			}

			for _, repo := range tt.getFromCache {
				repoFp := c.Get(repo)
				if repoFp == nil && !tt.wantNil {
					t.Fatal("get returned a nil git repo")
				}

				if repoFp != nil {
					repoFp.Done()
				}
			}

			validateCache(t, c, tt.expectedCacheOrdering)
		})
	}
}

func TestGetAndPutConcurrently(t *testing.T) {
	t.Parallel()

	repos := fixtureRepos(t, 3)

	c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected err creating cache: %s", err.Error())
	}

	var wg sync.WaitGroup

	for _, repo := range repos {
		wg.Add(2)

		go func(repo string) {
			defer wg.Done()

			repoFp, err := c.Put(repo)
			if err != nil {
				t.Errorf("unexpected err putting to cache: %s", err.Error())
				return
			}
			repoFp.Done()
		}(repo)

		go func(repo string) {
			defer wg.Done()

			repoFp := c.Get(repo)
			if repoFp != nil {
				repoFp.Done()
			}
		}(repo)
	}

	wg.Wait()

	// The final ordering depends on scheduling, only the size is reliable.
	if c.Len() != len(repos) {
		t.Fatalf("cache not the expected size: %d, %d", c.Len(), len(repos))
	}
}
