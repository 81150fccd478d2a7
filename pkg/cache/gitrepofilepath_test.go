package cache

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/open-sauced/benchtrend/pkg/gittest"
)

func TestOpenAndFetch(t *testing.T) {
	repoDir := gittest.FeedRepo(t, "gh-pages", map[string]string{
		feedFile: "window.BENCHMARK_DATA = {\"entries\": {}}\n",
	})

	c, err := NewGitRepoLRUCache(t.TempDir(), 1, nil)
	if err != nil {
		t.Fatalf("unexpected err: %s", err.Error())
	}

	repoFp, err := c.Put(repoDir)
	if err != nil {
		t.Fatalf("unexpected err putting to cache: %s", err.Error())
	}
	defer repoFp.Done()

	if repoFp.Key() != repoDir {
		t.Fatalf("unexpected key: %s", repoFp.Key())
	}

	ghPages := plumbing.NewRemoteReferenceName("origin", "gh-pages")

	openedRepo, err := repoFp.OpenAndFetch()
	if openedRepo == nil || err != nil {
		t.Fatalf("Opened repo unexpectedly failed to open and/or fetch: %v", err)
	}

	before, err := openedRepo.Reference(ghPages, true)
	if err != nil {
		t.Fatalf("clone is missing origin/gh-pages: %s", err.Error())
	}

	// Publish new benchmark data upstream, the next fetch must pick it up
	gittest.Commit(t, repoDir, "gh-pages", map[string]string{
		feedFile: "window.BENCHMARK_DATA = {\"entries\": {\"Benchmark\": []}}\n",
	})

	openedRepo, err = repoFp.OpenAndFetch()
	if err != nil {
		t.Fatalf("unexpected err on second fetch: %s", err.Error())
	}

	after, err := openedRepo.Reference(ghPages, true)
	if err != nil {
		t.Fatalf("clone is missing origin/gh-pages after fetch: %s", err.Error())
	}

	if before.Hash() == after.Hash() {
		t.Fatalf("origin/gh-pages was not advanced by fetch: %s", after.Hash())
	}
}
