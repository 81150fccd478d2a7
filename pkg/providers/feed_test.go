package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/github"
	"github.com/open-sauced/benchtrend/pkg/gittest"
)

const (
	firstFeed  = "window.BENCHMARK_DATA = {\"entries\": {}}\n"
	secondFeed = "window.BENCHMARK_DATA = {\"entries\": {\"Benchmark\": []}}\n"
)

func TestFeedSourceWithDefaults(t *testing.T) {
	src := FeedSource{RepoURL: "https://github.com/open-sauced/pizza"}.WithDefaults()
	assert.Equal(t, DefaultBranch, src.Branch)
	assert.Equal(t, DefaultPath, src.Path)
	assert.Equal(t, "https://github.com/open-sauced/pizza@gh-pages:dev/bench/data.js", src.String())

	src = FeedSource{RepoURL: "x", Branch: "bench", Path: "data.js"}.WithDefaults()
	assert.Equal(t, "bench", src.Branch)
	assert.Equal(t, "data.js", src.Path)
}

func TestGitFeedProviderInMemory(t *testing.T) {
	dir := gittest.FeedRepo(t, DefaultBranch, map[string]string{DefaultPath: firstFeed})
	feeds := NewGitFeedProvider(NewInMemoryGitRepoProvider(zap.NewNop().Sugar()), zap.NewNop().Sugar())

	got, err := feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir})
	require.NoError(t, err)
	assert.Equal(t, firstFeed, string(got))

	_, err = feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir, Path: "dev/bench/missing.js"})
	assert.True(t, errors.Is(err, ErrFeedNotFound), "unexpected error: %v", err)

	_, err = feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir, Branch: "no-such-branch"})
	assert.True(t, errors.Is(err, ErrFeedNotFound), "unexpected error: %v", err)
}

func TestGitFeedProviderLRUCache(t *testing.T) {
	dir := gittest.FeedRepo(t, DefaultBranch, map[string]string{DefaultPath: firstFeed})

	repos, err := NewLRUCacheGitRepoProvider(t.TempDir(), 1, zap.NewNop().Sugar(), NeverEvictRepos{})
	require.NoError(t, err)

	feeds := NewGitFeedProvider(repos, zap.NewNop().Sugar())

	got, err := feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir})
	require.NoError(t, err)
	assert.Equal(t, firstFeed, string(got))

	// a cache hit has to fetch the new tip of the branch
	gittest.Commit(t, dir, DefaultBranch, map[string]string{DefaultPath: secondFeed})

	got, err = feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir})
	require.NoError(t, err)
	assert.Equal(t, secondFeed, string(got))

	_, err = feeds.FetchFeed(context.Background(), FeedSource{RepoURL: dir, Branch: "no-such-branch"})
	assert.True(t, errors.Is(err, ErrFeedNotFound), "unexpected error: %v", err)

	assert.Equal(t, 1, repos.(*LRUCacheGitRepoProvider).LRUCache.Len())
}

func TestFileFeedProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.js")
	require.NoError(t, os.WriteFile(path, []byte(firstFeed), 0o644))

	got, err := FileFeedProvider{}.FetchFeed(context.Background(), FeedSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, firstFeed, string(got))

	_, err = FileFeedProvider{}.FetchFeed(context.Background(), FeedSource{Path: path + ".missing"})
	assert.True(t, errors.Is(err, ErrFeedNotFound), "unexpected error: %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FileFeedProvider{}.FetchFeed(ctx, FeedSource{Path: path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGitHubFeedProvider(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	rawURL := server.URL + "/raw/data.js"
	mux.HandleFunc("/repos/open-sauced/pizza/contents/dev/bench/data.js", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"type":"file","name":"data.js","path":"dev/bench/data.js","encoding":"base64","content":%q,"download_url":%q}`,
			base64.StdEncoding.EncodeToString([]byte(firstFeed)), rawURL)
	})
	mux.HandleFunc("/repos/open-sauced/pizza/contents/dev/bench", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `[{"type":"file","name":"data.js","path":"dev/bench/data.js","download_url":%q}]`, rawURL)
	})
	mux.HandleFunc("/raw/data.js", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, firstFeed)
	})

	client, err := github.NewClientWithBaseURL(server.Client(), server.URL)
	require.NoError(t, err)

	feeds := NewGitHubFeedProvider(client, zap.NewNop().Sugar())

	got, err := feeds.FetchFeed(context.Background(), FeedSource{RepoURL: "https://github.com/open-sauced/pizza"})
	require.NoError(t, err)
	assert.Equal(t, firstFeed, string(got))

	_, err = feeds.FetchFeed(context.Background(), FeedSource{RepoURL: "https://gitlab.com/open-sauced/pizza"})
	assert.Error(t, err)
}
