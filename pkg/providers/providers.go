package providers

import (
	"context"

	"github.com/go-git/go-git/v5"
)

const (
	// DefaultBranch is where benchmark actions publish their history.
	DefaultBranch = "gh-pages"

	// DefaultPath is the history file benchmark dashboards load.
	DefaultPath = "dev/bench/data.js"
)

// FeedSource locates a benchmark history feed.
type FeedSource struct {
	RepoURL string `json:"url" yaml:"url"`
	Branch  string `json:"branch,omitempty" yaml:"branch"`
	Path    string `json:"path,omitempty" yaml:"path"`
}

// WithDefaults fills in DefaultBranch and DefaultPath when unset.
func (s FeedSource) WithDefaults() FeedSource {
	if s.Branch == "" {
		s.Branch = DefaultBranch
	}

	if s.Path == "" {
		s.Path = DefaultPath
	}

	return s
}

func (s FeedSource) String() string {
	return s.RepoURL + "@" + s.Branch + ":" + s.Path
}

// FeedProvider fetches the raw contents of a benchmark feed. Implementations
// must be safe for concurrent use: every dashboard refresh fetches its own
// copy of the feed.
type FeedProvider interface {
	FetchFeed(ctx context.Context, src FeedSource) ([]byte, error)
}

// GitRepoProvider is an API for accessing git repositories.
// Different implementers of GitRepoProvider may clone into memory or keep
// clones around on disk.
type GitRepoProvider interface {
	// FetchRepo acquires a GitRepo for the provided URL that has at least the
	// given branch available.
	FetchRepo(ctx context.Context, URL string, branch string) (GitRepo, error)
}

// GitRepo wraps individual git repositories with the necessary internal methods
// and structs provided by a GitRepoProvider. I.e., it allows for various
// GitRepoProviders to offer a flat API surface where individual git repos
// of different implementation may be accessed.
type GitRepo interface {
	// GetRepo returns the internal go-git git repository.
	GetRepo() *git.Repository

	// Done indicates that there is no more processing to be performed on the
	// GitRepo and any resources internal to the individual GitRepo may be
	// reaped and cleaned up.
	Done()
}
