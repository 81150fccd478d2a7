package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/common"
	"github.com/open-sauced/benchtrend/pkg/github"
)

// GitHubFeedProvider downloads feeds through the GitHub contents API instead
// of cloning. Only github.com repository URLs are supported.
type GitHubFeedProvider struct {
	logger *zap.SugaredLogger
	client *github.GithubClient
}

// NewGitHubFeedProvider returns a FeedProvider using the given API client.
func NewGitHubFeedProvider(client *github.GithubClient, logger *zap.SugaredLogger) *GitHubFeedProvider {
	return &GitHubFeedProvider{
		logger: logger,
		client: client,
	}
}

func (gh *GitHubFeedProvider) FetchFeed(ctx context.Context, src FeedSource) ([]byte, error) {
	src = src.WithDefaults()

	owner, repo, err := common.ParseGitHubRepo(src.RepoURL)
	if err != nil {
		return nil, err
	}

	gh.logger.Debugf("Downloading benchmark feed from the GitHub API: %s", src)

	contents, err := gh.client.DownloadFile(ctx, owner, repo, src.Path, src.Branch)
	if err != nil {
		return nil, fmt.Errorf("could not download %s from %s/%s: %w", src.Path, owner, repo, err)
	}

	return contents, nil
}
