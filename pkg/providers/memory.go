package providers

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/common"
)

// InMemoryGitRepoProvider implements and satisfies the GitRepoProvider
// interface
type InMemoryGitRepoProvider struct {
	Logger *zap.SugaredLogger
}

// NewInMemoryGitRepoProvider returns a new InMemoryGitRepoProvider using a
// configured logger
func NewInMemoryGitRepoProvider(logger *zap.SugaredLogger) GitRepoProvider {
	return &InMemoryGitRepoProvider{
		Logger: logger,
	}
}

// FetchRepo clones only the requested branch of the repository into memory.
// Nothing is checked out since feeds are read from the commit tree.
func (im *InMemoryGitRepoProvider) FetchRepo(ctx context.Context, url string, branch string) (GitRepo, error) {
	// a clone of a missing branch fails with an opaque error, so ask first
	ok, err := common.RemoteHasBranch(url, branch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: branch %s does not exist", ErrFeedNotFound, branch)
	}

	im.Logger.Debugf("Cloning branch %s of repo into memory: %s", branch, url)

	inMemRepo, err := git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Tags:          git.NoTags,
	})
	if err != nil {
		return nil, fmt.Errorf("could not clone in memory repo using in memory git repo provider: %s", err.Error())
	}

	return &InMemoryGitRepo{
		url:  url,
		repo: inMemRepo,
	}, nil
}

// InMemoryGitRepo satisfies and implements the GitRepo interface
type InMemoryGitRepo struct {
	url  string
	repo *git.Repository
}

// GetRepo returns the opened go-git repository
func (im *InMemoryGitRepo) GetRepo() *git.Repository {
	return im.repo
}

// Done is a no-op for the in-memory git provider since the clone is simply
// garbage collected
func (im *InMemoryGitRepo) Done() {}
