package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// ErrFeedNotFound is returned when the branch or file of a feed does not exist.
var ErrFeedNotFound = errors.New("benchmark feed not found")

// GitFeedProvider reads feeds out of git repositories obtained from a
// GitRepoProvider.
type GitFeedProvider struct {
	logger *zap.SugaredLogger
	repos  GitRepoProvider
}

// NewGitFeedProvider returns a FeedProvider backed by repos.
func NewGitFeedProvider(repos GitRepoProvider, logger *zap.SugaredLogger) *GitFeedProvider {
	return &GitFeedProvider{
		logger: logger,
		repos:  repos,
	}
}

// FetchFeed reads the feed file at the tip of the source branch.
func (g *GitFeedProvider) FetchFeed(ctx context.Context, src FeedSource) ([]byte, error) {
	src = src.WithDefaults()

	repo, err := g.repos.FetchRepo(ctx, src.RepoURL, src.Branch)
	if err != nil {
		return nil, err
	}
	defer repo.Done()

	g.logger.Debugf("Reading benchmark feed: %s", src)

	return ReadFeedFile(repo.GetRepo(), src.Branch, src.Path)
}

// ReadFeedFile returns the contents of path at the tip of branch. The
// remote tracking branch "origin/<branch>" is preferred since cached clones
// only advance remote refs when fetching; the local branch is the fallback.
func ReadFeedFile(repo *git.Repository, branch string, path string) ([]byte, error) {
	ref, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("could not load commit %s of branch %s: %s", ref.Hash(), branch, err.Error())
	}

	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s does not exist on branch %s", ErrFeedNotFound, path, branch)
		}
		return nil, fmt.Errorf("could not look up %s on branch %s: %s", path, branch, err.Error())
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", path, err.Error())
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %s", path, err.Error())
	}

	return contents, nil
}

func resolveBranch(repo *git.Repository, branch string) (*plumbing.Reference, error) {
	names := []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch),
		plumbing.NewBranchReferenceName(branch),
	}

	for _, name := range names {
		ref, err := repo.Reference(name, true)
		if err == nil {
			return ref, nil
		}

		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("could not resolve %s: %s", name, err.Error())
		}
	}

	return nil, fmt.Errorf("%w: branch %s does not exist", ErrFeedNotFound, branch)
}

// FileFeedProvider reads feeds from the local filesystem. Only
// FeedSource.Path is used.
type FileFeedProvider struct{}

func (FileFeedProvider) FetchFeed(ctx context.Context, src FeedSource) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(src.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFeedNotFound, src.Path)
		}
		return nil, fmt.Errorf("could not read feed file: %w", err)
	}

	return contents, nil
}
