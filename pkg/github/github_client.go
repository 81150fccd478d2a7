// package github wraps the GitHub REST API for discovering repositories and
// downloading published benchmark feeds.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v54/github"
)

type GithubClient struct {
	client *github.Client
}

func NewTokenClient(token string) *GithubClient {
	ctx := context.Background()
	s := &GithubClient{
		client: github.NewTokenClient(ctx, token),
	}
	return s
}

func NewClient(httpClient *http.Client) *GithubClient {
	s := &GithubClient{
		client: github.NewClient(httpClient),
	}
	return s
}

// NewClientWithBaseURL points the client at a different API root, such as a
// GitHub Enterprise instance.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) (*GithubClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse github base url: %s", err.Error())
	}

	s := NewClient(httpClient)
	s.client.BaseURL = u
	return s, nil
}

func (s *GithubClient) ListReposByOrg(ctx context.Context, org string) ([]*github.Repository, error) {
	opt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	// get all pages of results
	var allRepos []*github.Repository
	for {
		repos, resp, err := s.client.Repositories.ListByOrg(ctx, org, opt)
		if err != nil {
			return allRepos, err
		}
		allRepos = append(allRepos, repos...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return allRepos, nil
}

// DownloadFile returns the contents of path at ref. The download endpoint is
// used so feeds larger than the 1 MB contents API limit still work.
func (s *GithubClient) DownloadFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}

	rc, _, err := s.client.Repositories.DownloadContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// FilterArchivedRepos drops archived repositories, which no longer publish
// benchmark results.
func FilterArchivedRepos(repos []*github.Repository) []*github.Repository {
	var filteredRepos []*github.Repository
	for _, repo := range repos {
		if !repo.GetArchived() {
			filteredRepos = append(filteredRepos, repo)
		}
	}
	return filteredRepos
}

func GetRepoHTMLUrls(repos []*github.Repository) []string {
	var urls []string
	for _, repo := range repos {
		htmlURL := repo.GetHTMLURL()
		if htmlURL != "" {
			urls = append(urls, htmlURL)
		}
	}
	return urls
}
