package common

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// RemoteHasBranch returns true if the provided git repo URL is reachable and
// advertises the given branch. This is equivalent to running
// "git ls-remote --heads" on the provided URL string. This may result in some
// unexpected "authentication required" or "repository not found" errors which
// is standard for git to return in these situations.
func RemoteHasBranch(repoURL string, branch string) (bool, error) {
	remoteConfig := &config.RemoteConfig{
		Name: "source",
		URLs: []string{
			repoURL,
		},
	}

	remote := git.NewRemote(memory.NewStorage(), remoteConfig)

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("could not list remote repository: %s", err.Error())
	}

	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return true, nil
		}
	}

	return false, nil
}

// NormalizeGitURL attempts to take a raw git repo URL and ensure it is normalized
// before being validated or entered into the database
func NormalizeGitURL(repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", err
	}

	// Check if it has a valid protocol specified (e.g., https, git, file)
	if parsedURL.Scheme != "git" && parsedURL.Scheme != "https" && parsedURL.Scheme != "file" {
		return "", fmt.Errorf("repo URL missing valid protocol scheme (https, git, file): %s", repoURL)
	}

	// Trim trailing slashes
	// Example: https://github.com/user/repo/ to https://github.com/user/repo
	trimmedPath := strings.TrimSuffix(parsedURL.Path, "/")

	// Remove .git suffix if present
	// Example: https://github.com/user/repo.git to https://github.com/user/repo
	trimmedPath = strings.TrimSuffix(trimmedPath, ".git")

	parsedURL.Path = trimmedPath

	return parsedURL.String(), nil
}

// ParseGitHubRepo splits a GitHub repository URL into its owner and name.
// The URL is normalized first, so trailing slashes and ".git" are accepted.
func ParseGitHubRepo(repoURL string) (string, string, error) {
	normalized, err := NormalizeGitURL(repoURL)
	if err != nil {
		return "", "", err
	}

	parsedURL, err := url.Parse(normalized)
	if err != nil {
		return "", "", err
	}

	if parsedURL.Host != "github.com" {
		return "", "", fmt.Errorf("not a github.com repository URL: %s", repoURL)
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("github repository URL must be https://github.com/<owner>/<repo>: %s", repoURL)
	}

	return parts[0], parts[1], nil
}
