package common

import (
	"testing"

	"github.com/open-sauced/benchtrend/pkg/gittest"
)

func TestNormalizeGitURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "Fully normalizes",
			url:      "https://github.com/user/repo.git/",
			expected: "https://github.com/user/repo",
		},
		{
			name:     "Removes trailing .git",
			url:      "https://github.com/user/repo.git",
			expected: "https://github.com/user/repo",
		},
		{
			name:     "Removes trailing slash",
			url:      "https://github.com/user/repo/",
			expected: "https://github.com/user/repo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizedURL, err := NormalizeGitURL(tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if normalizedURL != tt.expected {
				t.Fatalf("normalized URL: %s is not expected: %s", normalizedURL, tt.expected)
			}
		})
	}
}

func TestNormalizeGitURLError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
	}{
		{
			name: "Missing protocol fails",
			url:  "github.com/user/repo",
		},
		{
			name: "Malformed protocol fails",
			url:  "ht:/github.com/user/repo",
		},
		{
			name: "Unusable protocol fails",
			url:  "ssh://github.com/user/repo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizedURL, err := NormalizeGitURL(tt.url)
			if err == nil {
				t.Fatalf("expected error, got none: %s", normalizedURL)
			}
		})
	}
}

func TestParseGitHubRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "Plain repo URL",
			url:       "https://github.com/open-sauced/pizza",
			wantOwner: "open-sauced",
			wantRepo:  "pizza",
		},
		{
			name:      "Normalizes before splitting",
			url:       "https://github.com/open-sauced/pizza.git/",
			wantOwner: "open-sauced",
			wantRepo:  "pizza",
		},
		{
			name:    "Rejects other hosts",
			url:     "https://gitlab.com/open-sauced/pizza",
			wantErr: true,
		},
		{
			name:    "Rejects nested paths",
			url:     "https://github.com/open-sauced/pizza/tree/main",
			wantErr: true,
		},
		{
			name:    "Rejects org only",
			url:     "https://github.com/open-sauced",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseGitHubRepo(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none: %s/%s", owner, repo)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Fatalf("parsed %s/%s, expected %s/%s", owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestRemoteHasBranch(t *testing.T) {
	t.Parallel()

	repoDir := gittest.FeedRepo(t, "gh-pages", map[string]string{
		"dev/bench/data.js": "window.BENCHMARK_DATA = {\"entries\": {}}\n",
	})

	tests := []struct {
		name   string
		branch string
		want   bool
	}{
		{
			name:   "Finds the feed branch",
			branch: "gh-pages",
			want:   true,
		},
		{
			name:   "Finds the default branch",
			branch: "master",
			want:   true,
		},
		{
			name:   "Missing branch",
			branch: "benchmarks",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RemoteHasBranch(repoDir, tt.branch)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if got != tt.want {
				t.Fatalf("RemoteHasBranch(%s) = %t, expected %t", tt.branch, got, tt.want)
			}
		})
	}
}
