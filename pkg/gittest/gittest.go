// package gittest builds throwaway git repositories on disk for tests that
// would otherwise need to clone from the network.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Signature is the author used for every fixture commit.
var Signature = object.Signature{
	Name:  "Bench Bot",
	Email: "bench@example.com",
	When:  time.Date(2023, 10, 10, 12, 0, 0, 0, time.UTC),
}

// FeedRepo creates a repository whose "master" branch holds a README and
// whose branch holds files (path -> contents), like a gh-pages branch
// carrying dev/bench/data.js. It returns the repository directory, usable as
// a clone URL.
func FeedRepo(t *testing.T, branch string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("could not init fixture repo: %s", err.Error())
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("could not open fixture worktree: %s", err.Error())
	}

	writeFile(t, dir, "README.md", "fixture\n")
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("could not stage README: %s", err.Error())
	}

	if _, err := wt.Commit("initial commit", &git.CommitOptions{Author: &Signature}); err != nil {
		t.Fatalf("could not commit README: %s", err.Error())
	}

	if branch == "" || branch == "master" {
		commitFiles(t, dir, wt, files)
		return dir
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	})
	if err != nil {
		t.Fatalf("could not create branch %s: %s", branch, err.Error())
	}

	commitFiles(t, dir, wt, files)

	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master")})
	if err != nil {
		t.Fatalf("could not switch back to master: %s", err.Error())
	}

	return dir
}

// Commit adds another commit updating files on branch of an existing
// fixture repository.
func Commit(t *testing.T, dir string, branch string, files map[string]string) {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("could not open fixture repo: %s", err.Error())
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("could not open fixture worktree: %s", err.Error())
	}

	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)})
	if err != nil {
		t.Fatalf("could not switch to %s: %s", branch, err.Error())
	}

	commitFiles(t, dir, wt, files)
}

func commitFiles(t *testing.T, dir string, wt *git.Worktree, files map[string]string) {
	t.Helper()

	for path, contents := range files {
		writeFile(t, dir, path, contents)
		if _, err := wt.Add(path); err != nil {
			t.Fatalf("could not stage %s: %s", path, err.Error())
		}
	}

	if _, err := wt.Commit("update benchmark data", &git.CommitOptions{Author: &Signature}); err != nil {
		t.Fatalf("could not commit fixture files: %s", err.Error())
	}
}

func writeFile(t *testing.T, dir, path, contents string) {
	t.Helper()

	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("could not create fixture dir: %s", err.Error())
	}

	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatalf("could not write fixture file: %s", err.Error())
	}
}
