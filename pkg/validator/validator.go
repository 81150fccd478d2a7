// package validator provides the necessary utilities
// to validate feed requests before fetching them
package validator

import (
	"path"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/open-sauced/benchtrend/pkg/common"
	"github.com/open-sauced/benchtrend/pkg/providers"
)

var (
	githubRegex = regexp.MustCompile(`^https://github.com/[\w.-]+/[\w.-]+$`)
)

// Validator: type which contains a map of validation errors (error name : string -> error_description : string)
type Validator struct {
	Errors map[string]string
}

// New: return an instance of a validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid: returns true if there are no errors, otherwise false
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError: add a new error to the validator
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// CheckConstraint: Receives a constraint that evaluates to a boolean expression to validate
// false -> add error
// true -> skip
func (v *Validator) CheckConstraint(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// ValidateFeedSource checks a feed request and returns it normalized with
// defaults applied. With githubOnly the URL must be a github.com repository.
func ValidateFeedSource(validator *Validator, src providers.FeedSource, githubOnly bool) providers.FeedSource {
	src = src.WithDefaults()

	validator.CheckConstraint(src.RepoURL != "", "url", "URL must be provided")
	if src.RepoURL != "" {
		normalized, err := common.NormalizeGitURL(src.RepoURL)
		validator.CheckConstraint(err == nil, "url", "The URL provided is not a valid git repository URL")
		if err == nil {
			src.RepoURL = normalized
		}
	}

	if githubOnly {
		validator.CheckConstraint(MatchesGithubURL(src.RepoURL), "url", "The URL provided is not a valid GitHub repository")
	}

	validator.CheckConstraint(ValidBranch(src.Branch), "branch", "The branch provided is not a valid branch name")
	validator.CheckConstraint(ValidFeedPath(src.Path), "path", "The path must be relative and stay inside the repository")

	return src
}

func MatchesGithubURL(url string) bool {
	return githubRegex.MatchString(url)
}

// ValidBranch reports whether name can be used as a branch name.
func ValidBranch(name string) bool {
	if name == "" || strings.ContainsAny(name, " ~^:?*[\\") || strings.Contains(name, "..") {
		return false
	}

	return plumbing.NewBranchReferenceName(name).IsBranch()
}

// ValidFeedPath reports whether p is a clean relative path inside a
// repository tree.
func ValidFeedPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}

	return path.Clean(p) == p && p != "." && !strings.HasPrefix(p, "../") && p != ".."
}
