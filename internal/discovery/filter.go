package discovery

import (
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

const (
	ArchivedInclude = "include"
	ArchivedExclude = "exclude"
	ArchivedOnly    = "only"
)

// Filter narrows an organization listing. The zero value keeps everything.
type Filter struct {
	Include  []string
	Exclude  []string
	Archived string
	MaxRepos int
}

// Apply returns the repositories that pass the filter, in input order, capped
// at MaxRepos when it is positive.
func (f Filter) Apply(repos []*github.Repository) []*github.Repository {
	archivedPolicy := strings.ToLower(strings.TrimSpace(f.Archived))
	if archivedPolicy == "" {
		archivedPolicy = ArchivedInclude
	}

	filtered := make([]*github.Repository, 0, len(repos))
	for _, r := range repos {
		if archivedPolicy == ArchivedExclude && r.GetArchived() {
			continue
		}
		if archivedPolicy == ArchivedOnly && !r.GetArchived() {
			continue
		}

		fullName := r.GetFullName()
		if fullName == "" {
			fullName = r.GetOwner().GetLogin() + "/" + r.GetName()
		}
		repoName := r.GetName()

		if len(f.Include) > 0 && !matchesAnyPattern(f.Include, fullName, repoName) {
			continue
		}
		if len(f.Exclude) > 0 && matchesAnyPattern(f.Exclude, fullName, repoName) {
			continue
		}

		filtered = append(filtered, r)
	}

	if f.MaxRepos > 0 && len(filtered) > f.MaxRepos {
		filtered = filtered[:f.MaxRepos]
	}
	return filtered
}

func matchesAnyPattern(patterns []string, fullName, repoName string) bool {
	for _, p := range patterns {
		if matchPattern(p, fullName, repoName) {
			return true
		}
	}
	return false
}

// matchPattern matches against the full name when the pattern has an owner
// component, otherwise against the repository name alone.
func matchPattern(pattern, fullName, repoName string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, fullName)
		return matched
	}
	matched, _ := path.Match(pattern, repoName)
	return matched
}
