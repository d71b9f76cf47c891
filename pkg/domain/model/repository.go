package model

import (
	"path"
	"sort"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ScanRequest is the immutable input of one SCM scan.
type ScanRequest struct {
	Provider       types.ProviderKind
	Owner          string
	CredentialsRef string `masq:"secret"`
	Filter         RepositoryFilter
	Since          time.Time
}

func (x *ScanRequest) Validate() error {
	if x.Provider == "" {
		return goerr.Wrap(types.ErrConfiguration, "provider is empty")
	}
	if x.Owner == "" {
		return goerr.Wrap(types.ErrConfiguration, "owner is empty", goerr.V("provider", x.Provider))
	}
	for _, ptn := range append(append([]string{}, x.Filter.Include...), x.Filter.Exclude...) {
		if _, err := path.Match(ptn, ""); err != nil {
			return goerr.Wrap(types.ErrConfiguration, "invalid repository filter pattern", goerr.V("pattern", ptn))
		}
	}
	return nil
}

// RepositoryFilter selects repositories by glob patterns matched against the
// repository name and "owner/name". Exclude wins over Include; an empty Include
// matches everything.
type RepositoryFilter struct {
	Include      []string
	Exclude      []string
	SkipArchived bool
}

func (x RepositoryFilter) Match(repo *Repository) bool {
	if x.SkipArchived && repo.Archived {
		return false
	}
	for _, ptn := range x.Exclude {
		if matchRepo(ptn, repo) {
			return false
		}
	}
	if len(x.Include) == 0 {
		return true
	}
	for _, ptn := range x.Include {
		if matchRepo(ptn, repo) {
			return true
		}
	}
	return false
}

func matchRepo(ptn string, repo *Repository) bool {
	if ok, _ := path.Match(ptn, repo.Name); ok {
		return true
	}
	ok, _ := path.Match(ptn, repo.FullName())
	return ok
}

type RepositoryURLs struct {
	HTML  string
	Clone string
}

// Repository is a source-control repository produced by a provider adapter.
type Repository struct {
	ID            string
	Provider      types.ProviderKind
	Owner         string
	Name          string
	URLs          RepositoryURLs
	DefaultBranch types.BranchName
	Archived      bool

	activeBranches map[types.BranchName]struct{}
}

func (x *Repository) FullName() string {
	return x.Owner + "/" + x.Name
}

// SetActiveBranches replaces the active branch set. The set is a point-in-time
// snapshot, branches missing from names are no longer active.
func (x *Repository) SetActiveBranches(names []types.BranchName) {
	set := make(map[types.BranchName]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	x.activeBranches = set
}

// ActiveBranches returns the active branch set in name order.
func (x *Repository) ActiveBranches() []types.BranchName {
	names := make([]types.BranchName, 0, len(x.activeBranches))
	for name := range x.activeBranches {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (x *Repository) IsActive(name types.BranchName) bool {
	_, ok := x.activeBranches[name]
	return ok
}

// RepositoryFailure records a provider failure scoped to one repository.
type RepositoryFailure struct {
	Repository string
	Stage      string
	Err        error
}

func (x *RepositoryFailure) Error() string {
	return x.Stage + " " + x.Repository + ": " + x.Err.Error()
}

func (x *RepositoryFailure) Unwrap() error {
	return x.Err
}

// RepositoryList is the materialized result of a repository listing. Failed
// repositories are excluded from Repositories and reported in Failures.
type RepositoryList struct {
	Repositories []*Repository
	Failures     []*RepositoryFailure
}
