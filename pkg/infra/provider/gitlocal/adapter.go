package gitlocal

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const defaultActiveBranchWindow = 90 * 24 * time.Hour

// Adapter reads a local clone. The scan request owner is the path of the
// working tree or bare repository, which yields exactly one repository.
type Adapter struct {
	window time.Duration
}

var _ interfaces.ProviderAdapter = (*Adapter)(nil)

type Option func(*Adapter)

func WithActiveBranchWindow(d time.Duration) Option {
	return func(x *Adapter) {
		x.window = d
	}
}

func New(options ...Option) *Adapter {
	x := &Adapter{window: defaultActiveBranchWindow}
	for _, opt := range options {
		opt(x)
	}
	return x
}

func (x *Adapter) Kind() types.ProviderKind {
	return types.ProviderGit
}

func open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "failed to open git repository",
			goerr.V("path", path),
			goerr.V("cause", err.Error()),
		)
	}
	return repo, nil
}

func (x *Adapter) FetchRepositories(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error) {
	path, err := filepath.Abs(req.Owner)
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "invalid repository path", goerr.V("path", req.Owner))
	}

	gitRepo, err := open(path)
	if err != nil {
		return nil, err
	}

	repo := &model.Repository{
		ID:       path,
		Provider: types.ProviderGit,
		Owner:    filepath.Base(filepath.Dir(path)),
		Name:     filepath.Base(path),
	}
	if head, err := gitRepo.Head(); err == nil && head.Name().IsBranch() {
		repo.DefaultBranch = types.BranchName(head.Name().Short())
	}
	if remote, err := gitRepo.Remote(git.DefaultRemoteName); err == nil && len(remote.Config().URLs) > 0 {
		repo.URLs.Clone = remote.Config().URLs[0]
	}

	list := &model.RepositoryList{}
	if req.Filter.Match(repo) {
		list.Repositories = append(list.Repositories, repo)
	}
	return list, nil
}

// SetActiveBranches marks a local branch active when its head commit was
// committed inside the active branch window.
func (x *Adapter) SetActiveBranches(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure {
	since := logging.CtxTime(ctx).Add(-x.window)

	var failures []*model.RepositoryFailure
	for _, repo := range repos {
		active, err := activeBranches(repo.ID, since)
		if err != nil {
			repo.SetActiveBranches(nil)
			failures = append(failures, &model.RepositoryFailure{
				Repository: repo.FullName(),
				Stage:      "active_branches",
				Err:        err,
			})
			logging.From(ctx).Warn("failed to resolve active branches",
				"repository", repo.FullName(),
				"error", err,
			)
			continue
		}
		repo.SetActiveBranches(active)
	}
	return failures
}

func activeBranches(path string, since time.Time) ([]types.BranchName, error) {
	gitRepo, err := open(path)
	if err != nil {
		return nil, err
	}

	refs, err := gitRepo.Branches()
	if err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "failed to list branches",
			goerr.V("path", path),
			goerr.V("cause", err.Error()),
		)
	}

	var active []types.BranchName
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		commit, err := gitRepo.CommitObject(ref.Hash())
		if err != nil {
			return goerr.Wrap(err, "failed to read branch head", goerr.V("branch", ref.Name().Short()))
		}
		if !commit.Committer.When.Before(since) {
			active = append(active, types.BranchName(ref.Name().Short()))
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "failed to walk branches",
			goerr.V("path", path),
			goerr.V("cause", err.Error()),
		)
	}
	return active, nil
}

// FetchCommits walks the branch history from its head. A commit diff is taken
// against the first parent, a root commit against the empty tree.
func (x *Adapter) FetchCommits(ctx context.Context, req *model.ScanRequest, repo *model.Repository, branch types.BranchName) ([]*model.Commit, error) {
	gitRepo, err := open(repo.ID)
	if err != nil {
		return nil, err
	}

	ref, err := gitRepo.Reference(plumbing.NewBranchReferenceName(string(branch)), true)
	if err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "branch not found",
			goerr.V("repository", repo.FullName()),
			goerr.V("branch", branch),
		)
	}

	opts := &git.LogOptions{From: ref.Hash()}
	if !req.Since.IsZero() {
		opts.Since = &req.Since
	}
	iter, err := gitRepo.Log(opts)
	if err != nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "failed to read history",
			goerr.V("repository", repo.FullName()),
			goerr.V("cause", err.Error()),
		)
	}
	defer iter.Close()

	var commits []*model.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		diff, err := commitDiff(c)
		if err != nil {
			return err
		}
		commits = append(commits, &model.Commit{
			SHA:         types.CommitSHA(c.Hash.String()),
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			Message:     c.Message,
			CommittedAt: c.Committer.When.UTC(),
			ParentCount: c.NumParents(),
			Diff:        diff,
		})
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		if errors.Is(err, context.Canceled) {
			return nil, goerr.Wrap(err, "commit walk cancelled")
		}
		return nil, goerr.Wrap(types.ErrPersistentProvider, "failed to walk commits",
			goerr.V("repository", repo.FullName()),
			goerr.V("branch", branch),
			goerr.V("cause", err.Error()),
		)
	}
	return commits, nil
}

func commitDiff(c *object.Commit) (string, error) {
	tree, err := c.Tree()
	if err != nil {
		return "", goerr.Wrap(err, "failed to read commit tree", goerr.V("sha", c.Hash.String()))
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read parent commit", goerr.V("sha", c.Hash.String()))
		}
		if parentTree, err = parent.Tree(); err != nil {
			return "", goerr.Wrap(err, "failed to read parent tree", goerr.V("sha", parent.Hash.String()))
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return "", goerr.Wrap(err, "failed to diff trees", goerr.V("sha", c.Hash.String()))
	}
	patch, err := changes.Patch()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build patch", goerr.V("sha", c.Hash.String()))
	}
	return patch.String(), nil
}

// FetchPullRequests returns nothing, a local clone has no pull requests.
func (x *Adapter) FetchPullRequests(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error) {
	return nil, nil
}
