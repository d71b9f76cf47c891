package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v75/github"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultPerPage            = 100
	defaultActiveBranchWindow = 90 * 24 * time.Hour
)

// Adapter reads repositories, commits and pull requests from GitHub.
type Adapter struct {
	client       *gh.Client
	installation bool
	window       time.Duration
	perPage      int
}

var _ interfaces.ProviderAdapter = (*Adapter)(nil)

type Option func(*Adapter) error

// WithBaseURL sets the REST API endpoint, for GitHub Enterprise or tests.
func WithBaseURL(baseURL string) Option {
	return func(x *Adapter) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return goerr.Wrap(types.ErrConfiguration, "invalid GitHub base URL", goerr.V("url", baseURL))
		}
		x.client.BaseURL = u
		return nil
	}
}

// WithInstallation lists repositories through the App installation instead
// of the organization listing.
func WithInstallation() Option {
	return func(x *Adapter) error {
		x.installation = true
		return nil
	}
}

func WithActiveBranchWindow(d time.Duration) Option {
	return func(x *Adapter) error {
		if d <= 0 {
			return goerr.Wrap(types.ErrConfiguration, "active branch window must be positive", goerr.V("window", d))
		}
		x.window = d
		return nil
	}
}

func WithPerPage(n int) Option {
	return func(x *Adapter) error {
		if n < 1 || n > 100 {
			return goerr.Wrap(types.ErrConfiguration, "per page must be in 1..100", goerr.V("perPage", n))
		}
		x.perPage = n
		return nil
	}
}

// New creates an adapter over httpClient, which carries authentication, rate
// limiting and retry.
func New(httpClient *http.Client, options ...Option) (*Adapter, error) {
	x := &Adapter{
		client:  gh.NewClient(httpClient),
		window:  defaultActiveBranchWindow,
		perPage: defaultPerPage,
	}
	for _, opt := range options {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

func (x *Adapter) Kind() types.ProviderKind {
	return types.ProviderGitHub
}

func (x *Adapter) FetchRepositories(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error) {
	var repos []*gh.Repository
	var err error
	if x.installation {
		repos, err = x.listInstallationRepos(ctx)
	} else {
		repos, err = x.listOwnerRepos(ctx, req.Owner)
	}
	if err != nil {
		return nil, err
	}

	list := &model.RepositoryList{}
	for _, r := range repos {
		if !strings.EqualFold(r.GetOwner().GetLogin(), req.Owner) {
			continue
		}
		repo := toRepository(r)
		if !req.Filter.Match(repo) {
			continue
		}
		list.Repositories = append(list.Repositories, repo)
	}

	logging.From(ctx).Debug("fetched GitHub repositories",
		"owner", req.Owner,
		"listed", len(repos),
		"matched", len(list.Repositories),
	)
	return list, nil
}

func (x *Adapter) listInstallationRepos(ctx context.Context) ([]*gh.Repository, error) {
	var all []*gh.Repository
	opts := &gh.ListOptions{PerPage: x.perPage}
	for {
		result, resp, err := x.client.Apps.ListRepos(ctx, opts)
		if err != nil {
			return nil, classify(err, "failed to list installation repos")
		}
		all = append(all, result.Repositories...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (x *Adapter) listOwnerRepos(ctx context.Context, owner string) ([]*gh.Repository, error) {
	var all []*gh.Repository
	opts := &gh.RepositoryListByOrgOptions{ListOptions: gh.ListOptions{PerPage: x.perPage}}
	for {
		repos, resp, err := x.client.Repositories.ListByOrg(ctx, owner, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound && opts.Page == 0 {
				// not an organization, fall back to the user listing
				return x.listUserRepos(ctx, owner)
			}
			return nil, classify(err, "failed to list organization repos", goerr.V("owner", owner))
		}
		all = append(all, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (x *Adapter) listUserRepos(ctx context.Context, owner string) ([]*gh.Repository, error) {
	var all []*gh.Repository
	opts := &gh.RepositoryListOptions{Type: "owner", ListOptions: gh.ListOptions{PerPage: x.perPage}}
	for {
		repos, resp, err := x.client.Repositories.List(ctx, owner, opts)
		if err != nil {
			return nil, classify(err, "failed to list user repos", goerr.V("owner", owner))
		}
		all = append(all, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// SetActiveBranches marks a branch active when it has a commit inside the
// active branch window.
func (x *Adapter) SetActiveBranches(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure {
	since := logging.CtxTime(ctx).Add(-x.window)

	var failures []*model.RepositoryFailure
	for _, repo := range repos {
		active, err := x.activeBranches(ctx, repo, since)
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

func (x *Adapter) activeBranches(ctx context.Context, repo *model.Repository, since time.Time) ([]types.BranchName, error) {
	var branches []*gh.Branch
	opts := &gh.BranchListOptions{ListOptions: gh.ListOptions{PerPage: x.perPage}}
	for {
		page, resp, err := x.client.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(err, "failed to list branches", goerr.V("repository", repo.FullName()))
		}
		branches = append(branches, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	var active []types.BranchName
	for _, b := range branches {
		commits, _, err := x.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, &gh.CommitsListOptions{
			SHA:         b.GetName(),
			Since:       since,
			ListOptions: gh.ListOptions{PerPage: 1},
		})
		if err != nil {
			return nil, classify(err, "failed to list branch commits",
				goerr.V("repository", repo.FullName()),
				goerr.V("branch", b.GetName()),
			)
		}
		if len(commits) > 0 {
			active = append(active, types.BranchName(b.GetName()))
		}
	}
	return active, nil
}

func (x *Adapter) FetchCommits(ctx context.Context, req *model.ScanRequest, repo *model.Repository, branch types.BranchName) ([]*model.Commit, error) {
	var commits []*model.Commit
	opts := &gh.CommitsListOptions{
		SHA:         string(branch),
		Since:       req.Since,
		ListOptions: gh.ListOptions{PerPage: x.perPage},
	}

	for {
		page, resp, err := x.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(err, "failed to list commits",
				goerr.V("repository", repo.FullName()),
				goerr.V("branch", branch),
			)
		}

		for _, c := range page {
			diff, _, err := x.client.Repositories.GetCommitRaw(ctx, repo.Owner, repo.Name, c.GetSHA(), gh.RawOptions{Type: gh.Diff})
			if err != nil {
				return nil, classify(err, "failed to get commit diff",
					goerr.V("repository", repo.FullName()),
					goerr.V("sha", c.GetSHA()),
				)
			}
			commits = append(commits, toCommit(c, diff))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// FetchPullRequests returns pull requests updated at or after req.Since,
// newest first.
func (x *Adapter) FetchPullRequests(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error) {
	var prs []*model.PullRequest
	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: x.perPage},
	}

	for {
		page, resp, err := x.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, classify(err, "failed to list pull requests", goerr.V("repository", repo.FullName()))
		}

		for _, pr := range page {
			if !req.Since.IsZero() && pr.GetUpdatedAt().Time.Before(req.Since) {
				return prs, nil
			}

			diff, _, err := x.client.PullRequests.GetRaw(ctx, repo.Owner, repo.Name, pr.GetNumber(), gh.RawOptions{Type: gh.Diff})
			if err != nil {
				return nil, classify(err, "failed to get pull request diff",
					goerr.V("repository", repo.FullName()),
					goerr.V("number", pr.GetNumber()),
				)
			}
			prs = append(prs, toPullRequest(pr, diff))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return prs, nil
}

func toRepository(r *gh.Repository) *model.Repository {
	return &model.Repository{
		ID:       strconv.FormatInt(r.GetID(), 10),
		Provider: types.ProviderGitHub,
		Owner:    r.GetOwner().GetLogin(),
		Name:     r.GetName(),
		URLs: model.RepositoryURLs{
			HTML:  r.GetHTMLURL(),
			Clone: r.GetCloneURL(),
		},
		DefaultBranch: types.BranchName(r.GetDefaultBranch()),
		Archived:      r.GetArchived(),
	}
}

func toCommit(c *gh.RepositoryCommit, diff string) *model.Commit {
	author := c.GetAuthor().GetLogin()
	if author == "" {
		author = c.GetCommit().GetAuthor().GetName()
	}
	return &model.Commit{
		SHA:         types.CommitSHA(c.GetSHA()),
		Author:      author,
		AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		Message:     c.GetCommit().GetMessage(),
		CommittedAt: c.GetCommit().GetCommitter().GetDate().Time,
		ParentCount: len(c.Parents),
		Diff:        diff,
	}
}

func toPullRequest(pr *gh.PullRequest, diff string) *model.PullRequest {
	v := &model.PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		State:        pr.GetState(),
		Author:       pr.GetUser().GetLogin(),
		SourceBranch: types.BranchName(pr.GetHead().GetRef()),
		TargetBranch: types.BranchName(pr.GetBase().GetRef()),
		CreatedAt:    pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
		Diff:         diff,
	}
	if pr.MergedAt != nil {
		merged := pr.MergedAt.Time
		v.MergedAt = &merged
		v.State = "merged"
	}
	return v
}

// classify maps go-github errors to provider error kinds.
func classify(err error, msg string, values ...goerr.Option) error {
	values = append(values, goerr.V("cause", err.Error()))

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return goerr.Wrap(types.ErrTransientProvider, msg, values...)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		if code == http.StatusTooManyRequests || code >= 500 {
			return goerr.Wrap(types.ErrTransientProvider, msg, append(values, goerr.V("status", code))...)
		}
		return goerr.Wrap(types.ErrPersistentProvider, msg, append(values, goerr.V("status", code))...)
	}

	if errors.Is(err, context.Canceled) {
		return goerr.Wrap(err, msg, values...)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return goerr.Wrap(types.ErrTransientProvider, msg, values...)
	}
	return goerr.Wrap(types.ErrPersistentProvider, msg, values...)
}
