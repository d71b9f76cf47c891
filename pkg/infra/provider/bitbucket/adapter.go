package bitbucket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/httpclient"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultBaseURL            = "https://api.bitbucket.org/2.0"
	defaultPageLen            = 100
	defaultActiveBranchWindow = 90 * 24 * time.Hour
)

// Adapter reads repositories, commits and pull requests of a Bitbucket Cloud
// workspace through the 2.0 REST API.
type Adapter struct {
	client  *http.Client
	baseURL string
	window  time.Duration
}

var _ interfaces.ProviderAdapter = (*Adapter)(nil)

type Option func(*Adapter)

func WithBaseURL(baseURL string) Option {
	return func(x *Adapter) {
		x.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithActiveBranchWindow(d time.Duration) Option {
	return func(x *Adapter) {
		x.window = d
	}
}

// New creates an adapter over httpClient, which carries authentication, rate
// limiting and retry.
func New(httpClient *http.Client, options ...Option) *Adapter {
	x := &Adapter{
		client:  httpClient,
		baseURL: DefaultBaseURL,
		window:  defaultActiveBranchWindow,
	}
	for _, opt := range options {
		opt(x)
	}
	return x
}

func (x *Adapter) Kind() types.ProviderKind {
	return types.ProviderBitbucket
}

type page[T any] struct {
	Values []T    `json:"values"`
	Next   string `json:"next"`
}

type link struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

type apiRepository struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	FullName   string `json:"full_name"`
	MainBranch *struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	Links struct {
		HTML  link   `json:"html"`
		Clone []link `json:"clone"`
	} `json:"links"`
}

type apiBranch struct {
	Name   string `json:"name"`
	Target struct {
		Hash string    `json:"hash"`
		Date time.Time `json:"date"`
	} `json:"target"`
}

type apiUser struct {
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname"`
}

type apiCommit struct {
	Hash    string    `json:"hash"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Author  struct {
		Raw  string   `json:"raw"`
		User *apiUser `json:"user"`
	} `json:"author"`
	Parents []struct {
		Hash string `json:"hash"`
	} `json:"parents"`
}

type apiRef struct {
	Branch struct {
		Name string `json:"name"`
	} `json:"branch"`
}

type apiPullRequest struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	Author      apiUser   `json:"author"`
	Source      apiRef    `json:"source"`
	Destination apiRef    `json:"destination"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

func (x *Adapter) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := x.baseURL + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (x *Adapter) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to build Bitbucket request", goerr.V("url", rawURL))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, httpclient.RequestError(err, "Bitbucket request failed", goerr.V("url", rawURL))
	}
	if resp.StatusCode != http.StatusOK {
		defer safe.Close(resp.Body)
		return nil, httpclient.StatusError(resp, "Bitbucket responded with error")
	}
	return resp, nil
}

func (x *Adapter) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := x.do(ctx, rawURL)
	if err != nil {
		return err
	}
	defer safe.Close(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return goerr.Wrap(types.ErrPersistentProvider, "failed to decode Bitbucket response",
			goerr.V("url", rawURL),
			goerr.V("cause", err.Error()),
		)
	}
	return nil
}

func (x *Adapter) getText(ctx context.Context, rawURL string) (string, error) {
	resp, err := x.do(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer safe.Close(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", httpclient.RequestError(err, "failed to read Bitbucket response", goerr.V("url", rawURL))
	}
	return string(body), nil
}

// paginate follows "next" links from first until the last page or until visit
// returns false.
func paginate[T any](ctx context.Context, x *Adapter, first string, visit func(T) bool) error {
	next := first
	for next != "" {
		var p page[T]
		if err := x.getJSON(ctx, next, &p); err != nil {
			return err
		}
		for _, v := range p.Values {
			if !visit(v) {
				return nil
			}
		}
		next = p.Next
	}
	return nil
}

func pageQuery() url.Values {
	return url.Values{"pagelen": {strconv.Itoa(defaultPageLen)}}
}

func (x *Adapter) FetchRepositories(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error) {
	list := &model.RepositoryList{}
	listed := 0

	err := paginate(ctx, x, x.endpoint(pageQuery(), "repositories", req.Owner), func(r apiRepository) bool {
		listed++
		repo := toRepository(req.Owner, r)
		if req.Filter.Match(repo) {
			list.Repositories = append(list.Repositories, repo)
		}
		return true
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list Bitbucket repositories", goerr.V("workspace", req.Owner))
	}

	logging.From(ctx).Debug("fetched Bitbucket repositories",
		"workspace", req.Owner,
		"listed", listed,
		"matched", len(list.Repositories),
	)
	return list, nil
}

// SetActiveBranches marks a branch active when its head commit is inside the
// active branch window.
func (x *Adapter) SetActiveBranches(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure {
	since := logging.CtxTime(ctx).Add(-x.window)

	var failures []*model.RepositoryFailure
	for _, repo := range repos {
		var active []types.BranchName
		err := paginate(ctx, x, x.endpoint(pageQuery(), "repositories", repo.Owner, repo.Name, "refs", "branches"), func(b apiBranch) bool {
			if !b.Target.Date.Before(since) {
				active = append(active, types.BranchName(b.Name))
			}
			return true
		})
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

// FetchCommits walks the branch history newest first and stops at the first
// commit older than req.Since.
func (x *Adapter) FetchCommits(ctx context.Context, req *model.ScanRequest, repo *model.Repository, branch types.BranchName) ([]*model.Commit, error) {
	var found []apiCommit
	err := paginate(ctx, x, x.endpoint(pageQuery(), "repositories", repo.Owner, repo.Name, "commits", string(branch)), func(c apiCommit) bool {
		if !req.Since.IsZero() && c.Date.Before(req.Since) {
			return false
		}
		found = append(found, c)
		return true
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list Bitbucket commits",
			goerr.V("repository", repo.FullName()),
			goerr.V("branch", branch),
		)
	}

	commits := make([]*model.Commit, 0, len(found))
	for _, c := range found {
		diff, err := x.getText(ctx, x.endpoint(nil, "repositories", repo.Owner, repo.Name, "diff", c.Hash))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get Bitbucket commit diff",
				goerr.V("repository", repo.FullName()),
				goerr.V("hash", c.Hash),
			)
		}
		commits = append(commits, toCommit(c, diff))
	}
	return commits, nil
}

// FetchPullRequests returns pull requests of every state updated at or after
// req.Since, newest first.
func (x *Adapter) FetchPullRequests(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error) {
	query := pageQuery()
	query["state"] = []string{"OPEN", "MERGED", "DECLINED", "SUPERSEDED"}
	query.Set("sort", "-updated_on")

	var found []apiPullRequest
	err := paginate(ctx, x, x.endpoint(query, "repositories", repo.Owner, repo.Name, "pullrequests"), func(pr apiPullRequest) bool {
		if !req.Since.IsZero() && pr.UpdatedOn.Before(req.Since) {
			return false
		}
		found = append(found, pr)
		return true
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list Bitbucket pull requests", goerr.V("repository", repo.FullName()))
	}

	prs := make([]*model.PullRequest, 0, len(found))
	for _, pr := range found {
		diff, err := x.getText(ctx, x.endpoint(nil, "repositories", repo.Owner, repo.Name, "pullrequests", strconv.Itoa(pr.ID), "diff"))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get Bitbucket pull request diff",
				goerr.V("repository", repo.FullName()),
				goerr.V("id", pr.ID),
			)
		}
		prs = append(prs, toPullRequest(pr, diff))
	}
	return prs, nil
}

func toRepository(workspace string, r apiRepository) *model.Repository {
	repo := &model.Repository{
		ID:       r.UUID,
		Provider: types.ProviderBitbucket,
		Owner:    workspace,
		Name:     r.Slug,
		URLs: model.RepositoryURLs{
			HTML: r.Links.HTML.Href,
		},
	}
	if repo.Name == "" {
		repo.Name = r.Name
	}
	if r.MainBranch != nil {
		repo.DefaultBranch = types.BranchName(r.MainBranch.Name)
	}
	for _, l := range r.Links.Clone {
		if l.Name == "https" {
			repo.URLs.Clone = l.Href
		}
	}
	return repo
}

func toCommit(c apiCommit, diff string) *model.Commit {
	name, email := splitAuthor(c.Author.Raw)
	if c.Author.User != nil && c.Author.User.Nickname != "" {
		name = c.Author.User.Nickname
	}
	return &model.Commit{
		SHA:         types.CommitSHA(c.Hash),
		Author:      name,
		AuthorEmail: email,
		Message:     c.Message,
		CommittedAt: c.Date,
		ParentCount: len(c.Parents),
		Diff:        diff,
	}
}

// splitAuthor splits a "Name <email>" author string.
func splitAuthor(raw string) (string, string) {
	open := strings.LastIndex(raw, "<")
	if open < 0 || !strings.HasSuffix(raw, ">") {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(raw[:open]), raw[open+1 : len(raw)-1]
}

func toPullRequest(pr apiPullRequest, diff string) *model.PullRequest {
	author := pr.Author.Nickname
	if author == "" {
		author = pr.Author.DisplayName
	}
	v := &model.PullRequest{
		Number:       pr.ID,
		Title:        pr.Title,
		Author:       author,
		SourceBranch: types.BranchName(pr.Source.Branch.Name),
		TargetBranch: types.BranchName(pr.Destination.Branch.Name),
		CreatedAt:    pr.CreatedOn,
		UpdatedAt:    pr.UpdatedOn,
		Diff:         diff,
	}

	switch pr.State {
	case "OPEN":
		v.State = "open"
	case "MERGED":
		// the API has no merge timestamp, a merged pull request is last updated by the merge
		merged := pr.UpdatedOn
		v.MergedAt = &merged
		v.State = "merged"
	default:
		v.State = "closed"
	}
	return v
}
