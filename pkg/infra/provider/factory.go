package provider

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/httpclient"
	"github.com/m-mizutani/devlens/pkg/infra/provider/bitbucket"
	"github.com/m-mizutani/devlens/pkg/infra/provider/github"
	"github.com/m-mizutani/devlens/pkg/infra/provider/gitlocal"
	"github.com/m-mizutani/devlens/pkg/infra/ratelimit"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	credentialsNone         = "none"
	credentialsEnvPrefix    = "env:"
	credentialsInstallation = "installation:"
	installationAuto        = "auto"
)

// Session is what a constructor gets to build an adapter: an HTTP client that
// already carries credentials, rate limiting and retry.
type Session struct {
	HTTPClient *http.Client

	// Installation is true when HTTPClient authenticates as a GitHub App
	// installation.
	Installation bool

	ActiveBranchWindow time.Duration
}

// Constructor builds the adapter of one provider kind.
type Constructor func(ctx context.Context, req *model.ScanRequest, s *Session) (interfaces.ProviderAdapter, error)

// Factory resolves scan requests into provider adapters.
type Factory struct {
	constructors map[types.ProviderKind]Constructor
	ghApp        interfaces.GitHubApp
	limits       *ratelimit.Registry
	base         http.RoundTripper
	transport    []httpclient.Option
	window       time.Duration
	lookupEnv    func(string) (string, bool)

	githubBaseURL    string
	bitbucketBaseURL string
}

var _ interfaces.AdapterFactory = (*Factory)(nil)

type Option func(*Factory)

func WithGitHubApp(app interfaces.GitHubApp) Option {
	return func(x *Factory) {
		x.ghApp = app
	}
}

func WithRateLimits(registry *ratelimit.Registry) Option {
	return func(x *Factory) {
		x.limits = registry
	}
}

// WithBaseTransport sets the transport under authentication, http.DefaultTransport
// by default.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(x *Factory) {
		x.base = rt
	}
}

func WithTransportOptions(options ...httpclient.Option) Option {
	return func(x *Factory) {
		x.transport = append(x.transport, options...)
	}
}

func WithActiveBranchWindow(d time.Duration) Option {
	return func(x *Factory) {
		x.window = d
	}
}

func WithGitHubBaseURL(u string) Option {
	return func(x *Factory) {
		x.githubBaseURL = u
	}
}

func WithBitbucketBaseURL(u string) Option {
	return func(x *Factory) {
		x.bitbucketBaseURL = u
	}
}

func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(x *Factory) {
		x.lookupEnv = fn
	}
}

// NewFactory returns a factory with the github, bitbucket and git adapters
// registered.
func NewFactory(options ...Option) *Factory {
	x := &Factory{
		constructors: map[types.ProviderKind]Constructor{},
		base:         http.DefaultTransport,
		window:       90 * 24 * time.Hour,
		lookupEnv:    os.LookupEnv,
	}
	for _, opt := range options {
		opt(x)
	}

	x.Register(types.ProviderGitHub, x.newGitHub)
	x.Register(types.ProviderBitbucket, x.newBitbucket)
	x.Register(types.ProviderGit, newGitLocal)
	return x
}

// Register adds or replaces the constructor of kind.
func (x *Factory) Register(kind types.ProviderKind, ctor Constructor) {
	x.constructors[kind] = ctor
}

// Kinds returns the registered provider kinds in name order.
func (x *Factory) Kinds() []types.ProviderKind {
	kinds := make([]types.ProviderKind, 0, len(x.constructors))
	for k := range x.constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (x *Factory) CreateScmAdapter(ctx context.Context, req *model.ScanRequest) (interfaces.ProviderAdapter, error) {
	ctor, ok := x.constructors[req.Provider]
	if !ok {
		return nil, goerr.Wrap(types.ErrConfiguration, "provider is not registered", goerr.V("provider", req.Provider))
	}

	session, err := x.session(ctx, req)
	if err != nil {
		return nil, err
	}

	adapter, err := ctor(ctx, req, session)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create provider adapter", goerr.V("provider", req.Provider))
	}

	logging.From(ctx).Debug("provider adapter created",
		"provider", req.Provider,
		"owner", req.Owner,
		"installation", session.Installation,
	)
	return adapter, nil
}

func (x *Factory) session(ctx context.Context, req *model.ScanRequest) (*Session, error) {
	ref := strings.TrimSpace(req.CredentialsRef)
	session := &Session{ActiveBranchWindow: x.window}

	account := req.Owner
	if ref != "" && ref != credentialsNone {
		account = ref
	}

	var auth http.RoundTripper
	switch {
	case ref == "" || ref == credentialsNone:
		auth = x.base

	case strings.HasPrefix(ref, credentialsEnvPrefix):
		name := strings.TrimPrefix(ref, credentialsEnvPrefix)
		token, ok := x.lookupEnv(name)
		if !ok || token == "" {
			return nil, goerr.Wrap(types.ErrConfiguration, "credential environment variable is not set", goerr.V("name", name))
		}
		auth = &httpclient.BearerAuth{Token: token, Base: x.base}

	case strings.HasPrefix(ref, credentialsInstallation):
		rt, installID, err := x.installationTransport(ctx, req, strings.TrimPrefix(ref, credentialsInstallation))
		if err != nil {
			return nil, err
		}
		auth = rt
		// keyed on the resolved ID: one installation is one request budget
		account = credentialsInstallation + strconv.FormatInt(int64(installID), 10)
		session.Installation = true

	default:
		return nil, goerr.Wrap(types.ErrConfiguration, "unsupported credentials reference",
			goerr.V("provider", req.Provider),
			goerr.V("scheme", strings.SplitN(ref, ":", 2)[0]),
		)
	}

	opts := append([]httpclient.Option{httpclient.WithLimiter(x.limits.Limiter(req.Provider, account))}, x.transport...)
	session.HTTPClient = httpclient.NewClient(auth, opts...)
	return session, nil
}

func (x *Factory) installationTransport(ctx context.Context, req *model.ScanRequest, v string) (http.RoundTripper, types.GitHubAppInstallID, error) {
	if req.Provider != types.ProviderGitHub {
		return nil, 0, goerr.Wrap(types.ErrConfiguration, "installation credentials are only for GitHub", goerr.V("provider", req.Provider))
	}
	if x.ghApp == nil {
		return nil, 0, goerr.Wrap(types.ErrConfiguration, "GitHub App is not configured")
	}

	var installID types.GitHubAppInstallID
	if v == installationAuto {
		id, err := x.ghApp.InstallationID(ctx, req.Owner)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to resolve installation", goerr.V("owner", req.Owner))
		}
		installID = id
	} else {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, 0, goerr.Wrap(types.ErrConfiguration, "invalid installation ID", goerr.V("value", v))
		}
		installID = types.GitHubAppInstallID(id)
	}

	client, err := x.ghApp.HTTPClient(installID)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create installation client", goerr.V("installID", installID))
	}
	if client.Transport == nil {
		return http.DefaultTransport, installID, nil
	}
	return client.Transport, installID, nil
}

func (x *Factory) newGitHub(ctx context.Context, req *model.ScanRequest, s *Session) (interfaces.ProviderAdapter, error) {
	opts := []github.Option{github.WithActiveBranchWindow(s.ActiveBranchWindow)}
	if x.githubBaseURL != "" {
		opts = append(opts, github.WithBaseURL(x.githubBaseURL))
	}
	if s.Installation {
		opts = append(opts, github.WithInstallation())
	}
	adapter, err := github.New(s.HTTPClient, opts...)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func (x *Factory) newBitbucket(ctx context.Context, req *model.ScanRequest, s *Session) (interfaces.ProviderAdapter, error) {
	opts := []bitbucket.Option{bitbucket.WithActiveBranchWindow(s.ActiveBranchWindow)}
	if x.bitbucketBaseURL != "" {
		opts = append(opts, bitbucket.WithBaseURL(x.bitbucketBaseURL))
	}
	return bitbucket.New(s.HTTPClient, opts...), nil
}

func newGitLocal(ctx context.Context, req *model.ScanRequest, s *Session) (interfaces.ProviderAdapter, error) {
	return gitlocal.New(gitlocal.WithActiveBranchWindow(s.ActiveBranchWindow)), nil
}
