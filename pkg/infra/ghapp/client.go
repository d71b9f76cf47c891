package ghapp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type Client struct {
	appID   types.GitHubAppID
	pem     types.GitHubAppPrivateKey
	baseURL string
}

var _ interfaces.GitHubApp = (*Client)(nil)

type Option func(*Client)

// WithBaseURL points the App API calls at a GitHub Enterprise or test server.
func WithBaseURL(baseURL string) Option {
	return func(x *Client) {
		x.baseURL = baseURL
	}
}

func New(appID types.GitHubAppID, pem types.GitHubAppPrivateKey, options ...Option) (*Client, error) {
	if appID == 0 {
		return nil, goerr.Wrap(types.ErrInvalidOption, "appID is empty")
	}
	if pem == "" {
		return nil, goerr.Wrap(types.ErrInvalidOption, "pem is empty")
	}

	client := &Client{
		appID: appID,
		pem:   pem,
	}
	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// HTTPClient returns a client authenticated as the installation. Tokens are
// refreshed by the transport.
func (x *Client) HTTPClient(installID types.GitHubAppInstallID) (*http.Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, int64(x.appID), int64(installID), []byte(x.pem))
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to create github installation transport",
			goerr.V("installID", installID),
			goerr.V("cause", err.Error()),
		)
	}
	if x.baseURL != "" {
		itr.BaseURL = x.baseURL
	}

	return &http.Client{Transport: itr}, nil
}

func (x *Client) buildAppClient() (*github.Client, error) {
	itr, err := ghinstallation.NewAppsTransport(http.DefaultTransport, int64(x.appID), []byte(x.pem))
	if err != nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "failed to create app transport", goerr.V("cause", err.Error()))
	}

	client := github.NewClient(&http.Client{Transport: itr})
	if x.baseURL != "" {
		itr.BaseURL = x.baseURL
		enterprise, err := client.WithEnterpriseURLs(x.baseURL, x.baseURL)
		if err != nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "invalid GitHub base URL", goerr.V("url", x.baseURL))
		}
		client = enterprise
	}
	return client, nil
}

// InstallationID finds the installation of the App for an organization or a
// user account.
func (x *Client) InstallationID(ctx context.Context, owner string) (types.GitHubAppInstallID, error) {
	client, err := x.buildAppClient()
	if err != nil {
		return 0, err
	}

	// Try organization installation first
	installation, resp, orgErr := client.Apps.FindOrganizationInstallation(ctx, owner)
	if orgErr == nil && installation != nil {
		logging.From(ctx).Info("Found organization installation",
			slog.String("owner", owner),
			slog.Int64("installID", installation.GetID()),
		)
		return types.GitHubAppInstallID(installation.GetID()), nil
	}

	// If not found as org (404), try user installation
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		installation, _, userErr := client.Apps.FindUserInstallation(ctx, owner)
		if userErr != nil {
			return 0, goerr.Wrap(types.ErrPersistentProvider, "failed to find user installation for owner",
				goerr.V("owner", owner),
				goerr.V("cause", userErr.Error()),
			)
		}

		if installation != nil {
			logging.From(ctx).Info("Found user installation",
				slog.String("owner", owner),
				slog.Int64("installID", installation.GetID()),
			)
			return types.GitHubAppInstallID(installation.GetID()), nil
		}
	}

	// If org lookup failed with non-404 error, propagate it
	if orgErr != nil {
		return 0, goerr.Wrap(types.ErrTransientProvider, "failed to find organization installation for owner",
			goerr.V("owner", owner),
			goerr.V("cause", orgErr.Error()),
		)
	}

	return 0, goerr.Wrap(types.ErrConfiguration, "installation not found for owner",
		goerr.V("owner", owner),
	)
}
