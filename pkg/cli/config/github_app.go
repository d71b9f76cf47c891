package config

import (
	"log/slog"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/ghapp"
	"github.com/urfave/cli/v3"
)

type GitHubApp struct {
	id         types.GitHubAppID
	privateKey types.GitHubAppPrivateKey `masq:"secret"`
}

func (x *GitHubApp) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID, required for installation credentials",
			Category:    "GitHub App",
			Destination: (*int64)(&x.id),
			Sources:     cli.EnvVars("DEVLENS_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App Private Key",
			Category:    "GitHub App",
			Destination: (*string)(&x.privateKey),
			Sources:     cli.EnvVars("DEVLENS_GITHUB_APP_PRIVATE_KEY"),
		},
	}
}

func (x GitHubApp) Enabled() bool {
	return x.id != 0
}

// New returns nil without error when the App is not configured.
func (x GitHubApp) New() (*ghapp.Client, error) {
	if !x.Enabled() {
		return nil, nil
	}
	return ghapp.New(x.id, x.privateKey)
}

func (x GitHubApp) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("ID", int64(x.id)),
		slog.Int("privateKey.len", len(x.privateKey)),
	)
}
