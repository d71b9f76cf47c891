package types

import "log/slog"

type (
	GitHubAppID         int64
	GitHubAppInstallID  int64
	GitHubAppPrivateKey string
	BranchName          string
	CommitSHA           string
)

func (x GitHubAppPrivateKey) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x GitHubAppPrivateKey) String() string {
	return "***********"
}

// Token is a provider API token resolved from a credentials reference.
type Token string

func (x Token) LogValue() slog.Value {
	return slog.StringValue("***********")
}

func (x Token) String() string {
	return "***********"
}
