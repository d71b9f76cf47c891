package ratelimit

import (
	"sync"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"golang.org/x/time/rate"
)

// Limit is a token bucket setting.
type Limit struct {
	PerSecond float64
	Burst     int
}

var (
	// GitHub allows 5000 requests per hour for an installation or a token.
	defaultGitHub    = Limit{PerSecond: 5000.0 / 3600, Burst: 20}
	defaultBitbucket = Limit{PerSecond: 1000.0 / 3600, Burst: 10}
	defaultLimit     = Limit{PerSecond: 10, Burst: 10}
)

// Registry hands out one limiter per provider account. Runs using the same
// account share the limiter and therefore the request budget.
type Registry struct {
	mu       sync.Mutex
	limits   map[types.ProviderKind]Limit
	fallback Limit
	limiters map[key]*rate.Limiter
}

type key struct {
	kind    types.ProviderKind
	account string
}

type Option func(*Registry)

// WithLimit overrides the limit of one provider kind.
func WithLimit(kind types.ProviderKind, limit Limit) Option {
	return func(x *Registry) {
		x.limits[kind] = limit
	}
}

// WithDefaultLimit sets the limit of provider kinds without their own.
func WithDefaultLimit(limit Limit) Option {
	return func(x *Registry) {
		x.fallback = limit
	}
}

func New(options ...Option) *Registry {
	x := &Registry{
		limits: map[types.ProviderKind]Limit{
			types.ProviderGitHub:    defaultGitHub,
			types.ProviderBitbucket: defaultBitbucket,
		},
		fallback: defaultLimit,
		limiters: map[key]*rate.Limiter{},
	}
	for _, opt := range options {
		opt(x)
	}
	return x
}

// Limiter returns the shared limiter of the account. A nil Registry returns
// nil, which means no limit.
func (x *Registry) Limiter(kind types.ProviderKind, account string) *rate.Limiter {
	if x == nil {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	k := key{kind: kind, account: account}
	if l, ok := x.limiters[k]; ok {
		return l
	}

	limit, ok := x.limits[kind]
	if !ok {
		limit = x.fallback
	}
	l := rate.NewLimiter(rate.Limit(limit.PerSecond), limit.Burst)
	x.limiters[k] = l
	return l
}
