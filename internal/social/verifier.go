// Package social verifies third-party identity-provider tokens and
// normalizes them into a SocialPayload. Providers return identity facts
// only; account creation and linking stay in the orchestrator.
package social

import (
	"context"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
)

// Verifier validates an opaque provider token and returns the verified
// identity tuple.
type Verifier interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string
	// Verify checks the provider token and returns the normalized payload.
	Verify(ctx context.Context, rawToken string) (*model.SocialPayload, error)
}

// Registry holds the closed set of configured providers. Adding a provider
// means adding an implementation and a registry entry; there is no runtime
// discovery.
type Registry struct {
	providers map[string]Verifier
}

// NewRegistry registers the given providers by name.
func NewRegistry(list ...Verifier) *Registry {
	m := make(map[string]Verifier, len(list))
	for _, v := range list {
		m[v.Name()] = v
	}
	return &Registry{providers: m}
}

// Verify dispatches to the named provider. An unknown provider fails
// immediately without touching the network.
func (r *Registry) Verify(ctx context.Context, provider, rawToken string) (*model.SocialPayload, error) {
	v, ok := r.providers[provider]
	if !ok {
		return nil, errs.ErrSocialProviderUnknown
	}
	return v.Verify(ctx, rawToken)
}
