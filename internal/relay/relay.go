package relay

import (
	"context"
	"fmt"
	"sort"

	"ImageMigrator/internal/domain"
)

// Relay re-hosts a remote file on a destination service (8upload, etc.).
type Relay interface {
	Name() string
	Upload(ctx context.Context, rawURL string) (domain.UploadResult, error)
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	relays map[string]Relay
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{relays: map[string]Relay{}}
}

// Register adds or replaces a relay implementation.
func (r *Registry) Register(relay Relay) {
	if r.relays == nil {
		r.relays = map[string]Relay{}
	}
	r.relays[relay.Name()] = relay
}

// Resolve returns a relay by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Relay, error) {
	if relay, ok := r.relays[name]; ok {
		return relay, nil
	}
	return nil, fmt.Errorf("upload provider %s is not registered (known: %v)", name, r.Names())
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.relays))
	for name := range r.relays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
