package publishers

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Builder creates a Publisher from a validated config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders. It is populated before use and
// read-only afterwards.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry holding the given builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows every sink type shipped with this package.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	})
}

// Register adds or replaces the builder for typ.
func (r *Registry) Register(typ string, b Builder) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" || b == nil {
		return
	}
	r.builders[typ] = b
}

// Types lists registered publisher types.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.builders))
	for typ := range r.builders {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Build creates the publisher for cfg.
func (r *Registry) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	b, ok := r.builders[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("publisher %q: no builder for type %q (known: %s)", cfg.ID, cfg.Type, strings.Join(r.Types(), ", "))
	}
	pub, err := b(ctx, cfg, ensureLogger(log))
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return pub, nil
}

// BuildAll creates publishers for cfgs. Publishers built before a failure
// are closed.
func BuildAll(ctx context.Context, reg *Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(pubs).Close()
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
