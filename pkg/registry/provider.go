package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cyclus/dbtypes/internal/source"
)

// Provider builds a registry from a source on first use and caches it.
// Concurrent first calls share a single build. A failed build is not
// cached, so a later call retries.
type Provider struct {
	src  Source
	opts []Option

	group singleflight.Group
	mu    sync.RWMutex
	reg   *Registry
}

// NewProvider returns a provider for src.
func NewProvider(src Source, opts ...Option) *Provider {
	return &Provider{src: src, opts: opts}
}

// Get returns the cached registry, building it if needed.
func (p *Provider) Get(ctx context.Context) (*Registry, error) {
	p.mu.RLock()
	reg := p.reg
	p.mu.RUnlock()
	if reg != nil {
		return reg, nil
	}

	v, err, _ := p.group.Do(p.src.Name(), func() (interface{}, error) {
		p.mu.RLock()
		cached := p.reg
		p.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		built, err := Load(ctx, p.src, p.opts...)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.reg = built
		p.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Registry), nil
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry built from the embedded table.
// It panics if the embedded table cannot be loaded.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Load(context.Background(), source.Embedded())
		if err != nil {
			panic("registry: failed to load embedded table: " + err.Error())
		}
		defaultReg = reg
	})
	return defaultReg
}
