package cart

import (
	"context"
	"fmt"
	"sync"

	"cartflow/pkg/catalog"
	"cartflow/pkg/kv"
	"cartflow/pkg/logger"
	"cartflow/pkg/notify"
)

// Provider hands out one Store per owner, created lazily over shared
// collaborators. It replaces ambient singletons with an explicit handle the
// HTTP layer passes around.
type Provider struct {
	catalog  catalog.Service
	kv       kv.Store
	notifier notify.Notifier
	log      *logger.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewProvider creates a Provider. notifier and log may be nil.
func NewProvider(service catalog.Service, store kv.Store, notifier notify.Notifier, log *logger.Logger) *Provider {
	return &Provider{
		catalog:  service,
		kv:       store,
		notifier: notifier,
		log:      log,
		stores:   make(map[string]*Store),
	}
}

// Store returns the cart store for owner, creating and loading it on first
// use. The same owner always receives the same instance.
func (p *Provider) Store(ctx context.Context, owner string) (*Store, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[owner]; ok {
		return s, nil
	}
	s, err := New(ctx, Config{
		Catalog:  p.catalog,
		KV:       p.kv,
		Notifier: p.notifier,
		Key:      "cart:" + owner,
		Log:      p.log,
	})
	if err != nil {
		return nil, err
	}
	p.stores[owner] = s
	return s, nil
}
