package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/sutra/internal/localstore"
	"github.com/marcus/sutra/internal/subscription"
	"github.com/marcus/sutra/internal/syncclient"
)

// SubscriptionSource fetches the caller's subscription, creating the trial
// on first use.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context) (*syncclient.SubscriptionResponse, error)
}

// Gate is the subscription access gate. It derives the view from the last
// known record against the current clock, so a trial that runs out during a
// session closes the gate without another fetch.
type Gate struct {
	local  *localstore.Store
	remote SubscriptionSource
	log    *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	rec     *subscription.Record
	offline bool
}

// NewGate returns a gate backed by remote with a local cache. logger may be nil.
func NewGate(local *localstore.Store, remote SubscriptionSource, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{local: local, remote: remote, log: logger, now: time.Now}
}

// Refresh fetches the record from the server and caches it. When the server
// is unreachable the cached record is used instead and Offline reports true.
// An unauthorized response is returned as is and never falls back.
func (g *Gate) Refresh(ctx context.Context) (subscription.View, error) {
	resp, err := g.remote.GetSubscription(ctx)
	if err == nil {
		g.mu.Lock()
		rec := resp.Record
		g.rec = &rec
		g.offline = false
		g.mu.Unlock()
		if err := g.saveCache(rec); err != nil {
			g.log.Warn("cache subscription", "err", err)
		}
		return g.View(), nil
	}
	if errors.Is(err, syncclient.ErrUnauthorized) {
		return subscription.None(), err
	}

	cached, cerr := g.loadCache()
	if cerr != nil || cached == nil {
		if cerr != nil {
			g.log.Warn("read cached subscription", "err", cerr)
		}
		return subscription.None(), fmt.Errorf("load subscription: %w", err)
	}
	g.log.Warn("subscription server unreachable, using cached record", "err", err)
	g.mu.Lock()
	g.rec = cached
	g.offline = true
	g.mu.Unlock()
	return g.View(), nil
}

// View derives the current view. It is the signed-out view until Refresh
// has succeeded once.
func (g *Gate) View() subscription.View {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rec == nil {
		return subscription.None()
	}
	return subscription.Derive(*g.rec, g.now())
}

// CanEditJourney reports whether journey edits are currently allowed.
func (g *Gate) CanEditJourney() bool {
	return g.View().CanEditJourney
}

// Offline reports whether the view came from the local cache.
func (g *Gate) Offline() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.offline
}

// Apply records a subscription pushed by the server.
func (g *Gate) Apply(resp *syncclient.SubscriptionResponse) error {
	if resp == nil {
		return nil
	}
	g.mu.Lock()
	rec := resp.Record
	g.rec = &rec
	g.offline = false
	g.mu.Unlock()
	return g.saveCache(rec)
}

func (g *Gate) saveCache(rec subscription.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return g.local.Set(subscription.StorageKey, data)
}

func (g *Gate) loadCache() (*subscription.Record, error) {
	data, ok, err := g.local.Get(subscription.StorageKey)
	if err != nil || !ok {
		return nil, err
	}
	var rec subscription.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cached subscription: %w", err)
	}
	return &rec, nil
}
