// Package journey holds the client-side session state for a journey: the
// progress document mirrored between the local store and the server, and the
// subscription gate that decides whether it may be edited.
package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/sutra/internal/localstore"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/syncclient"
)

// ErrReadOnly is returned by Dispatch for journey edits while the trial has
// ended and no subscription is active.
var ErrReadOnly = errors.New("journey is read-only until you subscribe")

// DefaultRemoteTimeout bounds each background remote write.
const DefaultRemoteTimeout = 10 * time.Second

// Remote is the server side of the journey document.
type Remote interface {
	GetJourney(ctx context.Context) (*syncclient.JourneyDocument, error)
	PutJourney(ctx context.Context, patch syncclient.JourneyPatch) (*syncclient.JourneyDocument, error)
}

// Access decides whether journey edits are allowed right now.
type Access interface {
	CanEditJourney() bool
}

// Options configures Open. Local is required; a nil Remote keeps the journey
// on this machine only, and a nil Access allows every edit.
type Options struct {
	Local         *localstore.Store
	Remote        Remote
	Access        Access
	Logger        *slog.Logger
	RemoteTimeout time.Duration
}

// Status is the sync banner shown next to the journey.
type Status struct {
	// Online is true once the remote answered and until a remote call fails.
	Online       bool
	LastError    string
	LastSyncedAt time.Time
	Pending      int
}

// Provider owns the in-memory journey state for one session.
type Provider struct {
	local   *localstore.Store
	remote  Remote
	access  Access
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	state  progress.State
	status Status

	// Remote writes go through one writer at a time, which always sends
	// the newest state. seq numbers local edits; acked is the newest edit
	// the server has accepted and pushedAt the updatedAt it stamped.
	outbox    *progress.State
	outboxSeq uint64
	seq       uint64
	acked     uint64
	pushedAt  time.Time
	writing   bool
	writes    sync.WaitGroup
}

// Open hydrates a provider from the local blob and then, when a remote is
// configured, from the remote document. A remote without a document is
// seeded from local state. Remote failures leave the provider usable offline.
func Open(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("journey: local store is required")
	}
	p := &Provider{
		local:   opts.Local,
		remote:  opts.Remote,
		access:  opts.Access,
		log:     opts.Logger,
		timeout: opts.RemoteTimeout,
		state:   progress.Initial(),
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.timeout <= 0 {
		p.timeout = DefaultRemoteTimeout
	}

	if err := p.loadLocal(); err != nil {
		return nil, err
	}
	if p.remote != nil {
		p.pull(ctx)
	}
	return p, nil
}

// loadLocal reads the local blob. A corrupt blob is logged and ignored.
func (p *Provider) loadLocal() error {
	data, ok, err := p.local.Get(progress.StorageKey)
	if err != nil {
		return fmt.Errorf("read local journey: %w", err)
	}
	if !ok {
		return nil
	}
	st, err := progress.Import(data)
	if err != nil {
		p.log.Warn("ignoring unreadable local journey", "err", err)
		return nil
	}
	p.state = st
	return nil
}

// pull replaces local state with the remote document, or seeds the remote
// when it has none.
func (p *Provider) pull(ctx context.Context) {
	doc, err := p.remote.GetJourney(ctx)
	if err != nil {
		p.remoteFailed("load remote journey", err)
		return
	}

	if doc == nil {
		p.mu.Lock()
		seed := p.state.Clone()
		p.mu.Unlock()
		if _, err := p.remote.PutJourney(ctx, syncclient.FullPatch(seed)); err != nil {
			p.remoteFailed("seed remote journey", err)
			return
		}
		p.remoteSucceeded()
		return
	}

	st := doc.State()
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()
	if err := p.saveLocal(st); err != nil {
		p.log.Warn("cache remote journey", "err", err)
	}
	p.remoteSucceeded()
}

// Refresh re-reads the remote document, replacing local state.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.remote == nil {
		return nil
	}
	p.pull(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.Online {
		return errors.New(p.status.LastError)
	}
	return nil
}

// Apply replaces local state with a document pushed by the server. It is
// ignored while local edits are not yet on the server, and when the
// document predates the last write this provider made.
func (p *Provider) Apply(doc *syncclient.JourneyDocument) error {
	if doc == nil {
		return nil
	}
	st := doc.State()
	p.mu.Lock()
	if p.acked < p.seq || doc.UpdatedAt.Before(p.pushedAt) {
		p.mu.Unlock()
		p.log.Debug("ignoring stale journey snapshot", "updated_at", doc.UpdatedAt)
		return nil
	}
	p.state = st
	p.mu.Unlock()
	p.remoteSucceeded()
	return p.saveLocal(st)
}

// State returns a copy of the current state.
func (p *Provider) State() progress.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Status returns the current sync banner.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Dispatch applies a to the state, persists the local blob and starts an
// independent remote write. Journey edits are refused with ErrReadOnly when
// the access gate says no. A failed remote write never rolls back local state.
func (p *Provider) Dispatch(ctx context.Context, a progress.Action) (progress.State, error) {
	if progress.IsJourneyEdit(a) && p.access != nil && !p.access.CanEditJourney() {
		return p.State(), ErrReadOnly
	}

	p.mu.Lock()
	next := progress.Reduce(p.state, a)
	p.state = next
	p.mu.Unlock()

	if err := p.saveLocal(next); err != nil {
		return next.Clone(), err
	}
	if p.remote != nil {
		p.pushAsync(ctx, next)
	}
	return next.Clone(), nil
}

func (p *Provider) saveLocal(st progress.State) error {
	data, err := progress.Export(st)
	if err != nil {
		return fmt.Errorf("encode journey: %w", err)
	}
	if err := p.local.Set(progress.StorageKey, data); err != nil {
		return fmt.Errorf("save journey: %w", err)
	}
	return nil
}

// pushAsync queues st for the remote, replacing any state still waiting,
// and starts the writer if it is idle.
func (p *Provider) pushAsync(ctx context.Context, st progress.State) {
	p.mu.Lock()
	p.seq++
	p.outbox, p.outboxSeq = &st, p.seq
	p.status.Pending = int(p.seq - p.acked)
	start := !p.writing
	if start {
		p.writing = true
		p.writes.Add(1)
	}
	p.mu.Unlock()

	if start {
		go p.writeLoop(context.WithoutCancel(ctx))
	}
}

// writeLoop sends queued states one at a time until the outbox is empty.
// A failed write is not retried; the next edit sends the full state again.
func (p *Provider) writeLoop(ctx context.Context) {
	defer p.writes.Done()
	for {
		p.mu.Lock()
		if p.outbox == nil {
			p.writing = false
			p.mu.Unlock()
			return
		}
		st, seq := *p.outbox, p.outboxSeq
		p.outbox = nil
		p.mu.Unlock()

		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		doc, err := p.remote.PutJourney(wctx, syncclient.FullPatch(st))
		cancel()
		if err != nil {
			p.remoteFailed("save remote journey", err)
			continue
		}

		p.mu.Lock()
		p.acked = seq
		p.status.Pending = int(p.seq - p.acked)
		if doc != nil && doc.UpdatedAt.After(p.pushedAt) {
			p.pushedAt = doc.UpdatedAt
		}
		p.mu.Unlock()
		p.remoteSucceeded()
	}
}

func (p *Provider) remoteFailed(op string, err error) {
	p.log.Warn(op, "err", err)
	p.mu.Lock()
	p.status.Online = false
	p.status.LastError = fmt.Sprintf("%s: %v", op, err)
	p.mu.Unlock()
}

func (p *Provider) remoteSucceeded() {
	p.mu.Lock()
	p.status.Online = true
	p.status.LastError = ""
	p.status.LastSyncedAt = time.Now()
	p.mu.Unlock()
}

// Close waits for in-flight remote writes, or for ctx to end.
func (p *Provider) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("journey: %d remote writes still pending: %w", p.Status().Pending, ctx.Err())
	}
}
