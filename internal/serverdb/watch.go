package serverdb

import "sync"

// broker fans out change notifications per document key. Each subscriber
// channel has a one-slot buffer so bursts of writes coalesce into a single
// pending signal and publishers never block.
type broker struct {
	mu     sync.Mutex
	subs   map[string]map[*watcher]struct{}
	closed bool
}

type watcher struct {
	ch   chan struct{}
	once sync.Once
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[*watcher]struct{})}
}

func (b *broker) subscribe(key string) (<-chan struct{}, func()) {
	w := &watcher{ch: make(chan struct{}, 1)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(w.ch)
		return w.ch, func() {}
	}
	set := b.subs[key]
	if set == nil {
		set = make(map[*watcher]struct{})
		b.subs[key] = set
	}
	set[w] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		w.once.Do(func() {
			b.mu.Lock()
			if set := b.subs[key]; set != nil {
				delete(set, w)
				if len(set) == 0 {
					delete(b.subs, key)
				}
			}
			b.mu.Unlock()
			close(w.ch)
		})
	}
	return w.ch, cancel
}

func (b *broker) publish(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.subs[key] {
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (b *broker) closeAll() {
	b.mu.Lock()
	var all []*watcher
	for _, set := range b.subs {
		for w := range set {
			all = append(all, w)
		}
	}
	b.subs = make(map[string]map[*watcher]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, w := range all {
		w.once.Do(func() { close(w.ch) })
	}
}

// JourneyDocKey names a journey document for Watch.
func JourneyDocKey(userID, journeyKey string) string {
	return "journey/" + userID + "/" + journeyKey
}

// SubscriptionDocKey names a subscription document for Watch.
func SubscriptionDocKey(userID string) string {
	return "subscription/" + userID
}

// Watch returns a channel that receives a signal after every committed write
// to the document named by docKey. The channel is closed when cancel is
// called or the database is closed. cancel may be called more than once.
func (db *ServerDB) Watch(docKey string) (<-chan struct{}, func()) {
	return db.broker.subscribe(docKey)
}
