package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const watchCloseWait = time.Second

// Snapshot is one pushed state of a watched document.
type Snapshot[T any] struct {
	// Exists is false until the document has been written once.
	Exists bool
	Data   T
	SentAt time.Time
}

// wireFrame mirrors api.WatchFrame.
type wireFrame struct {
	Type   string          `json:"type"`
	Exists bool            `json:"exists"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// Watch is a live subscription to one server document. Snapshots are
// delivered latest-wins: a slow reader only ever sees the newest state.
type Watch[T any] struct {
	ch     chan Snapshot[T]
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Snapshots returns the channel of pushed snapshots. It is closed when the
// stream ends; check Err afterwards.
func (w *Watch[T]) Snapshots() <-chan Snapshot[T] {
	return w.ch
}

// Err returns the error that ended the stream, or the most recent error frame
// pushed by the server. It is nil after a clean Cancel.
func (w *Watch[T]) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Cancel tears the stream down and waits for the reader to exit. It is safe
// to call more than once and from several goroutines.
func (w *Watch[T]) Cancel() {
	w.once.Do(func() {
		w.cancel()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchCloseWait))
		w.conn.Close()
	})
	<-w.done
}

func (w *Watch[T]) setErr(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

// WatchJourney streams the caller's journey document.
func (c *Client) WatchJourney(ctx context.Context) (*Watch[JourneyDocument], error) {
	return openWatch[JourneyDocument](ctx, c, "/v1/journey/watch")
}

// WatchSubscription streams the caller's subscription. Opening the stream
// starts the trial if the user has none.
func (c *Client) WatchSubscription(ctx context.Context) (*Watch[SubscriptionResponse], error) {
	return openWatch[SubscriptionResponse](ctx, c, "/v1/subscription/watch")
}

func openWatch[T any](ctx context.Context, c *Client, path string) (*Watch[T], error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: not logged in", ErrUnauthorized)
	}
	u, err := c.wsURL(path)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.APIKey)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.HTTP.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, decodeError(resp.StatusCode, body)
		}
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watch[T]{
		ch:     make(chan Snapshot[T], 1),
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Closing the conn unblocks the reader when ctx ends.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go w.read(ctx)
	return w, nil
}

func (w *Watch[T]) read(ctx context.Context) {
	defer close(w.done)
	defer close(w.ch)
	defer w.cancel()

	for {
		var f wireFrame
		if err := w.conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				w.setErr(fmt.Errorf("watch stream: %w", err))
			}
			return
		}

		if f.Error != nil {
			w.setErr(&APIError{Code: f.Error.Code, Message: f.Error.Message})
			continue
		}

		snap := Snapshot[T]{Exists: f.Exists, SentAt: f.SentAt}
		if f.Exists && len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &snap.Data); err != nil {
				w.setErr(fmt.Errorf("decode snapshot: %w", err))
				continue
			}
		}
		w.setErr(nil)

		// Single producer: after draining a stale value the send cannot block.
		select {
		case w.ch <- snap:
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- snap
		}
	}
}
