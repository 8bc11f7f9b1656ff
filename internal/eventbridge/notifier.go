package eventbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RevisionFunc reads the revision of the slot that just changed.
type RevisionFunc func(ctx context.Context) int64

// Notifier posts slot_changed events to peer instances after a commit.
// Delivery is best effort: failures are logged and otherwise ignored.
type Notifier struct {
	peers    []string
	origin   string
	key      string
	revision RevisionFunc
	client   *http.Client
	logger   Logger
	clock    func() time.Time
	newID    func() string
}

// NotifierOption customizes a Notifier.
type NotifierOption func(*Notifier)

// NotifierWithClient overrides the HTTP client.
func NotifierWithClient(c *http.Client) NotifierOption {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// NotifierWithLogger routes delivery failures to l.
func NotifierWithLogger(l Logger) NotifierOption {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NotifierWithClock allows tests to control client timestamps.
func NotifierWithClock(clock func() time.Time) NotifierOption {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNotifier builds a notifier announcing changes to key on behalf of origin.
func NewNotifier(settings Settings, origin, key string, revision RevisionFunc, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		peers:    append([]string(nil), settings.Peers...),
		origin:   origin,
		key:      key,
		revision: revision,
		client:   &http.Client{Timeout: settings.NotifyTimeout},
		logger:   nopLogger{},
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
	if n.client.Timeout <= 0 {
		n.client.Timeout = DefaultNotifyTimeout
	}
	if n.revision == nil {
		n.revision = func(context.Context) int64 { return 0 }
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Peers returns the configured peer base URLs.
func (n *Notifier) Peers() []string {
	return append([]string(nil), n.peers...)
}

// SlotChanged announces the current revision to every peer in parallel and
// waits for all deliveries to finish.
func (n *Notifier) SlotChanged(ctx context.Context) {
	if n == nil || len(n.peers) == 0 {
		return
	}
	evt := Event{
		Version:    EventSchemaVersion,
		EventID:    n.newID(),
		Type:       TypeSlotChanged,
		Key:        n.key,
		Revision:   n.revision(ctx),
		Origin:     n.origin,
		ClientTime: n.clock().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Printf("eventbridge: encode event: %v", err)
		return
	}
	var wg sync.WaitGroup
	for _, peer := range n.peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			if err := n.post(ctx, peer, body); err != nil {
				n.logger.Printf("eventbridge: notify %s: %v", peer, err)
			}
		}(peer)
	}
	wg.Wait()
}

func (n *Notifier) post(ctx context.Context, peer string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer+"/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
