package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/logging"
)

// TablePush is the feed table carrying scheduled push notifications.
const TablePush = "push_notifications"

// Push is a scheduled push notification.
type Push struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
	At       time.Time         `json:"at"`
}

// SendFunc delivers one push.
type SendFunc func(ctx context.Context, p Push) error

// Dispatcher queues pushes and delivers them from a background worker.
// It implements pehub.Dispatcher: Schedule never blocks and a full queue
// drops the push.
type Dispatcher struct {
	send    SendFunc
	logger  *logging.Logger
	timeout time.Duration

	queue chan Push
	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex
	done  bool
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithSender replaces the delivery function.
func WithSender(fn SendFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.send = fn
	}
}

// WithQueueSize sets how many pushes may wait for delivery.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Push, n)
		}
	}
}

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(l *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher starts a dispatcher that by default publishes each push to
// publisher under TablePush, where a delivery worker can pick it up.
func NewDispatcher(publisher pehub.ChangePublisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:  logging.Nop(),
		timeout: 10 * time.Second,
		queue:   make(chan Push, 128),
	}
	if publisher != nil {
		d.send = func(ctx context.Context, p Push) error {
			return publisher.Publish(ctx, TablePush, pehub.EventInsert, p)
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Schedule implements pehub.Dispatcher.
func (d *Dispatcher) Schedule(title, body string, metadata map[string]string) {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	p := Push{Title: title, Body: body, Metadata: md, At: time.Now().UTC()}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.done {
		return
	}
	select {
	case d.queue <- p:
	default:
		d.logger.Warn("push queue full, dropping notification", "title", title)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for p := range d.queue {
		if d.send == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.send(ctx, p); err != nil {
			d.logger.Warn("push delivery failed", "title", p.Title, "error", err)
		}
		cancel()
	}
}

// Close delivers what is queued and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.done = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

var _ pehub.Dispatcher = (*Dispatcher)(nil)
