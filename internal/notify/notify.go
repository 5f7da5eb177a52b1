// Package notify delivers user-facing toasts raised by store mutations.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/pkg/logger"
)

// Notifier accepts toasts. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Sink forwards toasts to an external system such as Kafka.
type Sink interface {
	PublishNotification(ctx context.Context, sessionID string, n domain.Notification) error
}

// Dispatcher logs every toast, appends it to the request's Collector when
// one is present, and forwards it to the optional sink in the background.
type Dispatcher struct {
	logger      *slog.Logger
	sink        Sink
	sinkTimeout time.Duration
	wg          sync.WaitGroup
}

// NewDispatcher creates a dispatcher. sink may be nil.
func NewDispatcher(l *slog.Logger, sink Sink) *Dispatcher {
	return &Dispatcher{logger: l, sink: sink, sinkTimeout: 5 * time.Second}
}

// Notify implements Notifier.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	level := slog.LevelInfo
	if n.Severity == domain.SeverityWarning || n.Severity == domain.SeverityError {
		level = slog.LevelWarn
	}
	logger.WithContext(ctx, d.logger).LogAttrs(ctx, level, "notification",
		slog.String("title", n.Title),
		slog.String("description", n.Description),
		slog.String("severity", string(n.Severity)),
	)

	if c := FromContext(ctx); c != nil {
		c.Notify(ctx, n)
	}

	if d.sink == nil {
		return
	}

	sessionID := logger.SessionIDFromContext(ctx)
	sinkCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(sinkCtx, d.sinkTimeout)
		defer cancel()
		if err := d.sink.PublishNotification(ctx, sessionID, n); err != nil {
			d.logger.WarnContext(ctx, "failed to forward notification",
				slog.String("title", n.Title),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until in-flight sink deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Collector gathers the toasts raised while serving one request.
type Collector struct {
	mu    sync.Mutex
	items []domain.Notification
}

// Notify implements Notifier.
func (c *Collector) Notify(_ context.Context, n domain.Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

// Drain returns the collected toasts and resets the collector.
func (c *Collector) Drain() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

// Len reports how many toasts are waiting.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type collectorKey struct{}

// WithCollector returns a context carrying a fresh Collector.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// FromContext returns the request's Collector, or nil.
func FromContext(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}

// Discard drops every toast.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, domain.Notification) {}
