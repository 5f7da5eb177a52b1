// Package store holds the per-session cart and wishlist state. Every
// mutation is written through to a repository; a failed write is reported
// as a warning toast and the in-memory change is kept.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository"
	"github.com/Aimecol/hforher/pkg/logger"
)

// StorageWarning is raised when a mutation could not be persisted.
var StorageWarning = domain.Notification{
	Title:       "Storage Unavailable",
	Description: "Your changes could not be saved and may be lost when you leave",
	Severity:    domain.SeverityWarning,
}

// Option customises a store.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how cart line ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// loadErr classifies a repository load error. Corrupt records are logged and
// replaced by an empty collection; anything else aborts construction.
func loadErr(ctx context.Context, l *slog.Logger, kind string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrCorrupt) {
		logger.WithContext(ctx, l).WarnContext(ctx, "discarding unreadable record",
			slog.String("store", kind),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return err
}

// persistFailed logs a write failure and counts it.
func persistFailed(ctx context.Context, l *slog.Logger, kind, op string, err error) {
	persistFailuresTotal.WithLabelValues(kind).Inc()
	logger.WithContext(ctx, l).WarnContext(ctx, "failed to persist session record",
		slog.String("store", kind),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func emit(ctx context.Context, n notify.Notifier, ns ...domain.Notification) {
	for _, x := range ns {
		n.Notify(ctx, x)
	}
}
