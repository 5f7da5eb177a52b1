package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/Aimecol/hforher/pkg/httpclient"
)

// Source supplies catalog snapshots.
type Source interface {
	Load(ctx context.Context) (Data, error)
	Name() string
}

//go:embed seed/catalog.json
var seedJSON []byte

// EmbeddedSource serves the seed catalog compiled into the binary.
type EmbeddedSource struct{}

// Name implements Source.
func (EmbeddedSource) Name() string { return "embedded" }

// Load implements Source.
func (EmbeddedSource) Load(context.Context) (Data, error) {
	return Decode(seedJSON)
}

// Decode parses a catalog document.
func Decode(b []byte) (Data, error) {
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("decode catalog: %w", err)
	}
	return d, nil
}

// HTTPSource fetches the catalog document from a remote URL through a
// circuit breaker.
type HTTPSource struct {
	client *httpclient.BreakerClient
	url    string
}

// NewHTTPSource creates a remote source.
func NewHTTPSource(client *httpclient.BreakerClient, url string) *HTTPSource {
	return &HTTPSource{client: client, url: url}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Load implements Source.
func (s *HTTPSource) Load(ctx context.Context) (Data, error) {
	var d Data
	if err := s.client.GetJSON(ctx, s.url, &d); err != nil {
		return Data{}, fmt.Errorf("fetch catalog: %w", err)
	}
	return d, nil
}

// Load builds a catalog from src.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(data)
}

// Refresh reloads the catalog from src every interval until ctx is done. A
// failed reload keeps the previous snapshot.
func (c *Catalog) Refresh(ctx context.Context, src Source, interval time.Duration, l *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := src.Load(ctx)
			if err == nil {
				err = c.Replace(data)
			}
			if err != nil {
				l.WarnContext(ctx, "catalog refresh failed, keeping previous snapshot",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()),
				)
				continue
			}
			l.DebugContext(ctx, "catalog refreshed",
				slog.String("source", src.Name()),
				slog.Int("products", c.Len()),
			)
		}
	}
}
