package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aimecol/hforher/internal/domain"
	"github.com/Aimecol/hforher/internal/notify"
	"github.com/Aimecol/hforher/internal/repository/memory"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
)

func newTestRegistry(cfg Config) (*Registry, *memory.Store) {
	repo := memory.New()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistry(cfg, repo, repo, notify.Discard, l), repo
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("abc-DEF_123"))
	assert.True(t, ValidID(NewID()))
	assert.True(t, ValidID(strings.Repeat("a", 128)))

	assert.False(t, ValidID(""))
	assert.False(t, ValidID(strings.Repeat("a", 129)))
	assert.False(t, ValidID("has space"))
	assert.False(t, ValidID("semi;colon"))
	assert.False(t, ValidID("../etc"))
}

func TestRegistry_GetRejectsBadID(t *testing.T) {
	r, _ := newTestRegistry(Config{})

	_, err := r.Get(context.Background(), "bad id")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegistry_GetReturnsSameSession(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	ctx := context.Background()

	a, err := r.Get(ctx, "sess-1")
	require.NoError(t, err)
	b, err := r.Get(ctx, "sess-1")
	require.NoError(t, err)
	c, err := r.Get(ctx, "sess-2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_LoadsPersistedState(t *testing.T) {
	r, repo := newTestRegistry(Config{})
	ctx := context.Background()
	require.NoError(t, repo.SaveCart(ctx, "sess-1", []domain.CartLine{{ID: "l1", ProductID: "p", VariantID: "v", Quantity: 2}}))
	require.NoError(t, repo.SaveWishlist(ctx, "sess-1", []string{"p9"}))

	s, err := r.Get(ctx, "sess-1")
	require.NoError(t, err)

	assert.Len(t, s.Cart.Items(), 1)
	assert.True(t, s.Wishlist.HasItem("p9"))
}

func TestRegistry_CloseKeepsRecords(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	ctx := context.Background()

	s, err := r.Get(ctx, "sess-1")
	require.NoError(t, err)
	s.Cart.AddItem(ctx, domain.ItemRef{ProductID: "p", VariantID: "v", Name: "Dress"}, 1)
	s.Cart.SetCartOpen(true)

	r.Close("sess-1")
	assert.Zero(t, r.Len())

	again, err := r.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotSame(t, s, again)
	assert.Len(t, again.Cart.Items(), 1)
	assert.False(t, again.Cart.IsOpen())
}

func TestRegistry_IdleExpiry(t *testing.T) {
	r, _ := newTestRegistry(Config{IdleTimeout: 20 * time.Millisecond, CleanupInterval: 5 * time.Millisecond})

	_, err := r.Get(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistry_Flush(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	for _, id := range []string{"a", "b", "c"} {
		_, err := r.Get(context.Background(), id)
		require.NoError(t, err)
	}

	r.Flush()

	assert.Zero(t, r.Len())
}

type failingRepo struct{ *memory.Store }

func (failingRepo) LoadCart(context.Context, string) ([]domain.CartLine, error) {
	return nil, errors.New("connection refused")
}

func TestRegistry_StorageUnavailable(t *testing.T) {
	repo := failingRepo{memory.New()}
	r := NewRegistry(Config{}, repo, repo, notify.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := r.Get(context.Background(), "sess-1")

	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Zero(t, r.Len())
}

func TestRegistry_ConcurrentGetBuildsOnce(t *testing.T) {
	r, _ := newTestRegistry(Config{})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[*Session]struct{}{}
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Get(context.Background(), "shared")
			if err != nil {
				return
			}
			mu.Lock()
			seen[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1)
}

// gatedRepo holds LoadCart for one session id until release is closed.
type gatedRepo struct {
	*memory.Store
	gated   string
	started chan struct{}
	release chan struct{}
	loads   atomic.Int32
}

func newGatedRepo(gated string) *gatedRepo {
	return &gatedRepo{
		Store:   memory.New(),
		gated:   gated,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedRepo) LoadCart(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	if sessionID == g.gated {
		g.loads.Add(1)
		select {
		case g.started <- struct{}{}:
		default:
		}
		<-g.release
	}
	return g.Store.LoadCart(ctx, sessionID)
}

func TestRegistry_SlowLoadDoesNotBlockLiveSessions(t *testing.T) {
	repo := newGatedRepo("cold")
	r := NewRegistry(Config{}, repo, repo, notify.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	warm, err := r.Get(ctx, "warm")
	require.NoError(t, err)

	coldDone := make(chan *Session, 1)
	go func() {
		s, err := r.Get(ctx, "cold")
		if err != nil {
			coldDone <- nil
			return
		}
		coldDone <- s
	}()
	<-repo.started

	warmDone := make(chan *Session, 1)
	go func() {
		s, _ := r.Get(ctx, "warm")
		warmDone <- s
	}()
	select {
	case s := <-warmDone:
		assert.Same(t, warm, s)
	case <-time.After(time.Second):
		close(repo.release)
		t.Fatal("Get of a live session waited on another session's load")
	}

	close(repo.release)
	cold := <-coldDone
	require.NotNil(t, cold)
	assert.Equal(t, "cold", cold.ID)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ConcurrentColdGetsLoadOnce(t *testing.T) {
	repo := newGatedRepo("shared")
	r := NewRegistry(Config{}, repo, repo, notify.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	results := make([]*Session, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = r.Get(context.Background(), "shared")
		}()
	}
	<-repo.started
	// Give the other callers time to queue behind the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	require.NotNil(t, results[0])
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, int32(1), repo.loads.Load())
}

func TestRegistry_LiveSessionsGauge(t *testing.T) {
	r, _ := newTestRegistry(Config{})
	ctx := context.Background()
	before := testutil.ToFloat64(liveSessions)

	_, err := r.Get(ctx, "gauge-a")
	require.NoError(t, err)
	_, err = r.Get(ctx, "gauge-b")
	require.NoError(t, err)
	_, err = r.Get(ctx, "gauge-a")
	require.NoError(t, err)
	assert.Equal(t, before+2, testutil.ToFloat64(liveSessions))

	r.Close("gauge-a")
	assert.Equal(t, before+1, testutil.ToFloat64(liveSessions))

	r.Flush()
	assert.Equal(t, before, testutil.ToFloat64(liveSessions))
}
