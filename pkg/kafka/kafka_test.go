package kafka

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aimecol/hforher/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestProducer(w messageWriter) *Producer {
	return &Producer{writer: w, brokers: []string{"localhost:9092"}, logger: logger.NewWithWriter("test", "error", &bytes.Buffer{})}
}

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("cart.updated", "sess-1", "storefront", map[string]int{"total_items": 3})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "cart.updated", e.Type)
	assert.Equal(t, "sess-1", e.Key)
	assert.Equal(t, 1, e.Version)
	assert.False(t, e.Timestamp.IsZero())
	assert.JSONEq(t, `{"total_items":3}`, string(e.Data))
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "k", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_DecodeData(t *testing.T) {
	e, err := NewEvent("order.placed", "sess-1", "storefront", map[string]string{"order_number": "HFH-1"})
	require.NoError(t, err)

	b, err := e.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalEvent(b)
	require.NoError(t, err)

	var payload struct {
		OrderNumber string `json:"order_number"`
	}
	require.NoError(t, decoded.DecodeData(&payload))
	assert.Equal(t, "HFH-1", payload.OrderNumber)
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{"))
	assert.Error(t, err)
}

func TestProducer_PublishKeysAndHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	p := newTestProducer(w)

	e, err := NewEvent("wishlist.updated", "sess-9", "storefront", map[string]int{"count": 1})
	require.NoError(t, err)
	e.CorrelationID = "corr-9"
	require.NoError(t, p.Publish(ctx, "storefront.wishlist.updated", e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "storefront.wishlist.updated", msg.Topic)
	assert.Equal(t, "sess-9", string(msg.Key))

	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "wishlist.updated", carrier.Get("event_type"))
	assert.Equal(t, "corr-9", carrier.Get("correlation_id"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestProducer_PublishError(t *testing.T) {
	p := newTestProducer(&fakeWriter{err: errors.New("leader not available")})

	e, err := NewEvent("cart.cleared", "sess-1", "storefront", struct{}{})
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.cart.cleared", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestProducer(w).Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"a:9092", "b:9092"})
	assert.Len(t, cfg.Brokers, 2)
	assert.Positive(t, cfg.BatchSize)
	assert.Positive(t, cfg.WriteTimeout)
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "1", c.Get("a"))
	assert.Empty(t, c.Get("missing"))

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}
