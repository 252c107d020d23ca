package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return NewHeaderCarrier(&msg.Headers).Get(key)
}

// --- Event ---

func TestNewEvent_Fields(t *testing.T) {
	type orderData struct {
		OrderID string `json:"order_id"`
		Amount  int64  `json:"amount"`
	}

	event, err := NewEvent("order.created", "cs_test_1", "order", "storefront-api", orderData{OrderID: "cs_test_1", Amount: 3550})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "order.created", event.EventType)
	assert.Equal(t, "cs_test_1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got orderData
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, int64(3550), got.Amount)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("order.created", "cs_1", "order", "storefront-api", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.created")
}

func TestEvent_MetadataAndCorrelation(t *testing.T) {
	e := &Event{}
	e.WithCorrelationID("corr-1").WithMetadata("shipping_method", "special_delivery_guaranteed_by_1pm")

	raw, err := e.Marshal()
	require.NoError(t, err)
	var back Event
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "corr-1", back.CorrelationID)
	assert.Equal(t, "special_delivery_guaranteed_by_1pm", back.Metadata["shipping_method"])
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.order.created", Topic("order", "created"))
	assert.Equal(t, "storefront.checkout.session_created", Topic("checkout", "session_created"))
}

// --- Producer ---

func TestProducer_PublishWritesEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, nil)

	event, err := NewEvent("order.created", "cs_test_1", "order", "storefront-api", map[string]int{"amount": 3550})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	topic := Topic("order", "created")
	before := testutil.ToFloat64(producerMessagesPublished.WithLabelValues(topic))
	require.NoError(t, p.Publish(context.Background(), topic, event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, "cs_test_1", string(msg.Key))
	assert.Equal(t, "order.created", header(msg, "event_type"))
	assert.Equal(t, "storefront-api", header(msg, "source"))
	assert.Equal(t, "corr-9", header(msg, "correlation_id"))
	assert.Equal(t, before+1, testutil.ToFloat64(producerMessagesPublished.WithLabelValues(topic)))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, nil)

	event, err := NewEvent("order.created", "cs_1", "order", "storefront-api", nil)
	require.NoError(t, err)

	topic := Topic("order", "created-error-test")
	err = p.Publish(context.Background(), topic, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, float64(1), testutil.ToFloat64(producerPublishErrors.WithLabelValues(topic)))
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewProducerWithWriter(w, nil, nil).Close())
	assert.True(t, w.closed)
}

func TestNewProducer_DoesNotConnect(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), nil)
	require.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

// --- HeaderCarrier ---

func TestHeaderCarrier_SetGetKeys(t *testing.T) {
	var headers []kafka.Header
	c := NewHeaderCarrier(&headers)

	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	c.Set("baggage", "k=v")

	assert.Equal(t, "b", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
	assert.Len(t, headers, 2)
}

func TestHeaderCarrier_TraceContextRoundTrip(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var headers []kafka.Header
	prop := propagation.TraceContext{}
	prop.Inject(ctx, NewHeaderCarrier(&headers))

	out := trace.SpanContextFromContext(prop.Extract(context.Background(), NewHeaderCarrier(&headers)))
	assert.Equal(t, traceID, out.TraceID())
}
