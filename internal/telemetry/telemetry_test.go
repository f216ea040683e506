package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
)

func sample() *nudge.Intervention {
	return &nudge.Intervention{
		ID:       "iv-1",
		UserID:   "u1",
		Category: nudge.CategoryMindfulness,
		Urgency:  nudge.UrgencyMedium,
		Channel:  nudge.ChannelPush,
		Title:    "private title",
		Body:     "private body",
	}
}

func TestEventFor_CategoricalOnly(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ev := EventFor(KindDelivered, sample(), at)
	assert.Equal(t, Event{
		Kind:           KindDelivered,
		InterventionID: "iv-1",
		Category:       nudge.CategoryMindfulness,
		Urgency:        nudge.UrgencyMedium,
		Channel:        nudge.ChannelPush,
		At:             at,
	}, ev)
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b}
	m.Emit(context.Background(), Event{Kind: KindAdmitted})
	m.Emit(context.Background(), Event{Kind: KindDelivered})

	assert.Equal(t, []Kind{KindAdmitted, KindDelivered}, a.Kinds())
	assert.Len(t, b.Events(), 2)
	Nop().Emit(context.Background(), Event{})
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := LogSink{Log: logger.FromZap(zap.New(core))}
	ev := EventFor(KindDelivered, sample(), time.Now())
	ev.Latency = 1500 * time.Millisecond
	s.Emit(context.Background(), ev)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "delivered", fields["kind"])
	assert.Equal(t, int64(1500), fields["latency_ms"])
	for _, v := range fields {
		assert.NotEqual(t, "private body", v)
	}
}

func TestTraceSink_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	ev := EventFor(KindRejected, sample(), time.Now())
	ev.Reason = "quiet_hours"
	NewTraceSink(tp).Emit(context.Background(), ev)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "nudge.rejected", spans[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "mindfulness", attrs["nudge.category"])
	assert.Equal(t, "quiet_hours", attrs["nudge.reason"])
	_, hasLatency := attrs["nudge.latency_ms"]
	assert.False(t, hasLatency)
}

func TestInitOTel_Disabled(t *testing.T) {
	shutdown, err := InitOTel(context.Background(), logger.Nop(), OTelConfig{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
