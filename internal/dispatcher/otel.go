package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/pitwall/pitwall/internal/dispatcher"

// metrics are taken from the global meter provider, a no-op unless the
// service configured one.
type metrics struct {
	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter
}

func newMetrics(depths func(observe func(command string, depth int))) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	if out.queueDepth, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered handler's queue")); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(command string, depth int) {
			o.ObserveInt64(out.queueDepth, int64(depth), metric.WithAttributes(attribute.String("command", command)))
		})
		return nil
	}, out.queueDepth)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	if out.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled by buffered handlers")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if out.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events dropped because a queue was full")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return out, nil
}
