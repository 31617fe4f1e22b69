package notify

import (
	"context"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
	"github.com/themadjocker/cryo-vault-backend-api/internal/metrics"
)

// Sink delivers encoded events to one push channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 2 * time.Second
)

// Dispatcher queues events and hands them to every sink from a single
// goroutine, so sinks observe events in publish order. Publish never blocks;
// when the queue is full the event is dropped and counted.
type Dispatcher struct {
	queue       chan domain.Event
	sinks       []Sink
	logger      log.Logger
	sendTimeout time.Duration
}

func NewDispatcher(queueSize int, logger log.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{
		queue:       make(chan domain.Event, queueSize),
		sinks:       sinks,
		logger:      logger.WithName("notify"),
		sendTimeout: defaultSendTimeout,
	}
}

func (d *Dispatcher) Publish(_ context.Context, evt domain.Event) {
	select {
	case d.queue <- evt:
	default:
		metrics.EventsDropped.Inc()
		d.logger.Warn("event queue full, dropping event", "type", evt.Type, "slotId", evt.SlotID)
	}
}

// Run delivers queued events until ctx is cancelled, then flushes whatever
// is still buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-d.queue:
			d.deliver(ctx, evt)
		case <-ctx.Done():
			d.drain()
			return nil
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	for {
		select {
		case evt := <-d.queue:
			d.deliver(ctx, evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt domain.Event) {
	msg, err := Encode(evt)
	if err != nil {
		d.logger.Error(err, "failed to encode event", "type", evt.Type)
		return
	}
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := sink.Send(sendCtx, msg)
		cancel()
		if err != nil {
			metrics.EventsPublished.WithLabelValues(sink.Name(), "failed").Inc()
			d.logger.Error(err, "event delivery failed", "sink", sink.Name(), "type", msg.Type, "slotId", msg.SlotID)
			continue
		}
		metrics.EventsPublished.WithLabelValues(sink.Name(), "success").Inc()
	}
}
