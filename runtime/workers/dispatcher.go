package workers

import (
	"chat-notify/contract"
	"chat-notify/domain/event"
	"chat-notify/observability"
	"context"
	"log/slog"
)

// DispatcherWorker is the single consumer of the change feed channel, which
// preserves the database's notification order. For each event it resolves
// the recipient set and publishes once per recipient.
//
// Publish cannot fail from the dispatcher's point of view: absent users and
// full session buffers are silent drops, so nothing here can stall or take
// down the loop.
type DispatcherWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   <-chan event.DomainEvent
}

func NewDispatcherWorker(log *slog.Logger, registry contract.IRegistry,
	events <-chan event.DomainEvent) *DispatcherWorker {
	return &DispatcherWorker{log: log, registry: registry, events: events}
}

func (w *DispatcherWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping dispatcher")
			return nil
		case e, ok := <-w.events:
			if !ok {
				w.log.Debug("Feed channel closed")
				return nil
			}
			w.Dispatch(e)
		}
	}
}

// Dispatch fans one event out to every recipient's sessions.
func (w *DispatcherWorker) Dispatch(e event.DomainEvent) {
	recipients := event.Recipients(e)

	delivered := 0
	for _, userID := range recipients {
		delivered += w.registry.Publish(userID, e)
	}

	observability.EventsDispatched.Inc()
	observability.Deliveries.Add(float64(delivered))
	w.log.Debug("Event dispatched",
		"kind", e.Kind(),
		"chat_id", e.Chat(),
		"recipients", len(recipients),
		"delivered", delivered)
}
