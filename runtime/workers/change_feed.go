package workers

import (
	"chat-notify/domain/event"
	apperrors "chat-notify/errors"
	"chat-notify/observability"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ChangeFeedWorker holds one long-lived connection to Postgres and LISTENs
// on the chat server's notification channels. Decoded events are forwarded
// to the dispatcher in arrival order; there is no reordering buffer.
//
// On connection loss it reconnects with exponential backoff. Notifications
// emitted while disconnected are lost: at-most-once is the accepted
// tradeoff, there is no replay log. The supervisor additionally restarts the
// worker if it ever panics.
type ChangeFeedWorker struct {
	log        *slog.Logger
	dbURL      string
	channels   []string
	events     chan<- event.DomainEvent
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewChangeFeedWorker(log *slog.Logger, dbURL string, channels []string,
	events chan<- event.DomainEvent, minBackoff, maxBackoff time.Duration) *ChangeFeedWorker {
	return &ChangeFeedWorker{
		log:        log,
		dbURL:      dbURL,
		channels:   channels,
		events:     events,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

func (w *ChangeFeedWorker) Run(ctx context.Context) error {
	backoff := w.minBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := pgx.Connect(ctx, w.dbURL)
		if err != nil {
			observability.FeedReconnects.Inc()
			w.log.Warn("Change feed connection failed, retrying",
				"error", err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, w.maxBackoff)
			continue
		}

		backoff = w.minBackoff
		err = w.listen(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return ctx.Err()
		}

		observability.FeedReconnects.Inc()
		w.log.Warn("Change feed connection lost, reconnecting",
			"error", err, "backoff", backoff)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, w.maxBackoff)
	}
}

func (w *ChangeFeedWorker) listen(ctx context.Context, conn *pgx.Conn) error {
	for _, channel := range w.channels {
		if _, err := conn.Exec(ctx, "listen "+pgx.Identifier{channel}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", channel, err)
		}
	}
	w.log.Info("Change feed listening", "channels", strings.Join(w.channels, ","))

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		w.handle(ctx, notification)
	}
}

// handle decodes one raw notification. A malformed payload is logged and
// dropped without terminating the connection; unknown kinds and future
// versions are skipped quietly so trigger changes on the chat server side
// never break this service.
func (w *ChangeFeedWorker) handle(ctx context.Context, n *pgconn.Notification) {
	observability.FeedEventsReceived.WithLabelValues(n.Channel).Inc()

	e, err := event.Decode([]byte(n.Payload))
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUnknownEventKind),
		errors.Is(err, apperrors.ErrUnsupportedVersion):
		observability.FeedUnknownEvents.Inc()
		w.log.Debug("Skipping notification", "channel", n.Channel, "reason", err)
		return
	default:
		observability.FeedDecodeFailures.Inc()
		w.log.Error("Dropping malformed notification", "channel", n.Channel, "error", err)
		return
	}

	select {
	case <-ctx.Done():
	case w.events <- e:
	}
}

// sleep waits for d or until ctx is canceled; reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	current *= 2
	if current > limit {
		return limit
	}
	return current
}
