package workers

import (
	"chat-notify/domain"
	"chat-notify/domain/event"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newFeedWorker(events chan<- event.DomainEvent) *ChangeFeedWorker {
	return NewChangeFeedWorker(slog.Default(), "postgres://unused", nil,
		events, 100*time.Millisecond, time.Second)
}

func TestChangeFeed_Handle_ForwardsDecodedEvent(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 1)
	worker := newFeedWorker(events)

	worker.handle(context.Background(), &pgconn.Notification{
		Channel: "chat_message_created",
		Payload: `{"v":1,"kind":"message_created","chat_id":1,"message_id":99,"sender_id":5,"member_ids":[5,6,7]}`,
	})

	req.Len(events, 1)
	req.Equal(event.MessageCreated{
		ChatID:    1,
		MessageID: 99,
		SenderID:  5,
		MemberIDs: []domain.UserID{5, 6, 7},
	}, <-events)
}

func TestChangeFeed_Handle_SkipsUnknownKind(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 1)
	worker := newFeedWorker(events)

	worker.handle(context.Background(), &pgconn.Notification{
		Channel: "chat_updated",
		Payload: `{"v":1,"kind":"chat_archived","chat_id":3}`,
	})

	req.Empty(events)
}

func TestChangeFeed_Handle_DropsMalformedPayload(t *testing.T) {
	req := require.New(t)
	events := make(chan event.DomainEvent, 1)
	worker := newFeedWorker(events)

	// Given garbage on the wire, then the next notification still flows
	worker.handle(context.Background(), &pgconn.Notification{
		Channel: "chat_updated",
		Payload: "not json",
	})
	req.Empty(events)

	worker.handle(context.Background(), &pgconn.Notification{
		Channel: "chat_updated",
		Payload: `{"v":1,"kind":"chat_updated","chat_id":3,"member_ids":[1,2]}`,
	})
	req.Len(events, 1)
}

func TestChangeFeed_Handle_StopsForwardingWhenCanceled(t *testing.T) {
	req := require.New(t)

	// Given a full, undrained feed channel
	events := make(chan event.DomainEvent)
	worker := newFeedWorker(events)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		worker.handle(ctx, &pgconn.Notification{
			Channel: "chat_updated",
			Payload: `{"v":1,"kind":"chat_updated","chat_id":3,"member_ids":[1]}`,
		})
		close(done)
	}()

	select {
	case <-done:
		// Then handle gave up instead of blocking forever
	case <-time.After(500 * time.Millisecond):
		req.Fail("handle should return once the context is canceled")
	}
}

func TestChangeFeed_NextBackoff_DoublesUpToLimit(t *testing.T) {
	req := require.New(t)

	req.Equal(time.Second, nextBackoff(500*time.Millisecond, 30*time.Second))
	req.Equal(2*time.Second, nextBackoff(time.Second, 30*time.Second))
	req.Equal(30*time.Second, nextBackoff(16*time.Second, 30*time.Second))
	req.Equal(30*time.Second, nextBackoff(30*time.Second, 30*time.Second))
}

func TestChangeFeed_Run_StopsOnCanceledContext(t *testing.T) {
	req := require.New(t)
	worker := newFeedWorker(make(chan event.DomainEvent, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(worker.Run(ctx), context.Canceled)
}

func TestSleep_ReportsCancellation(t *testing.T) {
	req := require.New(t)

	req.True(sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.False(sleep(ctx, time.Minute))
}
