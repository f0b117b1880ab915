package workers

import (
	"chat-notify/domain"
	"chat-notify/domain/event"
	"chat-notify/mocks"
	"chat-notify/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDispatcher_PublishesOncePerRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registryMock := mocks.NewMockIRegistry(ctrl)

	e := event.MessageCreated{
		ChatID:    1,
		MessageID: 99,
		SenderID:  5,
		MemberIDs: []domain.UserID{5, 6, 7},
	}

	// Then every member, the sender included, gets exactly one publish
	registryMock.EXPECT().Publish(domain.UserID(5), e).Return(1).Times(1)
	registryMock.EXPECT().Publish(domain.UserID(6), e).Return(1).Times(1)
	registryMock.EXPECT().Publish(domain.UserID(7), e).Return(0).Times(1)

	NewDispatcherWorker(slog.Default(), registryMock, nil).Dispatch(e)
}

func TestDispatcher_DuplicateMembers_PublishOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registryMock := mocks.NewMockIRegistry(ctrl)

	e := event.ChatUpdated{ChatID: 3, MemberIDs: []domain.UserID{6, 6, 7}}

	registryMock.EXPECT().Publish(domain.UserID(6), e).Return(0).Times(1)
	registryMock.EXPECT().Publish(domain.UserID(7), e).Return(0).Times(1)

	NewDispatcherWorker(slog.Default(), registryMock, nil).Dispatch(e)
}

func TestDispatcher_DeliversOnlyToConnectedMembers(t *testing.T) {
	req := require.New(t)

	// Given sessions for users 6 and 7 but none for the sender 5
	registry := runtime.NewRegistry(8)
	six := registry.Subscribe(6)
	seven := registry.Subscribe(7)

	e := event.MessageCreated{
		ChatID:    1,
		MessageID: 99,
		SenderID:  5,
		MemberIDs: []domain.UserID{5, 6, 7},
	}

	worker := NewDispatcherWorker(slog.Default(), registry, nil)
	worker.Dispatch(e)

	// Then each connected member received the event exactly once
	req.Equal(e, <-six.Events())
	req.Equal(e, <-seven.Events())
	req.Empty(six.Events())
	req.Empty(seven.Events())
	req.Equal(0, registry.Sessions(5))
}

func TestDispatcher_Run_PreservesFeedOrder(t *testing.T) {
	req := require.New(t)

	registry := runtime.NewRegistry(8)
	sub := registry.Subscribe(6)

	feed := make(chan event.DomainEvent, 4)
	worker := NewDispatcherWorker(slog.Default(), registry, feed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		req.NoError(worker.Run(ctx))
		close(done)
	}()

	// When three events enter the feed in order
	for i := int64(1); i <= 3; i++ {
		feed <- event.MessageCreated{
			ChatID:    1,
			MessageID: domain.MessageID(i),
			SenderID:  5,
			MemberIDs: []domain.UserID{6},
		}
	}

	// Then the session sees them in the same order
	for i := int64(1); i <= 3; i++ {
		received := <-sub.Events()
		req.Equal(domain.MessageID(i), received.(event.MessageCreated).MessageID)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Dispatcher should stop on context cancel")
	}
}

func TestDispatcher_Run_StopsOnClosedFeed(t *testing.T) {
	req := require.New(t)

	feed := make(chan event.DomainEvent)
	close(feed)

	worker := NewDispatcherWorker(slog.Default(), runtime.NewRegistry(1), feed)
	req.NoError(worker.Run(context.Background()))
}
