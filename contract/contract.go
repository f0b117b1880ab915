//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-notify/domain"
	"chat-notify/domain/event"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker lifecycle
// events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Subscription is the receive side of one live streaming session.
type Subscription interface {
	ID() uuid.UUID
	UserID() domain.UserID
	Events() <-chan event.DomainEvent
	// Missed returns and resets the number of events evicted from this
	// session's buffer since the last call.
	Missed() uint64
}

// IRegistry maps user ids to their live sessions. Publish must never block:
// no session means silent drop, a full session buffer means drop-oldest.
type IRegistry interface {
	Subscribe(userID domain.UserID) Subscription
	Unsubscribe(sub Subscription)
	Publish(userID domain.UserID, e event.DomainEvent) int
	Sessions(userID domain.UserID) int
}

// TokenVerifier authenticates request credentials. Implemented by the auth
// package; the streaming transport only consumes it.
type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}
