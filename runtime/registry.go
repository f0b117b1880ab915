// Package runtime owns the shared state between the dispatch pipeline and
// the streaming sessions. It contains no business rules; it moves events.
package runtime

import (
	"chat-notify/contract"
	"chat-notify/domain"
	"chat-notify/domain/event"
	"chat-notify/observability"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const shardCount = 32

// Subscription is the receive side of one streaming session. The dispatcher
// writes into its bounded buffer through Registry.Publish; the session drains
// it. When the buffer is full the oldest event is evicted and the missed
// counter grows, so a slow client sees a gap instead of stalling anyone.
type Subscription struct {
	id     uuid.UUID
	userID domain.UserID
	events chan event.DomainEvent
	missed atomic.Uint64
}

func (s *Subscription) ID() uuid.UUID                    { return s.id }
func (s *Subscription) UserID() domain.UserID            { return s.userID }
func (s *Subscription) Events() <-chan event.DomainEvent { return s.events }

// Missed returns and resets the eviction count since the last call.
func (s *Subscription) Missed() uint64 { return s.missed.Swap(0) }

// deliver never blocks. Only the dispatcher publishes, so evicting one slot
// is always enough to make room; the second send only misses if a concurrent
// publisher raced us, in which case the event counts as missed too.
func (s *Subscription) deliver(e event.DomainEvent) bool {
	select {
	case s.events <- e:
		return true
	default:
	}
	select {
	case <-s.events:
		s.missed.Add(1)
		observability.DeliveryEvictions.Inc()
	default:
	}
	select {
	case s.events <- e:
		return true
	default:
		s.missed.Add(1)
		observability.DeliveryEvictions.Inc()
		return false
	}
}

type shard struct {
	mu    sync.RWMutex
	users map[domain.UserID]map[uuid.UUID]*Subscription
}

// Registry is the concurrent map from user id to that user's live sessions.
// It is sharded so unrelated users never serialize on a single lock, and no
// lock is ever held across a blocking operation: Publish only performs
// non-blocking channel sends.
type Registry struct {
	shards [shardCount]shard
	buffer int
}

// SessionInfo is a point-in-time view of one session, used by the debug
// inspect page.
type SessionInfo struct {
	UserID    domain.UserID
	SessionID uuid.UUID
	Buffered  int
	Capacity  int
	Missed    uint64
}

func NewRegistry(sessionBuffer int) *Registry {
	r := &Registry{buffer: sessionBuffer}
	for i := range r.shards {
		r.shards[i].users = make(map[domain.UserID]map[uuid.UUID]*Subscription)
	}
	return r
}

func (r *Registry) shardFor(userID domain.UserID) *shard {
	return &r.shards[uint64(userID)%shardCount]
}

// Subscribe registers a new session for userID. The per-user entry is created
// on first subscription (insert-if-absent under the shard lock, so two
// concurrent first subscribers share one entry) and holds every simultaneous
// session of that user.
func (r *Registry) Subscribe(userID domain.UserID) contract.Subscription {
	sub := &Subscription{
		id:     uuid.New(),
		userID: userID,
		events: make(chan event.DomainEvent, r.buffer),
	}

	sh := r.shardFor(userID)
	sh.mu.Lock()
	sessions, ok := sh.users[userID]
	if !ok {
		sessions = make(map[uuid.UUID]*Subscription)
		sh.users[userID] = sessions
	}
	sessions[sub.id] = sub
	sh.mu.Unlock()

	observability.ActiveSessions.Inc()
	return sub
}

// Unsubscribe removes a session. Idempotent: removing an already-removed
// session is a no-op. The user entry disappears with its last session so the
// registry never accumulates dead users.
func (r *Registry) Unsubscribe(sub contract.Subscription) {
	if sub == nil {
		return
	}

	sh := r.shardFor(sub.UserID())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sessions, ok := sh.users[sub.UserID()]
	if !ok {
		return
	}
	if _, ok := sessions[sub.ID()]; !ok {
		return
	}
	delete(sessions, sub.ID())
	if len(sessions) == 0 {
		delete(sh.users, sub.UserID())
	}
	observability.ActiveSessions.Dec()
}

// Publish fans e out to every live session of userID and reports how many
// buffers accepted it. A user with no session is a silent drop; a full
// session buffer drops its oldest event. Publish never blocks, so one slow
// client cannot stall delivery to anyone else.
func (r *Registry) Publish(userID domain.UserID, e event.DomainEvent) int {
	sh := r.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	delivered := 0
	for _, sub := range sh.users[userID] {
		if sub.deliver(e) {
			delivered++
		}
	}
	return delivered
}

// Sessions reports the number of live sessions for userID.
func (r *Registry) Sessions(userID domain.UserID) int {
	sh := r.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.users[userID])
}

// Snapshot lists every live session across all shards. Shards are locked one
// at a time, so the result is not a consistent global cut; good enough for
// inspection.
func (r *Registry) Snapshot() []SessionInfo {
	var infos []SessionInfo
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for userID, sessions := range sh.users {
			for id, sub := range sessions {
				infos = append(infos, SessionInfo{
					UserID:    userID,
					SessionID: id,
					Buffered:  len(sub.events),
					Capacity:  cap(sub.events),
					Missed:    sub.missed.Load(),
				})
			}
		}
		sh.mu.RUnlock()
	}
	return infos
}
