package event

import (
	"chat-notify/domain"

	"github.com/samber/lo"
)

// Recipients resolves the user set an event must reach.
//
// Membership is read off the event itself, never queried live: it may be
// stale relative to the chat table by the time of delivery, which is
// acceptable because the next ChatCreated/ChatUpdated for that chat corrects
// the audience. Duplicate member ids collapse to a single delivery.
func Recipients(e DomainEvent) []domain.UserID {
	return lo.Uniq(e.Members())
}
