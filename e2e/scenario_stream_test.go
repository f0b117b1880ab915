package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type testStreamScenarioSuite struct {
	BaseStreamSuite
}

func TestStreamScenarioSuite(t *testing.T) {
	suite.Run(t, &testStreamScenarioSuite{})
}

// TestMessageFanOutFlow follows one message through the whole pipeline:
// a chat with members 5, 6 and 7, where only 6 and 7 hold open streams.
func (s *testStreamScenarioSuite) TestMessageFanOutFlow() {
	req := s.Require()

	// --- STEP 0: CONNECT THE RECIPIENTS ---
	s.StepHeader("Step 0: Connect streams for users 6 and 7")
	six, cancelSix := s.OpenStream(6)
	defer cancelSix()
	seven, cancelSeven := s.OpenStream(7)
	defer cancelSeven()
	req.Equal(0, s.registry.Sessions(5), "sender 5 must have no session")

	// --- STEP 1: A MESSAGE ARRIVES ON THE CHANGE FEED ---
	s.Run("Step 1: Push a message_created notification", func() {
		s.StepHeader("Step 1: Push a message_created notification")
		s.PushNotification(`{"v":1,"kind":"message_created","chat_id":1,"message_id":99,"sender_id":5,"member_ids":[5,6,7]}`)
	})

	// --- STEP 2: EVERY CONNECTED MEMBER RECEIVES IT ONCE ---
	s.Run("Step 2: Both connected members receive the event", func() {
		s.StepHeader("Step 2: Both connected members receive the event")

		kind, data := s.NextEvent(six)
		req.Equal("message_created", kind)
		req.JSONEq(`{"chat_id":1,"message_id":99,"sender_id":5,"member_ids":[5,6,7]}`, data)

		kind, data = s.NextEvent(seven)
		req.Equal("message_created", kind)
		req.JSONEq(`{"chat_id":1,"message_id":99,"sender_id":5,"member_ids":[5,6,7]}`, data)
	})

	// --- STEP 3: MEMBERSHIP CHANGES ROUTE TO THE NEW SET ---
	s.Run("Step 3: A chat_updated event reaches the same members", func() {
		s.StepHeader("Step 3: A chat_updated event reaches the same members")
		s.PushNotification(`{"v":1,"kind":"chat_updated","chat_id":1,"member_ids":[6,7]}`)

		kind, data := s.NextEvent(six)
		req.Equal("chat_updated", kind)
		req.JSONEq(`{"chat_id":1,"member_ids":[6,7]}`, data)

		kind, _ = s.NextEvent(seven)
		req.Equal("chat_updated", kind)
	})

	// --- STEP 4: DISCONNECT CLEANS UP ---
	s.Run("Step 4: Closing a stream removes its registry entry", func() {
		s.StepHeader("Step 4: Closing a stream removes its registry entry")
		cancelSeven()
		req.Eventually(func() bool {
			return s.registry.Sessions(7) == 0
		}, 2*time.Second, 10*time.Millisecond)

		// The remaining member keeps receiving
		s.PushNotification(`{"v":1,"kind":"chat_created","chat_id":2,"ws_id":1,"member_ids":[6]}`)
		kind, data := s.NextEvent(six)
		req.Equal("chat_created", kind)
		req.JSONEq(`{"chat_id":2,"ws_id":1,"member_ids":[6]}`, data)
	})
}
