package server

import (
	"bufio"
	"bytes"
	"chat-notify/auth"
	"chat-notify/domain"
	"chat-notify/domain/event"
	"chat-notify/runtime"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sseFixture struct {
	registry *runtime.Registry
	manager  *auth.TokenManager
	ts       *httptest.Server
}

func newSSEFixture(t *testing.T, keepalive time.Duration) *sseFixture {
	registry := runtime.NewRegistry(8)
	manager := auth.NewTokenManager("test-secret", time.Hour)
	srv := New(slog.Default(), registry, manager, keepalive)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return &sseFixture{registry: registry, manager: manager, ts: ts}
}

// openStream connects as userID and returns a line scanner over the response
// body plus a cancel func simulating the client disconnect.
func (f *sseFixture) openStream(t *testing.T, userID domain.UserID) (*bufio.Scanner, context.CancelFunc) {
	req := require.New(t)

	token, err := f.manager.Generate(userID)
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.ts.URL+"/events", nil)
	req.NoError(err)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.ts.Client().Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("text/event-stream", resp.Header.Get("Content-Type"))
	t.Cleanup(func() { _ = resp.Body.Close() })

	return bufio.NewScanner(resp.Body), cancel
}

// nextEvent skips comments and blank lines and returns the next
// event/data pair.
func nextEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	req := require.New(t)
	var kind string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "" || line[0] == ':':
		case len(line) > 7 && line[:7] == "event: ":
			kind = line[7:]
		case len(line) > 6 && line[:6] == "data: ":
			return kind, line[6:]
		}
	}
	req.Fail("stream ended before an event arrived")
	return "", ""
}

func TestSSE_RequiresToken(t *testing.T) {
	req := require.New(t)
	f := newSSEFixture(t, time.Second)

	resp, err := f.ts.Client().Get(f.ts.URL + "/events")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestSSE_DeliversPublishedEvents(t *testing.T) {
	req := require.New(t)
	f := newSSEFixture(t, time.Minute)

	// Given a connected session for user 6
	scanner, cancel := f.openStream(t, 6)
	defer cancel()
	req.Eventually(func() bool { return f.registry.Sessions(6) == 1 },
		time.Second, 10*time.Millisecond)

	// When an event is published for that user
	e := event.MessageCreated{
		ChatID:    1,
		MessageID: 99,
		SenderID:  5,
		MemberIDs: []domain.UserID{5, 6, 7},
	}
	req.Equal(1, f.registry.Publish(6, e))

	// Then the stream carries it with the kind as the SSE event name
	kind, data := nextEvent(t, scanner)
	req.Equal("message_created", kind)
	req.JSONEq(`{"chat_id":1,"message_id":99,"sender_id":5,"member_ids":[5,6,7]}`, data)
}

func TestSSE_SendsKeepaliveComments(t *testing.T) {
	req := require.New(t)
	f := newSSEFixture(t, 25*time.Millisecond)

	scanner, cancel := f.openStream(t, 6)
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scanner.Scan() {
		if scanner.Text() == ": keep-alive" {
			return
		}
		req.True(time.Now().Before(deadline), "no keepalive within deadline")
	}
	req.Fail("stream ended before a keepalive arrived")
}

func TestSSE_UnsubscribesOnDisconnect(t *testing.T) {
	req := require.New(t)
	f := newSSEFixture(t, time.Minute)

	_, cancel := f.openStream(t, 6)
	req.Eventually(func() bool { return f.registry.Sessions(6) == 1 },
		time.Second, 10*time.Millisecond)

	// When the client goes away
	cancel()

	// Then the registry entry disappears on its own
	req.Eventually(func() bool { return f.registry.Sessions(6) == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestSSE_TwoSessionsSameUser_BothReceive(t *testing.T) {
	req := require.New(t)
	f := newSSEFixture(t, time.Minute)

	first, cancelFirst := f.openStream(t, 6)
	defer cancelFirst()
	second, cancelSecond := f.openStream(t, 6)
	defer cancelSecond()
	req.Eventually(func() bool { return f.registry.Sessions(6) == 2 },
		time.Second, 10*time.Millisecond)

	e := event.ChatUpdated{ChatID: 3, MemberIDs: []domain.UserID{6}}
	req.Equal(2, f.registry.Publish(6, e))

	for _, scanner := range []*bufio.Scanner{first, second} {
		kind, data := nextEvent(t, scanner)
		req.Equal("chat_updated", kind)
		req.JSONEq(`{"chat_id":3,"member_ids":[6]}`, data)
	}
}

func TestWriteGap_Framing(t *testing.T) {
	req := require.New(t)

	var buf bytes.Buffer
	req.NoError(writeGap(&buf, 3))

	req.Equal("event: gap\ndata: {\"missed\":3}\n\n", buf.String())
}

func TestWriteEvent_Framing(t *testing.T) {
	req := require.New(t)

	var buf bytes.Buffer
	e := event.ChatCreated{ChatID: 3, WorkspaceID: 2, MemberIDs: []domain.UserID{1, 2}}
	req.NoError(writeEvent(&buf, e))

	req.Equal("event: chat_created\ndata: {\"chat_id\":3,\"ws_id\":2,\"member_ids\":[1,2]}\n\n",
		buf.String())
}
