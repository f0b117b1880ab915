package e2e

import (
	"bufio"
	"chat-notify/auth"
	"chat-notify/domain"
	"chat-notify/domain/event"
	"chat-notify/runtime"
	"chat-notify/runtime/workers"
	"chat-notify/server"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseStreamSuite wires the full in-process pipeline: a feed channel standing
// in for the Postgres listener, the dispatcher under supervision, the sharded
// registry and the HTTP streaming server. Only the database connection is
// absent; payloads enter through PushNotification exactly as decoded wire
// bytes would.
type BaseStreamSuite struct {
	suite.Suite
	Config Config

	registry *runtime.Registry
	manager  *auth.TokenManager
	feed     chan event.DomainEvent
	ts       *httptest.Server
	cancel   context.CancelFunc
	done     chan struct{}
}

func (s *BaseStreamSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	log := slog.Default()
	s.registry = runtime.NewRegistry(s.Config.SessionBuffer)
	s.manager = auth.NewTokenManager(s.Config.JWTSecret, time.Hour)
	s.feed = make(chan event.DomainEvent, s.Config.FeedBuffer)

	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	sup.Add(workers.NewDispatcherWorker(log, s.registry, s.feed))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(s.done)
	}()

	srv := server.New(log, s.registry, s.manager, time.Minute)
	s.ts = httptest.NewServer(srv.Router())
}

func (s *BaseStreamSuite) TearDownSuite() {
	s.ts.Close()
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		s.Fail("supervisor did not stop")
	}
}

// StepHeader prints a colorized banner so scenario steps stand out in logs.
func (s *BaseStreamSuite) StepHeader(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PushNotification feeds one raw payload through the same decode path the
// change feed uses and hands it to the dispatcher.
func (s *BaseStreamSuite) PushNotification(payload string) {
	e, err := event.Decode([]byte(payload))
	s.Require().NoError(err)

	select {
	case s.feed <- e:
	case <-time.After(time.Second):
		s.Fail("feed channel blocked")
	}
}

// OpenStream connects an SSE client for userID and waits until its session is
// registered, so a following publish cannot race the subscription.
func (s *BaseStreamSuite) OpenStream(userID domain.UserID) (*bufio.Scanner, context.CancelFunc) {
	token, err := s.manager.Generate(userID)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.ts.URL+"/events?access_token="+token, nil)
	s.Require().NoError(err)

	before := s.registry.Sessions(userID)

	resp, err := s.ts.Client().Do(req)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.T().Cleanup(func() { _ = resp.Body.Close() })

	s.Require().Eventually(func() bool {
		return s.registry.Sessions(userID) > before
	}, time.Second, 10*time.Millisecond)

	return bufio.NewScanner(resp.Body), cancel
}

// NextEvent blocks until the next event/data pair, skipping comments and
// keepalives.
func (s *BaseStreamSuite) NextEvent(scanner *bufio.Scanner) (kind, data string) {
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
	s.Require().Fail("stream ended before an event arrived")
	return "", ""
}
