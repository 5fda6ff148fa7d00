package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"project_greeter/internal/entities"
)

func TestAccountSession_SentResetsFailures(t *testing.T) {
	client := newFakeClient()
	client.sendErrs["alice"] = []error{errors.New("boom"), errors.New("boom")}
	sleeper := &sleepRecorder{}
	s := newTestSession("A", client, &fakeConsole{}, sleeper)
	pool := entities.MessagePool{"hi"}

	be.Equal(t, s.AttemptSend(context.Background(), "alice", pool), entities.OutcomeFailed)
	be.Equal(t, s.AttemptSend(context.Background(), "alice", pool), entities.OutcomeFailed)
	be.Equal(t, s.Stats().Failures, 2)

	be.Equal(t, s.AttemptSend(context.Background(), "alice", pool), entities.OutcomeSent)
	stats := s.Stats()
	be.Equal(t, stats.Sent, 1)
	be.Equal(t, stats.Failures, 0)
	be.True(t, !stats.Restricted)
	be.Equal(t, client.sentTo(), []string{"alice:hi"})
	be.Equal(t, len(sleeper.recorded()), 0)
}

func TestAccountSession_RateLimitWaitsAndRestrictsAtFifth(t *testing.T) {
	client := newFakeClient()
	rl := &entities.RateLimitError{Wait: 5 * time.Second}
	client.sendErrs["carol"] = []error{rl, rl, rl, rl, rl}
	sleeper := &sleepRecorder{}
	s := newTestSession("A", client, &fakeConsole{}, sleeper)
	pool := entities.MessagePool{"hi"}

	for i := 0; i < 4; i++ {
		be.Equal(t, s.AttemptSend(context.Background(), "carol", pool), entities.OutcomeFailed)
	}
	be.Equal(t, s.Stats().Failures, 4)
	be.True(t, !s.Restricted())
	be.True(t, s.Available())

	be.Equal(t, s.AttemptSend(context.Background(), "carol", pool), entities.OutcomeFailed)
	be.Equal(t, s.Stats().Failures, 5)
	be.True(t, s.Restricted())
	be.True(t, !s.Available())

	waits := sleeper.recorded()
	be.Equal(t, len(waits), 5)
	for _, w := range waits {
		be.Equal(t, w, 5*time.Second)
	}
}

func TestAccountSession_FailureCounterIsBounded(t *testing.T) {
	client := newFakeClient()
	client.allFail = errors.New("send failed")
	s := newTestSession("A", client, &fakeConsole{}, &sleepRecorder{})

	for i := 0; i < 8; i++ {
		s.AttemptSend(context.Background(), "x", entities.MessagePool{"hi"})
		f := s.Stats().Failures
		be.True(t, f >= 0 && f <= DefaultMaxFailures)
	}
	be.True(t, s.Restricted())

	// Restriction is sticky even if the platform recovers
	client.allFail = nil
	be.Equal(t, s.AttemptSend(context.Background(), "y", entities.MessagePool{"hi"}), entities.OutcomeFailed)
	be.True(t, s.Restricted())
	be.Equal(t, len(client.sentTo()), 0)
}

func TestAccountSession_GenericErrorDoesNotSleep(t *testing.T) {
	client := newFakeClient()
	client.sendErrs["bob"] = []error{errors.New("network down")}
	sleeper := &sleepRecorder{}
	s := newTestSession("A", client, &fakeConsole{}, sleeper)

	be.Equal(t, s.AttemptSend(context.Background(), "bob", entities.MessagePool{"hi"}), entities.OutcomeFailed)
	be.Equal(t, s.Stats().Failures, 1)
	be.Equal(t, len(sleeper.recorded()), 0)
}

func TestAccountSession_ExistingConversation(t *testing.T) {
	client := newFakeClient()
	client.existing["dave"] = true
	s := newTestSession("A", client, &fakeConsole{}, &sleepRecorder{})

	be.Equal(t, s.AttemptSend(context.Background(), "dave", entities.MessagePool{"hi"}), entities.OutcomeAlreadyContacted)
	stats := s.Stats()
	be.Equal(t, stats.Sent, 0)
	be.Equal(t, stats.Failures, 0)
	be.Equal(t, len(client.sentTo()), 0)
}

func TestAccountSession_HistoryLookupErrorStillSends(t *testing.T) {
	client := newFakeClient()
	client.historyErr = errors.New("database is locked")
	s := newTestSession("A", client, &fakeConsole{}, &sleepRecorder{})

	be.Equal(t, s.AttemptSend(context.Background(), "frank", entities.MessagePool{"hi"}), entities.OutcomeSent)
	stats := s.Stats()
	be.Equal(t, stats.Sent, 1)
	be.Equal(t, stats.Failures, 0)
	be.Equal(t, client.sentTo(), []string{"frank:hi"})
}

func TestAccountSession_ThrottleCancelDoesNotCount(t *testing.T) {
	client := newFakeClient()
	throttle := &fakeThrottle{err: context.Canceled}
	s := NewAccountSession(entities.Profile{Name: "A"}, client, &fakeConsole{}, AccountSessionOptions{
		Throttle: throttle,
		Sleep:    (&sleepRecorder{}).Sleep,
		Pick:     func(int) int { return 0 },
	})
	s.MarkAuthenticated()

	for i := 0; i < DefaultMaxFailures+1; i++ {
		be.Equal(t, s.AttemptSend(context.Background(), "gina", entities.MessagePool{"hi"}), entities.OutcomeFailed)
	}
	be.Equal(t, s.Stats().Failures, 0)
	be.True(t, !s.Restricted())
	be.Equal(t, len(client.sentTo()), 0)
	be.Equal(t, len(throttle.calls), DefaultMaxFailures+1)

	throttle.err = nil
	be.Equal(t, s.AttemptSend(context.Background(), "gina", entities.MessagePool{"hi"}), entities.OutcomeSent)
	be.Equal(t, throttle.calls[len(throttle.calls)-1], "A")
}

func TestAccountSession_UnresolvedIsSoftMiss(t *testing.T) {
	client := newFakeClient()
	client.unknown["ghost"] = true
	s := newTestSession("A", client, &fakeConsole{}, &sleepRecorder{})

	for i := 0; i < 10; i++ {
		be.Equal(t, s.AttemptSend(context.Background(), "ghost", entities.MessagePool{"hi"}), entities.OutcomeFailed)
	}
	be.Equal(t, s.Stats().Failures, 0)
	be.True(t, !s.Restricted())
}

func TestAccountSession_PicksTemplateFromPool(t *testing.T) {
	client := newFakeClient()
	s := NewAccountSession(entities.Profile{Name: "A"}, client, &fakeConsole{}, AccountSessionOptions{
		Sleep: (&sleepRecorder{}).Sleep,
		Pick:  func(n int) int { return n - 1 },
	})
	s.MarkAuthenticated()

	s.AttemptSend(context.Background(), "erin", entities.MessagePool{"hi", "hello", "hey"})
	be.Equal(t, client.sentTo(), []string{"erin:hey"})
}

func TestAccountSession_AuthenticateResumesStoredSession(t *testing.T) {
	client := newFakeClient()
	s := NewAccountSession(entities.Profile{Name: "A"}, client, &fakeConsole{}, AccountSessionOptions{})
	be.True(t, !s.Available())

	be.Err(t, s.Authenticate(context.Background(), &fakeOperator{}), nil)
	be.True(t, s.Available())
	be.Equal(t, client.connects, 1)
	be.Equal(t, client.logins, 0)
}

func TestAccountSession_AuthenticatePairsNewDevice(t *testing.T) {
	client := newFakeClient()
	client.authorized = false
	op := &fakeOperator{}
	s := NewAccountSession(entities.Profile{Name: "A", Phone: "36"}, client, &fakeConsole{}, AccountSessionOptions{})

	be.Err(t, s.Authenticate(context.Background(), op), nil)
	be.True(t, s.Available())
	be.Equal(t, client.logins, 1)
	be.Equal(t, op.codes, []string{"ABCD-EFGH"})
}

func TestAccountSession_AuthenticateFailureLeavesSessionOut(t *testing.T) {
	client := newFakeClient()
	client.connectErr = errors.New("connection refused")
	console := &fakeConsole{}
	s := NewAccountSession(entities.Profile{Name: "A", Phone: "36"}, client, console, AccountSessionOptions{})

	be.Err(t, s.Authenticate(context.Background(), &fakeOperator{}), "connection refused")
	be.True(t, !s.Available())
	be.True(t, !s.Restricted())
	be.Equal(t, len(console.lines), 1)
}

func TestSleep_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	be.Err(t, err, context.Canceled)
	be.True(t, time.Since(start) < time.Second)
}
