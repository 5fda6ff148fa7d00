package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"project_greeter/internal/entities"
	"project_greeter/internal/interfaces"
)

// fakeClient answers per recipient handle with scripted results
type fakeClient struct {
	mu sync.Mutex

	authorized bool
	connectErr error
	loginErr   error

	unknown    map[string]bool    // Resolve returns ErrRecipientNotFound
	existing   map[string]bool    // HasConversation returns true
	historyErr error              // HasConversation fails with this when set
	sendErrs   map[string][]error // consumed one per SendText call; empty = success
	allFail    error              // every SendText fails with this when set

	sent     []string // "handle:text"
	resolved []string
	connects int
	logins   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		authorized: true,
		unknown:    make(map[string]bool),
		existing:   make(map[string]bool),
		sendErrs:   make(map[string][]error),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeClient) IsAuthorized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authorized
}

func (f *fakeClient) Login(ctx context.Context, phone string, op interfaces.Operator) error {
	f.mu.Lock()
	f.logins++
	err := f.loginErr
	f.mu.Unlock()
	if err == nil {
		op.ShowPairingCode("fake", "ABCD-EFGH")
	}
	op.LoginFinished("fake", err)
	return err
}

func (f *fakeClient) Resolve(ctx context.Context, handle string) (entities.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, handle)
	if f.unknown[handle] {
		return entities.Peer{}, fmt.Errorf("%w: %s", entities.ErrRecipientNotFound, handle)
	}
	return entities.Peer{Handle: handle, ID: handle + "@s.whatsapp.net"}, nil
}

func (f *fakeClient) HasConversation(ctx context.Context, peer entities.Peer) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return false, f.historyErr
	}
	return f.existing[peer.Handle], nil
}

func (f *fakeClient) SendText(ctx context.Context, peer entities.Peer, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allFail != nil {
		return f.allFail
	}
	if errs := f.sendErrs[peer.Handle]; len(errs) > 0 {
		f.sendErrs[peer.Handle] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	f.sent = append(f.sent, peer.Handle+":"+text)
	f.existing[peer.Handle] = true
	return nil
}

func (f *fakeClient) Disconnect() {}

func (f *fakeClient) resolvedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resolved)
}

func (f *fakeClient) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeConsole struct {
	mu    sync.Mutex
	lines []string
}

func (c *fakeConsole) Printf(color, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *fakeConsole) contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return n.err
}

type fakeOperator struct {
	codes    []string
	finished []error
}

func (o *fakeOperator) ShowPairingCode(account, code string) { o.codes = append(o.codes, code) }
func (o *fakeOperator) ShowQR(account, code string)          { o.codes = append(o.codes, code) }
func (o *fakeOperator) LoginFinished(account string, err error) {
	o.finished = append(o.finished, err)
}

// memoryStore mimics the CSV queue: Load returns the persisted list, Remove drops all matches
type memoryStore struct {
	mu         sync.Mutex
	recipients []entities.Recipient
	removed    []entities.Recipient
	loadErr    error
	removeErr  error
}

func newMemoryStore(handles ...string) *memoryStore {
	s := &memoryStore{}
	for _, h := range handles {
		s.recipients = append(s.recipients, entities.Recipient(h))
	}
	return s
}

func (s *memoryStore) Load() ([]entities.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]entities.Recipient(nil), s.recipients...), nil
}

func (s *memoryStore) Remove(r entities.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	kept := s.recipients[:0]
	for _, x := range s.recipients {
		if x != r {
			kept = append(kept, x)
		}
	}
	s.recipients = kept
	s.removed = append(s.removed, r)
	return nil
}

func (s *memoryStore) snapshot() []entities.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Recipient(nil), s.recipients...)
}

// sleepRecorder records requested suspensions without waiting
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func newTestSession(name string, client *fakeClient, console *fakeConsole, sleeper *sleepRecorder) *AccountSession {
	s := NewAccountSession(
		entities.Profile{Name: name, Phone: "3600000000", SessionName: name, Color: "cyan"},
		client,
		console,
		AccountSessionOptions{Sleep: sleeper.Sleep, Pick: func(int) int { return 0 }},
	)
	s.MarkAuthenticated()
	return s
}

// fakeThrottle refuses every dispatch with err when set
type fakeThrottle struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeThrottle) Wait(ctx context.Context, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, account)
	return f.err
}
