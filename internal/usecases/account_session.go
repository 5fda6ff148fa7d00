package usecases

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"project_greeter/internal/entities"
	"project_greeter/internal/interfaces"
)

// DefaultMaxFailures is the consecutive-failure count that restricts an account
const DefaultMaxFailures = 5

// SleepFunc suspends the caller for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type AccountSessionOptions struct {
	MaxFailures int
	Throttle    interfaces.Throttle
	Sleep       SleepFunc
	Pick        func(n int) int // uniform index in [0, n)
	Logger      zerolog.Logger
}

// AccountSession is one sender identity with its failure bookkeeping.
// Its counters are only mutated by AttemptSend; Stats may be read concurrently.
type AccountSession struct {
	profile entities.Profile
	client  interfaces.PlatformClient
	console interfaces.Console

	maxFailures int
	throttle    interfaces.Throttle
	sleep       SleepFunc
	pick        func(n int) int
	logger      zerolog.Logger

	mu            sync.RWMutex
	authenticated bool
	sent          int
	failures      int
	restricted    bool
}

func NewAccountSession(profile entities.Profile, client interfaces.PlatformClient, console interfaces.Console, opts AccountSessionOptions) *AccountSession {
	s := &AccountSession{
		profile:     profile,
		client:      client,
		console:     console,
		maxFailures: opts.MaxFailures,
		throttle:    opts.Throttle,
		sleep:       opts.Sleep,
		pick:        opts.Pick,
		logger:      opts.Logger.With().Str("account", profile.Name).Logger(),
	}
	if s.maxFailures <= 0 {
		s.maxFailures = DefaultMaxFailures
	}
	if s.sleep == nil {
		s.sleep = Sleep
	}
	if s.pick == nil {
		s.pick = rand.IntN
	}
	return s
}

func (s *AccountSession) Name() string {
	return s.profile.Name
}

func (s *AccountSession) Profile() entities.Profile {
	return s.profile
}

// Authenticate resumes the stored session or pairs a new device. A failure
// is reported and leaves the session out of the rotation; it never aborts
// the process.
func (s *AccountSession) Authenticate(ctx context.Context, op interfaces.Operator) error {
	var err error
	if s.client.IsAuthorized() {
		err = s.client.Connect(ctx)
	} else {
		s.console.Printf(s.profile.Color, "🔐 %s - Not authorized. Requesting code...", s.profile.Name)
		err = s.client.Login(ctx, s.profile.Phone, op)
	}

	s.mu.Lock()
	s.authenticated = err == nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("phone", s.profile.Phone).Msg("error starting client")
		s.console.Printf(s.profile.Color, "⚠️ Failed to start client for %s. Error: %v", s.profile.Phone, err)
		return err
	}
	return nil
}

// MarkAuthenticated is used when the client was connected outside Authenticate
func (s *AccountSession) MarkAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
}

// Available reports whether the dispatcher may still offer recipients to this session
func (s *AccountSession) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated && !s.restricted
}

func (s *AccountSession) Restricted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restricted
}

func (s *AccountSession) Stats() entities.AccountStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.AccountStats{
		Name:          s.profile.Name,
		Phone:         s.profile.Phone,
		Authenticated: s.authenticated,
		Sent:          s.sent,
		Failures:      s.failures,
		Restricted:    s.restricted,
	}
}

// AttemptSend offers one recipient to this account.
//
// Resolution misses are Failed without touching the counters. An existing
// conversation is AlreadyContacted. Dispatch errors and rate limits count
// toward restriction; a rate limit first waits out the platform's delay.
func (s *AccountSession) AttemptSend(ctx context.Context, recipient entities.Recipient, pool entities.MessagePool) entities.Outcome {
	handle := string(recipient)
	if s.Restricted() {
		return entities.OutcomeFailed
	}

	peer, err := s.client.Resolve(ctx, handle)
	if err != nil {
		if errors.Is(err, entities.ErrRecipientNotFound) {
			s.logger.Warn().Err(err).Str("recipient", handle).Msg("invalid username")
			s.console.Printf(s.profile.Color, "⚠️ %s - Invalid username: %s", s.profile.Name, handle)
		} else {
			s.logger.Error().Err(err).Str("recipient", handle).Msg("failed to get entity")
			s.console.Printf(s.profile.Color, "⚠️ %s - Failed to get entity for %s: %v", s.profile.Name, handle, err)
		}
		return entities.OutcomeFailed
	}

	exists, err := s.client.HasConversation(ctx, peer)
	if err != nil {
		// Unknown history is treated as no history, the send goes ahead
		s.logger.Error().Err(err).Str("recipient", handle).Msg("error checking conversation")
	}
	if exists {
		s.console.Printf("yellow", "⏩ %s - Conversation already exists with %s. Skipping and removing from CSV...", s.profile.Name, handle)
		return entities.OutcomeAlreadyContacted
	}

	if len(pool) == 0 {
		s.logger.Error().Str("recipient", handle).Msg("empty message pool")
		return s.recordFailure()
	}

	if s.throttle != nil {
		if err := s.throttle.Wait(ctx, s.profile.Name); err != nil {
			// Interrupted before dispatching; not the account's fault
			return entities.OutcomeFailed
		}
	}

	message := pool[s.pick(len(pool))]
	err = s.client.SendText(ctx, peer, message)
	if err == nil {
		s.mu.Lock()
		s.sent++
		s.failures = 0
		s.mu.Unlock()
		s.console.Printf(s.profile.Color, "✅ %s - Welcome message sent to %s", s.profile.Name, handle)
		return entities.OutcomeSent
	}

	if wait, ok := entities.AsRateLimit(err); ok {
		s.console.Printf("red", "⏳ %s - Rate limited. Waiting for %s...", s.profile.Name, wait)
		s.logger.Warn().Err(err).Dur("wait", wait).Str("recipient", handle).Msg("rate limited")
		if err := s.sleep(ctx, wait); err != nil {
			s.logger.Info().Err(err).Msg("rate-limit wait interrupted")
		}
		return s.recordFailure()
	}

	s.logger.Error().Err(err).Str("recipient", handle).Msg("unexpected error sending message")
	s.console.Printf(s.profile.Color, "⚠️ %s - Unexpected error sending message to %s: %v", s.profile.Name, handle, err)
	return s.recordFailure()
}

func (s *AccountSession) recordFailure() entities.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures < s.maxFailures {
		s.failures++
	}
	if s.failures >= s.maxFailures && !s.restricted {
		s.restricted = true
		s.logger.Warn().Int("failures", s.failures).Msg("account restricted")
		s.console.Printf("red", "🚫 %s - %d consecutive failures, account restricted for this run", s.profile.Name, s.failures)
	}
	return entities.OutcomeFailed
}
