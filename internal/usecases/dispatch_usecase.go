package usecases

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"project_greeter/internal/entities"
	"project_greeter/internal/interfaces"
)

// DefaultMaxPasses bounds how many full rotations one recipient may take
const DefaultMaxPasses = 3

type DispatchOptions struct {
	PacingMin time.Duration
	PacingMax time.Duration
	MaxPasses int
	Sleep     SleepFunc
	Jitter    func(min, max time.Duration) time.Duration
	Now       func() time.Time
	Notifier  interfaces.Notifier
	Logger    zerolog.Logger
}

// DispatchUsecase walks the recipient queue, rotating across account sessions
type DispatchUsecase struct {
	sessions []*AccountSession
	store    interfaces.RecipientStore
	pool     entities.MessagePool
	console  interfaces.Console

	pacingMin time.Duration
	pacingMax time.Duration
	maxPasses int
	sleep     SleepFunc
	jitter    func(min, max time.Duration) time.Duration
	now       func() time.Time
	notifier  interfaces.Notifier
	logger    zerolog.Logger

	mu       sync.RWMutex
	progress Progress
}

// Progress is the live position of a run, read by the status server
type Progress struct {
	Running   bool      `json:"running"`
	Total     int       `json:"total"`
	Cursor    int       `json:"cursor"`
	Current   string    `json:"current,omitempty"`
	Removed   int       `json:"removed"`
	GaveUp    int       `json:"gave_up"`
	StartedAt time.Time `json:"started_at"`
}

func NewDispatchUsecase(sessions []*AccountSession, store interfaces.RecipientStore, pool entities.MessagePool, console interfaces.Console, opts DispatchOptions) *DispatchUsecase {
	d := &DispatchUsecase{
		sessions:  sessions,
		store:     store,
		pool:      pool,
		console:   console,
		pacingMin: opts.PacingMin,
		pacingMax: opts.PacingMax,
		maxPasses: opts.MaxPasses,
		sleep:     opts.Sleep,
		jitter:    opts.Jitter,
		now:       opts.Now,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
	}
	if d.maxPasses <= 0 {
		d.maxPasses = DefaultMaxPasses
	}
	if d.sleep == nil {
		d.sleep = Sleep
	}
	if d.jitter == nil {
		d.jitter = uniformDuration
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

func uniformDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

// Pending reports how many recipients are still queued
func (d *DispatchUsecase) Pending() (int, error) {
	recipients, err := d.store.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load recipients: %w", err)
	}
	return len(recipients), nil
}

// AuthenticateAll signs the sessions in one after another, since pairing
// needs the operator. It returns how many sessions are ready to send.
func (d *DispatchUsecase) AuthenticateAll(ctx context.Context, op interfaces.Operator) int {
	ready := 0
	for _, session := range d.sessions {
		if ctx.Err() != nil {
			return ready
		}
		if err := session.Authenticate(ctx, op); err == nil {
			ready++
		}
	}

	d.logger.Info().Int("ready", ready).Int("accounts", len(d.sessions)).Msg("sign-in finished")
	if ready == 0 {
		d.console.Printf("red", "❌ No profile could sign in. Exiting.")
		return 0
	}
	d.console.Printf("cyan", "🔑 %d of %d profiles signed in", ready, len(d.sessions))
	return ready
}

func (d *DispatchUsecase) Sessions() []*AccountSession {
	return d.sessions
}

func (d *DispatchUsecase) Progress() Progress {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.progress
}

func (d *DispatchUsecase) updateProgress(fn func(p *Progress)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.progress)
}

// Run processes the queue once. It returns when every recipient has been
// handled, when no session is left available, or when ctx is cancelled.
// Per-recipient errors never escape; only a failing queue load does.
func (d *DispatchUsecase) Run(ctx context.Context) (entities.RunSummary, error) {
	startedAt := d.now()

	recipients, err := d.store.Load()
	if err != nil {
		return entities.RunSummary{}, fmt.Errorf("failed to load recipients: %w", err)
	}
	if len(recipients) == 0 {
		d.console.Printf("red", "❌ No users to process.")
		return d.summary(entities.StopEmptyQueue, startedAt, 0, nil, 0), nil
	}

	d.updateProgress(func(p *Progress) {
		*p = Progress{Running: true, Total: len(recipients), StartedAt: startedAt}
	})
	defer d.updateProgress(func(p *Progress) { p.Running = false })

	d.logger.Info().Int("recipients", len(recipients)).Int("accounts", len(d.sessions)).Msg("dispatch started")

	var (
		index   int
		passes  int
		removed int
		gaveUp  []string
	)
	finish := func(reason entities.StopReason) (entities.RunSummary, error) {
		summary := d.summary(reason, startedAt, removed, gaveUp, len(recipients)-removed)
		d.report(ctx, summary)
		return summary, nil
	}

	for index < len(recipients) {
		if ctx.Err() != nil {
			return finish(entities.StopInterrupted)
		}
		if !d.anyAvailable() {
			d.console.Printf("red", "❌ All profiles are restricted. Exiting.")
			return finish(entities.StopAllRestricted)
		}

		recipient := recipients[index]
		d.updateProgress(func(p *Progress) {
			p.Cursor = index
			p.Current = string(recipient)
		})

		resolved := false
		for _, session := range d.sessions {
			if !session.Available() {
				continue
			}

			outcome := session.AttemptSend(ctx, recipient, d.pool)
			if outcome.Resolved() {
				if err := d.store.Remove(recipient); err != nil {
					d.logger.Error().Err(err).Str("recipient", string(recipient)).Msg("failed to remove recipient")
					d.console.Printf("red", "⚠️ Failed to remove %s from CSV: %v", recipient, err)
				} else {
					removed++
					d.console.Printf("yellow", "🗑️ User %s removed from CSV.", recipient)
				}
				index++
				passes = 0
				resolved = true
				d.updateProgress(func(p *Progress) { p.Removed = removed })
				break
			}

			if !d.anyAvailable() {
				d.console.Printf("red", "❌ All profiles are restricted. Exiting.")
				return finish(entities.StopAllRestricted)
			}

			d.printBoard()

			if err := d.sleep(ctx, d.jitter(d.pacingMin, d.pacingMax)); err != nil {
				return finish(entities.StopInterrupted)
			}
		}

		if resolved {
			continue
		}
		passes++
		if passes >= d.maxPasses {
			d.logger.Warn().Str("recipient", string(recipient)).Int("passes", passes).Msg("giving up on recipient")
			d.console.Printf("yellow", "⏭️ Giving up on %s after %d rounds; it stays in the CSV.", recipient, passes)
			gaveUp = append(gaveUp, string(recipient))
			index++
			passes = 0
			d.updateProgress(func(p *Progress) { p.GaveUp = len(gaveUp) })
		}
	}

	return finish(entities.StopCompleted)
}

func (d *DispatchUsecase) anyAvailable() bool {
	for _, s := range d.sessions {
		if s.Available() {
			return true
		}
	}
	return false
}

func (d *DispatchUsecase) printBoard() {
	var sb strings.Builder
	sb.WriteString("📊 Total messages sent so far:\n")
	for _, s := range d.sessions {
		stats := s.Stats()
		sb.WriteString(fmt.Sprintf("%s: %d\n", stats.Name, stats.Sent))
	}
	sb.WriteString(strings.Repeat("=", 50))
	d.console.Printf("cyan", "%s", sb.String())
}

func (d *DispatchUsecase) summary(reason entities.StopReason, startedAt time.Time, removed int, gaveUp []string, remaining int) entities.RunSummary {
	summary := entities.RunSummary{
		Reason:    reason,
		Removed:   removed,
		GaveUp:    gaveUp,
		Remaining: remaining,
		StartedAt: startedAt,
		Duration:  d.now().Sub(startedAt),
	}
	for _, s := range d.sessions {
		stats := s.Stats()
		summary.Accounts = append(summary.Accounts, stats)
		summary.TotalSent += stats.Sent
	}
	return summary
}

// report prints the totals and forwards them to the operator notifier
func (d *DispatchUsecase) report(ctx context.Context, summary entities.RunSummary) {
	text := FormatSummary(summary)
	d.console.Printf("green", "\n%s", text)
	d.logger.Info().
		Str("reason", string(summary.Reason)).
		Int("total_sent", summary.TotalSent).
		Int("removed", summary.Removed).
		Int("remaining", summary.Remaining).
		Dur("duration", summary.Duration).
		Msg("dispatch finished")

	if d.notifier == nil {
		return
	}
	// The run context may already be cancelled on interrupt
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.notifier.Notify(notifyCtx, text); err != nil {
		d.logger.Warn().Err(err).Msg("failed to notify operator")
	}
}

func FormatSummary(s entities.RunSummary) string {
	var sb strings.Builder
	switch s.Reason {
	case entities.StopCompleted:
		sb.WriteString("🎉 Messaging process completed!\n")
	case entities.StopAllRestricted:
		sb.WriteString("❌ All profiles are restricted.\n")
	case entities.StopInterrupted:
		sb.WriteString("❌ Program interrupted.\n")
	case entities.StopEmptyQueue:
		sb.WriteString("❌ No users to process.\n")
	}
	sb.WriteString(fmt.Sprintf("Total messages sent: %d\n", s.TotalSent))
	for _, a := range s.Accounts {
		sb.WriteString(fmt.Sprintf("%s: %d\n", a.Name, a.Sent))
	}
	sb.WriteString(fmt.Sprintf("Removed from queue: %d, remaining: %d\n", s.Removed, s.Remaining))
	if len(s.GaveUp) > 0 {
		sb.WriteString(fmt.Sprintf("Gave up on: %s\n", strings.Join(s.GaveUp, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Runtime: %s", s.Duration.Round(time.Second)))
	return sb.String()
}
