package engine

import (
	"context"
	"io"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/executor"
)

// Option configures optional collaborators of an Engine.
type Option func(*Engine)

// WithOpportunityStore persists every detected opportunity.
func WithOpportunityStore(s domain.OpportunityStore) Option {
	return func(e *Engine) { e.opps = s }
}

// WithAuditStore records session and execution events.
func WithAuditStore(s domain.AuditStore) Option {
	return func(e *Engine) { e.audit = s }
}

// WithEventBus publishes every detected opportunity.
func WithEventBus(b domain.EventBus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithLockManager serializes cycles across processes.
func WithLockManager(l domain.LockManager) Option {
	return func(e *Engine) { e.locks = l }
}

// WithNotifier sends execution and summary alerts.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithArchiver uploads the session journal at shutdown.
func WithArchiver(a domain.SessionArchiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithCooldown keeps a market from being re-entered within ttl of a fill.
func WithCooldown(ttl time.Duration) Option {
	return func(e *Engine) { e.cooldown = executor.NewCooldown(ttl) }
}

// WithCloser registers a func run during Shutdown, in reverse order.
func WithCloser(fn func()) Option {
	return func(e *Engine) { e.closers = append(e.closers, fn) }
}

// WithOutput redirects the console cards, status and summary.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// nopNotifier is used when no notifier is configured.
type nopNotifier struct{}

func (nopNotifier) OpportunityFound(context.Context, domain.ArbitrageOpportunity) error { return nil }
func (nopNotifier) ArbitrageExecuted(context.Context, domain.ArbitrageOpportunity, domain.Order, domain.Order) error {
	return nil
}
func (nopNotifier) ArbitrageRejected(context.Context, domain.ArbitrageOpportunity, string) error {
	return nil
}
func (nopNotifier) SessionSummary(context.Context, domain.SessionSummary) error { return nil }
