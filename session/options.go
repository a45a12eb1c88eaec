package session

import (
	"log/slog"
	"time"

	"github.com/shelfdesk/shelfadmin/credential"
	"github.com/shelfdesk/shelfadmin/internal/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger for session events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records teardowns and persisted logins into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithInspector replaces the token inspector, mainly to inject a clock.
func WithInspector(in *credential.Inspector) Option {
	return func(m *Manager) {
		if in != nil {
			m.inspector = in
		}
	}
}

// WithLoginPath overrides DefaultLoginPath in emitted events.
func WithLoginPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.loginPath = path
		}
	}
}

// WithNavigator forwards every terminated event to n.
func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigators = append(m.navigators, n)
	}
}

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
