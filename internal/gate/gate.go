// Package gate blocks a run until its scheduled start instant.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Layout is the accepted start-time format.
const Layout = "2006-01-02 15:04:05"

// Gate defaults.
const (
	// DefaultLeadTime opens the gate this long before the formal start to
	// absorb clock skew and network latency.
	DefaultLeadTime = time.Second
	DefaultInterval = time.Second
)

// ErrGateCancelled is returned by Wait when ctx ends before the start instant.
var ErrGateCancelled = errors.New("start-time wait cancelled")

// ParseStartTime parses s in Layout using the local time zone.
func ParseStartTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: want %s: %w", s, Layout, err)
	}
	return t, nil
}

// TickFunc receives the remaining time on every poll.
type TickFunc func(remaining time.Duration)

// Config tunes a Gate.
type Config struct {
	// Now defaults to time.Now.
	Now      func() time.Time
	OnTick   TickFunc
	Logger   *slog.Logger
	LeadTime time.Duration
	Interval time.Duration
}

// Gate waits for a fixed instant.
type Gate struct {
	start time.Time
	cfg   Config
}

// New creates a gate for start. LeadTime is used as given, so zero opens
// exactly at start and a negative value is treated as zero. Other zero fields
// take their defaults.
func New(start time.Time, cfg Config) *Gate {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LeadTime < 0 {
		cfg.LeadTime = 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Gate{start: start, cfg: cfg}
}

// Start returns the instant the gate waits for.
func (g *Gate) Start() time.Time {
	return g.start
}

// Remaining returns the time left until the start instant.
func (g *Gate) Remaining() time.Duration {
	return g.start.Sub(g.cfg.Now())
}

// Open reports whether the remaining time is within the lead time.
func (g *Gate) Open() bool {
	return g.Remaining() <= g.cfg.LeadTime
}

// Wait blocks until the gate opens or ctx is done, reporting the remaining
// time every interval. It returns ErrGateCancelled on cancellation.
func (g *Gate) Wait(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrGateCancelled
	}
	if g.Open() {
		return nil
	}

	g.cfg.Logger.Info("Waiting for start time",
		"start", g.start.Format(Layout),
		"remaining", FormatRemaining(g.Remaining()))

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		remaining := g.Remaining()
		if remaining <= g.cfg.LeadTime {
			g.cfg.Logger.Info("Start time reached", "remaining", remaining)
			return nil
		}
		if g.cfg.OnTick != nil {
			g.cfg.OnTick(remaining)
		}

		select {
		case <-ctx.Done():
			g.cfg.Logger.Info("Start-time wait cancelled")
			return ErrGateCancelled
		case <-ticker.C:
		}
	}
}

// FormatRemaining renders d as "1d 02:03:04" or "02:03:04".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
