package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartTime(t *testing.T) {
	got, err := ParseStartTime(" 2026-03-01 09:30:00 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local), got)

	_, err = ParseStartTime("2026/03/01 09:30")
	assert.Error(t, err)
	_, err = ParseStartTime("")
	assert.Error(t, err)
}

func TestWait_AlreadyOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	g := New(now.Add(500*time.Millisecond), Config{Now: func() time.Time { return now }, LeadTime: DefaultLeadTime})

	assert.True(t, g.Open())
	assert.NoError(t, g.Wait(context.Background()))
}

// fakeClock advances by step every time it is read.
type fakeClock struct {
	now  time.Time
	step time.Duration
	mu   sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestWait_OpensWithinLeadTime(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local), step: time.Second}
	var ticks []time.Duration
	g := New(clock.now.Add(5*time.Second), Config{
		Now:      clock.Now,
		LeadTime: DefaultLeadTime,
		Interval: time.Millisecond,
		OnTick:   func(d time.Duration) { ticks = append(ticks, d) },
	})

	require.NoError(t, g.Wait(context.Background()))
	require.NotEmpty(t, ticks)
	for _, d := range ticks {
		assert.Greater(t, d, DefaultLeadTime)
	}
}

func TestWait_CancelledWithinOneInterval(t *testing.T) {
	g := New(time.Now().Add(time.Hour), Config{Interval: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- g.Wait(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancelled := time.Now()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrGateCancelled)
		assert.Less(t, time.Since(cancelled), time.Second)
	case <-time.After(time.Second):
		t.Fatal("gate did not return within one polling interval")
	}
}

func TestWait_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New(time.Now().Add(-time.Hour), Config{})
	assert.ErrorIs(t, g.Wait(ctx), ErrGateCancelled)
}

func TestNew_Defaults(t *testing.T) {
	g := New(time.Now(), Config{LeadTime: -time.Second})
	assert.Zero(t, g.cfg.LeadTime)
	assert.Equal(t, DefaultInterval, g.cfg.Interval)

	g = New(time.Now(), Config{})
	assert.Zero(t, g.cfg.LeadTime)
}

func TestOpen_ZeroLeadTimeOpensAtStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	clock := func() time.Time { return now }

	assert.False(t, New(now.Add(500*time.Millisecond), Config{Now: clock}).Open())
	assert.True(t, New(now, Config{Now: clock}).Open())
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatRemaining(-time.Second))
	assert.Equal(t, "00:01:05", FormatRemaining(65*time.Second+300*time.Millisecond))
	assert.Equal(t, "02:03:04", FormatRemaining(2*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "1d 00:00:01", FormatRemaining(24*time.Hour+time.Second))
}
