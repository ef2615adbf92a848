package engine

import (
	"log/slog"
	"sync"

	"github.com/Veraticus/roomrush/internal/model"
)

// SinkFunc adapts a function to EventSink.
type SinkFunc func(model.Event)

// Emit calls f.
func (f SinkFunc) Emit(e model.Event) { f(e) }

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

// Emit forwards e to every sink.
func (m MultiSink) Emit(e model.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// ChannelSink sends events on a channel without blocking. Events are dropped
// while the channel is full.
type ChannelSink chan<- model.Event

// Emit sends e if there is room.
func (c ChannelSink) Emit(e model.Event) {
	select {
	case c <- e:
	default:
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs e at a level matching its event level.
func (s LogSink) Emit(e model.Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"state", e.State}
	if e.Condition >= 0 {
		attrs = append(attrs, "condition", e.Condition+1)
	}
	if e.RoomID != "" {
		attrs = append(attrs, "room", e.RoomID)
	}
	if e.Remaining > 0 {
		attrs = append(attrs, "remaining", e.Remaining)
	}

	switch e.Level {
	case model.LevelError:
		logger.Error(e.Message, attrs...)
	case model.LevelWarning:
		logger.Warn(e.Message, attrs...)
	default:
		logger.Info(e.Message, attrs...)
	}
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	events []model.Event
	mu     sync.Mutex
}

// Emit appends e.
func (r *Recorder) Emit(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

type nopSink struct{}

func (nopSink) Emit(model.Event) {}
