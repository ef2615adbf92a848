package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Veraticus/roomrush/internal/model"
)

// EventPrinter renders engine events as styled lines. Countdown events
// rewrite a single line in place.
type EventPrinter struct {
	writer    io.Writer
	countdown bool
	mu        sync.Mutex
}

// NewEventPrinter creates a printer writing to w, or stdout when w is nil.
func NewEventPrinter(w io.Writer) *EventPrinter {
	if w == nil {
		w = os.Stdout
	}
	return &EventPrinter{writer: w}
}

// Emit implements engine.EventSink.
func (p *EventPrinter) Emit(e model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out string
	if e.State == model.StateWaitingForStart && e.Remaining > 0 {
		out = "\r" + InfoStyle.Render(ClockIcon+" "+e.Message) + "\x1b[K"
		p.countdown = true
	} else {
		if p.countdown {
			out = "\n"
			p.countdown = false
		}
		out += FormatEvent(e) + "\n"
	}

	if _, err := fmt.Fprint(p.writer, out); err != nil {
		slog.Warn("Failed to write event", "error", err)
	}
}

// FormatEvent renders one event line with a timestamp.
func FormatEvent(e model.Event) string {
	msg := e.Message
	if e.RoomID != "" {
		msg += " " + BoldStyle.Render("["+e.RoomID+"]")
	}
	stamp := SubtleStyle.Render(e.Time.Format("15:04:05.000"))

	var line string
	switch e.Level {
	case model.LevelSuccess:
		line = FormatSuccess(msg)
	case model.LevelWarning:
		line = FormatWarning(msg)
	case model.LevelError:
		line = FormatError(msg)
	default:
		line = FormatInfo(msg)
	}
	return stamp + " " + line
}
