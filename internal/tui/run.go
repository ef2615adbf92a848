package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
)

// sinkBuffer is how many events may queue while the monitor is busy.
const sinkBuffer = 256

// Sink queues engine events for a running program. Emit never blocks; events
// are dropped while the queue is full.
type Sink struct {
	engine.ChannelSink
	events chan model.Event
}

// NewSink creates a sink with an empty queue.
func NewSink() *Sink {
	events := make(chan model.Event, sinkBuffer)
	return &Sink{ChannelSink: events, events: events}
}

// forward sends queued events to p until stop is closed, then delivers
// whatever is still queued.
func (s *Sink) forward(p *tea.Program, stop <-chan struct{}) {
	for {
		select {
		case e := <-s.events:
			p.Send(eventMsg{event: e})
		case <-stop:
			for {
				select {
				case e := <-s.events:
					p.Send(eventMsg{event: e})
				default:
					return
				}
			}
		}
	}
}

// RunOptions controls the program's terminal wiring.
type RunOptions struct {
	Input  io.Reader
	Output io.Writer
	// AltScreen runs the monitor full screen.
	AltScreen bool
}

// Run starts the monitor, runs req on orchestrator in the background and
// returns the run result once the operator leaves the monitor. sink must be
// part of the orchestrator's event sinks.
func Run(ctx context.Context, orchestrator *engine.Orchestrator, sink *Sink, req engine.Request, ro RunOptions, opts ...Option) (engine.RunResult, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var programOpts []tea.ProgramOption
	if ro.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if ro.Input != nil {
		programOpts = append(programOpts, tea.WithInput(ro.Input))
	}
	if ro.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(ro.Output))
	}
	programOpts = append(programOpts, tea.WithContext(ctx))

	p := tea.NewProgram(newModel(cfg, cancel), programOpts...)

	stop := make(chan struct{})
	forwarded := make(chan struct{})
	go func() {
		sink.forward(p, stop)
		close(forwarded)
	}()

	done := make(chan engine.RunResult, 1)
	go func() {
		result := orchestrator.Run(runCtx, req)
		// Every event reaches the monitor before the final result.
		close(stop)
		<-forwarded
		done <- result
		p.Send(runFinishedMsg{result: result})
	}()

	_, err := p.Run()
	// Leaving the monitor early stops the run; wait for its terminal result.
	cancel()
	result := <-done
	if err != nil && ctx.Err() == nil {
		return result, fmt.Errorf("monitor failed: %w", err)
	}
	return result, nil
}
