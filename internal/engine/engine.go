// Package engine implements the room selection run: wait for the start time,
// then walk the applicant's conditions in order until one room is claimed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/gate"
	"github.com/Veraticus/roomrush/internal/model"
)

// Orchestrator runs one selection at a time over a Transport.
type Orchestrator struct {
	transport Transport
	sink      EventSink
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	retry     common.RetryOptions
	leadTime  time.Duration
	interval  time.Duration
}

// Config holds tunables for the orchestrator.
type Config struct {
	Logger *slog.Logger
	// Now and NewRunID exist for tests.
	Now          func() time.Time
	NewRunID     func() string
	LeadTime     time.Duration
	TickInterval time.Duration
	RetryDelay   time.Duration
	MaxAttempts  int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LeadTime:     gate.DefaultLeadTime,
		TickInterval: gate.DefaultInterval,
		RetryDelay:   common.DefaultRetryDelay,
		MaxAttempts:  common.DefaultMaxAttempts,
	}
}

// New creates an orchestrator with the default configuration.
func New(transport Transport, sink EventSink) *Orchestrator {
	return NewWithConfig(transport, sink, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom configuration.
func NewWithConfig(transport Transport, sink EventSink, config Config) *Orchestrator {
	if sink == nil {
		sink = nopSink{}
	}
	logger := common.Component(config.Logger, "engine")
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewRunID == nil {
		config.NewRunID = uuid.NewString
	}

	return &Orchestrator{
		transport: transport,
		sink:      sink,
		logger:    logger,
		now:       config.Now,
		newID:     config.NewRunID,
		leadTime:  config.LeadTime,
		interval:  config.TickInterval,
		retry: common.RetryOptions{
			Logger:      logger,
			MaxAttempts: config.MaxAttempts,
			Delay:       config.RetryDelay,
		},
	}
}

// Request describes one run.
type Request struct {
	// Start is when claiming begins. The zero time starts immediately.
	Start time.Time
	// Snapshot supplies pre-fetched room ids; nil means resolve everything live.
	Snapshot   *Snapshot
	Applicant  string
	Conditions []model.Condition
	// RoomIDs, when set, are claimed in order instead of resolving conditions.
	RoomIDs []string
}

// RunResult is the terminal outcome of a run.
type RunResult struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	Err          error
	ID           string
	Outcome      model.RunOutcome
	ApplicantID  string
	RoomID       string
	ConditionKey string
	// Condition is the zero-based index of the winning condition, -1 otherwise.
	Condition int
	Attempts  int
}

// Record converts the result into a history row.
func (r RunResult) Record(applicant, mode string) model.RunRecord {
	detail := ""
	if r.Err != nil {
		detail = r.Err.Error()
	}
	return model.RunRecord{
		ID:           r.ID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Applicant:    applicant,
		Mode:         mode,
		Outcome:      r.Outcome,
		RoomID:       r.RoomID,
		ConditionKey: r.ConditionKey,
		Detail:       detail,
		Attempts:     r.Attempts,
	}
}

// run carries the mutable progress of one Run call.
type run struct {
	result    RunResult
	condition int
	state     model.RunState
}

// Run executes req to completion. The returned result always carries a
// terminal outcome; cancellation is reported as OutcomeCancelled, never as an
// error.
func (o *Orchestrator) Run(ctx context.Context, req Request) RunResult {
	r := &run{
		result: RunResult{
			ID:        o.newID(),
			StartedAt: o.now(),
			Condition: -1,
		},
		condition: -1,
		state:     model.StateIdle,
	}
	o.logger.Info("Starting selection run",
		"run_id", r.result.ID,
		"transport", o.transport.Name(),
		"conditions", len(req.Conditions),
		"manual_room_ids", len(req.RoomIDs),
		"prefetched", req.Snapshot.Len())

	o.execute(ctx, r, req)

	r.result.FinishedAt = o.now()
	o.logger.Info("Selection run finished",
		"run_id", r.result.ID,
		"outcome", r.result.Outcome,
		"room", r.result.RoomID,
		"attempts", r.result.Attempts,
		"duration", r.result.FinishedAt.Sub(r.result.StartedAt))
	return r.result
}

func (o *Orchestrator) execute(ctx context.Context, r *run, req Request) {
	if err := validateRequest(req); err != nil {
		o.finish(r, model.OutcomeConfigError, err)
		return
	}

	applicantID, stop := o.prepare(ctx, r, req.Applicant)
	if stop {
		return
	}
	r.result.ApplicantID = applicantID

	if !o.waitForStart(ctx, r, req.Start) {
		return
	}

	if stop := o.begin(ctx, r); stop {
		return
	}

	if len(req.RoomIDs) > 0 {
		o.claimManual(ctx, r, req.RoomIDs)
		return
	}
	o.claimConditions(ctx, r, req)
}

func validateRequest(req Request) error {
	if req.Applicant == "" {
		return common.ConfigError("applicant name is empty")
	}
	if len(req.RoomIDs) > 0 {
		return nil
	}
	if len(req.Conditions) == 0 {
		return common.ConfigError("no conditions configured")
	}
	for i, c := range req.Conditions {
		if err := c.Validate(); err != nil {
			return common.ConfigError("condition %d: %v", i+1, err)
		}
	}
	return nil
}

func (o *Orchestrator) prepare(ctx context.Context, r *run, applicant string) (string, bool) {
	o.emit(r, model.LevelInfo, "Resolving applicant "+applicant, "")

	opts := o.retry
	opts.Name = "applicant lookup"
	id, ok, err := common.Retry(ctx, opts, func(ctx context.Context) (string, bool, error) {
		id, err := o.transport.Prepare(ctx, applicant)
		return id, err == nil && id != "", err
	})

	switch {
	case ctx.Err() != nil:
		o.cancel(r)
		return "", true
	case err != nil:
		o.fail(r, err)
		return "", true
	case !ok:
		o.finish(r, model.OutcomeConfigError, common.ConfigError("applicant %q could not be resolved", applicant))
		return "", true
	}

	o.emit(r, model.LevelSuccess, fmt.Sprintf("Applicant %s resolved to %s", applicant, id), "")
	return id, false
}

func (o *Orchestrator) waitForStart(ctx context.Context, r *run, start time.Time) bool {
	if start.IsZero() {
		if ctx.Err() != nil {
			o.cancel(r)
			return false
		}
		return true
	}

	r.state = model.StateWaitingForStart
	g := gate.New(start, gate.Config{
		Now:      o.now,
		Logger:   o.logger,
		LeadTime: o.leadTime,
		Interval: o.interval,
		OnTick: func(remaining time.Duration) {
			o.sink.Emit(model.Event{
				Time:      o.now(),
				Level:     model.LevelInfo,
				State:     model.StateWaitingForStart,
				Message:   "Waiting for start " + gate.FormatRemaining(remaining),
				Remaining: remaining,
				Condition: -1,
			})
		},
	})

	if err := g.Wait(ctx); err != nil {
		o.cancel(r)
		return false
	}
	o.emit(r, model.LevelSuccess, "Start time reached", "")
	return true
}

func (o *Orchestrator) begin(ctx context.Context, r *run) bool {
	opts := o.retry
	opts.Name = "enter selection"
	ok, err := common.RetryBool(ctx, opts, func(ctx context.Context) (bool, error) {
		err := o.transport.Begin(ctx)
		return err == nil, err
	})
	switch {
	case ctx.Err() != nil:
		o.cancel(r)
		return true
	case err != nil:
		o.fail(r, err)
		return true
	case !ok:
		o.finish(r, model.OutcomeExhausted, errors.New("transport could not enter the selection page"))
		return true
	}
	return false
}

func (o *Orchestrator) claimManual(ctx context.Context, r *run, roomIDs []string) {
	o.emit(r, model.LevelInfo, fmt.Sprintf("Claiming %d manual room ids", len(roomIDs)), "")
	for i, id := range roomIDs {
		if ctx.Err() != nil {
			o.cancel(r)
			return
		}
		o.emit(r, model.LevelInfo, fmt.Sprintf("Trying room %d/%d", i+1, len(roomIDs)), id)
		if o.claim(ctx, r, id) || r.result.Outcome != "" {
			return
		}
	}
	if ctx.Err() != nil {
		o.cancel(r)
		return
	}
	o.finish(r, model.OutcomeExhausted, nil)
}

func (o *Orchestrator) claimConditions(ctx context.Context, r *run, req Request) {
	for i, c := range req.Conditions {
		if ctx.Err() != nil {
			o.cancel(r)
			return
		}
		r.condition = i
		r.state = model.StateResolving
		o.emit(r, model.LevelInfo, "Trying condition "+c.String(), "")

		candidates, stop := o.candidates(ctx, r, req.Snapshot, c)
		if stop {
			return
		}
		if len(candidates) == 0 {
			o.emit(r, model.LevelWarning, "No matching room for "+c.CommunityName, "")
			continue
		}

		for _, id := range candidates {
			if ctx.Err() != nil {
				o.cancel(r)
				return
			}
			if o.claim(ctx, r, id) {
				r.result.ConditionKey = c.Key()
				r.result.Condition = i
				return
			}
			if r.result.Outcome != "" {
				return
			}
		}
		o.emit(r, model.LevelWarning, "Condition "+c.CommunityName+" did not yield a room, moving on", "")
	}

	if ctx.Err() != nil {
		o.cancel(r)
		return
	}
	r.condition = -1
	o.finish(r, model.OutcomeExhausted, nil)
}

// candidates returns room ids for c. The second value reports that the run
// has reached a terminal outcome.
func (o *Orchestrator) candidates(ctx context.Context, r *run, snap *Snapshot, c model.Condition) ([]string, bool) {
	if m, ok := snap.Lookup(c); ok {
		o.emit(r, model.LevelInfo,
			fmt.Sprintf("Using %d pre-fetched room ids (age %s)", len(m.RoomIDs), o.now().Sub(m.LastUpdated).Truncate(time.Second)), "")
		return m.RoomIDs, false
	}

	opts := o.retry
	opts.Name = "resolve " + c.CommunityName
	ids, _, err := common.Retry(ctx, opts, func(ctx context.Context) ([]string, bool, error) {
		ids, err := o.transport.ResolveCandidates(ctx, c)
		return ids, err == nil && len(ids) > 0, err
	})

	switch {
	case ctx.Err() != nil:
		o.cancel(r)
		return nil, true
	case err != nil:
		o.fail(r, err)
		return nil, true
	}
	return ids, false
}

// claim attempts roomID with retries on transient failures. It reports true
// when the room was claimed. A terminal failure sets r.result.Outcome.
func (o *Orchestrator) claim(ctx context.Context, r *run, roomID string) bool {
	r.state = model.StateClaiming
	o.emit(r, model.LevelInfo, "Claiming room", roomID)

	opts := o.retry
	opts.Name = "claim " + roomID
	outcome, ok, err := common.Retry(ctx, opts, func(ctx context.Context) (model.ClaimOutcome, bool, error) {
		r.result.Attempts++
		outcome, err := o.transport.AttemptClaim(ctx, roomID)
		if err != nil {
			return outcome, false, err
		}
		return outcome, outcome != model.ClaimTransient, nil
	})

	switch {
	case ctx.Err() != nil:
		o.cancel(r)
		return false
	case err != nil:
		o.fail(r, err)
		return false
	case !ok:
		o.emit(r, model.LevelWarning, "Claim did not go through after retries", roomID)
		return false
	case outcome == model.ClaimContested:
		o.emit(r, model.LevelWarning, "Room already taken by another applicant", roomID)
		return false
	}

	r.result.RoomID = roomID
	o.finish(r, model.OutcomeClaimed, nil)
	return true
}

func (o *Orchestrator) fail(r *run, err error) {
	switch {
	case errors.Is(err, common.ErrCredentialInvalid):
		o.finish(r, model.OutcomeCredentialInvalid, err)
	case errors.Is(err, common.ErrInvalidConfig):
		o.finish(r, model.OutcomeConfigError, err)
	default:
		o.finish(r, model.OutcomeExhausted, err)
	}
}

func (o *Orchestrator) cancel(r *run) {
	o.finish(r, model.OutcomeCancelled, nil)
}

func (o *Orchestrator) finish(r *run, outcome model.RunOutcome, err error) {
	r.result.Outcome = outcome
	r.result.Err = err

	level := model.LevelError
	var msg string
	switch outcome {
	case model.OutcomeClaimed:
		r.state = model.StateClaimed
		level = model.LevelSuccess
		msg = "Room claimed"
	case model.OutcomeCancelled:
		r.state = model.StateCancelled
		level = model.LevelWarning
		msg = "Run cancelled"
	case model.OutcomeExhausted:
		r.state = model.StateExhausted
		level = model.LevelWarning
		msg = "All conditions tried without a claim"
	case model.OutcomeCredentialInvalid:
		r.state = model.StateFailed
		msg = "Session credential rejected, log in again"
	default:
		r.state = model.StateFailed
		msg = "Run configuration is invalid"
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	o.emit(r, level, msg, r.result.RoomID)
}

func (o *Orchestrator) emit(r *run, level model.EventLevel, msg, roomID string) {
	o.sink.Emit(model.Event{
		Time:      o.now(),
		Level:     level,
		State:     r.state,
		Message:   msg,
		RoomID:    roomID,
		Condition: r.condition,
	})
}
