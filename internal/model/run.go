package model

import "time"

// ClaimOutcome classifies the portal's answer to a single claim request.
type ClaimOutcome string

const (
	// ClaimClaimed means the room now belongs to the applicant.
	ClaimClaimed ClaimOutcome = "CLAIMED"
	// ClaimContested means another applicant already holds the room.
	ClaimContested ClaimOutcome = "CONTESTED"
	// ClaimTransient means the answer was not definitive and the claim may be retried.
	ClaimTransient ClaimOutcome = "TRANSIENT"
)

// RunOutcome is the terminal state of a selection run.
type RunOutcome string

const (
	// OutcomeClaimed means a room was claimed.
	OutcomeClaimed RunOutcome = "CLAIMED"
	// OutcomeExhausted means every condition was tried without a claim.
	OutcomeExhausted RunOutcome = "EXHAUSTED"
	// OutcomeCancelled means the operator stopped the run.
	OutcomeCancelled RunOutcome = "CANCELLED"
	// OutcomeConfigError means the run never started because its inputs were invalid.
	OutcomeConfigError RunOutcome = "CONFIG_ERROR"
	// OutcomeCredentialInvalid means the portal rejected the session credential.
	OutcomeCredentialInvalid RunOutcome = "CREDENTIAL_INVALID"
)

// RunState names the orchestrator's position in its state machine.
type RunState string

// Orchestrator states.
const (
	StateIdle            RunState = "IDLE"
	StateWaitingForStart RunState = "WAITING_FOR_START"
	StateResolving       RunState = "RESOLVING"
	StateClaiming        RunState = "CLAIMING"
	StateClaimed         RunState = "CLAIMED"
	StateCancelled       RunState = "CANCELLED"
	StateExhausted       RunState = "EXHAUSTED"
	StateFailed          RunState = "FAILED"
)

// EventLevel matches the four kinds of line the presentation layer renders.
type EventLevel string

// Event levels.
const (
	LevelInfo    EventLevel = "info"
	LevelSuccess EventLevel = "success"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// Event is an immutable progress notification emitted by the engine.
type Event struct {
	Time      time.Time
	Level     EventLevel
	State     RunState
	Message   string
	RoomID    string
	Remaining time.Duration
	// Condition is the zero-based index of the condition being worked, -1 when none.
	Condition int
}

// RunRecord is the persisted summary of a finished run.
type RunRecord struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	ID           string
	Applicant    string
	Mode         string
	Outcome      RunOutcome
	RoomID       string
	ConditionKey string
	Detail       string
	Attempts     int
}
