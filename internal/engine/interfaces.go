package engine

import (
	"context"

	"github.com/Veraticus/roomrush/internal/model"
)

// Transport is one way of talking to the portal. The orchestrator calls
// Prepare before the start gate, Begin once it opens, and then alternates
// ResolveCandidates and AttemptClaim from a single goroutine.
type Transport interface {
	Name() string
	// Prepare validates the session and returns the applicant's portal id.
	Prepare(ctx context.Context, applicantName string) (string, error)
	// Begin readies the transport for claiming once the start time is reached.
	Begin(ctx context.Context) error
	// ResolveCandidates returns room ids for c in preference order.
	ResolveCandidates(ctx context.Context, c model.Condition) ([]string, error)
	// AttemptClaim submits one claim for exactly roomID.
	AttemptClaim(ctx context.Context, roomID string) (model.ClaimOutcome, error)
}

// BulkResolver lists every room id matching a condition. Pre-fetch requires it.
type BulkResolver interface {
	Prepare(ctx context.Context, applicantName string) (string, error)
	ResolveAll(ctx context.Context, c model.Condition) ([]string, error)
}

// EventSink receives progress events. Implementations must not block for long.
type EventSink interface {
	Emit(event model.Event)
}

// MappingStore persists pre-fetched room ids keyed by condition key.
// ReplaceRoomIDMappings drops every earlier mapping.
type MappingStore interface {
	GetRoomIDMappings(ctx context.Context) ([]model.RoomIDMapping, error)
	ReplaceRoomIDMappings(ctx context.Context, mappings []model.RoomIDMapping) error
}
