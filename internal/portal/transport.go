package portal

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Veraticus/roomrush/internal/listing"
	"github.com/Veraticus/roomrush/internal/model"
)

// ErrNoApplicant is returned by listing queries made before Prepare.
var ErrNoApplicant = errors.New("listing query before applicant lookup")

// Transport drives a selection run with direct form posts. It resolves the
// applicant once and then reuses the id for every listing query and claim.
type Transport struct {
	client    *Client
	resolver  *listing.Resolver
	logger    *slog.Logger
	applicant Applicant
	mu        sync.RWMutex
}

// NewTransport wraps client.
func NewTransport(client *Client, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		client: client,
		logger: logger.With("component", "http-transport"),
	}
	t.resolver = listing.NewResolver(t, logger)
	return t
}

// Name identifies the transport in run history.
func (t *Transport) Name() string {
	return "http"
}

// Prepare looks up the applicant's portal id.
func (t *Transport) Prepare(ctx context.Context, applicantName string) (string, error) {
	applicant, err := t.client.LookupApplicant(ctx, applicantName)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.applicant = applicant
	t.mu.Unlock()
	return applicant.ID, nil
}

// Begin has nothing to do once the gate opens; form posts need no page state.
func (t *Transport) Begin(context.Context) error {
	return nil
}

// Applicant returns the applicant resolved by Prepare.
func (t *Transport) Applicant() Applicant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.applicant
}

// FetchListing implements listing.Source for the resolved applicant.
func (t *Transport) FetchListing(ctx context.Context, community string) (string, error) {
	applicant := t.Applicant()
	if applicant.ID == "" {
		return "", ErrNoApplicant
	}
	return t.client.QueryListing(ctx, applicant, community)
}

// ResolveCandidates returns the first qualifying room id, if any.
func (t *Transport) ResolveCandidates(ctx context.Context, c model.Condition) ([]string, error) {
	id, err := t.resolver.FirstMatch(ctx, c)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return []string{id}, nil
}

// ResolveAll returns every qualifying room id. Pre-fetch uses it to capture
// alternatives ahead of the start time.
func (t *Transport) ResolveAll(ctx context.Context, c model.Condition) ([]string, error) {
	return t.resolver.AllMatches(ctx, c)
}

// AttemptClaim submits one claim for roomID.
func (t *Transport) AttemptClaim(ctx context.Context, roomID string) (model.ClaimOutcome, error) {
	return t.client.Claim(ctx, t.Applicant().ID, roomID)
}
