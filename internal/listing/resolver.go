package listing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/roomrush/internal/model"
)

// Source fetches the raw listing markup for one community.
type Source interface {
	FetchListing(ctx context.Context, community string) (string, error)
}

// Resolver turns conditions into room ids by querying a Source.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver creates a resolver over source.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source: source,
		logger: logger.With("component", "listing"),
	}
}

// Records fetches and parses the listing for the condition's community.
func (r *Resolver) Records(ctx context.Context, c model.Condition) ([]model.ListingRecord, error) {
	html, err := r.source.FetchListing(ctx, c.CommunityName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing for %s: %w", c.CommunityName, err)
	}
	records, err := ParseString(html, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Parsed listing", "community", c.CommunityName, "rows", len(records))
	return records, nil
}

// FirstMatch returns the first qualifying room id, or "" when none qualifies.
func (r *Resolver) FirstMatch(ctx context.Context, c model.Condition) (string, error) {
	records, err := r.Records(ctx, c)
	if err != nil {
		return "", err
	}
	rec, ok := FirstMatch(records, c)
	if !ok {
		return "", nil
	}
	r.logger.Info("Found matching room", "room", rec.String())
	return rec.RoomID, nil
}

// AllMatches returns every qualifying room id in document order.
func (r *Resolver) AllMatches(ctx context.Context, c model.Condition) ([]string, error) {
	records, err := r.Records(ctx, c)
	if err != nil {
		return nil, err
	}
	return AllMatches(records, c), nil
}
