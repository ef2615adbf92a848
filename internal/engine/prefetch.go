package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/model"
)

// Snapshot is a read-only view of pre-fetched room ids keyed by condition
// key. A nil Snapshot is empty.
type Snapshot struct {
	byKey map[string]model.RoomIDMapping
}

// NewSnapshot indexes mappings by condition key. Later duplicates win.
func NewSnapshot(mappings []model.RoomIDMapping) *Snapshot {
	s := &Snapshot{byKey: make(map[string]model.RoomIDMapping, len(mappings))}
	for _, m := range mappings {
		s.byKey[m.ConditionKey] = m
	}
	return s
}

// LoadSnapshot reads every stored mapping.
func LoadSnapshot(ctx context.Context, store MappingStore) (*Snapshot, error) {
	mappings, err := store.GetRoomIDMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load room id mappings: %w", err)
	}
	return NewSnapshot(mappings), nil
}

// Lookup returns the mapping for c when it holds at least one room id.
func (s *Snapshot) Lookup(c model.Condition) (model.RoomIDMapping, bool) {
	if s == nil {
		return model.RoomIDMapping{}, false
	}
	m, ok := s.byKey[c.Key()]
	if !ok || len(m.RoomIDs) == 0 {
		return model.RoomIDMapping{}, false
	}
	return m, true
}

// Len returns the number of mappings.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byKey)
}

// Mappings returns the mappings in no particular order.
func (s *Snapshot) Mappings() []model.RoomIDMapping {
	if s == nil {
		return nil
	}
	out := make([]model.RoomIDMapping, 0, len(s.byKey))
	for _, m := range s.byKey {
		out = append(out, m)
	}
	return out
}

// PrefetchProgress is called after each condition is resolved.
type PrefetchProgress func(done, total int, c model.Condition, roomIDs []string)

// Prefetcher resolves every condition's room ids ahead of the start time.
type Prefetcher struct {
	resolver BulkResolver
	store    MappingStore
	logger   *slog.Logger
	now      func() time.Time
	retry    common.RetryOptions
}

// NewPrefetcher creates a prefetcher. store may be nil to skip persistence.
func NewPrefetcher(resolver BulkResolver, store MappingStore, config Config) *Prefetcher {
	logger := common.Component(config.Logger, "prefetch")
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Prefetcher{
		resolver: resolver,
		store:    store,
		logger:   logger,
		now:      config.Now,
		retry: common.RetryOptions{
			Logger:      logger,
			MaxAttempts: config.MaxAttempts,
			Delay:       config.RetryDelay,
		},
	}
}

// Prefetch resolves the applicant, then lists every matching room for each
// condition. Conditions with no match are left out of the snapshot. When a
// store is configured the new mappings replace every stored one, even when
// no condition matched.
func (p *Prefetcher) Prefetch(ctx context.Context, applicant string, conditions []model.Condition, progress PrefetchProgress) (*Snapshot, error) {
	if len(conditions) == 0 {
		return nil, common.ConfigError("no conditions configured")
	}

	opts := p.retry
	opts.Name = "applicant lookup"
	applicantID, ok, err := common.Retry(ctx, opts, func(ctx context.Context) (string, bool, error) {
		id, err := p.resolver.Prepare(ctx, applicant)
		return id, err == nil && id != "", err
	})
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		return nil, err
	case !ok:
		return nil, fmt.Errorf("%w: %s", common.ErrApplicantNotFound, applicant)
	}
	p.logger.Info("Pre-fetching room ids", "applicant_id", applicantID, "conditions", len(conditions))

	var mappings []model.RoomIDMapping
	for i, c := range conditions {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		opts := p.retry
		opts.Name = "list rooms " + c.CommunityName
		ids, _, err := common.Retry(ctx, opts, func(ctx context.Context) ([]string, bool, error) {
			ids, err := p.resolver.ResolveAll(ctx, c)
			return ids, err == nil, err
		})
		if err != nil {
			return nil, err
		}

		if len(ids) > 0 {
			mappings = append(mappings, model.NewRoomIDMapping(c, ids, p.now()))
		}
		p.logger.Info("Pre-fetched condition", "condition", c.String(), "room_ids", len(ids))
		if progress != nil {
			progress(i+1, len(conditions), c, ids)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if p.store != nil {
		if err := p.store.ReplaceRoomIDMappings(ctx, mappings); err != nil {
			return nil, fmt.Errorf("failed to save room id mappings: %w", err)
		}
	}
	return NewSnapshot(mappings), nil
}

// IsCancelled reports whether err came from ctx cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
