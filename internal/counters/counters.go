// Package counters implements per-entity engagement counters (likes,
// comments, shares, ...) on top of the actor runtime. Fields are created on
// first use and never go below zero.
package counters

import (
	"context"

	"aniflixx/engage/internal/actor"
	"aniflixx/engage/pkg/logging"
)

// Counts maps counter field names to non-negative values.
type Counts map[string]int64

func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Kind namespaces counter snapshots in the actor store.
const Kind = "counters"

// Service exposes the counter command surface, one actor per entity id.
type Service struct {
	registry *actor.Registry[Counts]
}

func NewService(store actor.Store, logger logging.Logger) *Service {
	return &Service{
		registry: actor.NewRegistry(Kind, store, func() Counts { return Counts{} }, logger),
	}
}

// Actors reports how many entity actors are live.
func (s *Service) Actors() int {
	return s.registry.Len()
}

// Increment adds one to field and returns the new value.
func (s *Service) Increment(ctx context.Context, entityID, field string) (int64, error) {
	res, err := s.registry.Execute(ctx, entityID, func(state Counts) (any, bool, error) {
		state[field]++
		return state[field], true, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Decrement subtracts one from field, flooring at zero, and returns the new
// value. Decrementing an absent or zero field is a no-op yielding 0.
func (s *Service) Decrement(ctx context.Context, entityID, field string) (int64, error) {
	res, err := s.registry.Execute(ctx, entityID, func(state Counts) (any, bool, error) {
		if state[field] <= 0 {
			return int64(0), false, nil
		}
		state[field]--
		return state[field], true, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// All returns every known field and its current value.
func (s *Service) All(ctx context.Context, entityID string) (map[string]int64, error) {
	res, err := s.registry.Execute(ctx, entityID, func(state Counts) (any, bool, error) {
		return state.Clone(), false, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(Counts), nil
}
