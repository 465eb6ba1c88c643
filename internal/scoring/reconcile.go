package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/reconcile"
)

// RemoteScore is a score copy fetched from another replica.
// A nil Score means the remote side has no value for the entity.
type RemoteScore struct {
	EntityID string                    `json:"entity_id"`
	Score    *contracts.CompositeScore `json:"score,omitempty"`
}

// Reconcile resolves cached scores against remote copies with one strategy.
// Resolved values are written back to the cache; the returned error joins
// resolver failures and cache write failures.
func (s *Scorer) Reconcile(ctx context.Context, remotes []RemoteScore, strategy reconcile.Strategy) (reconcile.Batch[contracts.CompositeScore], error) {
	candidates := make([]reconcile.Candidate[contracts.CompositeScore], 0, len(remotes))
	for _, r := range remotes {
		c := reconcile.Candidate[contracts.CompositeScore]{Key: r.EntityID}

		local, ok, err := s.cache.Get(ctx, r.EntityID)
		if err != nil {
			return reconcile.Batch[contracts.CompositeScore]{}, fmt.Errorf("read cached score %s: %w", r.EntityID, err)
		}
		if ok && local != nil {
			c.Local = local
			c.LocalAt = local.ComputedAt
		}
		if r.Score != nil {
			remote := r.Score.Clone()
			remote.EntityID = r.EntityID
			c.Remote = remote
			c.RemoteAt = remote.ComputedAt
		}
		candidates = append(candidates, c)
	}

	batch, resolveErr := reconcile.ResolveAll(candidates, strategy)

	errs := []error{resolveErr}
	for i := range batch.Resolved {
		score := &batch.Resolved[i]
		if err := s.cache.Set(ctx, score.EntityID, score); err != nil {
			errs = append(errs, fmt.Errorf("write resolved score %s: %w", score.EntityID, err))
		}
	}

	s.metrics.Reconciled(string(strategy), len(batch.Resolved), len(batch.Unresolved)-len(batch.Failures), len(batch.Failures))
	s.log.Info().
		Str("strategy", string(strategy)).
		Int("candidates", len(candidates)).
		Int("resolved", len(batch.Resolved)).
		Int("unresolved", len(batch.Unresolved)).
		Int("failed", len(batch.Failures)).
		Msg("scores reconciled")

	return batch, errors.Join(errs...)
}
