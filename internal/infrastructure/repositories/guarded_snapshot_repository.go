package repositories

import (
	"context"
	"errors"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// GuardedSnapshotRepository wraps a snapshot store with a circuit breaker
// so a dead backend fails fast instead of stacking up timeouts. Domain
// outcomes like stale writes and missing slugs are not store failures and
// never trip the breaker.
type GuardedSnapshotRepository struct {
	inner   ports.SnapshotRepository
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedSnapshotRepository(inner ports.SnapshotRepository, breaker *circuitbreaker.CircuitBreaker, logger *zap.SugaredLogger) *GuardedSnapshotRepository {
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("snapshot store circuit breaker state change",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return &GuardedSnapshotRepository{inner: inner, breaker: breaker}
}

func (r *GuardedSnapshotRepository) Put(ctx context.Context, snapshot *domain.PublishSnapshot) error {
	return r.guard(ctx, func() error {
		return r.inner.Put(ctx, snapshot)
	})
}

func (r *GuardedSnapshotRepository) Get(ctx context.Context, slug string) (*domain.PublishSnapshot, error) {
	var snap *domain.PublishSnapshot
	err := r.guard(ctx, func() error {
		var err error
		snap, err = r.inner.Get(ctx, slug)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *GuardedSnapshotRepository) Delete(ctx context.Context, slug string) error {
	return r.guard(ctx, func() error {
		return r.inner.Delete(ctx, slug)
	})
}

func (r *GuardedSnapshotRepository) guard(ctx context.Context, op func() error) error {
	var domainErr error
	err := r.breaker.Execute(ctx, func() error {
		err := op()
		if isDomainOutcome(err) {
			domainErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return domainErr
}

func isDomainOutcome(err error) bool {
	return errors.Is(err, domain.ErrStaleSnapshot) || errors.Is(err, domain.ErrSnapshotNotFound)
}
