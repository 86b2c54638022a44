package payout

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

const (
	batchLockKey = "lock:payment_batch"
	lockTTL      = 30 * time.Second
)

// obtainLock serializes batch writers across instances when redis is there.
// It never blocks progress: the conditional claim update is what keeps
// commissions from being claimed twice.
func (s *Service) obtainLock(ctx context.Context, key string) func() {
	if s.locker == nil {
		return func() {}
	}

	lock, err := s.locker.Obtain(ctx, key, lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		s.log.WithField("key", key).Warn("could not obtain redis lock; proceeding without redis lock")
		return func() {}
	} else if err != nil {
		s.log.WithField("key", key).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return func() {}
	}

	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil {
			s.log.WithField("key", key).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}
