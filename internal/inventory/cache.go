package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "inventory:device:"

// negative results are cached as this literal
const notFoundMarker = "null"

// CachedLookup fronts another Lookup with redis. Redis failures fall through
// to the wrapped lookup; they never fail the caller.
type CachedLookup struct {
	next Lookup
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

// NewCachedLookup returns next unchanged when rdb is nil.
func NewCachedLookup(next Lookup, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) Lookup {
	if rdb == nil {
		return next
	}
	return &CachedLookup{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedLookup) Lookup(ctx context.Context, imei string) (*Device, error) {
	key := keyPrefix + imei

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == notFoundMarker {
			return nil, nil
		}
		var d Device
		if jerr := json.Unmarshal([]byte(raw), &d); jerr == nil {
			return &d, nil
		}
		c.log.WithField("key", key).Warn("dropping unreadable inventory cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Warn("inventory cache read failed")
	}

	d, err := c.next.Lookup(ctx, imei)
	if err != nil {
		return nil, err
	}

	val := notFoundMarker
	if d != nil {
		if b, jerr := json.Marshal(d); jerr == nil {
			val = string(b)
		}
	}
	if serr := c.rdb.Set(ctx, key, val, c.ttl).Err(); serr != nil {
		c.log.WithError(serr).Warn("inventory cache write failed")
	}
	return d, nil
}
