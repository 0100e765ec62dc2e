// Package redis keeps provider registry counters in Redis hashes.
//
// Each provider owns one hash with "subscribers" and "revenue" fields. A Lua
// script applies a delta atomically and refuses to take the subscriber count
// below zero.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/subledger/registry"
	"github.com/xraph/subledger/types"
)

// Compile-time interface checks.
var (
	_ registry.Registry = (*Registry)(nil)
	_ registry.Reader   = (*Registry)(nil)
)

const (
	fieldSubscribers = "subscribers"
	fieldRevenue     = "revenue"
	underflowReply   = "UNDERFLOW"
)

// KEYS[1] hash; ARGV[1] subscriber delta; ARGV[2] revenue delta.
var recordScript = goredis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'subscribers') or '0')
local d = tonumber(ARGV[1])
if cur + d < 0 then
  return redis.error_reply('UNDERFLOW')
end
if d ~= 0 then
  redis.call('HINCRBY', KEYS[1], 'subscribers', d)
end
if ARGV[2] ~= '0' then
  redis.call('HINCRBY', KEYS[1], 'revenue', ARGV[2])
end
return 1
`)

// Registry is a Redis-backed provider registry.
type Registry struct {
	client goredis.UniversalClient
	prefix string
}

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix sets the key prefix. Defaults to "subledger:registry:".
func WithPrefix(p string) Option { return func(r *Registry) { r.prefix = p } }

// New creates a registry on client.
func New(client goredis.UniversalClient, opts ...Option) *Registry {
	r := &Registry{client: client, prefix: "subledger:registry:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the hash key for provider.
func (r *Registry) Key(provider types.Address) string {
	return r.prefix + provider.String()
}

// Record implements registry.Registry. Revenue is kept as a signed 64-bit
// Redis integer, so a single delta above math.MaxInt64 is rejected.
func (r *Registry) Record(ctx context.Context, provider types.Address, d registry.Delta) error {
	if uint64(d.Revenue) > math.MaxInt64 {
		return registry.ErrRevenueOverflow
	}
	err := recordScript.Run(ctx, r.client,
		[]string{r.Key(provider)},
		d.Subscribers,
		strconv.FormatUint(uint64(d.Revenue), 10),
	).Err()
	switch {
	case err == nil:
		return nil
	case strings.Contains(err.Error(), underflowReply):
		return registry.ErrSubscriberUnderflow
	case strings.Contains(err.Error(), "overflow"):
		return registry.ErrRevenueOverflow
	default:
		return fmt.Errorf("subledger/redis: record %s: %w", provider, err)
	}
}

// Stats implements registry.Reader.
func (r *Registry) Stats(ctx context.Context, provider types.Address) (registry.Stats, error) {
	vals, err := r.client.HMGet(ctx, r.Key(provider), fieldSubscribers, fieldRevenue).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return registry.Stats{}, fmt.Errorf("subledger/redis: stats %s: %w", provider, err)
	}

	var s registry.Stats
	if len(vals) == 2 {
		if s.Subscribers, err = parseCounter(vals[0]); err != nil {
			return registry.Stats{}, err
		}
		rev, err := parseCounter(vals[1])
		if err != nil {
			return registry.Stats{}, err
		}
		s.Revenue = types.Amount(rev)
	}
	return s, nil
}

// Ping checks connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func parseCounter(v interface{}) (uint64, error) {
	str, ok := v.(string)
	if !ok || str == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subledger/redis: bad counter %q: %w", str, err)
	}
	return n, nil
}
