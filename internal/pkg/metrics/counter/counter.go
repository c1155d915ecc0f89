package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "webhook:counters:outcomes"

// Outcomes counts webhook deliveries per outcome in a Redis hash.
type Outcomes struct {
	rdb *redis.Client
	key string
}

func NewOutcomes(rdb *redis.Client) *Outcomes {
	return &Outcomes{rdb: rdb, key: webhookOutcomesKey}
}

// Record increments the counter for outcome.
func (o *Outcomes) Record(ctx context.Context, outcome string) error {
	return o.rdb.HIncrBy(ctx, o.key, outcome, 1).Err()
}

// Snapshot returns the current counts without resetting them.
func (o *Outcomes) Snapshot(ctx context.Context) (map[string]int64, error) {
	data, err := o.rdb.HGetAll(ctx, o.key).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Drain atomically takes the current counts and resets them. Increments that
// land during the drain go to the fresh hash.
func (o *Outcomes) Drain(ctx context.Context) (map[string]int64, error) {
	tmpKey := fmt.Sprintf("%s:tmp:%d", o.key, time.Now().UnixNano())
	if err := o.rdb.Rename(ctx, o.key, tmpKey).Err(); err != nil {
		// Nothing recorded yet
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err == redis.Nil {
			return map[string]int64{}, nil
		}
		return nil, err
	}
	defer o.rdb.Del(ctx, tmpKey)

	data, err := o.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

func parseCounts(data map[string]string) map[string]int64 {
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}
