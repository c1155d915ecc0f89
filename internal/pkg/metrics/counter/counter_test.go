package counter

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCounts(t *testing.T) {
	got := parseCounts(map[string]string{"processed": "3", "duplicate": "1", "garbage": "x"})
	assert.Equal(t, map[string]int64{"processed": 3, "duplicate": 1}, got)
}

func TestOutcomesRecordAndDrain(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping test that requires Redis connection (set TEST_REDIS_ADDR)")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer rdb.Close()
	ctx := context.Background()

	o := &Outcomes{rdb: rdb, key: "webhook:counters:test"}
	rdb.Del(ctx, o.key)

	require.NoError(t, o.Record(ctx, "processed"))
	require.NoError(t, o.Record(ctx, "processed"))
	require.NoError(t, o.Record(ctx, "duplicate"))

	snap, err := o.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap["processed"])

	drained, err := o.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), drained["duplicate"])

	empty, err := o.Drain(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
