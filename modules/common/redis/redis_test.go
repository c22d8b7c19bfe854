package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-studio-server/modules/common/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), &config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()}, zerolog.Nop())
	require.NoError(t, err)
	defer rdb.Close()

	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := Connect(context.Background(), &config.Config{RedisHost: host, RedisPort: port}, zerolog.Nop())
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestCancelFlag(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	assert.False(t, IsJobCancelled(ctx, rdb, "job-1"))

	require.NoError(t, SetJobCancelled(ctx, rdb, "job-1", time.Minute))
	assert.True(t, IsJobCancelled(ctx, rdb, "job-1"))
	assert.False(t, IsJobCancelled(ctx, rdb, "job-2"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsJobCancelled(ctx, rdb, "job-1"))

	require.NoError(t, SetJobCancelled(ctx, rdb, "job-1", time.Minute))
	require.NoError(t, ClearJobCancelled(ctx, rdb, "job-1"))
	assert.False(t, IsJobCancelled(ctx, rdb, "job-1"))
}
