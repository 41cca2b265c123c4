package config

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	t.Setenv("REDIS_ADDR", mr.Addr())

	client := ConnectRedis()
	require.NotNil(t, client)
	assert.Same(t, client, GetRedisClient())

	CloseRedis()
}

func TestConnectRedisUnreachable(t *testing.T) {
	// Nothing listens on this port; the limiter is disabled, not fatal
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")

	client := ConnectRedis()
	assert.Nil(t, client)
}
