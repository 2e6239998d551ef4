package cache

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/slot-booking/pkg/config"
)

func TestAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", Addr(config.RedisConfig{Host: "cache", Port: 6380}))
}

func TestNewRedisUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	client, err := NewRedis(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: port})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "ping redis")
}
