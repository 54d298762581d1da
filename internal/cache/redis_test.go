package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_GetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client)

	mock.ExpectGet("k1").SetVal("v1")

	value, found, err := r.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client)

	mock.ExpectGet("missing").RedisNil()

	_, found, err := r.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetWithTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client)

	mock.ExpectSet("k1", []byte("v1"), time.Hour).SetVal("OK")

	require.NoError(t, r.Set(context.Background(), "k1", []byte("v1"), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Delete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client)

	mock.ExpectDel("k1").SetVal(1)

	require.NoError(t, r.Delete(context.Background(), "k1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
