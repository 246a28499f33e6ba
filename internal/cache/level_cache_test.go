package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

func sampleLevels() []domain.ApprovalLevel {
	acme := "Acme"
	return []domain.ApprovalLevel{
		{ID: "l1", TenantID: "t1", Name: "manager", Amount: 500, Seq: 1},
		{ID: "l2", TenantID: "t1", Name: "acme director", Amount: 2000, Company: &acme, Seq: 2},
	}
}

func TestRedisLevelCacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisLevelCache(rdb, time.Minute)

	mock.ExpectGet(Key("t1")).RedisNil()

	levels, ok, err := c.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, levels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLevelCacheRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisLevelCache(rdb, time.Minute)
	levels := sampleLevels()
	payload, err := Encode(levels)
	require.NoError(t, err)

	mock.ExpectSet(Key("t1"), payload, time.Minute).SetVal("OK")
	mock.ExpectGet(Key("t1")).SetVal(payload)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "t1", levels))
	got, ok, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, levels, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLevelCacheInvalidateAndErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewRedisLevelCache(rdb, time.Minute)

	mock.ExpectDel(Key("t1")).SetVal(1)
	mock.ExpectGet(Key("t2")).SetErr(errors.New("connection refused"))

	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx, "t1"))
	_, ok, err := c.Get(ctx, "t2")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
