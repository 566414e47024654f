package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farah_app_echo/internal/models"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisLock_AcquireContendRelease(t *testing.T) {
	cache, mr := newTestRedis(t)
	ctx := context.Background()

	release, err := cache.Lock(ctx, "refund_lock:b1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("refund_lock:b1"))
	assert.Equal(t, time.Minute, mr.TTL("refund_lock:b1"))

	_, err = cache.Lock(ctx, "refund_lock:b1", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	other, err := cache.Lock(ctx, "refund_lock:b2", time.Minute)
	require.NoError(t, err, "keys lock independently")
	other()

	release()
	assert.False(t, mr.Exists("refund_lock:b1"))

	again, err := cache.Lock(ctx, "refund_lock:b1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestRedisLock_StaleReleaseKeepsNewHolder(t *testing.T) {
	cache, mr := newTestRedis(t)
	ctx := context.Background()

	stale, err := cache.Lock(ctx, "refund_lock:b1", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	current, err := cache.Lock(ctx, "refund_lock:b1", time.Minute)
	require.NoError(t, err)
	holder, err := mr.Get("refund_lock:b1")
	require.NoError(t, err)

	stale()
	got, err := mr.Get("refund_lock:b1")
	require.NoError(t, err, "the expired holder must not delete the new lock")
	assert.Equal(t, holder, got)

	current()
	assert.False(t, mr.Exists("refund_lock:b1"))
}

func TestRedisLock_BackendDown(t *testing.T) {
	cache, mr := newTestRedis(t)
	mr.Close()

	_, err := cache.Lock(context.Background(), "refund_lock:b1", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestRefund_RedisLockHeld(t *testing.T) {
	cache, _ := newTestRedis(t)
	f := newRefundFixture()
	f.deps.Locker = cache
	f.store.put(models.BookingKindHall, models.Booking{ID: "b1", Amount: decimal.NewFromInt(100), PaymentStatus: models.PaymentStatusPaid, PaymentID: strPtr("p1")})
	f.gateway.refund = &RefundResult{ID: "r1"}

	release, err := cache.Lock(context.Background(), "refund_lock:b1", time.Minute)
	require.NoError(t, err)

	_, err = f.initiator().Refund(context.Background(), RefundRequest{BookingID: "b1", BookingType: "hall"})
	require.ErrorIs(t, err, ErrRefundInProgress)
	assert.Zero(t, f.gateway.refundCalls)

	release()
	res, err := f.initiator().Refund(context.Background(), RefundRequest{BookingID: "b1", BookingType: "hall"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
