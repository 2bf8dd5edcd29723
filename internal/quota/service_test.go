package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewise-app/notewise/internal/config"
)

func testQuotaConfig() config.QuotaConfig {
	return config.QuotaConfig{
		Store:        config.QuotaStoreRedis,
		MaxDailyUses: 5,
		Window:       24 * time.Hour,
		Timeout:      time.Second,
		ChargeSignup: true,
	}
}

func setupService(t *testing.T, cfg config.QuotaConfig) (*Service, *redis.Client) {
	t.Helper()
	rdb, _ := setupMiniredis(t)
	return NewService(NewRedisStore(rdb, LimitsFrom(cfg)), cfg), rdb
}

func TestService_ProvisionChargesSignup(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()

	require.NoError(t, svc.Provision(context.Background(), userID))
	assert.Equal(t, 4, remainingOf(t, rdb, userID))
}

func TestService_ProvisionWithoutSignupCharge(t *testing.T) {
	cfg := testQuotaConfig()
	cfg.ChargeSignup = false
	svc, rdb := setupService(t, cfg)
	userID := uuid.New()

	require.NoError(t, svc.Provision(context.Background(), userID))
	assert.Equal(t, 5, remainingOf(t, rdb, userID))
}

func TestService_ScenarioFreshUse(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()
	seed(t, rdb, userID, 3, time.Now().Add(-time.Hour))

	d, err := svc.CheckAndConsume(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.RemainingUses)
}

func TestService_ScenarioWindowReset(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()
	seed(t, rdb, userID, 0, time.Now().Add(-25*time.Hour))

	d, err := svc.CheckAndConsume(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.RemainingUses)
}

func TestService_ScenarioExhausted(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()
	lastReset := time.Now().Add(-time.Hour)
	seed(t, rdb, userID, 0, lastReset)

	d, err := svc.CheckAndConsume(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.WithinDuration(t, lastReset.Add(24*time.Hour), d.NextResetAt, time.Millisecond)
	assert.Equal(t, 0, remainingOf(t, rdb, userID))
}

func TestService_ConcurrentConsumeHasExactlyKWinners(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()
	const k, n = 3, 40
	seed(t, rdb, userID, k, time.Now().Add(-time.Hour))

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		denied  atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := svc.CheckAndConsume(context.Background(), userID)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if d.Allowed {
				allowed.Add(1)
			} else {
				denied.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(k), allowed.Load())
	assert.Equal(t, int32(n-k), denied.Load())
	assert.Equal(t, 0, remainingOf(t, rdb, userID))
}

func TestService_RefundRestoresConsumedUse(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	ctx := context.Background()
	userID := uuid.New()
	seed(t, rdb, userID, 1, time.Now())

	d, err := svc.CheckAndConsume(ctx, userID)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	assert.Equal(t, 0, remainingOf(t, rdb, userID))

	remaining, err := svc.Refund(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestService_RefundNeverExceedsMax(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	userID := uuid.New()
	seed(t, rdb, userID, 5, time.Now())

	remaining, err := svc.Refund(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestService_MissingRecordIsNotFound(t *testing.T) {
	svc, _ := setupService(t, testQuotaConfig())

	_, err := svc.CheckAndConsume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_StoreUnavailable(t *testing.T) {
	cfg := testQuotaConfig()
	rdb, mr := setupMiniredis(t)
	svc := NewService(NewRedisStore(rdb, LimitsFrom(cfg)), cfg)
	mr.Close()

	_, err := svc.CheckAndConsume(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestService_Status(t *testing.T) {
	svc, rdb := setupService(t, testQuotaConfig())
	ctx := context.Background()

	t.Run("available", func(t *testing.T) {
		userID := uuid.New()
		lastReset := time.Now().Add(-time.Hour)
		seed(t, rdb, userID, 2, lastReset)

		st, err := svc.Status(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, st.RemainingUses)
		assert.Equal(t, 5, st.MaxDailyUses)
		assert.False(t, st.Exhausted)
		assert.Equal(t, lastReset.Add(24*time.Hour).UnixMilli(), st.NextResetAt.UnixMilli())
	})

	t.Run("exhausted inside window", func(t *testing.T) {
		userID := uuid.New()
		seed(t, rdb, userID, 0, time.Now().Add(-time.Hour))

		st, err := svc.Status(ctx, userID)
		require.NoError(t, err)
		assert.True(t, st.Exhausted)
		assert.Equal(t, 0, st.RemainingUses)
	})

	t.Run("exhausted with elapsed window", func(t *testing.T) {
		userID := uuid.New()
		seed(t, rdb, userID, 0, time.Now().Add(-30*time.Hour))

		st, err := svc.Status(ctx, userID)
		require.NoError(t, err)
		assert.False(t, st.Exhausted)
		assert.Equal(t, 5, st.RemainingUses)

		// Reading the status never mutates the record.
		assert.Equal(t, 0, remainingOf(t, rdb, userID))
	})
}
