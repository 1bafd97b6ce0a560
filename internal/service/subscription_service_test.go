package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fitness-billing-be/internal/entity"
	"fitness-billing-be/pkg/billing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasActiveSubscription_LazyExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.send(t, payload("SYNC_NOTIFICATION", testPhone, "TX-1", 10000))
	user := h.user(t)

	h.now = h.now.Add(23 * time.Hour)
	active, err := h.subs.HasActiveSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, active)

	h.now = h.now.Add(2 * time.Hour)
	active, err = h.subs.HasActiveSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, active)

	assert.Equal(t, entity.SubscriptionStatusExpired, h.user(t).SubscriptionStatus)
	assert.Equal(t, entity.SubscriptionStatusExpired, h.store.Subscriptions()[0].Status)
	assert.Contains(t, h.publisher.types(), "SUBSCRIPTION_EXPIRED")
	assert.Equal(t, []string{testPhone, testPhone}, h.store.LockedKeys())
}

func TestHasActiveSubscription_NonActiveStatuses(t *testing.T) {
	for _, status := range []entity.SubscriptionStatus{
		entity.SubscriptionStatusCancelled,
		entity.SubscriptionStatusFailed,
		entity.SubscriptionStatusExpired,
		"",
	} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			end := h.now.Add(time.Hour)
			u := entity.NewSubscriberUser(testPhone)
			u.SubscriptionStatus = status
			u.SubscriptionEndDate = &end
			h.store.PutUser(*u)

			active, err := h.subs.HasActiveSubscription(context.Background(), u.Id)
			require.NoError(t, err)
			assert.False(t, active)
		})
	}
}

func TestHasActiveSubscription_UnknownUser(t *testing.T) {
	h := newHarness(t)
	_, err := h.subs.HasActiveSubscription(context.Background(), uuid.New())
	assert.ErrorIs(t, err, billing.ErrUserNotFound)
}

func TestGetUserSubscription(t *testing.T) {
	h := newHarness(t)
	h.send(t, payload("SYNC_NOTIFICATION", testPhone, "TX-1", 50000))
	user := h.user(t)

	res, err := h.subs.GetUserSubscription(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, testPhone, res.User.Phone)
	assert.Equal(t, "active", res.User.SubscriptionStatus)
	require.NotNil(t, res.ActiveSubscription)
	assert.Equal(t, "weekly", res.ActiveSubscription.PlanType)
	assert.Equal(t, int64(50000), res.ActiveSubscription.Amount)

	h.now = h.now.AddDate(0, 0, 8)
	res, err = h.subs.GetUserSubscription(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "expired", res.User.SubscriptionStatus)
	assert.Nil(t, res.ActiveSubscription)
}

func TestCancelSubscription(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.send(t, payload("SYNC_NOTIFICATION", testPhone, "TX-1", 10000))
	user := h.user(t)

	require.NoError(t, h.subs.CancelSubscription(ctx, user.Id, "moving abroad"))

	row := h.store.Subscriptions()[0]
	assert.Equal(t, entity.SubscriptionStatusCancelled, row.Status)
	assert.Equal(t, "moving abroad", *row.CancellationReason)
	assert.Equal(t, entity.SubscriptionStatusCancelled, h.user(t).SubscriptionStatus)
	assert.Contains(t, h.publisher.types(), "SUBSCRIPTION_CANCELLED:user")

	err := h.subs.CancelSubscription(ctx, user.Id, "")
	assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)

	err = h.subs.CancelSubscription(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, billing.ErrUserNotFound)
}

func TestGetSubscriptionHistory(t *testing.T) {
	h := newHarness(t)
	for i := 1; i <= 3; i++ {
		h.send(t, payload("SYNC_NOTIFICATION", testPhone, fmt.Sprintf("TX-%d", i), 10000))
		h.now = h.now.Add(time.Minute)
	}
	user := h.user(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
		wantRefs   []string
	}{
		{"defaults", 0, 0, DefaultHistoryLimit, 0, []string{"TX-3", "TX-2", "TX-1"}},
		{"page", 2, 1, 2, 1, []string{"TX-2", "TX-1"}},
		{"clamped", 500, -4, MaxHistoryLimit, 0, []string{"TX-3", "TX-2", "TX-1"}},
		{"past end", 10, 10, 10, 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.subs.GetSubscriptionHistory(ctx, user.Id, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, int64(3), res.Total)
			assert.Equal(t, tt.wantLimit, res.Limit)
			assert.Equal(t, tt.wantOffset, res.Offset)

			refs := make([]string, 0, len(res.Items))
			for _, item := range res.Items {
				refs = append(refs, item.AggregatorTransactionId)
			}
			assert.Equal(t, tt.wantRefs, refs)
		})
	}
}

func TestGetSubscriptionStats(t *testing.T) {
	h := newHarness(t)
	h.send(t, payload("SYNC_NOTIFICATION", testPhone, "TX-1", 10000))
	h.now = h.now.Add(24 * time.Hour)
	h.send(t, payload("RENEWAL_NOTIFICATION", testPhone, "TX-R1", 10000))
	h.send(t, payload("SYNC_NOTIFICATION", "08099990000", "TX-2", 150000))
	h.send(t, payload("UNSUBSCRIPTION_NOTIFICATION", "08099990000", "TX-U1", 0))

	stats, err := h.subs.GetSubscriptionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSubscriptions)
	assert.Equal(t, int64(1), stats.ActiveSubscribers)
	// Daily row charged twice plus one monthly charge
	assert.Equal(t, int64(2*10000+150000), stats.TotalRevenue)
	assert.Equal(t, int64(1), stats.ByStatus["active"])
	assert.Equal(t, int64(1), stats.ByStatus["cancelled"])
	assert.Equal(t, int64(1), stats.PlanDistribution["daily"])
	assert.Equal(t, int64(1), stats.PlanDistribution["monthly"])
}
