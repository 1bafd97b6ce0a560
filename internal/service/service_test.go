package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"fitness-billing-be/internal/dto"
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/repository/memory"
	"fitness-billing-be/pkg/billing/lifecycle"
	"fitness-billing-be/pkg/phone"
	"fitness-billing-be/pkg/webhook"

	"github.com/stretchr/testify/require"
)

const (
	testSecret = "aggregator-shared-secret"
	testPhone  = "2348012345678"
)

type recordedEvent struct {
	Type string
	User *entity.User
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) record(t string, u *entity.User) {
	p.events = append(p.events, recordedEvent{Type: t, User: u})
}

func (p *recordingPublisher) PublishSubscriptionActivated(_ context.Context, u *entity.User, _ *entity.Subscription) {
	p.record("SUBSCRIPTION_ACTIVATED", u)
}

func (p *recordingPublisher) PublishSubscriptionRenewed(_ context.Context, u *entity.User, _ *entity.Subscription) {
	p.record("SUBSCRIPTION_RENEWED", u)
}

func (p *recordingPublisher) PublishSubscriptionCancelled(_ context.Context, u *entity.User, _ *entity.Subscription, trigger string) {
	p.record("SUBSCRIPTION_CANCELLED:"+trigger, u)
}

func (p *recordingPublisher) PublishSubscriptionExpired(_ context.Context, u *entity.User) {
	p.record("SUBSCRIPTION_EXPIRED", u)
}

func (p *recordingPublisher) PublishBillingFailed(_ context.Context, u *entity.User, _, _ string) {
	p.record("BILLING_FAILED", u)
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type mapCache struct {
	keys map[string]bool
	err  error
}

func newMapCache() *mapCache {
	return &mapCache{keys: make(map[string]bool)}
}

func (c *mapCache) Seen(_ context.Context, key string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.keys[key], nil
}

func (c *mapCache) Mark(_ context.Context, key string) error {
	if c.err != nil {
		return c.err
	}
	c.keys[key] = true
	return nil
}

type harness struct {
	store     *memory.Store
	now       time.Time
	verifier  *webhook.Verifier
	cache     *mapCache
	publisher *recordingPublisher
	webhooks  IWebhookService
	subs      ISubscriptionService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewStore(),
		now:       time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		verifier:  webhook.NewVerifier(testSecret, false),
		cache:     newMapCache(),
		publisher: &recordingPublisher{},
	}
	clock := func() time.Time { return h.now }
	h.store.Now = clock
	log := logger.NewNopLogger()
	manager := lifecycle.NewManager(log).WithClock(clock)

	h.webhooks = NewWebhookService(h.store, manager, h.verifier, phone.NewFormatter("234"), h.cache, h.publisher, log)
	h.subs = NewSubscriptionService(h.store, manager, h.publisher, log)
	return h
}

func payload(eventType, rawPhone, ref string, amount interface{}) []byte {
	body := map[string]interface{}{
		"type":    eventType,
		"telco":   "MTN",
		"product": map[string]interface{}{"id": "fitness-plan"},
		"details": map[string]interface{}{
			"phone":                rawPhone,
			"amount":               amount,
			"telco_ref":            ref,
			"telco_status_code":    "00",
			"telco_status_message": "Success",
			"channel":              "SMS",
		},
	}
	data, _ := json.Marshal(body)
	return data
}

func (h *harness) sign(t *testing.T, body []byte) string {
	t.Helper()
	sig, err := h.verifier.Sign(body)
	require.NoError(t, err)
	return sig
}

func (h *harness) send(t *testing.T, body []byte) *dto.WebhookResult {
	t.Helper()
	res, err := h.webhooks.HandleWebhook(context.Background(), body, h.sign(t, body))
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (h *harness) user(t *testing.T) entity.User {
	t.Helper()
	users := h.store.Users()
	require.Len(t, users, 1, fmt.Sprintf("expected one user, got %d", len(users)))
	return users[0]
}

func (h *harness) rowsWith(status entity.SubscriptionStatus) []entity.Subscription {
	var out []entity.Subscription
	for _, s := range h.store.Subscriptions() {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}
