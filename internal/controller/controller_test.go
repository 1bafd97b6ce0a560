package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitness-billing-be/internal/dto"
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/pkg/serverutils"
	"fitness-billing-be/internal/repository/memory"
	"fitness-billing-be/internal/service"
	"fitness-billing-be/pkg/billing/lifecycle"
	"fitness-billing-be/pkg/phone"
	"fitness-billing-be/pkg/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	webhookSecret = "aggregator-secret"
	jwtSecret     = "jwt-secret"
)

type testApp struct {
	app      *fiber.App
	store    *memory.Store
	verifier *webhook.Verifier
}

func newTestApp(t *testing.T, webhooks service.IWebhookService) *testApp {
	t.Helper()
	store := memory.NewStore()
	log := logger.NewNopLogger()
	manager := lifecycle.NewManager(log)
	verifier := webhook.NewVerifier(webhookSecret, false)
	if webhooks == nil {
		webhooks = service.NewWebhookService(store, manager, verifier, phone.NewFormatter("234"), nil, nil, log)
	}
	subs := service.NewSubscriptionService(store, manager, nil, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewWebhookController(webhooks).RegisterRoutes(api)
	NewSubscriptionController(subs).RegisterRoutes(api, serverutils.NewJwtMiddleware(jwtSecret))

	return &testApp{app: app, store: store, verifier: verifier}
}

func syncBody(rawPhone string) []byte {
	return []byte(`{"type":"SYNC_NOTIFICATION","telco":"MTN","product":{"id":"fit-daily"},"details":{"phone":"` + rawPhone + `","amount":"10000","telco_ref":"TX-1","telco_status_code":"00","telco_status_message":"OK","channel":"USSD"}}`)
}

func (a *testApp) postWebhook(t *testing.T, body []byte, signature string) (*http.Response, dto.WebhookResult) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/webhooks/telco", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var result dto.WebhookResult
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

func (a *testApp) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func token(t *testing.T, userId uuid.UUID, role entity.UserRole) string {
	t.Helper()
	tok, err := serverutils.SignToken(jwtSecret, userId, string(role), time.Hour)
	require.NoError(t, err)
	return tok
}

func TestWebhookController_StatusCodes(t *testing.T) {
	a := newTestApp(t, nil)
	body := syncBody("08012345678")

	t.Run("missing signature", func(t *testing.T) {
		resp, _ := a.postWebhook(t, body, "")
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("wrong signature", func(t *testing.T) {
		sig, err := webhook.NewVerifier("other", false).Sign(body)
		require.NoError(t, err)
		resp, _ := a.postWebhook(t, body, sig)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("processed", func(t *testing.T) {
		sig, err := a.verifier.Sign(body)
		require.NoError(t, err)
		resp, result := a.postWebhook(t, body, "sha256="+sig)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, result.Success)
		assert.False(t, result.Duplicate)
	})

	t.Run("duplicate", func(t *testing.T) {
		sig, err := a.verifier.Sign(body)
		require.NoError(t, err)
		resp, result := a.postWebhook(t, body, sig)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, result.Duplicate)
	})

	t.Run("missing phone", func(t *testing.T) {
		noPhone := syncBody("")
		sig, err := a.verifier.Sign(noPhone)
		require.NoError(t, err)
		resp, result := a.postWebhook(t, noPhone, sig)
		assert.Equal(t, 400, resp.StatusCode)
		assert.False(t, result.Success)
	})

	t.Run("unknown type", func(t *testing.T) {
		unknown := []byte(`{"type":"PROMO","details":{"phone":"08012345678"}}`)
		sig, err := a.verifier.Sign(unknown)
		require.NoError(t, err)
		resp, result := a.postWebhook(t, unknown, sig)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, result.Success)
	})

	users := a.store.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "2348012345678", users[0].Phone)
	assert.Equal(t, entity.ChannelUSSD, a.store.Subscriptions()[0].Channel)
}

type crashingWebhookService struct{}

func (crashingWebhookService) HandleWebhook(ctx context.Context, raw []byte, signature string) (*dto.WebhookResult, error) {
	return nil, errors.New("webhook processing panicked: nil map")
}

func TestWebhookController_UnexpectedError(t *testing.T) {
	a := newTestApp(t, crashingWebhookService{})
	resp, _ := a.postWebhook(t, syncBody("08012345678"), "anything")
	assert.Equal(t, 500, resp.StatusCode)
}

func TestSubscriptionController(t *testing.T) {
	a := newTestApp(t, nil)
	body := syncBody("+234 801 234 5678")
	sig, err := a.verifier.Sign(body)
	require.NoError(t, err)
	resp, _ := a.postWebhook(t, body, sig)
	require.Equal(t, 200, resp.StatusCode)
	user := a.store.Users()[0]
	userToken := token(t, user.Id, entity.UserRoleUser)

	t.Run("requires auth", func(t *testing.T) {
		assert.Equal(t, 401, a.get(t, "/api/subscription/status", "").StatusCode)
	})

	t.Run("status", func(t *testing.T) {
		resp := a.get(t, "/api/subscription/status", userToken)
		require.Equal(t, 200, resp.StatusCode)
		var body serverutils.BaseResponse[dto.SubscriptionAccessResponse]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Data.HasActiveSubscription)
	})

	t.Run("current subscription", func(t *testing.T) {
		resp := a.get(t, "/api/subscription", userToken)
		require.Equal(t, 200, resp.StatusCode)
		var body serverutils.BaseResponse[dto.UserSubscriptionResponse]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotNil(t, body.Data.ActiveSubscription)
		assert.Equal(t, "daily", body.Data.ActiveSubscription.PlanType)
	})

	t.Run("history", func(t *testing.T) {
		resp := a.get(t, "/api/subscription/history?limit=5", userToken)
		require.Equal(t, 200, resp.StatusCode)
		var body serverutils.BaseResponse[dto.SubscriptionHistoryResponse]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(1), body.Data.Total)
		assert.Equal(t, 5, body.Data.Limit)
	})

	t.Run("stats needs admin", func(t *testing.T) {
		assert.Equal(t, 403, a.get(t, "/api/subscription/stats", userToken).StatusCode)

		resp := a.get(t, "/api/subscription/stats", token(t, uuid.New(), entity.UserRoleAdmin))
		require.Equal(t, 200, resp.StatusCode)
		var body serverutils.BaseResponse[dto.SubscriptionStatsResponse]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(1), body.Data.ActiveSubscribers)
	})

	t.Run("cancel", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/subscription/cancel", bytes.NewReader([]byte(`{"reason":"holiday"}`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+userToken)
		resp, err := a.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		req = httptest.NewRequest("POST", "/api/subscription/cancel", nil)
		req.Header.Set("Authorization", "Bearer "+userToken)
		resp, err = a.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := a.get(t, "/api/subscription/status", token(t, uuid.New(), entity.UserRoleUser))
		assert.Equal(t, 404, resp.StatusCode)
	})
}
