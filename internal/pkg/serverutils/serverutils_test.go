package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"fitness-billing-be/pkg/billing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

type stubChecker struct {
	active bool
	err    error
}

func (s stubChecker) HasActiveSubscription(ctx context.Context, userId uuid.UUID) (bool, error) {
	return s.active, s.err
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	chain := append(handlers, func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", ctx.Locals(LocalUserId)))
	})
	app.Get("/", chain...)
	return app
}

func bearer(t *testing.T, userId uuid.UUID, role string) string {
	t.Helper()
	token, err := SignToken(testSecret, userId, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestJwtMiddleware(t *testing.T) {
	userId := uuid.New()
	app := newApp(NewJwtMiddleware(testSecret))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", bearer(t, userId, "user"))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body BaseResponse[string]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, userId.String(), body.Data)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := SignToken("other-secret", userId, "user", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := SignToken(testSecret, userId, "user", -time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})
}

func TestRequireRole(t *testing.T) {
	app := newApp(NewJwtMiddleware(testSecret), RequireRole("admin"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "user"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "admin"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRequireActiveSubscription(t *testing.T) {
	tests := []struct {
		name    string
		checker stubChecker
		want    int
	}{
		{"active", stubChecker{active: true}, 200},
		{"inactive", stubChecker{active: false}, 403},
		{"lookup error", stubChecker{err: errors.New("db down")}, 500},
		{"unknown user", stubChecker{err: billing.ErrUserNotFound}, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(NewJwtMiddleware(testSecret), RequireActiveSubscription(tt.checker))
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", bearer(t, uuid.New(), "user"))
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(billing.ErrMissingPhone))
	assert.Equal(t, 400, StatusFor(&ValidationError{Fields: map[string]string{"reason": "max"}}))
	assert.Equal(t, 401, StatusFor(fmt.Errorf("%w: bad", billing.ErrAuthentication)))
	assert.Equal(t, 404, StatusFor(billing.ErrNoActiveSubscription))
	assert.Equal(t, 409, StatusFor(billing.ErrDuplicateTransaction))
	assert.Equal(t, 409, StatusFor(billing.ErrActiveSubscriptionExists))
	assert.Equal(t, 418, StatusFor(fiber.NewError(418, "teapot")))
	assert.Equal(t, 500, StatusFor(errors.New("boom")))
}

func TestValidateRequest(t *testing.T) {
	type details struct {
		Phone string `validate:"required"`
	}
	type payload struct {
		Details details
	}

	err := ValidateRequest(payload{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["details.phone"])

	assert.NoError(t, ValidateRequest(payload{Details: details{Phone: "234"}}))
}
