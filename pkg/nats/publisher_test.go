package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "billing.subscription_renewed", Subject("SUBSCRIPTION_RENEWED"))
	assert.Equal(t, "billing.billing_failed", Subject("BILLING_FAILED"))
}
