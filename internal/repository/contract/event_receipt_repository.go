package contract

import (
	"context"

	"fitness-billing-be/internal/entity"
)

type EventReceiptRepository interface {
	// Claim records the receipt. It returns false when the same
	// (phone, transaction, event type) was already claimed.
	Claim(ctx context.Context, receipt *entity.BillingEventReceipt) (bool, error)
}
