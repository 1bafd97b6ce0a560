package specification

import (
	"time"

	"gorm.io/gorm"
)

type StatusIs struct {
	Status string
}

func (s StatusIs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByTransaction matches the aggregator idempotency key of a ledger row.
type ByTransaction struct {
	Phone         string
	TransactionID string
}

func (s ByTransaction) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("phone = ? AND aggregator_transaction_id = ?", s.Phone, s.TransactionID)
}

type EndsBefore struct {
	Cutoff time.Time
}

func (s EndsBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("end_date < ?", s.Cutoff)
}
