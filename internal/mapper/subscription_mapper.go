package mapper

import (
	"fitness-billing-be/internal/entity"
	"fitness-billing-be/internal/model"
	"fitness-billing-be/pkg/billing"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:                      s.Id,
		UserId:                  s.UserId,
		AggregatorTransactionId: s.AggregatorTransactionId,
		AggregatorProductId:     s.AggregatorProductId,
		PlanType:                billing.PlanType(s.PlanType),
		Amount:                  s.Amount,
		Channel:                 entity.Channel(s.Channel),
		Telco:                   entity.Telco(s.Telco),
		Phone:                   s.Phone,
		Status:                  entity.SubscriptionStatus(s.Status),
		StartDate:               s.StartDate,
		EndDate:                 s.EndDate,
		AutoRenewal:             s.AutoRenewal,
		RenewalCount:            s.RenewalCount,
		CancelledAt:             s.CancelledAt,
		CancellationReason:      s.CancellationReason,
		TelcoStatusCode:         s.TelcoStatusCode,
		TelcoStatusMessage:      s.TelcoStatusMessage,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
		AuditTrail:              m.auditEventsToEntities(s.AuditEvents),
	}
}

// ToModel leaves the audit trail out; audit rows are only ever appended.
func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}
	return &model.Subscription{
		Id:                      s.Id,
		UserId:                  s.UserId,
		AggregatorTransactionId: s.AggregatorTransactionId,
		AggregatorProductId:     s.AggregatorProductId,
		PlanType:                string(s.PlanType),
		Amount:                  s.Amount,
		Channel:                 string(s.Channel),
		Telco:                   string(s.Telco),
		Phone:                   s.Phone,
		Status:                  string(s.Status),
		StartDate:               s.StartDate,
		EndDate:                 s.EndDate,
		AutoRenewal:             s.AutoRenewal,
		RenewalCount:            s.RenewalCount,
		CancelledAt:             s.CancelledAt,
		CancellationReason:      s.CancellationReason,
		TelcoStatusCode:         s.TelcoStatusCode,
		TelcoStatusMessage:      s.TelcoStatusMessage,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) AuditEventToEntity(e *model.SubscriptionAuditEvent) *entity.SubscriptionAuditEvent {
	if e == nil {
		return nil
	}
	return &entity.SubscriptionAuditEvent{
		Id:             e.Id,
		SubscriptionId: e.SubscriptionId,
		EventType:      e.EventType,
		TransactionId:  e.TransactionId,
		Payload:        []byte(e.Payload),
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *SubscriptionMapper) AuditEventToModel(e *entity.SubscriptionAuditEvent) *model.SubscriptionAuditEvent {
	if e == nil {
		return nil
	}
	var payload datatypes.JSON
	if len(e.Payload) > 0 {
		payload = datatypes.JSON(e.Payload)
	}
	return &model.SubscriptionAuditEvent{
		Id:             e.Id,
		SubscriptionId: e.SubscriptionId,
		EventType:      e.EventType,
		TransactionId:  e.TransactionId,
		Payload:        payload,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *SubscriptionMapper) ReceiptToModel(r *entity.BillingEventReceipt) *model.BillingEventReceipt {
	if r == nil {
		return nil
	}
	return &model.BillingEventReceipt{
		Id:            r.Id,
		Phone:         r.Phone,
		TransactionId: r.TransactionId,
		EventType:     r.EventType,
		ProcessedAt:   r.ProcessedAt,
	}
}

func (m *SubscriptionMapper) auditEventsToEntities(models []*model.SubscriptionAuditEvent) []entity.SubscriptionAuditEvent {
	if models == nil {
		return nil
	}
	entities := make([]entity.SubscriptionAuditEvent, 0, len(models))
	for _, mdl := range models {
		if val := m.AuditEventToEntity(mdl); val != nil {
			entities = append(entities, *val)
		}
	}
	return entities
}
