package models

import "time"

// Типы штрафов.
const (
	PenaltyNoShow       = "NO_SHOW"
	PenaltyCancellation = "CANCELLATION"
	PenaltyLate         = "LATE_PARTICIPATION"
	PenaltyFraud        = "FRAUDULENT_ACTIVITY"
)

// UserPenalty — запись журнала штрафов. Журнал только пополняется;
// вместе с записью атомарно обновляются PenaltyCount и PenaltyEndTime пользователя.
type UserPenalty struct {
	ID              int
	UserUID         string
	Type            string
	Reason          string
	DurationHours   int
	EndTime         time.Time
	GroupPurchaseID *int // Закупка, с которой связан штраф, nil если не связан
	CreatedAt       time.Time
}

// DummyPenalty используется для приёма данных штрафа из JSON-запроса администратора.
type DummyPenalty struct {
	UserUID         string `json:"user_uid" validate:"required,uuid"`
	Type            string `json:"type" validate:"required,oneof=NO_SHOW CANCELLATION LATE_PARTICIPATION FRAUDULENT_ACTIVITY"`
	Reason          string `json:"reason" validate:"required"`
	GroupPurchaseID *int   `json:"group_purchase_id,omitempty"`
}
