package models

import "time"

// Vote — голос участника за подтверждение или отмену закупки,
// уникален по паре (пользователь, закупка).
type Vote struct {
	UserUID         string
	GroupPurchaseID int
	Approved        bool
	CreatedAt       time.Time
}

// VoteStats — агрегированная статистика голосования, отдаётся без изменения состояния.
type VoteStats struct {
	Total        int        `json:"total"`
	Approved     int        `json:"approved"`
	ApprovalRate float64    `json:"approval_rate"`
	Threshold    float64    `json:"threshold"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
}

// TallyResult — итог учёта голоса. Decided выставляется, когда проголосовали
// все участники и закупка перешла в CONFIRMED или CANCELLED.
type TallyResult struct {
	Total     int
	Approved  int
	Decided   bool
	NewStatus string
}

// DummyVote используется для приёма голоса из JSON-запроса.
// Указатель на bool отличает пропущенное поле от явного false.
type DummyVote struct {
	Approved *bool `json:"approved" validate:"required"`
}
