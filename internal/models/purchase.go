package models

import "time"

// Статусы жизненного цикла закупки. Переходы односторонние,
// ни один статус не достигается повторно.
const (
	StatusDraft      = "DRAFT"
	StatusRecruiting = "RECRUITING"
	StatusBidding    = "BIDDING"
	StatusVoting     = "VOTING"
	StatusConfirmed  = "CONFIRMED"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// GroupPurchase — агрегат совместной закупки.
// CurrentParticipants — денормализованный счётчик, всегда равен числу
// живых записей Participant; меняется только внутри транзакций хранилища.
type GroupPurchase struct {
	ID                  int
	Title               string
	Description         string
	Status              string
	CreatorUID          string
	MinParticipants     int
	MaxParticipants     int
	CurrentParticipants int
	ExpectedPrice       int        // Ожидаемая цена, 0 — не задана
	AuctionStartTime    *time.Time // Начало окна аукциона
	AuctionEndTime      *time.Time // Конец окна аукциона
	VoteStartTime       *time.Time // Начало окна голосования
	VoteEndTime         *time.Time // Конец окна голосования
	VoteThreshold       float64    // Явный порог 0–1, 0 — вычисляется по таблице
	CreatedAt           time.Time
}

// InAuctionWindow сообщает, попадает ли now в окно аукциона.
func (p *GroupPurchase) InAuctionWindow(now time.Time) bool {
	if p.AuctionStartTime == nil || p.AuctionEndTime == nil {
		return false
	}
	return !now.Before(*p.AuctionStartTime) && !now.After(*p.AuctionEndTime)
}

// InVoteWindow сообщает, попадает ли now в окно голосования.
func (p *GroupPurchase) InVoteWindow(now time.Time) bool {
	if p.VoteStartTime == nil || p.VoteEndTime == nil {
		return false
	}
	return !now.Before(*p.VoteStartTime) && !now.After(*p.VoteEndTime)
}

// Participant — запись участия пользователя в закупке,
// уникальна по паре (пользователь, закупка).
type Participant struct {
	UserUID         string
	GroupPurchaseID int
	JoinedAt        time.Time
}

// DummyPurchase используется для приёма данных создания закупки из JSON-запроса.
type DummyPurchase struct {
	Title           string  `json:"title" validate:"required,max=100"`
	Description     string  `json:"description" validate:"required,max=2000"`
	MinParticipants int     `json:"min_participants" validate:"required,gte=2,lte=100"`
	MaxParticipants int     `json:"max_participants" validate:"required,gte=2,lte=100"`
	ExpectedPrice   int     `json:"expected_price" validate:"required,gte=1000,lte=100000000"`
	VoteThreshold   float64 `json:"vote_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
}
