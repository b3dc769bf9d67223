package models

import "time"

// Статусы ставки продавца.
const (
	BidPending  = "PENDING"
	BidAccepted = "ACCEPTED"
	BidRejected = "REJECTED"
)

// Bid — ставка продавца на закупку, уникальна по паре (продавец, закупка):
// повторная ставка того же продавца обновляет существующую запись.
type Bid struct {
	ID              int
	SellerUID       string
	GroupPurchaseID int
	Price           int
	Description     string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BidView — ставка с краткими данными продавца для выдачи списком.
type BidView struct {
	Bid
	SellerName   string
	SellerRating float64
	SellerBids   int
}

// BidResult — итог размещения ставки. PointsDeducted авторитетно сообщает,
// сколько баллов списано (новая ставка или изменение), и вычисляется
// в той же транзакции, что и запись ставки.
type BidResult struct {
	Bid             *Bid
	IsNew           bool
	PointsDeducted  int
	RemainingPoints int
}

// DummyBid используется для приёма данных ставки из JSON-запроса.
type DummyBid struct {
	Price       int    `json:"price" validate:"required,gt=0"`
	Description string `json:"description" validate:"required,max=2000"`
}
