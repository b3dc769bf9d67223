package models

import "time"

// Review — отзыв участника о завершённой закупке,
// уникален по паре (пользователь, закупка).
type Review struct {
	ID              int
	UserUID         string
	GroupPurchaseID int
	Rating          int
	Content         string
	CreatedAt       time.Time
}

// DummyReview используется для приёма отзыва из JSON-запроса.
type DummyReview struct {
	GroupPurchaseID int    `json:"group_purchase_id" validate:"required"`
	Rating          int    `json:"rating" validate:"required,gte=1,lte=5"`
	Content         string `json:"content" validate:"required,max=2000"`
}
