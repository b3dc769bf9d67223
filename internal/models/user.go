// Package models содержит доменные структуры движка совместных покупок:
// пользователей, закупки, участия, ставки, голоса и штрафы,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Роли пользователей в системе.
const (
	RoleConsumer = "CONSUMER"
	RoleSeller   = "SELLER"
	RoleAdmin    = "ADMIN"
)

// User представляет пользователя системы. Учётные данные хранит внешний
// провайдер идентификации, здесь только доменные атрибуты.
type User struct {
	UID                string     // Уникальный идентификатор пользователя
	Name               string     // Отображаемое имя
	Email              string     // Электронная почта
	Role               string     // Роль: CONSUMER, SELLER или ADMIN
	Points             int        // Баллы, списываются при ставках
	Rating             float64    // Рейтинг 0–5, пересчитывается из отзывов
	BidCount           int        // Количество сделанных ставок
	ParticipationCount int        // Количество участий в закупках
	PenaltyCount       int        // Количество полученных штрафов
	PenaltyEndTime     *time.Time // Окончание действующего штрафа, nil если штрафа нет
}

// UnderPenalty сообщает, действует ли штраф пользователя на момент now.
func (u *User) UnderPenalty(now time.Time) bool {
	return u.PenaltyEndTime != nil && u.PenaltyEndTime.After(now)
}

// DummyUser используется для приёма данных доменного профиля из JSON-запроса
// при регистрации пользователя, аутентифицированного внешним провайдером.
type DummyUser struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Email  string `json:"email" validate:"required,email"`
	Role   string `json:"role" validate:"required,oneof=CONSUMER SELLER"`
	Points int    `json:"points" validate:"gte=0"`
}
