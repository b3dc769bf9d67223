package models

// Типы уведомлений, публикуемых движком. Доставка выполняется внешним
// потребителем очереди; движок никогда не блокируется на отправке.
const (
	NotifyPenalty   = "PENALTY"
	NotifyConfirmed = "CONFIRMED"
	NotifyCancelled = "CANCELLED"
	NotifyReview    = "REVIEW_REQUEST"
)

// NotificationEvent — событие для отправки уведомления пользователю.
type NotificationEvent struct {
	UserUID         string `json:"user_uid"`
	Email           string `json:"email"`
	Type            string `json:"type"`
	Subject         string `json:"subject"`
	Body            string `json:"body"`
	GroupPurchaseID int    `json:"group_purchase_id,omitempty"`
}
