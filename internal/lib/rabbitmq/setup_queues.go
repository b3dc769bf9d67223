package rabbitmq

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Ключи маршрутизации событий движка закупок.
const (
	RoutingKeyPenalty   = "penalty"
	RoutingKeyConfirmed = "confirmed"
	RoutingKeyCancelled = "cancelled"
	RoutingKeyReview    = "review.request"
)

// GetNotificationQueues возвращает очереди уведомлений движка закупок.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.penalty", RoutingKey: RoutingKeyPenalty},
		{QueueName: "notification.confirmed", RoutingKey: RoutingKeyConfirmed},
		{QueueName: "notification.cancelled", RoutingKey: RoutingKeyCancelled},
		{QueueName: "notification.review", RoutingKey: RoutingKeyReview},
	}
}
