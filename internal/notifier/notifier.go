// Package notifier публикует уведомительные события движка в RabbitMQ.
// Отправка выполняется по принципу fire-and-forget: ошибка публикации
// логируется и никогда не прерывает доменную операцию.
package notifier

import (
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/lib/sl"
	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// Notifier отправляет уведомительное событие внешнему потребителю.
type Notifier interface {
	Notify(event models.NotificationEvent)
}

// AMQPNotifier публикует события в обменник notifications.
type AMQPNotifier struct {
	channel *amqp.Channel
	log     *slog.Logger
}

// NewAMQPNotifier создает новый экземпляр AMQPNotifier.
func NewAMQPNotifier(channel *amqp.Channel, log *slog.Logger) *AMQPNotifier {
	return &AMQPNotifier{channel: channel, log: log}
}

// Notify публикует событие с ключом маршрутизации по его типу.
func (n *AMQPNotifier) Notify(event models.NotificationEvent) {
	key := routingKeyFor(event.Type)
	if err := rabbitmq.PublishMessage(n.channel, "notifications", key, event); err != nil {
		n.log.Error("failed to publish notification",
			slog.String("type", event.Type),
			slog.String("user_uid", event.UserUID),
			sl.Err(err))
	}
}

func routingKeyFor(eventType string) string {
	switch eventType {
	case models.NotifyPenalty:
		return rabbitmq.RoutingKeyPenalty
	case models.NotifyConfirmed:
		return rabbitmq.RoutingKeyConfirmed
	case models.NotifyCancelled:
		return rabbitmq.RoutingKeyCancelled
	case models.NotifyReview:
		return rabbitmq.RoutingKeyReview
	}
	return rabbitmq.RoutingKeyPenalty
}

// Noop отбрасывает события, используется когда брокер не настроен.
type Noop struct{}

// Notify ничего не делает.
func (Noop) Notify(models.NotificationEvent) {}
