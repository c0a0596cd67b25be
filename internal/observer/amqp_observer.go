package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// AMQPObserver publishes job events as JSON status messages to a topic exchange.
// Routing keys are "lecture.job.<status>".
type AMQPObserver struct {
	conn     *amqp.Connection
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	channel  *amqp.Channel
	exchange string
}

func NewAMQPObserver(url, exchange string) (*AMQPObserver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPObserver{conn: conn, channel: ch, exchange: exchange}, nil
}

func (o *AMQPObserver) OnEvent(ctx context.Context, event JobEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode job event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	err = o.channel.PublishWithContext(ctx,
		o.exchange,
		RoutingKey(event),
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			MessageId:    event.JobID + ":" + string(event.EventType),
		},
	)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"job_id":   event.JobID,
			"exchange": o.exchange,
		}).Warn("Failed to publish job event")
	}
}

func (o *AMQPObserver) GetObserverName() string {
	return "amqp_observer"
}

func (o *AMQPObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.channel.Close(); err != nil {
		o.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	return o.conn.Close()
}

// RoutingKey is the topic a job event is published under
func RoutingKey(event JobEvent) string {
	return "lecture.job." + event.Status
}
