package events

import (
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeCreated       = "created"
	TypeStatusChanged = "status_changed"
	TypeDeleted       = "deleted"
	TypeReceived      = "received"
)

// Event describes a workflow state change. Entity is one of "order",
// "delivery", "maquila".
type Event struct {
	Entity   string    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	Type     string    `json:"type"`
	Status   string    `json:"status,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// Publisher fans workflow events out to a durable RabbitMQ exchange. A nil
// Publisher is valid and drops everything, so the workflows run unchanged
// without a broker.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Publish sends the event with routing key "<entity>.<type>". Failures are
// logged and swallowed: events are advisory, never part of the workflow's
// transaction.
func (p *Publisher) Publish(event Event) {
	if p == nil {
		return
	}

	event.Occurred = time.Now()
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal failed: %v", err)
		return
	}

	err = p.channel.Publish(
		p.exchange,
		event.Entity+"."+event.Type,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Occurred,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		log.Printf("events: publish %s.%s failed: %v", event.Entity, event.Type, err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
