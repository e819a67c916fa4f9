// Package events implements the fire-and-forget event bus (ambient) over
// RabbitMQ, grounded on the teacher's services/messaging.go topic-exchange
// and per-job temporary queue pattern, generalized off the teacher's package-
// level globals into a Bus value so multiple Buses (and tests) can coexist.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const exchangeName = "crawler_events"

// Event is published whenever a Job transitions state. It is intentionally
// flat JSON so downstream consumers (the websocket bridge, external
// dashboards) don't need the Go types.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	SessionID string    `json:"session_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Depth     int       `json:"depth,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	TypeURLDiscovered = "url_discovered"
	TypeProgress      = "progress"
	TypeCompleted     = "completed"
	TypeError         = "error"
)

// Bus owns one RabbitMQ connection/channel and the crawler_events topic
// exchange.
type Bus struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials amqpURL and declares the durable topic exchange every
// publish/consume call depends on.
func Connect(amqpURL string) (*Bus, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	log.Info().Str("exchange", exchangeName).Msg("events: connected to rabbitmq")
	return &Bus{conn: conn, channel: channel}, nil
}

// Publish fires ev to the topic exchange, routed by job ID and event type.
// Fire-and-forget: publish failures are logged, never returned to the
// caller, matching the teacher's own non-blocking PublishCrawlEvent.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Msg("events: marshal failed")
		return
	}
	routingKey := fmt.Sprintf("crawler.%s.%s", ev.JobID, ev.Type)

	go func() {
		err := b.channel.Publish(exchangeName, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    ev.Timestamp,
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			log.Warn().Err(err).Str("routing_key", routingKey).Msg("events: publish failed")
		}
	}()
}

// JobQueue declares a temporary, job-scoped queue bound to every routing key
// for jobID, for a websocket bridge to drain.
func (b *Bus) JobQueue(jobID string) (string, error) {
	queueName := fmt.Sprintf("crawler_ws_%s_%d", jobID, time.Now().UnixNano())
	queue, err := b.channel.QueueDeclare(queueName, false, true, true, false, amqp.Table{
		"x-message-ttl": int32(3600000),
	})
	if err != nil {
		return "", fmt.Errorf("events: declare job queue: %w", err)
	}

	for _, eventType := range []string{TypeURLDiscovered, TypeProgress, TypeCompleted, TypeError} {
		routingKey := fmt.Sprintf("crawler.%s.%s", jobID, eventType)
		if err := b.channel.QueueBind(queue.Name, routingKey, exchangeName, false, nil); err != nil {
			return "", fmt.Errorf("events: bind job queue: %w", err)
		}
	}
	return queue.Name, nil
}

// Consume drains queueName into a channel of decoded Events until ctx is
// cancelled.
func (b *Bus) Consume(ctx context.Context, queueName string) (<-chan Event, error) {
	msgs, err := b.channel.Consume(queueName, "", false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("events: consume: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal(msg.Body, &ev); err != nil {
					log.Warn().Err(err).Msg("events: unmarshal failed")
					msg.Nack(false, false)
					continue
				}
				select {
				case out <- ev:
					msg.Ack(false)
				case <-ctx.Done():
					msg.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// Close tears down the channel and connection.
func (b *Bus) Close() error {
	if err := b.channel.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
