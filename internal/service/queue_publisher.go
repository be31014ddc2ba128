// Package service holds application services that sit between handlers
// and the repositories: the event publisher, report assembly and the
// quota/remaining-hours calculator.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/aliyevr/timetrack/internal/queue"
)

// Publisher ships domain events to RabbitMQ.  Errors are logged and
// returned so callers can ignore failures without interrupting the main
// request flow; a workflow transition must never fail because the broker
// is down.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the given AMQP URL.  An empty URL
// disables publishing entirely.
func NewPublisher(url string) *Publisher { return &Publisher{URL: url} }

// PublishEntryDecided publishes an EntryDecidedEvent to the entry.decided
// queue.  Messages are persistent so they survive broker restarts.
func (p *Publisher) PublishEntryDecided(ctx context.Context, ev q.EntryDecidedEvent) error {
	return p.publish(ctx, q.EntryDecidedQueue, ev)
}

// PublishReportRequested publishes a ReportRequestedEvent to the
// report.requested queue.
func (p *Publisher) PublishReportRequested(ctx context.Context, ev q.ReportRequestedEvent) error {
	return p.publish(ctx, q.ReportRequestedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, ev any) error {
	if p == nil || p.URL == "" {
		return nil
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
