// Package events publishes deal notifications to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName          = "portal_leads"
	RoutingKeyDealCreated = "deal.created"
)

type DealCreated struct {
	LeadID     string    `json:"lead_id"`
	DealID     int       `json:"deal_id"`
	Platform   string    `json:"platform"`
	LeadType   string    `json:"lead_type"`
	OwnerID    int       `json:"owner_id"`
	Title      string    `json:"title"`
	RunKey     string    `json:"run_key"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	conn *amqp.Connection
	ch   Channel
}

// Dial connects and declares the topic exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishDealCreated(ctx context.Context, ev DealCreated) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKeyDealCreated,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    ev.LeadID,
			Timestamp:    ev.OccurredAt,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyDealCreated, err)
	}
	return nil
}

// Healthy reports whether the broker connection is open.
func (p *Publisher) Healthy() bool {
	return p.conn == nil || !p.conn.IsClosed()
}

func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
