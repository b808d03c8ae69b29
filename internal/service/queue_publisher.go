// Package service publishes catalog events to RabbitMQ. Publishing is best
// effort: failures are logged and returned, and callers are free to ignore
// them so a broker outage never fails a vote or review.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/queue"
)

// Publisher is what the handlers need from the event bus.
type Publisher interface {
	PublishRatingSubmitted(ctx context.Context, ev queue.RatingSubmittedEvent) error
	PublishReviewPosted(ctx context.Context, ev queue.ReviewPostedEvent) error
}

// RabbitPublisher dials the broker for every event, declares the durable
// queue and publishes a persistent JSON message through the default
// exchange.
type RabbitPublisher struct {
	url string
	log *logrus.Logger
}

// NewRabbitPublisher returns a publisher for the broker at url.
func NewRabbitPublisher(url string) *RabbitPublisher {
	return &RabbitPublisher{url: url, log: logger.Get()}
}

// PublishRatingSubmitted sends ev to the rating queue.
func (p *RabbitPublisher) PublishRatingSubmitted(ctx context.Context, ev queue.RatingSubmittedEvent) error {
	return p.publish(ctx, queue.RatingSubmittedQueue, ev)
}

// PublishReviewPosted sends ev to the review queue.
func (p *RabbitPublisher) PublishReviewPosted(ctx context.Context, ev queue.ReviewPostedEvent) error {
	return p.publish(ctx, queue.ReviewPostedQueue, ev)
}

func (p *RabbitPublisher) publish(ctx context.Context, name string, ev any) error {
	log := p.log.WithField("queue", name)

	body, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("rabbitmq: marshal event failed")
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", name, false, false, msg); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// NopPublisher drops every event. It backs the server when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishRatingSubmitted(context.Context, queue.RatingSubmittedEvent) error {
	return nil
}

func (NopPublisher) PublishReviewPosted(context.Context, queue.ReviewPostedEvent) error {
	return nil
}
