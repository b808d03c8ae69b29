package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-catalog/internal/logger"
)

// Consumer drains both catalog queues and appends one line per event to
// LogDir/catalog.log.
type Consumer struct {
	URL    string
	LogDir string
	log    *logrus.Logger
}

// NewConsumer returns a consumer for the broker at url writing under logDir.
func NewConsumer(url, logDir string) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{URL: url, LogDir: logDir, log: logger.Get()}
}

// Run dials the broker and consumes until ctx is cancelled. Lost connections
// are redialled with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(2*backoff, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("event consumer: connection lost, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("event consumer: set qos failed")
	}

	merged := make(chan amqp.Delivery)
	done := make(chan struct{}, 2)
	stop := make(chan struct{})
	defer close(stop)
	for _, name := range []string{RatingSubmittedQueue, ReviewPostedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go forward(msgs, merged, stop, done)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return errors.New("deliveries channel closed")
		case d := <-merged:
			if err := c.handle(d.RoutingKey, d.Body); err != nil {
				c.log.WithError(err).WithField("queue", d.RoutingKey).Error("event consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forward copies deliveries into out until msgs closes or stop is closed,
// then signals done.
func forward(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, stop <-chan struct{}, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-stop:
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case out <- d:
			case <-stop:
				return
			}
		}
	}
}

// handle decodes one message and appends its line to the event log.
func (c *Consumer) handle(queue string, body []byte) error {
	line, err := formatEvent(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, "catalog.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}

// formatEvent renders a message from queue as a single log line.
func formatEvent(queue string, body []byte) (string, error) {
	switch queue {
	case RatingSubmittedQueue:
		var ev RatingSubmittedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal rating event: %w", err)
		}
		verb := "changed"
		if ev.Created {
			verb = "new"
		}
		return fmt.Sprintf("[%s] Rating %s | movie_id=%d | movie=%q | star_id=%d | stars=%d | ip=%s",
			ev.SubmittedAt.UTC().Format(time.RFC3339), verb, ev.MovieID, ev.MovieURL, ev.StarID, ev.StarValue, ev.IP), nil
	case ReviewPostedQueue:
		var ev ReviewPostedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal review event: %w", err)
		}
		parent := "-"
		if ev.ParentID != nil {
			parent = fmt.Sprint(*ev.ParentID)
		}
		return fmt.Sprintf("[%s] Review posted | review_id=%d | movie_id=%d | movie=%q | parent_id=%s | name=%q",
			ev.PostedAt.UTC().Format(time.RFC3339), ev.ReviewID, ev.MovieID, ev.MovieURL, parent, ev.Name), nil
	default:
		return "", fmt.Errorf("unknown queue %q", queue)
	}
}
