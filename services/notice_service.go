package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"DineLine/models"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	noticeProducer = "dineline"
	noticeType     = "notification.sms.requested"
	maxDialDelay   = 60 * time.Second
)

// NoticePublisher hands outbound messages to the messaging gateway.
type NoticePublisher interface {
	Publish(ctx context.Context, notice models.SMSNotice) error
	Close() error
}

type RabbitOptions struct {
	URL           string
	Exchange      string
	RetryAttempts int
	Delay         time.Duration
}

// RabbitNoticePublisher publishes notices to a topic exchange and waits for
// the broker to confirm each one.
type RabbitNoticePublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

func NewRabbitNoticePublisher(ctx context.Context, opts RabbitOptions, logger *slog.Logger) (*RabbitNoticePublisher, error) {
	conn, err := dialWithRetry(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitNoticePublisher{conn: conn, exchange: opts.Exchange, log: logger}, nil
}

// dialWithRetry connects with exponential backoff, honoring ctx cancellation.
func dialWithRetry(ctx context.Context, opts RabbitOptions, logger *slog.Logger) (*amqp091.Connection, error) {
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				logger.Info("rabbit connected", slog.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err

		sleep := delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		logger.Warn("rabbit dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", err),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func newNoticeEnvelope(notice models.SMSNotice) models.NoticeEnvelope {
	producer := noticeProducer
	return models.NoticeEnvelope{
		Meta: models.NoticeMeta{
			ID:       uuid.NewString(),
			Producer: &producer,
			Time:     time.Now().UTC(),
			Type:     noticeType,
		},
		Data: notice,
	}
}

func (r *RabbitNoticePublisher) Publish(ctx context.Context, notice models.SMSNotice) error {
	start := time.Now()
	defer func() {
		externalLatency.WithLabelValues("rabbitmq", "publish").Observe(time.Since(start).Seconds())
	}()

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return errors.New("notice publisher connection is closed")
	}

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Confirm(false); err != nil {
		return err
	}

	env := newNoticeEnvelope(notice)
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	key := "sms." + notice.Template
	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     env.Meta.ID,
			CorrelationId: uuid.NewString(),
			Timestamp:     env.Meta.Time,
			Type:          env.Meta.Type,
			Body:          body,
		},
	)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("broker nacked notice %s", env.Meta.ID)
	}
	r.log.Info("published", slog.String("key", key), slog.String("exchange", r.exchange))
	return nil
}

func (r *RabbitNoticePublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// LogNoticePublisher only logs notices. Used when no broker is configured.
type LogNoticePublisher struct {
	Logger *slog.Logger
}

func (l LogNoticePublisher) Publish(_ context.Context, notice models.SMSNotice) error {
	l.Logger.Info("notice not sent, no broker configured", "to", notice.To, "template", notice.Template)
	return nil
}

func (l LogNoticePublisher) Close() error { return nil }
