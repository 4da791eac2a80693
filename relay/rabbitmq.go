package relay

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConfig AMQP 连接配置
type RabbitMQConfig struct {
	URL         string
	Exchange    string
	ConnTimeout time.Duration
}

// RabbitMQ fanout exchange 广播；每个订阅者声明一个独占的临时队列
type RabbitMQ struct {
	conn     *amqp.Connection
	pub      *amqp.Channel
	exchange string
	logger   *zap.Logger
}

func NewRabbitMQ(cfg RabbitMQConfig, logger *zap.Logger) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("relay: rabbitmq url required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "birdchat.relay"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "birdchat"},
		Dial:       amqp.DefaultDial(cfg.ConnTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("relay: rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitMQ{conn: conn, pub: ch, exchange: cfg.Exchange, logger: logger}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, env Envelope) error {
	b, err := encode(env)
	if err != nil {
		return err
	}
	return r.pub.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
	})
}

func (r *RabbitMQ) Subscribe(ctx context.Context, h Handler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return err
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrClosed
			}
			env, err := decode(d.Body)
			if err != nil {
				r.logger.Warn("relay: bad amqp payload", zap.Error(err))
				continue
			}
			h(env)
		}
	}
}

func (r *RabbitMQ) Close() error {
	_ = r.pub.Close()
	return r.conn.Close()
}
