package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig NATS 连接配置
type NATSConfig struct {
	URL           string
	Subject       string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

// NATS 基于 core NATS subject 的广播，所有节点订阅同一 subject
type NATS struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATS(cfg NATSConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("relay: nats url required")
	}
	if cfg.Subject == "" {
		cfg.Subject = "birdchat.relay"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("relay: nats connect: %w", err)
	}
	return &NATS{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

func (n *NATS) Publish(_ context.Context, env Envelope) error {
	b, err := encode(env)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subject, b)
}

func (n *NATS) Subscribe(ctx context.Context, h Handler) error {
	sub, err := n.nc.Subscribe(n.subject, func(m *nats.Msg) {
		env, err := decode(m.Data)
		if err != nil {
			n.logger.Warn("relay: bad nats payload", zap.Error(err))
			return
		}
		h(env)
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return ctx.Err()
}

func (n *NATS) Close() error {
	if n.nc != nil && !n.nc.IsClosed() {
		_ = n.nc.Drain()
		n.nc.Close()
	}
	return nil
}
