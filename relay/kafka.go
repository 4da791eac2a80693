package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaConfig Kafka 连接配置
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Kafka 每个节点不加入消费组，从最新 offset 读取整个 topic，实现广播
type Kafka struct {
	producer *kgo.Client
	cfg      KafkaConfig
	logger   *zap.Logger
}

func NewKafka(cfg KafkaConfig, logger *zap.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("relay: kafka brokers required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "birdchat.relay"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []kgo.Opt{kgo.SeedBrokers(cfg.Brokers...), kgo.DefaultProduceTopic(cfg.Topic)}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("relay: kafka client init: %w", err)
	}
	return &Kafka{producer: cl, cfg: cfg, logger: logger}, nil
}

func (k *Kafka) Publish(ctx context.Context, env Envelope) error {
	b, err := encode(env)
	if err != nil {
		return err
	}
	return k.producer.ProduceSync(ctx, &kgo.Record{Topic: k.cfg.Topic, Value: b}).FirstErr()
}

func (k *Kafka) Subscribe(ctx context.Context, h Handler) error {
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.cfg.Brokers...),
		kgo.ConsumeTopics(k.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if k.cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(k.cfg.ClientID))
	}
	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return err
	}
	defer cl.Close()

	for {
		fetches := cl.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, p int32, err error) {
			if !errors.Is(err, context.Canceled) {
				k.logger.Warn("relay: kafka fetch", zap.String("topic", topic), zap.Int32("partition", p), zap.Error(err))
			}
		})
		fetches.EachRecord(func(r *kgo.Record) {
			env, err := decode(r.Value)
			if err != nil {
				k.logger.Warn("relay: bad kafka payload", zap.Error(err))
				return
			}
			h(env)
		})
	}
}

func (k *Kafka) Close() error {
	k.producer.Close()
	return nil
}
