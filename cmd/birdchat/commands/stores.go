package commands

import (
	"context"
	"fmt"

	"github.com/cydxin/birdchat"
	"github.com/cydxin/birdchat/config"
	"github.com/cydxin/birdchat/relay"
	"github.com/cydxin/birdchat/service"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openDB(c config.MySQLConfig, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(c.DSN), &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(c.ConnMaxLife)
	}
	return db, nil
}

func openRedis(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", c.Addr, err)
	}
	return rdb, nil
}

// newRelay 按配置创建跨节点转发，kind 为空返回 nil（单节点）
func newRelay(c config.RelayConfig, log *zap.Logger) (relay.Relay, error) {
	switch c.Kind {
	case config.RelayNone:
		return nil, nil
	case config.RelayMemory:
		return relay.NewMemory(), nil
	case config.RelayNATS:
		return relay.NewNATS(relay.NATSConfig{
			URL:           c.NATS.URL,
			Subject:       c.NATS.Subject,
			Name:          "birdchat",
			ConnTimeout:   c.NATS.ConnTimeout,
			MaxReconnects: c.NATS.MaxReconnects,
		}, log)
	case config.RelayRabbitMQ:
		return relay.NewRabbitMQ(relay.RabbitMQConfig{
			URL:         c.RabbitMQ.URL,
			Exchange:    c.RabbitMQ.Exchange,
			ConnTimeout: c.RabbitMQ.ConnTimeout,
		}, log)
	case config.RelayKafka:
		return relay.NewKafka(relay.KafkaConfig{
			Brokers:  c.Kafka.Brokers,
			Topic:    c.Kafka.Topic,
			ClientID: c.Kafka.ClientID,
		}, log)
	}
	return nil, fmt.Errorf("unknown relay kind %q", c.Kind)
}

// engineOptions 把配置翻译成 engine 选项
func engineOptions(c *config.Config, db *gorm.DB, rdb *redis.Client, r relay.Relay, log *zap.Logger) []birdchat.Option {
	opts := []birdchat.Option{
		birdchat.WithDB(db),
		birdchat.WithTablePrefix(c.Engine.TablePrefix),
		birdchat.WithLogger(log),
		birdchat.WithServiceDebug(c.Engine.Debug),
		birdchat.WithAutoCreateUsers(c.Engine.AutoCreateUsers),
		birdchat.WithScheduledDispatchInterval(c.Scheduled.Interval),
		birdchat.WithReadFlushInterval(c.Engine.ReadFlushInterval),
		birdchat.WithUpload(service.UploadConfig{
			Dir:       c.Upload.Dir,
			URLPrefix: c.Upload.URLPrefix,
			MaxBytes:  c.Upload.MaxBytes,
		}),
	}
	if rdb != nil {
		opts = append(opts, birdchat.WithRDB(rdb))
	}
	if r != nil {
		opts = append(opts, birdchat.WithRelay(r, c.Engine.NodeID))
	}
	return opts
}
