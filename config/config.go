// Package config 读取 birdchat 服务端配置：YAML 文件 + BIRDCHAT_ 前缀环境变量。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，键中的 . 换成 _，例如 BIRDCHAT_MYSQL_DSN
const EnvPrefix = "BIRDCHAT"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Scheduled ScheduledConfig `mapstructure:"scheduled"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	BasePath        string        `mapstructure:"base_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MySQLConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Dev 为 true 时使用 zap 开发配置（彩色、可读）
	Dev bool `mapstructure:"dev"`
}

type EngineConfig struct {
	TablePrefix       string        `mapstructure:"table_prefix"`
	AutoCreateUsers   bool          `mapstructure:"auto_create_users"`
	Debug             bool          `mapstructure:"debug"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
	ReadFlushInterval time.Duration `mapstructure:"read_flush_interval"`
	NodeID            string        `mapstructure:"node_id"`
}

type UploadConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
}

type ScheduledConfig struct {
	// Interval 定时消息扫描间隔，0 关闭
	Interval time.Duration `mapstructure:"interval"`
}

type SwaggerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// 跨节点转发类型
const (
	RelayNone     = ""
	RelayMemory   = "memory"
	RelayNATS     = "nats"
	RelayRabbitMQ = "rabbitmq"
	RelayKafka    = "kafka"
)

type RelayConfig struct {
	Kind     string         `mapstructure:"kind"`
	NATS     NATSConfig     `mapstructure:"nats"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	ConnTimeout   time.Duration `mapstructure:"conn_timeout"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
}

type RabbitMQConfig struct {
	URL         string        `mapstructure:"url"`
	Exchange    string        `mapstructure:"exchange"`
	ConnTimeout time.Duration `mapstructure:"conn_timeout"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// setDefaults 每个键都要有默认值，AutomaticEnv 只对已知键生效
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":6789")
	v.SetDefault("http.base_path", "/api/v1")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("mysql.dsn", "root:root@tcp(127.0.0.1:3306)/birdchat?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_life", time.Hour)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetDefault("engine.table_prefix", "im_")
	v.SetDefault("engine.auto_create_users", false)
	v.SetDefault("engine.debug", false)
	v.SetDefault("engine.auto_migrate", false)
	v.SetDefault("engine.read_flush_interval", 5*time.Second)
	v.SetDefault("engine.node_id", "")

	v.SetDefault("upload.dir", "uploads/files")
	v.SetDefault("upload.url_prefix", "uploads/files")
	v.SetDefault("upload.max_bytes", 25<<20)

	v.SetDefault("scheduled.interval", 5*time.Second)

	v.SetDefault("swagger.enabled", true)
	v.SetDefault("swagger.path", "/swagger/*any")

	v.SetDefault("relay.kind", RelayNone)
	v.SetDefault("relay.nats.url", "")
	v.SetDefault("relay.nats.subject", "birdchat.relay")
	v.SetDefault("relay.nats.conn_timeout", 5*time.Second)
	v.SetDefault("relay.nats.max_reconnects", -1)
	v.SetDefault("relay.rabbitmq.url", "")
	v.SetDefault("relay.rabbitmq.exchange", "birdchat.relay")
	v.SetDefault("relay.rabbitmq.conn_timeout", 5*time.Second)
	v.SetDefault("relay.kafka.brokers", []string{})
	v.SetDefault("relay.kafka.topic", "birdchat.relay")
	v.SetDefault("relay.kafka.client_id", "")
}

// Load 读取配置。path 为空时只用默认值和环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 检查相互依赖的字段
func (c *Config) Validate() error {
	switch c.Relay.Kind {
	case RelayNone, RelayMemory:
	case RelayNATS:
		if c.Relay.NATS.URL == "" {
			return fmt.Errorf("config: relay.nats.url required")
		}
	case RelayRabbitMQ:
		if c.Relay.RabbitMQ.URL == "" {
			return fmt.Errorf("config: relay.rabbitmq.url required")
		}
	case RelayKafka:
		if len(c.Relay.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: relay.kafka.brokers required")
		}
	default:
		return fmt.Errorf("config: unknown relay kind %q", c.Relay.Kind)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr required")
	}
	return nil
}
