package birdchat

import (
	"time"

	"github.com/cydxin/birdchat/relay"
	"github.com/cydxin/birdchat/service"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceConfig struct {
	Debug bool
	// AutoCreateUsers 登录时自动创建不存在的用户
	AutoCreateUsers bool
}

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Logger      *zap.Logger
	Service     ServiceConfig

	// Relay 多节点部署时的事件转发，为空表示单节点
	Relay relay.Relay
	// NodeID 本节点标识，为空时启动时生成
	NodeID string

	// GroupCoverMerge 群组封面合成配置（创建群组且未指定封面时，用成员头像拼图）
	GroupCoverMerge GroupCoverMergeConfig

	// ScheduledDispatchInterval 定时消息扫描间隔，<=0 时不启动
	ScheduledDispatchInterval time.Duration

	// ReadFlushInterval 在线用户已读游标的周期落库间隔
	ReadFlushInterval time.Duration

	Upload service.UploadConfig
}

// GroupCoverMergeConfig 群组封面合成配置（Engine级别）。
// OutputDir 为空时使用 <可执行文件目录>/uploads/auto_cover。
type GroupCoverMergeConfig struct {
	Enabled    bool
	CanvasSize int
	Padding    int
	Gap        int
	Timeout    time.Duration
	OutputDir  string

	// URLPrefix 写库的访问路径前缀，例如 "uploads/auto_cover" 或 "https://cdn.xxx.com/auto_cover"
	URLPrefix string
	// LocalPathRoot 非空时，以 / 开头的头像地址按本地文件读取
	LocalPathRoot string
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithRelay 配置跨节点事件转发，nodeID 为空时自动生成
func WithRelay(r relay.Relay, nodeID string) Option {
	return func(c *Config) {
		c.Relay = r
		c.NodeID = nodeID
	}
}

func WithServiceDebug(debug bool) Option {
	return func(c *Config) {
		c.Service.Debug = debug
	}
}

func WithAutoCreateUsers(on bool) Option {
	return func(c *Config) {
		c.Service.AutoCreateUsers = on
	}
}

// WithGroupCoverMergeConfig 配置群组封面合成。
func WithGroupCoverMergeConfig(cfg GroupCoverMergeConfig) Option {
	return func(c *Config) {
		c.GroupCoverMerge = cfg
	}
}

func WithScheduledDispatchInterval(d time.Duration) Option {
	return func(c *Config) {
		c.ScheduledDispatchInterval = d
	}
}

func WithReadFlushInterval(d time.Duration) Option {
	return func(c *Config) {
		c.ReadFlushInterval = d
	}
}

// WithUpload 配置文件消息的本地存储
func WithUpload(cfg service.UploadConfig) Option {
	return func(c *Config) {
		c.Upload = cfg
	}
}
