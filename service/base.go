package service

import (
	"context"
	"time"

	"github.com/cydxin/birdchat/relay"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库和配置
type Service struct {
	DB     *gorm.DB
	RDB    *redis.Client
	Logger *zap.Logger

	// WsNotifier 本机 WebSocket 投递回调
	// 避免循环依赖，通过函数注入的方式
	WsNotifier func(userID uint64, message []byte)

	// Relay 跨节点转发（可选）；NodeID 标识本节点，用于过滤自己发布的帧
	Relay  relay.Relay
	NodeID string

	// Events 事件推送（WS + relay）
	Events *EventPublisher

	// ReadReceipt 已读回执服务（延迟落库）
	ReadReceipt *ReadReceiptService

	// SessionBootstrap WS 建连时加载会话状态（如已读游标）
	SessionBootstrap *SessionBootstrapService

	// OnlineChecker 判断用户在本节点是否有活跃连接（可选）
	OnlineChecker func(userID uint64) bool

	// PendingReadFlusher 把用户 session 中尚未落库的已读游标立即落库（可选）。
	// 未读数计算前调用，保证读到的是最新游标。
	PendingReadFlusher func(userID uint64)

	// CoverMerge 群组封面合成配置（由 engine 注入，可选）
	CoverMerge *CoverMergeConfig

	// Upload 文件上传配置
	Upload UploadConfig

	// AutoCreateUsers 登录时自动创建不存在的用户
	AutoCreateUsers bool

	// Debug 打开后记录更多日志
	Debug bool

	// Clock 测试可替换
	Clock func() time.Time
}

// UploadConfig 本地文件存储配置
type UploadConfig struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) isOnline(userID uint64) bool {
	if s.OnlineChecker == nil {
		return false
	}
	return s.OnlineChecker(userID)
}
