package birdchat

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/cydxin/birdchat/middleware"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/relay"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ChatEngine struct {
	config *Config
	Logger *zap.Logger

	UserService       *service.UserService
	AuthService       *service.AuthService // 鉴权服务
	ChannelService    *service.ChannelService
	MsgService        *service.MessageService
	ReactionService   *service.ReactionService
	ModerationService *service.ModerationService
	UnreadService     *service.UnreadService
	ScheduledService  *service.ScheduledMessageService
	ReadReceipt       *service.ReadReceiptService
	FileService       *service.FileService
	Events            *service.EventPublisher
	WsServer          *WsServer

	// staticDirs URL 前缀 -> 本地目录，RegisterStatic 使用
	staticDirs map[string]string
}

var (
	Instance *ChatEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调；进程内只初始化一次。
func NewEngine(opts ...Option) *ChatEngine {
	once.Do(func() {
		c := &Config{TablePrefix: "im_"}
		for _, opt := range opts {
			opt(c)
		}
		Instance = newEngine(c)
	})
	return Instance
}

func newEngine(c *Config) *ChatEngine {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.NodeID == "" {
		c.NodeID = uuid.NewString()
	}
	models.SetTablePrefix(c.TablePrefix)

	e := &ChatEngine{config: c, Logger: c.Logger, staticDirs: map[string]string{}}
	e.WsServer = NewWsServer(c.Logger.Named("ws"))
	if c.ReadFlushInterval > 0 {
		e.WsServer.flushInterval = c.ReadFlushInterval
	}

	// 初始化基础 Service，注入 WsNotifier 回调
	base := &service.Service{
		DB:                 c.DB,
		RDB:                c.RDB,
		Logger:             c.Logger.Named("service"),
		WsNotifier:         e.WsServer.SendToUser,
		Relay:              c.Relay,
		NodeID:             c.NodeID,
		OnlineChecker:      e.WsServer.Online,
		PendingReadFlusher: e.WsServer.FlushUser,
		CoverMerge:         coverMergeConfig(c),
		Upload:             c.Upload,
		AutoCreateUsers:    c.Service.AutoCreateUsers,
		Debug:              c.Service.Debug,
	}
	if base.Upload.Dir != "" || base.Upload.URLPrefix != "" {
		base.Upload.Dir = resolveDir(c.Logger, base.Upload.Dir, "uploads/files")
		base.Upload.URLPrefix = defaultURLPrefix(base.Upload.URLPrefix, "uploads/files")
		e.addStatic(base.Upload.URLPrefix, base.Upload.Dir)
	}
	if base.CoverMerge != nil {
		e.addStatic(base.CoverMerge.URLPrefix, base.CoverMerge.OutputDir)
	}
	base.Events = service.NewEventPublisher(base)
	base.ReadReceipt = service.NewReadReceiptService(base)
	base.SessionBootstrap = service.NewSessionBootstrapService(base)

	e.Events = base.Events
	e.ReadReceipt = base.ReadReceipt
	e.UserService = service.NewUserService(base)
	e.AuthService = service.NewAuthService(base, e.UserService)
	e.UnreadService = service.NewUnreadService(base)
	e.ChannelService = service.NewChannelService(base, e.UserService, e.UnreadService)
	e.MsgService = service.NewMessageService(base)
	e.ReactionService = service.NewReactionService(base)
	e.ModerationService = service.NewModerationService(base, e.UserService)
	e.ScheduledService = service.NewScheduledMessageService(base, e.MsgService)
	e.FileService = service.NewFileService(base)

	e.WsServer.flushRead = e.ReadReceipt.FlushUserRead
	e.WsServer.loadRead = base.SessionBootstrap.GetLastReads
	e.WsServer.onOffline = func(uid uint64) {
		e.UserService.TouchLastSeen(context.Background(), uid)
	}
	e.bindWsHandlersOnMessage()
	return e
}

func coverMergeConfig(c *Config) *service.CoverMergeConfig {
	g := c.GroupCoverMerge
	if !g.Enabled {
		return nil
	}
	return &service.CoverMergeConfig{
		CanvasSize:    g.CanvasSize,
		Padding:       g.Padding,
		Gap:           g.Gap,
		Timeout:       g.Timeout,
		OutputDir:     resolveDir(c.Logger, g.OutputDir, "uploads/auto_cover"),
		URLPrefix:     defaultURLPrefix(g.URLPrefix, "uploads/auto_cover"),
		LocalPathRoot: g.LocalPathRoot,
	}
}

// Run 启动 ws 主循环、定时消息投递和 relay 订阅，阻塞到 ctx 结束
func (c *ChatEngine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.WsServer.Run(ctx)
		return nil
	})
	if d := c.config.ScheduledDispatchInterval; d > 0 {
		g.Go(func() error {
			return c.ScheduledService.Run(ctx, d)
		})
	}
	if r := c.config.Relay; r != nil {
		g.Go(func() error {
			err := r.Subscribe(ctx, relay.FilterOrigin(c.config.NodeID, c.deliverRelayed))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// deliverRelayed 其他节点发布的帧投递给本机连接
func (c *ChatEngine) deliverRelayed(env relay.Envelope) {
	for _, uid := range env.UserIDs {
		c.WsServer.SendToUser(uid, env.Frame)
	}
}

// Close 释放 relay
func (c *ChatEngine) Close() error {
	if c.config.Relay != nil {
		return c.config.Relay.Close()
	}
	return nil
}

// NodeID 本节点标识
func (c *ChatEngine) NodeID() string {
	return c.config.NodeID
}

// ServeWS 处理 WebSocket 请求：token 取自 Authorization: Bearer 或 ?token=
// @Summary WebSocket 连接
// @Description 升级为 WebSocket。上行 message/read_ack/delivery_ack/typing_start/typing_end/ping 帧，下行 ack/error/event/pong 帧
// @Tags 连接
// @Param token query string false "session token"
// @Success 101
// @Failure 401 {object} response.Response "token 无效"
// @Router /ws [get]
func (c *ChatEngine) ServeWS(ctx *gin.Context) {
	uid, err := c.AuthService.Authenticate(ctx.Request.Context(), c.AuthService.ExtractToken(ctx.Request))
	if err != nil {
		code, msg := codeOf(err)
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(code, msg))
		return
	}
	c.WsServer.ServeWS(ctx.Writer, ctx.Request, uid)
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 ChatEngine 内部的 AuthService 和 Redis 配置
//
// 使用示例:
//
//	engine := birdchat.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
//	// 或自定义配置
//	r.Use(engine.GinAuthMiddleware(&middleware.AuthOptions{
//	    HeaderKey: "X-Token",
//	    QueryKey: "access_token",
//	}))
func (c *ChatEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(c.AuthService, opt)
}
