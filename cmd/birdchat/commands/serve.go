package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cydxin/birdchat"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP/WebSocket 服务、定时消息投递和跨节点转发",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	db, err := openDB(cfg.MySQL, cfg.Engine.Debug)
	if err != nil {
		return err
	}
	rdb, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	r, err := newRelay(cfg.Relay, logger.Named("relay"))
	if err != nil {
		return err
	}

	engine := birdchat.NewEngine(engineOptions(cfg, db, rdb, r, logger)...)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("close engine", zap.Error(err))
		}
	}()
	if cfg.Engine.AutoMigrate {
		if err := engine.AutoMigrate(); err != nil {
			return err
		}
	}

	if !cfg.Engine.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger.Named("http")))
	engine.RegisterRoutes(router.Group(cfg.HTTP.BasePath))
	engine.RegisterStatic(router)
	if cfg.Swagger.Enabled {
		birdchat.RegisterSwagger(router, cfg.Swagger.Path)
	}

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr), zap.String("node_id", engine.NodeID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// accessLog 请求日志
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// ws 连接时长没有意义
		if c.Writer.Status() == http.StatusSwitchingProtocols {
			return
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
