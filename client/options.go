package client

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reconnect 断线重连的指数退避参数。MaxRetries<=0 表示不自动重连。
type Reconnect struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	MaxRetries int
}

// delay 第 attempt 次（从 1 开始）重试前的等待时间
func (r Reconnect) delay(attempt int) time.Duration {
	d := float64(r.Initial)
	for i := 1; i < attempt; i++ {
		d *= r.Multiplier
		if r.Max > 0 && d >= float64(r.Max) {
			return r.Max
		}
	}
	if r.Max > 0 && time.Duration(d) > r.Max {
		return r.Max
	}
	return time.Duration(d)
}

// Options NewMain 的配置
type Options struct {
	// APIHost REST 地址，例如 https://chat.example.com（不含 /api/v1）
	APIHost string
	// WSHost WebSocket 地址，为空时由 APIHost 推导
	WSHost     string
	HTTPClient *http.Client
	Logger     *zap.Logger
	Reconnect  Reconnect
	// AckTimeout WS 请求等待 ack 的最长时间
	AckTimeout time.Duration
	// CacheDir 非空时在该目录下启用本地消息缓存
	CacheDir string
}

// DefaultOptions 返回带默认值的配置
func DefaultOptions(apiHost string) Options {
	return Options{
		APIHost:    apiHost,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     zap.NewNop(),
		Reconnect: Reconnect{
			Initial:    time.Second,
			Max:        30 * time.Second,
			Multiplier: 2,
			MaxRetries: 5,
		},
		AckTimeout: 10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.APIHost)
	if o.HTTPClient == nil {
		o.HTTPClient = d.HTTPClient
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.Reconnect.Initial <= 0 {
		o.Reconnect.Initial = d.Reconnect.Initial
	}
	if o.Reconnect.Multiplier < 1 {
		o.Reconnect.Multiplier = d.Reconnect.Multiplier
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = d.AckTimeout
	}
	o.APIHost = strings.TrimSuffix(o.APIHost, "/")
	if o.WSHost == "" {
		o.WSHost = wsHostFor(o.APIHost)
	}
	o.WSHost = strings.TrimSuffix(o.WSHost, "/")
	return o
}

func wsHostFor(api string) string {
	switch {
	case strings.HasPrefix(api, "https://"):
		return "wss://" + strings.TrimPrefix(api, "https://")
	case strings.HasPrefix(api, "http://"):
		return "ws://" + strings.TrimPrefix(api, "http://")
	}
	return api
}
