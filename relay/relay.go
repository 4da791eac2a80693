// Package relay 在多个 engine 节点之间转发 WS 下行帧。
//
// 每个节点只持有本机的 WebSocket 连接；事件产生后先本机投递，再通过 Relay 发布给其他节点，
// 其他节点收到后投递给本机上的目标用户。节点忽略自己发布的 Envelope。
package relay

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrClosed relay 已关闭
var ErrClosed = errors.New("relay: closed")

// Envelope 跨节点投递单元
type Envelope struct {
	Origin  string          `json:"origin"`   // 发布节点 ID
	UserIDs []uint64        `json:"user_ids"` // 目标用户（内部 id）
	Frame   json.RawMessage `json:"frame"`    // 已序列化的 wire.Frame
}

// Handler 处理收到的 Envelope
type Handler func(Envelope)

// Relay 跨节点广播
type Relay interface {
	// Publish 发布一个 Envelope
	Publish(ctx context.Context, env Envelope) error
	// Subscribe 阻塞消费直到 ctx 结束或 relay 关闭；返回 ctx.Err() 或底层错误
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

func encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func decode(b []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(b, &env)
	return env, err
}

// FilterOrigin 包装 Handler，丢弃来自 self 的 Envelope
func FilterOrigin(self string, h Handler) Handler {
	return func(env Envelope) {
		if env.Origin == self {
			return
		}
		h(env)
	}
}
