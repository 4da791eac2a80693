package birdchat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// 单帧处理超时
const wsFrameTimeout = 10 * time.Second

// bindWsHandlersOnMessage 将 WS 回调从 engine.go 抽出来，避免 engine.go 臃肿。
// 放在包根目录可以直接访问 Client/UserSession，避免 service 层循环依赖。
func (c *ChatEngine) bindWsHandlersOnMessage() {
	c.WsServer.onMessage = func(client *Client, msg []byte) {
		if client == nil {
			return
		}
		var f wire.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.Logger.Debug("invalid ws frame", zap.Uint64("uid", client.UserID), zap.Error(err))
			c.replyError(client, "", response.CodeParamError, "invalid frame")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsFrameTimeout)
		defer cancel()

		var (
			data any
			err  error
		)
		switch f.Type {
		case cons.FramePing:
			c.reply(client, wire.Frame{Type: cons.FramePong, PacketID: f.PacketID})
			return
		case cons.FrameMessage:
			data, err = c.onSendMessage(ctx, client, f)
		case cons.FrameReadAck:
			err = c.onReadAck(ctx, client, f)
		case cons.FrameDeliveryAck:
			var req wire.DeliveryAckReq
			if err = f.Decode(&req); err == nil {
				err = c.ReadReceipt.MarkDelivered(ctx, client.UserID, f.ChannelURL, req.MessageID)
			}
		case cons.FrameTypingStart:
			err = c.ChannelService.StartTyping(ctx, client.UserID, f.ChannelURL)
		case cons.FrameTypingEnd:
			err = c.ChannelService.EndTyping(ctx, client.UserID, f.ChannelURL)
		default:
			c.replyError(client, f.PacketID, response.CodeParamError, "unknown frame type")
			return
		}
		if err != nil {
			code, text := codeOf(err)
			if code == response.CodeInternalError {
				c.Logger.Error("ws frame failed", zap.String("type", f.Type), zap.Uint64("uid", client.UserID), zap.Error(err))
			}
			c.replyError(client, f.PacketID, code, text)
			return
		}
		if f.PacketID == "" {
			return
		}
		ack, err := wire.NewFrame(cons.FrameAck, data)
		if err != nil {
			c.Logger.Error("build ack failed", zap.Error(err))
			return
		}
		ack.PacketID = f.PacketID
		ack.ChannelURL = f.ChannelURL
		c.reply(client, ack)
	}
}

// onSendMessage 发送用户消息；发送者本人视为已读到这条
func (c *ChatEngine) onSendMessage(ctx context.Context, client *Client, f wire.Frame) (*wire.Message, error) {
	var req wire.SendMessageReq
	if err := f.Decode(&req); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		req.RequestID = f.PacketID
	}
	m, err := c.MsgService.SendUserMessage(ctx, client.UserID, f.ChannelURL, req)
	if err != nil {
		return nil, err
	}
	if client.session != nil && m.ChannelType == cons.ChannelTypeGroup {
		if ch, id, err := c.ReadReceipt.ResolveRead(ctx, client.UserID, f.ChannelURL, m.MessageID); err == nil && id > 0 {
			client.session.mergeRead(ch.ID, id)
		}
	}
	return m, nil
}

// onReadAck 写入 session.ReadList（延迟落库），游标前进时推送回执
func (c *ChatEngine) onReadAck(ctx context.Context, client *Client, f wire.Frame) error {
	var req wire.ReadAckReq
	if err := f.Decode(&req); err != nil {
		return err
	}
	ch, id, err := c.ReadReceipt.ResolveRead(ctx, client.UserID, f.ChannelURL, req.MessageID)
	if err != nil || id == 0 {
		return err
	}
	if client.session != nil && client.session.mergeRead(ch.ID, id) {
		c.ReadReceipt.PublishRead(ctx, ch, client.UserID, id)
	}
	return nil
}

func (c *ChatEngine) reply(client *Client, f wire.Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.WsServer.sendTo(client, b)
}

func (c *ChatEngine) replyError(client *Client, packetID string, code int, msg string) {
	c.reply(client, wire.Frame{Type: cons.FrameError, PacketID: packetID, Code: code, Message: msg})
}
