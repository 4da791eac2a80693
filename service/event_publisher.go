package service

import (
	"context"
	"encoding/json"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/relay"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// EventPublisher 统一处理事件下发：先投递本机 WS 连接，再通过 relay 发往其他节点。
// 事件不落库，离线用户通过 REST 拉取最新状态。
type EventPublisher struct {
	*Service
}

func NewEventPublisher(s *Service) *EventPublisher {
	return &EventPublisher{Service: s}
}

// Deliver 把帧投递给一组用户
func (p *EventPublisher) Deliver(ctx context.Context, userIDs []uint64, f wire.Frame) {
	if p == nil || p.Service == nil {
		return
	}
	ids := uniqUint64(userIDs)
	if len(ids) == 0 {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		p.log().Error("marshal frame failed", zap.String("event", f.Event), zap.Error(err))
		return
	}
	if p.WsNotifier != nil {
		for _, uid := range ids {
			p.WsNotifier(uid, b)
		}
	}
	if p.Relay != nil {
		env := relay.Envelope{Origin: p.NodeID, UserIDs: ids, Frame: b}
		if err := p.Relay.Publish(ctx, env); err != nil {
			p.log().Warn("relay publish failed", zap.String("event", f.Event), zap.Error(err))
		}
	}
}

// ChannelEvent 向指定用户发送频道事件
func (p *EventPublisher) ChannelEvent(ctx context.Context, ch *models.Channel, event string, data any, recipients []uint64) {
	if p == nil || ch == nil {
		return
	}
	f, err := wire.NewFrame(cons.FrameEvent, data)
	if err != nil {
		p.log().Error("build event frame failed", zap.String("event", event), zap.Error(err))
		return
	}
	f.Event = event
	f.ChannelURL = ch.ChannelURL
	f.ChannelType = channelTypeName(ch.Type)
	p.Deliver(ctx, recipients, f)
}

// Audience 频道事件默认受众：群组为已加入成员，开放频道为在场用户
func (p *EventPublisher) Audience(ctx context.Context, ch *models.Channel) ([]uint64, error) {
	if ch.Type == models.ChannelTypeOpen {
		return repository.NewModerationDAO(p.db(ctx)).ParticipantIDs(ch.ID)
	}
	return repository.NewMemberDAO(p.db(ctx)).UserIDs(ch.ID, models.MemberStateJoined)
}

// Broadcast 发给默认受众，extra 为额外接收者（例如被移出的人）
func (p *EventPublisher) Broadcast(ctx context.Context, ch *models.Channel, event string, data any, extra ...uint64) {
	if p == nil || p.Service == nil || ch == nil {
		return
	}
	ids, err := p.Audience(ctx, ch)
	if err != nil {
		p.log().Warn("load audience failed", zap.String("channel_url", ch.ChannelURL), zap.Error(err))
	}
	p.ChannelEvent(ctx, ch, event, data, append(ids, extra...))
}

// UserEvent 用户级事件
func (p *EventPublisher) UserEvent(ctx context.Context, userID uint64, event string, data any) {
	if p == nil {
		return
	}
	f, err := wire.NewFrame(cons.FrameEvent, data)
	if err != nil {
		p.log().Error("build event frame failed", zap.String("event", event), zap.Error(err))
		return
	}
	f.Event = event
	p.Deliver(ctx, []uint64{userID}, f)
}
