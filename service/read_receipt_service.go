package service

import (
	"context"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// ReadReceiptService 已读/送达回执。
// WS 上报的已读游标先写在 session.ReadList 里延迟落库，本服务负责最终 flush 与事件推送。
type ReadReceiptService struct {
	*Service
}

func NewReadReceiptService(s *Service) *ReadReceiptService {
	return &ReadReceiptService{Service: s}
}

// FlushUserRead 批量 flush 用户在多个频道的最后已读 message_id。
// channels: channel_id -> last_read_msg_id；游标只前进不后退。
func (s *ReadReceiptService) FlushUserRead(userID uint64, channels map[uint64]uint64) error {
	if userID == 0 || len(channels) == 0 {
		return nil
	}

	now := s.now()
	dao := repository.NewMemberDAO(s.DB)
	for channelID, lastRead := range channels {
		if channelID == 0 || lastRead == 0 {
			continue
		}
		if err := dao.UpdateLastRead(channelID, userID, lastRead, now); err != nil {
			return err
		}
	}
	return nil
}

// ResolveRead 把客户端上报的已读位置换成频道内实际的消息 id（0 表示读到最新）。
// 返回频道与 message id；非成员返回 ErrNotMember。
func (s *ReadReceiptService) ResolveRead(ctx context.Context, userID uint64, channelURL string, msgID uint64) (*models.Channel, uint64, error) {
	ch, err := repository.NewChannelDAO(s.db(ctx)).FindByURL(channelURL)
	if err != nil {
		return nil, 0, notFound(err, ErrChannelNotFound)
	}
	if ch.Type != models.ChannelTypeGroup {
		return nil, 0, ErrInvalidParam
	}
	m, err := repository.NewMemberDAO(s.db(ctx)).Find(ch.ID, userID)
	if err != nil {
		return nil, 0, notFound(err, ErrNotMember)
	}
	if m.State != models.MemberStateJoined {
		return nil, 0, ErrNotMember
	}
	if msgID == 0 || (ch.LastMessageID != nil && msgID > *ch.LastMessageID) {
		if ch.LastMessageID == nil {
			return ch, 0, nil
		}
		msgID = *ch.LastMessageID
	}
	return ch, msgID, nil
}

// MarkAsRead HTTP 路径：立即落库并推送回执
func (s *ReadReceiptService) MarkAsRead(ctx context.Context, userID uint64, channelURL string) error {
	ch, msgID, err := s.ResolveRead(ctx, userID, channelURL, 0)
	if err != nil {
		return err
	}
	if msgID == 0 {
		return nil
	}
	if err := repository.NewMemberDAO(s.db(ctx)).UpdateLastRead(ch.ID, userID, msgID, s.now()); err != nil {
		return err
	}
	s.PublishRead(ctx, ch, userID, msgID)
	return nil
}

// PublishRead 推送已读回执给频道成员
func (s *ReadReceiptService) PublishRead(ctx context.Context, ch *models.Channel, userID, msgID uint64) {
	u, err := repository.NewUserDAO(s.db(ctx)).FindByID(userID)
	if err != nil {
		s.log().Warn("read receipt user lookup failed", zap.Uint64("user_id", userID), zap.Error(err))
		return
	}
	s.Events.Broadcast(ctx, ch, cons.EventReadReceiptUpdated, wire.ReceiptPayload{
		User:      s.toWireUser(u),
		MessageID: msgID,
		Timestamp: ms(s.now()),
	})
}

// MarkDelivered 送达回执：立即落库并推送
func (s *ReadReceiptService) MarkDelivered(ctx context.Context, userID uint64, channelURL string, msgID uint64) error {
	if msgID == 0 {
		return ErrInvalidParam
	}
	ch, msgID, err := s.ResolveRead(ctx, userID, channelURL, msgID)
	if err != nil {
		return err
	}
	if msgID == 0 {
		return nil
	}
	if err := repository.NewMemberDAO(s.db(ctx)).UpdateLastDelivered(ch.ID, userID, msgID); err != nil {
		return err
	}
	u, err := repository.NewUserDAO(s.db(ctx)).FindByID(userID)
	if err != nil {
		return err
	}
	s.Events.Broadcast(ctx, ch, cons.EventDeliveryReceiptUpdated, wire.ReceiptPayload{
		User:      s.toWireUser(u),
		MessageID: msgID,
		Timestamp: ms(s.now()),
	})
	return nil
}
