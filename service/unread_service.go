package service

import (
	"context"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// UnreadService 未读计数。计算前先把 session 中延迟的已读游标落库。
type UnreadService struct {
	*Service
}

func NewUnreadService(s *Service) *UnreadService {
	return &UnreadService{Service: s}
}

func (s *UnreadService) flush(uid uint64) {
	if s.PendingReadFlusher != nil {
		s.PendingReadFlusher(uid)
	}
}

// TotalUnreadMessageCount 已加入群组的未读总数；customTypes 为空表示全部
func (s *UnreadService) TotalUnreadMessageCount(ctx context.Context, uid uint64, customTypes []string) (int, map[string]int, error) {
	s.flush(uid)
	byType, err := repository.NewMessageDAO(s.db(ctx)).UnreadByCustomType(uid, customTypes)
	if err != nil {
		return 0, nil, err
	}
	total := 0
	for _, n := range byType {
		total += n
	}
	return total, byType, nil
}

// UnreadChannelCount 有未读消息的群组数
func (s *UnreadService) UnreadChannelCount(ctx context.Context, uid uint64) (int, error) {
	s.flush(uid)
	n, err := repository.NewMessageDAO(s.db(ctx)).UnreadChannelCount(uid)
	return int(n), err
}

// ChannelCount 按成员状态统计群组数：all / joined / invited
func (s *UnreadService) ChannelCount(ctx context.Context, uid uint64, state string) (int, error) {
	var st uint8
	switch state {
	case "", "all":
	case cons.MemberStateJoined:
		st = models.MemberStateJoined
	case cons.MemberStateInvited:
		st = models.MemberStateInvited
	default:
		return 0, ErrInvalidParam
	}
	n, err := repository.NewMemberDAO(s.db(ctx)).CountByState(uid, st)
	return int(n), err
}

// UnreadItemCount key 为 wire.UnreadKey* 的位集合，只计算请求的项
func (s *UnreadService) UnreadItemCount(ctx context.Context, uid uint64, key int) (*wire.UnreadItemCount, error) {
	if key == 0 {
		return nil, ErrInvalidParam
	}
	out := &wire.UnreadItemCount{}
	if key&wire.UnreadKeyGroupChannelMessage != 0 {
		n, _, err := s.TotalUnreadMessageCount(ctx, uid, nil)
		if err != nil {
			return nil, err
		}
		out.GroupChannelUnreadMessageCount = &n
	}
	if key&wire.UnreadKeyGroupChannelChannel != 0 {
		n, err := s.UnreadChannelCount(ctx, uid)
		if err != nil {
			return nil, err
		}
		out.GroupChannelUnreadChannelCount = &n
	}
	if key&wire.UnreadKeyGroupChannelInvitation != 0 {
		n, err := s.ChannelCount(ctx, uid, cons.MemberStateInvited)
		if err != nil {
			return nil, err
		}
		out.GroupChannelInvitationCount = &n
	}
	return out, nil
}

// PublishTotal 推送总未读变化
func (s *UnreadService) PublishTotal(ctx context.Context, uid uint64) {
	if s == nil {
		return
	}
	total, byType, err := s.TotalUnreadMessageCount(ctx, uid, nil)
	if err != nil {
		s.log().Warn("compute total unread failed", zap.Uint64("uid", uid), zap.Error(err))
		return
	}
	s.Events.UserEvent(ctx, uid, cons.EventTotalUnreadCountUpdated, wire.UnreadCountPayload{
		TotalCount:        total,
		CountByCustomType: byType,
	})
}
