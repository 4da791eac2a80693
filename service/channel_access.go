package service

import (
	"context"
	"errors"

	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"gorm.io/gorm"
)

// channelView 某用户视角下的频道
type channelView struct {
	ch          *models.Channel
	member      *models.ChannelMember // 群组：非成员为 nil
	participant bool                  // 开放频道：是否已进入
	operator    bool
}

func (v *channelView) joined() bool {
	if v.ch.Type == models.ChannelTypeOpen {
		return v.participant
	}
	return v.member != nil && v.member.State == models.MemberStateJoined
}

// messageOffset 对本人不可见的消息上界
func (v *channelView) messageOffset() uint64 {
	if v.member == nil || v.member.MessageOffsetID == nil {
		return 0
	}
	return *v.member.MessageOffsetID
}

func (s *Service) findChannel(ctx context.Context, url string) (*models.Channel, error) {
	if url == "" {
		return nil, ErrInvalidParam
	}
	ch, err := repository.NewChannelDAO(s.db(ctx)).FindByURL(url)
	if err != nil {
		return nil, notFound(err, ErrChannelNotFound)
	}
	return ch, nil
}

func (s *Service) viewOf(ctx context.Context, ch *models.Channel, uid uint64) (*channelView, error) {
	v := &channelView{ch: ch}
	mod := repository.NewModerationDAO(s.db(ctx))
	if ch.Type == models.ChannelTypeOpen {
		ok, err := mod.IsParticipant(ch.ID, uid)
		if err != nil {
			return nil, err
		}
		v.participant = ok
	} else {
		m, err := repository.NewMemberDAO(s.db(ctx)).Find(ch.ID, uid)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		v.member = m
	}
	op, err := mod.IsOperator(ch.ID, uid)
	if err != nil {
		return nil, err
	}
	v.operator = op
	return v, nil
}

func (s *Service) viewChannel(ctx context.Context, uid uint64, url string) (*channelView, error) {
	ch, err := s.findChannel(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.viewOf(ctx, ch, uid)
}

// requireJoined 群组需已加入，开放频道需已进入
func (s *Service) requireJoined(ctx context.Context, uid uint64, url string) (*channelView, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if !v.joined() {
		return nil, ErrNotMember
	}
	return v, nil
}

// requireOperator 频道管理员才能操作
func (s *Service) requireOperator(ctx context.Context, uid uint64, url string) (*channelView, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if !v.operator {
		return nil, ErrNotOperator
	}
	return v, nil
}

// checkCanSend 发送前校验：成员 -> 冻结（管理员豁免）-> 禁言 -> 1:1 拉黑
func (s *Service) checkCanSend(ctx context.Context, v *channelView, uid uint64) error {
	if !v.joined() {
		return ErrNotMember
	}
	if v.ch.IsFrozen && !v.operator {
		return ErrChannelFrozen
	}
	mod := repository.NewModerationDAO(s.db(ctx))
	if _, err := mod.ActiveMute(v.ch.ID, uid, s.now()); err == nil {
		return ErrUserMuted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if v.ch.Type == models.ChannelTypeGroup && v.ch.IsDistinct && v.ch.MemberCount == 2 {
		ids, err := repository.NewMemberDAO(s.db(ctx)).UserIDs(v.ch.ID, 0)
		if err != nil {
			return err
		}
		social := repository.NewSocialDAO(s.db(ctx))
		for _, other := range ids {
			if other == uid {
				continue
			}
			blocked, err := social.IsBlockedEither(uid, other)
			if err != nil {
				return err
			}
			if blocked {
				return ErrUserBlocked
			}
		}
	}
	return nil
}
