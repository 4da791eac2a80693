package service

import (
	"context"
	"strconv"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// 输入状态超过该时间未续期视为结束
const typingTTL = 10 * time.Second

// Redis Key: bc:typing:{channel_url} -> Hash(uid -> 过期毫秒时间戳)
func typingKey(url string) string {
	return "bc:typing:" + url
}

// StartTyping 群组成员开始输入
func (s *ChannelService) StartTyping(ctx context.Context, uid uint64, url string) error {
	return s.setTyping(ctx, uid, url, true)
}

// EndTyping 结束输入
func (s *ChannelService) EndTyping(ctx context.Context, uid uint64, url string) error {
	return s.setTyping(ctx, uid, url, false)
}

func (s *ChannelService) setTyping(ctx context.Context, uid uint64, url string, typing bool) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return ErrInvalidParam
	}

	ids, err := s.updateTyping(ctx, uid, url, typing)
	if err != nil {
		return err
	}
	users, err := repository.NewUserDAO(s.db(ctx)).FindByIDs(ids)
	if err != nil {
		return err
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventTypingStatusUpdated, wire.TypingPayload{TypingUsers: s.toWireUsers(users)})
	return nil
}

// updateTyping 写入/清除输入状态并返回当前仍在输入的用户。
// 未配置 Redis 时只反映本次调用者自身的状态。
func (s *ChannelService) updateTyping(ctx context.Context, uid uint64, url string, typing bool) ([]uint64, error) {
	if s.RDB == nil {
		if typing {
			return []uint64{uid}, nil
		}
		return nil, nil
	}
	key := typingKey(url)
	field := strconv.FormatUint(uid, 10)
	now := s.now()

	pipe := s.RDB.TxPipeline()
	if typing {
		pipe.HSet(ctx, key, field, now.Add(typingTTL).UnixMilli())
	} else {
		pipe.HDel(ctx, key, field)
	}
	pipe.Expire(ctx, key, typingTTL*3)
	all := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var ids, expired []uint64
	for f, exp := range all.Val() {
		id, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		until, err := strconv.ParseInt(exp, 10, 64)
		if err != nil || until <= now.UnixMilli() {
			expired = append(expired, id)
			continue
		}
		ids = append(ids, id)
	}
	if len(expired) > 0 {
		fields := make([]string, 0, len(expired))
		for _, id := range expired {
			fields = append(fields, strconv.FormatUint(id, 10))
		}
		if err := s.RDB.HDel(ctx, key, fields...).Err(); err != nil {
			s.log().Debug("typing cleanup failed", zap.String("channel_url", url), zap.Error(err))
		}
	}
	return ids, nil
}
