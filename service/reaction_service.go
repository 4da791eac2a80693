package service

import (
	"context"
	"strings"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
)

const maxReactionKeyLen = 64

// ReactionService 消息表情回应
type ReactionService struct {
	*Service
}

func NewReactionService(s *Service) *ReactionService {
	return &ReactionService{Service: s}
}

// AddReaction 重复添加同一个 key 是幂等的，不再推送事件
func (s *ReactionService) AddReaction(ctx context.Context, uid uint64, url string, msgID uint64, key string) (*wire.ReactionEvent, error) {
	return s.apply(ctx, uid, url, msgID, key, cons.ReactionAdd)
}

func (s *ReactionService) DeleteReaction(ctx context.Context, uid uint64, url string, msgID uint64, key string) (*wire.ReactionEvent, error) {
	return s.apply(ctx, uid, url, msgID, key, cons.ReactionDelete)
}

func (s *ReactionService) apply(ctx context.Context, uid uint64, url string, msgID uint64, key, op string) (*wire.ReactionEvent, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxReactionKeyLen {
		return nil, ErrInvalidParam
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.IsFrozen && !v.operator {
		return nil, ErrChannelFrozen
	}
	if _, err := repository.NewMessageDAO(s.db(ctx)).FindInChannel(v.ch.ID, msgID); err != nil {
		return nil, notFound(err, ErrMessageNotFound)
	}
	me, err := repository.NewUserDAO(s.db(ctx)).FindByID(uid)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	dao := repository.NewReactionDAO(s.db(ctx))
	var changed bool
	if op == cons.ReactionAdd {
		changed, err = dao.Add(&models.Reaction{MessageID: msgID, UserID: uid, Key: key})
	} else {
		changed, err = dao.Remove(msgID, uid, key)
	}
	if err != nil {
		return nil, err
	}
	ev := &wire.ReactionEvent{
		MessageID: msgID,
		Key:       key,
		UserID:    me.UserID,
		Operation: op,
		UpdatedAt: ms(s.now()),
	}
	if changed {
		s.Events.Broadcast(ctx, v.ch, cons.EventReactionUpdated, ev)
	}
	return ev, nil
}
