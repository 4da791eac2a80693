package service

import (
	"context"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// ModerationService 封禁、禁言、管理员、冻结
type ModerationService struct {
	*Service
	users *UserService
}

func NewModerationService(s *Service, users *UserService) *ModerationService {
	return &ModerationService{Service: s, users: users}
}

// endAt seconds <= 0 表示永久
func (s *ModerationService) endAt(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := s.now().Add(time.Duration(seconds) * time.Second)
	return &t
}

func (s *ModerationService) target(ctx context.Context, uid uint64, userID string) (*models.User, error) {
	t, err := s.users.resolveOne(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t.ID == uid {
		return nil, ErrInvalidParam
	}
	return t, nil
}

// Ban 封禁并移出频道
func (s *ModerationService) Ban(ctx context.Context, uid uint64, url, userID string, seconds int64, description string) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	t, err := s.target(ctx, uid, userID)
	if err != nil {
		return err
	}
	mod := repository.NewModerationDAO(s.db(ctx))
	if err := mod.UpsertBan(&models.ChannelBan{ChannelID: v.ch.ID, UserID: t.ID, Description: description, EndAt: s.endAt(seconds)}); err != nil {
		return err
	}
	if v.ch.Type == models.ChannelTypeOpen {
		if _, err := s.removeParticipant(ctx, v.ch, t.ID); err != nil {
			return err
		}
	} else {
		if err := s.removeMember(ctx, v.ch, t.ID); err != nil {
			return err
		}
	}
	if err := mod.RemoveOperators(v.ch.ID, []uint64{t.ID}); err != nil {
		return err
	}
	s.log().Info("user banned", zap.String("channel_url", url), zap.String("user_id", t.UserID), zap.Int64("seconds", seconds))
	s.Events.Broadcast(ctx, v.ch, cons.EventUserBanned, wire.UserPayload{User: s.toWireUser(t)}, t.ID)
	return nil
}

func (s *ModerationService) Unban(ctx context.Context, uid uint64, url, userID string) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	t, err := s.users.resolveOne(ctx, userID)
	if err != nil {
		return err
	}
	n, err := repository.NewModerationDAO(s.db(ctx)).DeleteBan(v.ch.ID, t.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventUserUnbanned, wire.UserPayload{User: s.toWireUser(t)}, t.ID)
	}
	return nil
}

func (s *ModerationService) ListBanned(ctx context.Context, uid uint64, url, next string, limit int) (*wire.Page[wire.User], error) {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewModerationDAO(s.db(ctx)).ListBans(v.ch.ID, s.now(), cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: make([]wire.User, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireUser(&rows[i].User))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}

// Mute 禁言，被禁言者仍在频道内
func (s *ModerationService) Mute(ctx context.Context, uid uint64, url, userID string, seconds int64, description string) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	t, err := s.target(ctx, uid, userID)
	if err != nil {
		return err
	}
	if err := repository.NewModerationDAO(s.db(ctx)).UpsertMute(&models.ChannelMute{ChannelID: v.ch.ID, UserID: t.ID, Description: description, EndAt: s.endAt(seconds)}); err != nil {
		return err
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventUserMuted, wire.UserPayload{User: s.toWireUser(t)})
	return nil
}

func (s *ModerationService) Unmute(ctx context.Context, uid uint64, url, userID string) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	t, err := s.users.resolveOne(ctx, userID)
	if err != nil {
		return err
	}
	n, err := repository.NewModerationDAO(s.db(ctx)).DeleteMute(v.ch.ID, t.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventUserUnmuted, wire.UserPayload{User: s.toWireUser(t)})
	}
	return nil
}

// ListMuted 频道成员都可以查看
func (s *ModerationService) ListMuted(ctx context.Context, uid uint64, url, next string, limit int) (*wire.Page[wire.User], error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewModerationDAO(s.db(ctx)).ListMutes(v.ch.ID, s.now(), cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: make([]wire.User, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireUser(&rows[i].User))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}

// AddOperators 管理员添加管理员
func (s *ModerationService) AddOperators(ctx context.Context, uid uint64, url string, userIDs []string) error {
	return s.changeOperators(ctx, uid, url, userIDs, true)
}

// RemoveOperators 管理员移除管理员（可以移除自己）
func (s *ModerationService) RemoveOperators(ctx context.Context, uid uint64, url string, userIDs []string) error {
	return s.changeOperators(ctx, uid, url, userIDs, false)
}

func (s *ModerationService) changeOperators(ctx context.Context, uid uint64, url string, userIDs []string, add bool) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	users, err := s.users.ResolveIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrInvalidParam
	}
	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	mod := repository.NewModerationDAO(s.db(ctx))
	if add {
		err = mod.AddOperators(v.ch.ID, ids)
	} else {
		err = mod.RemoveOperators(v.ch.ID, ids)
	}
	if err != nil {
		return err
	}
	ops, err := mod.ListOperators(v.ch.ID, 0, repository.MaxLimit)
	if err != nil {
		return err
	}
	payload := wire.OperatorsPayload{Operators: make([]wire.User, 0, len(ops))}
	for i := range ops {
		payload.Operators = append(payload.Operators, s.toWireUser(&ops[i].User))
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventOperatorsUpdated, payload)
	return nil
}

// ListOperators 群组成员、公开群组或开放频道可查看
func (s *ModerationService) ListOperators(ctx context.Context, uid uint64, url, next string, limit int) (*wire.Page[wire.User], error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type == models.ChannelTypeGroup && v.member == nil && !v.ch.IsPublic {
		return nil, ErrNotMember
	}
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewModerationDAO(s.db(ctx)).ListOperators(v.ch.ID, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: make([]wire.User, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireUser(&rows[i].User))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}

// SetFrozen 冻结后只有管理员能发消息
func (s *ModerationService) SetFrozen(ctx context.Context, uid uint64, url string, frozen bool) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.ch.IsFrozen == frozen {
		return nil
	}
	if err := repository.NewChannelDAO(s.db(ctx)).UpdateFields(v.ch.ID, map[string]any{"is_frozen": frozen}); err != nil {
		return err
	}
	v.ch.IsFrozen = frozen
	event := cons.EventChannelUnfrozen
	if frozen {
		event = cons.EventChannelFrozen
	}
	s.Events.Broadcast(ctx, v.ch, event, struct{}{})
	return nil
}
