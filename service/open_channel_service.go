package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"gorm.io/gorm"
)

// CreateOpenChannelReq 创建开放频道
type CreateOpenChannelReq struct {
	ChannelURL      string   `json:"channel_url"`
	Name            string   `json:"name"`
	CoverURL        string   `json:"cover_url"`
	Data            string   `json:"data"`
	CustomType      string   `json:"custom_type"`
	OperatorUserIDs []string `json:"operator_ids"`
}

// CreateOpen 没有指定管理员时创建者为管理员
func (s *ChannelService) CreateOpen(ctx context.Context, uid uint64, req CreateOpenChannelReq) (*wire.OpenChannel, error) {
	ops, err := s.users.ResolveIDs(ctx, req.OperatorUserIDs)
	if err != nil {
		return nil, err
	}
	opIDs := []uint64{uid}
	if len(ops) > 0 {
		opIDs = opIDs[:0]
		for _, u := range ops {
			opIDs = append(opIDs, u.ID)
		}
	}
	url := strings.TrimSpace(req.ChannelURL)
	if url == "" {
		url = newChannelURL("open")
	}
	ch := &models.Channel{
		ChannelURL: url,
		Type:       models.ChannelTypeOpen,
		Name:       strings.TrimSpace(req.Name),
		CoverURL:   strings.TrimSpace(req.CoverURL),
		Data:       req.Data,
		CustomType: req.CustomType,
		CreatorID:  uid,
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewChannelDAO(tx).Create(ch); err != nil {
			return err
		}
		return repository.NewModerationDAO(tx).AddOperators(ch.ID, opIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.toWireOpenChannel(ctx, ch)
}

func (s *ChannelService) findOpen(ctx context.Context, url string) (*models.Channel, error) {
	ch, err := s.findChannel(ctx, url)
	if err != nil {
		return nil, err
	}
	if ch.Type != models.ChannelTypeOpen {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

func (s *ChannelService) GetOpen(ctx context.Context, url string) (*wire.OpenChannel, error) {
	ch, err := s.findOpen(ctx, url)
	if err != nil {
		return nil, err
	}
	return s.toWireOpenChannel(ctx, ch)
}

// ListOpenReq 开放频道列表
type ListOpenReq struct {
	Filter repository.OpenChannelFilter
	Next   string
	Limit  int
}

func (s *ChannelService) ListOpen(ctx context.Context, req ListOpenReq) (*wire.Page[wire.OpenChannel], error) {
	cur, limit, err := pageArgs(req.Next, req.Limit)
	if err != nil {
		return nil, err
	}
	chs, err := repository.NewChannelDAO(s.db(ctx)).ListOpen(req.Filter, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.OpenChannel]{Items: make([]wire.OpenChannel, 0, len(chs))}
	for i := range chs {
		oc, err := s.toWireOpenChannel(ctx, &chs[i])
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *oc)
	}
	if n := len(chs); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: chs[n-1].ID})
	}
	return page, nil
}

// UpdateOpen 仅管理员
func (s *ChannelService) UpdateOpen(ctx context.Context, uid uint64, url string, req UpdateChannelReq) (*wire.OpenChannel, error) {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeOpen {
		return nil, ErrChannelNotFound
	}
	if err := repository.NewChannelDAO(s.db(ctx)).UpdateFields(v.ch.ID, req.fields(false)); err != nil {
		return nil, err
	}
	ch, err := s.findOpen(ctx, url)
	if err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, ch, cons.EventChannelChanged, struct{}{})
	return s.toWireOpenChannel(ctx, ch)
}

// Enter 进入开放频道，被封禁的用户拒绝
func (s *ChannelService) Enter(ctx context.Context, uid uint64, url string) (*wire.OpenChannel, error) {
	ch, err := s.findOpen(ctx, url)
	if err != nil {
		return nil, err
	}
	mod := repository.NewModerationDAO(s.db(ctx))
	if _, err := mod.ActiveBan(ch.ID, uid, s.now()); err == nil {
		return nil, ErrUserBanned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	var added bool
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		added, err = repository.NewModerationDAO(tx).AddParticipant(ch.ID, uid, s.now())
		if err != nil || !added {
			return err
		}
		return repository.NewChannelDAO(tx).AddParticipantCount(ch.ID, 1)
	})
	if err != nil {
		return nil, err
	}
	if added {
		ch.ParticipantCount++
		s.publishUser(ctx, ch, uid, cons.EventUserJoined)
	}
	return s.toWireOpenChannel(ctx, ch)
}

// Exit 离开开放频道
func (s *ChannelService) Exit(ctx context.Context, uid uint64, url string) error {
	ch, err := s.findOpen(ctx, url)
	if err != nil {
		return err
	}
	removed, err := s.removeParticipant(ctx, ch, uid)
	if err != nil {
		return err
	}
	if removed {
		s.publishUser(ctx, ch, uid, cons.EventUserLeft, uid)
	}
	return nil
}

func (s *Service) removeParticipant(ctx context.Context, ch *models.Channel, uid uint64) (bool, error) {
	var n int64
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = repository.NewModerationDAO(tx).RemoveParticipant(ch.ID, uid)
		if err != nil || n == 0 {
			return err
		}
		return repository.NewChannelDAO(tx).AddParticipantCount(ch.ID, -int(n))
	})
	return n > 0, err
}

// ListParticipants 在场用户
func (s *ChannelService) ListParticipants(ctx context.Context, url, next string, limit int) (*wire.Page[wire.User], error) {
	ch, err := s.findOpen(ctx, url)
	if err != nil {
		return nil, err
	}
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewModerationDAO(s.db(ctx)).ListParticipants(ch.ID, cur.ID, limit)
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
