package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// 定时消息可选时间窗口
const (
	MinScheduleLead = time.Minute
	MaxScheduleLead = 30 * 24 * time.Hour

	dispatchBatch = 100
)

// ScheduledMessageService 定时消息：创建、取消、到期投递
type ScheduledMessageService struct {
	*Service
	messages *MessageService
}

func NewScheduledMessageService(s *Service, messages *MessageService) *ScheduledMessageService {
	return &ScheduledMessageService{Service: s, messages: messages}
}

// CreateScheduledReq 创建定时消息，ScheduledAt 为毫秒时间戳
type CreateScheduledReq struct {
	Message          string           `json:"message"`
	Data             string           `json:"data"`
	CustomType       string           `json:"custom_type"`
	MentionedUserIDs []string         `json:"mentioned_user_ids"`
	MetaArrays       []wire.MetaArray `json:"meta_arrays"`
	ScheduledAt      int64            `json:"scheduled_at"`
}

func scheduledStatusName(st uint8) string {
	switch st {
	case models.ScheduledStatusSent:
		return cons.ScheduledSent
	case models.ScheduledStatusCanceled:
		return cons.ScheduledCanceled
	case models.ScheduledStatusFailed:
		return cons.ScheduledFailed
	default:
		return cons.ScheduledPending
	}
}

func (s *Service) toWireScheduled(url string, m *models.ScheduledMessage) wire.ScheduledMessage {
	out := wire.ScheduledMessage{
		ScheduledMessageID: m.ID,
		ChannelURL:         url,
		Message:            m.Message,
		Data:               m.Data,
		CustomType:         m.CustomType,
		MentionedUserIDs:   stringsOf(m.MentionedUsers),
		MetaArrays:         metaArraysOf(m.MetaArrays),
		ScheduledAt:        ms(m.ScheduledAt),
		Status:             scheduledStatusName(m.Status),
		ErrorText:          m.ErrorText,
		CreatedAt:          ms(m.CreatedAt),
	}
	if m.SentMessageID != nil {
		out.SentMessageID = *m.SentMessageID
	}
	if m.Sender.ID != 0 {
		u := s.toWireUser(&m.Sender)
		out.Sender = &u
	}
	return out
}

// Create 只能在已加入的群组中创建
func (s *ScheduledMessageService) Create(ctx context.Context, uid uint64, url string, req CreateScheduledReq) (*wire.ScheduledMessage, error) {
	if strings.TrimSpace(req.Message) == "" || len([]rune(req.Message)) > maxMessageLen {
		return nil, ErrInvalidParam
	}
	at := fromMS(req.ScheduledAt)
	now := s.now()
	if at.Before(now.Add(MinScheduleLead)) || at.After(now.Add(MaxScheduleLead)) {
		return nil, ErrScheduleInvalid
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return nil, ErrInvalidParam
	}
	m := &models.ScheduledMessage{
		ChannelID:      v.ch.ID,
		SenderID:       uid,
		Message:        req.Message,
		Data:           req.Data,
		CustomType:     req.CustomType,
		MentionedUsers: jsonOf(uniqStrings(req.MentionedUserIDs)),
		MetaArrays:     jsonOf(req.MetaArrays),
		ScheduledAt:    at,
		Status:         models.ScheduledStatusPending,
	}
	dao := repository.NewScheduledDAO(s.db(ctx))
	if err := dao.Create(m); err != nil {
		return nil, err
	}
	m, err = dao.Find(v.ch.ID, m.ID)
	if err != nil {
		return nil, err
	}
	out := s.toWireScheduled(url, m)
	return &out, nil
}

// Cancel 仅发送者能取消，且只能取消待发送的
func (s *ScheduledMessageService) Cancel(ctx context.Context, uid uint64, url string, id uint64) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	dao := repository.NewScheduledDAO(s.db(ctx))
	m, err := dao.Find(v.ch.ID, id)
	if err != nil {
		return notFound(err, ErrNotFound)
	}
	if m.SenderID != uid {
		return ErrNotSender
	}
	ok, err := dao.Transition(id, models.ScheduledStatusPending, models.ScheduledStatusCanceled, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrScheduleInvalid
	}
	m.Status = models.ScheduledStatusCanceled
	s.Events.ChannelEvent(ctx, v.ch, cons.EventScheduledMessageChanged, s.toWireScheduled(url, m), []uint64{uid})
	return nil
}

// List 当前用户在该频道创建的定时消息；status 为空表示全部
func (s *ScheduledMessageService) List(ctx context.Context, uid uint64, url, status, next string, limit int) (*wire.Page[wire.ScheduledMessage], error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	var st *uint8
	if status != "" {
		var val uint8
		switch status {
		case cons.ScheduledPending:
			val = models.ScheduledStatusPending
		case cons.ScheduledSent:
			val = models.ScheduledStatusSent
		case cons.ScheduledCanceled:
			val = models.ScheduledStatusCanceled
		case cons.ScheduledFailed:
			val = models.ScheduledStatusFailed
		default:
			return nil, ErrInvalidParam
		}
		st = &val
	}
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewScheduledDAO(s.db(ctx)).ListByChannel(v.ch.ID, uid, st, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.ScheduledMessage]{Items: make([]wire.ScheduledMessage, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireScheduled(url, &rows[i]))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}

// DispatchDue 投递到期消息，返回成功条数。
// 先用状态迁移 pending->sent 抢占，多节点同时运行时每条只会被一个节点投递。
func (s *ScheduledMessageService) DispatchDue(ctx context.Context) (int, error) {
	dao := repository.NewScheduledDAO(s.db(ctx))
	due, err := dao.ListDue(s.now(), dispatchBatch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		m := &due[i]
		ok, err := dao.Transition(m.ID, models.ScheduledStatusPending, models.ScheduledStatusSent, nil)
		if err != nil {
			return sent, err
		}
		if !ok {
			continue
		}
		if s.dispatchOne(ctx, m) {
			sent++
		}
	}
	return sent, nil
}

func (s *ScheduledMessageService) dispatchOne(ctx context.Context, m *models.ScheduledMessage) bool {
	dao := repository.NewScheduledDAO(s.db(ctx))
	ch, err := repository.NewChannelDAO(s.db(ctx)).FindByID(m.ChannelID)
	if err != nil {
		s.fail(ctx, m, nil, notFound(err, ErrChannelNotFound))
		return false
	}
	msg, err := s.messages.SendUserMessage(ctx, m.SenderID, ch.ChannelURL, wire.SendMessageReq{
		Message:          m.Message,
		Data:             m.Data,
		CustomType:       m.CustomType,
		MentionedUserIDs: stringsOf(m.MentionedUsers),
		MetaArrays:       metaArraysOf(m.MetaArrays),
	})
	if err != nil {
		s.fail(ctx, m, ch, err)
		return false
	}
	if _, err := dao.Transition(m.ID, models.ScheduledStatusSent, models.ScheduledStatusSent, map[string]any{"sent_message_id": msg.MessageID}); err != nil {
		s.log().Warn("record sent message id failed", zap.Uint64("scheduled_id", m.ID), zap.Error(err))
	}
	m.Status = models.ScheduledStatusSent
	m.SentMessageID = &msg.MessageID
	s.Events.ChannelEvent(ctx, ch, cons.EventScheduledMessageChanged, s.toWireScheduled(ch.ChannelURL, m), []uint64{m.SenderID})
	return true
}

func (s *ScheduledMessageService) fail(ctx context.Context, m *models.ScheduledMessage, ch *models.Channel, cause error) {
	text := cause.Error()
	if len(text) > 255 {
		text = text[:255]
	}
	if _, err := repository.NewScheduledDAO(s.db(ctx)).Transition(m.ID, models.ScheduledStatusSent, models.ScheduledStatusFailed, map[string]any{"error_text": text}); err != nil {
		s.log().Error("mark scheduled message failed", zap.Uint64("scheduled_id", m.ID), zap.Error(err))
	}
	s.log().Warn("scheduled message dispatch failed", zap.Uint64("scheduled_id", m.ID), zap.Error(cause))
	if ch == nil {
		return
	}
	m.Status = models.ScheduledStatusFailed
	m.ErrorText = text
	s.Events.ChannelEvent(ctx, ch, cons.EventScheduledMessageChanged, s.toWireScheduled(ch.ChannelURL, m), []uint64{m.SenderID})
}

// Run 按 interval 轮询到期消息，直到 ctx 结束
func (s *ScheduledMessageService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.DispatchDue(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.log().Error("dispatch scheduled messages failed", zap.Error(err))
			}
			if n > 0 {
				s.log().Info("scheduled messages dispatched", zap.Int("count", n))
			}
		}
	}
}
