package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 单条文本消息长度上限（字符）
const maxMessageLen = 5000

type MessageService struct {
	*Service
}

func NewMessageService(s *Service) *MessageService {
	return &MessageService{Service: s}
}

// SendUserMessage 发送文本消息
func (s *MessageService) SendUserMessage(ctx context.Context, uid uint64, url string, req wire.SendMessageReq) (*wire.Message, error) {
	if strings.TrimSpace(req.Message) == "" || len([]rune(req.Message)) > maxMessageLen {
		return nil, ErrInvalidParam
	}
	m := &models.Message{Type: models.MessageTypeUser, Message: req.Message}
	return s.send(ctx, uid, url, req, m)
}

// SendFileMessage 发送文件消息，文件需事先上传或为外部 URL
func (s *MessageService) SendFileMessage(ctx context.Context, uid uint64, url string, req wire.SendFileMessageReq) (*wire.Message, error) {
	if strings.TrimSpace(req.File.URL) == "" {
		return nil, ErrInvalidParam
	}
	m := &models.Message{
		Type:       models.MessageTypeFile,
		Message:    req.Message,
		FileURL:    req.File.URL,
		FileName:   req.File.Name,
		FileSize:   req.File.Size,
		FileType:   req.File.Type,
		Thumbnails: jsonOf(req.File.Thumbnails),
	}
	return s.send(ctx, uid, url, req.SendMessageReq, m)
}

func (s *MessageService) send(ctx context.Context, uid uint64, url string, req wire.SendMessageReq, m *models.Message) (*wire.Message, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanSend(ctx, v, uid); err != nil {
		return nil, err
	}

	dao := repository.NewMessageDAO(s.db(ctx))
	if req.RequestID != "" {
		// 客户端重发：同一 request_id 直接返回已存在的消息
		if old, err := dao.FindByRequestID(v.ch.ID, uid, req.RequestID); err == nil {
			out, err := s.renderOne(ctx, v.ch, old)
			return out, err
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		req.RequestID = uuid.NewString()
	}

	if req.ParentMessageID != 0 {
		if _, err := dao.FindInChannel(v.ch.ID, req.ParentMessageID); err != nil {
			return nil, notFound(err, ErrMessageNotFound)
		}
		m.ParentMessageID = &req.ParentMessageID
	}

	mentioned := uniqStrings(req.MentionedUserIDs)
	m.ChannelID = v.ch.ID
	m.SenderID = uid
	m.RequestID = req.RequestID
	m.Data = req.Data
	m.CustomType = req.CustomType
	m.MentionedUsers = jsonOf(mentioned)
	m.MetaArrays = jsonOf(req.MetaArrays)
	return s.deliver(ctx, v.ch, m, mentioned)
}

// deliver 落库、推进 last_message、推送事件
func (s *MessageService) deliver(ctx context.Context, ch *models.Channel, m *models.Message, mentioned []string) (*wire.Message, error) {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMessageDAO(tx).Create(m); err != nil {
			return err
		}
		if err := repository.NewChannelDAO(tx).SetLastMessage(ch.ID, m.ID); err != nil {
			return err
		}
		if ch.Type == models.ChannelTypeGroup {
			return repository.NewMemberDAO(tx).UnhideAll(ch.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.SenderID != 0 {
		sender, err := repository.NewUserDAO(s.db(ctx)).FindByID(m.SenderID)
		if err != nil {
			return nil, err
		}
		m.Sender = *sender
	}

	out, err := s.renderOne(ctx, ch, m)
	if err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, ch, cons.EventMessageReceived, out)

	if len(mentioned) > 0 {
		s.notifyMentions(ctx, ch, out, mentioned)
	}
	if s.Debug {
		s.log().Debug("message delivered", zap.String("channel_url", ch.ChannelURL), zap.Uint64("message_id", m.ID))
	}
	return out, nil
}

// notifyMentions 只通知频道内的被 @ 用户
func (s *MessageService) notifyMentions(ctx context.Context, ch *models.Channel, msg *wire.Message, userIDs []string) {
	users, err := repository.NewUserDAO(s.db(ctx)).FindByUserIDs(userIDs)
	if err != nil {
		s.log().Warn("mention lookup failed", zap.Error(err))
		return
	}
	audience, err := s.Events.Audience(ctx, ch)
	if err != nil {
		s.log().Warn("mention audience failed", zap.Error(err))
		return
	}
	var targets []uint64
	for _, u := range users {
		if slices.Contains(audience, u.ID) {
			targets = append(targets, u.ID)
		}
	}
	s.Events.ChannelEvent(ctx, ch, cons.EventMentionReceived, msg, targets)
}

// AdminMessageReq 管理员消息
type AdminMessageReq struct {
	Message    string `json:"message"`
	Data       string `json:"data"`
	CustomType string `json:"custom_type"`
}

// SendAdminMessage 管理员以系统身份发送，无发送者，不受冻结/禁言限制
func (s *MessageService) SendAdminMessage(ctx context.Context, uid uint64, url string, req AdminMessageReq) (*wire.Message, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrInvalidParam
	}
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	m := &models.Message{
		ChannelID:  v.ch.ID,
		Type:       models.MessageTypeAdmin,
		RequestID:  uuid.NewString(),
		Message:    req.Message,
		Data:       req.Data,
		CustomType: req.CustomType,
	}
	return s.deliver(ctx, v.ch, m, nil)
}

// UpdateMessageReq nil 表示不修改
type UpdateMessageReq struct {
	Message          *string           `json:"message"`
	Data             *string           `json:"data"`
	CustomType       *string           `json:"custom_type"`
	MentionedUserIDs *[]string         `json:"mentioned_user_ids"`
	MetaArrays       *[]wire.MetaArray `json:"meta_arrays"`
}

// UpdateMessage 只有发送者能修改自己的消息；文件消息的文件本身不可改
func (s *MessageService) UpdateMessage(ctx context.Context, uid uint64, url string, msgID uint64, req UpdateMessageReq) (*wire.Message, error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.IsFrozen && !v.operator {
		return nil, ErrChannelFrozen
	}
	dao := repository.NewMessageDAO(s.db(ctx))
	m, err := dao.FindInChannel(v.ch.ID, msgID)
	if err != nil {
		return nil, notFound(err, ErrMessageNotFound)
	}
	if m.SenderID != uid {
		return nil, ErrNotSender
	}
	fields := map[string]any{}
	if req.Message != nil {
		if m.Type == models.MessageTypeUser && strings.TrimSpace(*req.Message) == "" {
			return nil, ErrInvalidParam
		}
		fields["message"] = *req.Message
	}
	if req.Data != nil {
		fields["data"] = *req.Data
	}
	if req.CustomType != nil {
		fields["custom_type"] = *req.CustomType
	}
	if req.MentionedUserIDs != nil {
		fields["mentioned_users"] = jsonOf(uniqStrings(*req.MentionedUserIDs))
	}
	if req.MetaArrays != nil {
		fields["meta_arrays"] = jsonOf(*req.MetaArrays)
	}
	if len(fields) == 0 {
		return nil, ErrInvalidParam
	}
	if err := dao.UpdateFields(m.ID, fields); err != nil {
		return nil, err
	}
	m, err = dao.FindInChannel(v.ch.ID, msgID)
	if err != nil {
		return nil, err
	}
	out, err := s.renderOne(ctx, v.ch, m)
	if err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventMessageUpdated, out)
	return out, nil
}

// DeleteMessage 发送者或管理员可删除
func (s *MessageService) DeleteMessage(ctx context.Context, uid uint64, url string, msgID uint64) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	dao := repository.NewMessageDAO(s.db(ctx))
	m, err := dao.FindInChannel(v.ch.ID, msgID)
	if err != nil {
		return notFound(err, ErrMessageNotFound)
	}
	if m.SenderID != uid && !v.operator {
		return ErrNotSender
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewReactionDAO(tx).DeleteByMessage(m.ID); err != nil {
			return err
		}
		return repository.NewMessageDAO(tx).Delete(m.ID)
	})
	if err != nil {
		return err
	}
	s.log().Info("message deleted", zap.String("channel_url", url), zap.Uint64("message_id", msgID), zap.Uint64("by", uid))
	s.Events.Broadcast(ctx, v.ch, cons.EventMessageDeleted, wire.MessageDeletedPayload{MessageID: msgID})
	return nil
}

// CopyMessage 把用户/文件消息转发到另一个频道，发送者为当前用户
func (s *MessageService) CopyMessage(ctx context.Context, uid uint64, url string, msgID uint64, targetURL string) (*wire.Message, error) {
	src, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	m, err := repository.NewMessageDAO(s.db(ctx)).FindInChannel(src.ch.ID, msgID)
	if err != nil {
		return nil, notFound(err, ErrMessageNotFound)
	}
	if m.Type == models.MessageTypeAdmin {
		return nil, ErrInvalidParam
	}
	dst, err := s.viewChannel(ctx, uid, targetURL)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanSend(ctx, dst, uid); err != nil {
		return nil, err
	}
	cp := &models.Message{
		ChannelID:  dst.ch.ID,
		SenderID:   uid,
		Type:       m.Type,
		RequestID:  uuid.NewString(),
		Message:    m.Message,
		Data:       m.Data,
		CustomType: m.CustomType,
		FileURL:    m.FileURL,
		FileName:   m.FileName,
		FileSize:   m.FileSize,
		FileType:   m.FileType,
		Thumbnails: m.Thumbnails,
		MetaArrays: m.MetaArrays,
	}
	return s.deliver(ctx, dst.ch, cp, nil)
}

// ListMessagesReq 以时间戳或消息 id 为锚点取前后消息
type ListMessagesReq struct {
	MessageTS        int64
	MessageID        uint64
	PrevLimit        int
	NextLimit        int
	Inclusive        bool
	Reverse          bool
	MessageType      string
	CustomType       string
	SenderUserIDs    []string
	IncludeMetaArray bool
	IncludeReactions bool
	ParentMessageID  uint64
}

// ListMessages 默认按时间升序返回；Reverse 时新到旧
func (s *MessageService) ListMessages(ctx context.Context, uid uint64, url string, req ListMessagesReq) ([]wire.Message, error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if req.PrevLimit < 0 || req.NextLimit < 0 || req.PrevLimit > repository.MaxLimit || req.NextLimit > repository.MaxLimit {
		return nil, ErrInvalidParam
	}
	if req.PrevLimit == 0 && req.NextLimit == 0 {
		req.PrevLimit = repository.DefaultLimit
	}

	f := repository.MessageFilter{
		CustomType: req.CustomType,
		ParentID:   req.ParentMessageID,
		MinID:      v.messageOffset(),
	}
	if req.MessageType != "" {
		if f.Type = messageTypeFromName(req.MessageType); f.Type == 0 {
			return nil, ErrInvalidParam
		}
	}
	if len(req.SenderUserIDs) > 0 {
		users, err := repository.NewUserDAO(s.db(ctx)).FindByUserIDs(uniqStrings(req.SenderUserIDs))
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return []wire.Message{}, nil
		}
		for _, u := range users {
			f.SenderIDs = append(f.SenderIDs, u.ID)
		}
	}

	anchor := repository.Anchor{ID: req.MessageID}
	if anchor.ID == 0 {
		anchor.Time = fromMS(req.MessageTS)
		if anchor.Time.IsZero() {
			anchor.Time = s.now()
		}
	}

	dao := repository.NewMessageDAO(s.db(ctx))
	prev, err := dao.ListBefore(v.ch.ID, anchor, req.Inclusive, f, req.PrevLimit)
	if err != nil {
		return nil, err
	}
	// 锚点本身只算一次
	next, err := dao.ListAfter(v.ch.ID, anchor, req.Inclusive && req.PrevLimit == 0, f, req.NextLimit)
	if err != nil {
		return nil, err
	}

	slices.Reverse(prev)
	msgs := append(prev, next...)
	out, err := s.render(ctx, v.ch, msgs, req.IncludeReactions)
	if err != nil {
		return nil, err
	}
	if !req.IncludeMetaArray {
		for i := range out {
			out[i].MetaArrays = nil
		}
	}
	if req.Reverse {
		slices.Reverse(out)
	}
	return out, nil
}

// SearchReq 消息搜索
type SearchReq struct {
	Keyword    string
	ChannelURL string
	Exact      bool
	From       int64
	To         int64
	Next       string
	Limit      int
}

// Search 在当前用户已加入的群组（或指定频道）中按关键字搜索，新到旧
func (s *MessageService) Search(ctx context.Context, uid uint64, req SearchReq) (*wire.Page[wire.Message], error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, ErrInvalidParam
	}
	cur, limit, err := pageArgs(req.Next, req.Limit)
	if err != nil {
		return nil, err
	}

	var channelIDs []uint64
	chByID := map[uint64]*models.Channel{}
	if req.ChannelURL != "" {
		v, err := s.requireJoined(ctx, uid, req.ChannelURL)
		if err != nil {
			return nil, err
		}
		channelIDs = []uint64{v.ch.ID}
		chByID[v.ch.ID] = v.ch
	} else {
		channelIDs, err = repository.NewMemberDAO(s.db(ctx)).JoinedChannelIDs(uid)
		if err != nil {
			return nil, err
		}
	}

	msgs, err := repository.NewMessageDAO(s.db(ctx)).Search(repository.SearchFilter{
		Keyword:    req.Keyword,
		Exact:      req.Exact,
		ChannelIDs: channelIDs,
		From:       fromMS(req.From),
		To:         fromMS(req.To),
	}, cur.ID, limit)
	if err != nil {
		return nil, err
	}

	var missing []uint64
	for _, m := range msgs {
		if chByID[m.ChannelID] == nil {
			missing = append(missing, m.ChannelID)
		}
	}
	if len(missing) > 0 {
		chs, err := repository.NewChannelDAO(s.db(ctx)).FindByIDs(uniqUint64(missing))
		if err != nil {
			return nil, err
		}
		for i := range chs {
			chByID[chs[i].ID] = &chs[i]
		}
	}

	page := &wire.Page[wire.Message]{Items: make([]wire.Message, 0, len(msgs))}
	for i := range msgs {
		ch := chByID[msgs[i].ChannelID]
		if ch == nil {
			continue
		}
		page.Items = append(page.Items, s.toWireMessage(ch, &msgs[i], nil))
	}
	if n := len(msgs); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: msgs[n-1].ID})
	}
	return page, nil
}

func (s *MessageService) renderOne(ctx context.Context, ch *models.Channel, m *models.Message) (*wire.Message, error) {
	out, err := s.render(ctx, ch, []models.Message{*m}, true)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// render 批量准备 @ 用户、回应、发送者角色后转换
func (s *Service) render(ctx context.Context, ch *models.Channel, msgs []models.Message, withReactions bool) ([]wire.Message, error) {
	out := make([]wire.Message, 0, len(msgs))
	if len(msgs) == 0 {
		return out, nil
	}
	db := s.db(ctx)
	ex := &messageExtras{
		mentioned: map[string]wire.User{},
		reactions: map[uint64][]models.Reaction{},
		operators: map[uint64]bool{},
	}

	var mentionIDs []string
	ids := make([]uint64, 0, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
		mentionIDs = append(mentionIDs, stringsOf(msgs[i].MentionedUsers)...)
	}
	if mentionIDs = uniqStrings(mentionIDs); len(mentionIDs) > 0 {
		users, err := repository.NewUserDAO(db).FindByUserIDs(mentionIDs)
		if err != nil {
			return nil, err
		}
		for i := range users {
			ex.mentioned[users[i].UserID] = s.toWireUser(&users[i])
		}
	}
	if withReactions {
		rs, err := repository.NewReactionDAO(db).ListByMessages(ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			ex.reactions[r.MessageID] = append(ex.reactions[r.MessageID], r)
		}
	}
	opIDs, err := repository.NewModerationDAO(db).OperatorIDs(ch.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range opIDs {
		ex.operators[id] = true
	}

	for i := range msgs {
		out = append(out, s.toWireMessage(ch, &msgs[i], ex))
	}
	return out, nil
}
