package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/uuid"
)

// sendStreamBuffer 发送流缓冲，最后一格留给 Sent/Failed
const sendStreamBuffer = 16

// BaseChannel 群组与开放频道共有的属性和操作。
// 字段在 Refresh/Update 后被整体替换，同一实例不要跨协程并发修改。
type BaseChannel struct {
	ChannelURL  string
	ChannelType ChannelType
	Name        string
	CoverURL    string
	Data        string
	CustomType  string
	CreatedAt   time.Time
	IsFrozen    bool
	Operators   []User

	main *Main
}

func (b *BaseChannel) api() *restClient { return b.main.api }

func (b *BaseChannel) path() string { return channelPath(b.ChannelType, b.ChannelURL) }

// IsGroupChannel 是否群组
func (b *BaseChannel) IsGroupChannel() bool { return b.ChannelType == ChannelTypeGroup }

// IsOpenChannel 是否开放频道
func (b *BaseChannel) IsOpenChannel() bool { return b.ChannelType == ChannelTypeOpen }

// IsOperator 指定用户是否为管理员
func (b *BaseChannel) IsOperator(userID string) bool {
	for _, u := range b.Operators {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

// -------------------- 发送 --------------------

// SendUserMessage 立即返回 Pending 状态的临时消息，结果经由流返回（Sent 或 Failed 后关闭）。
// 已连接时走 WebSocket，未连接时退回 REST。
func (b *BaseChannel) SendUserMessage(ctx context.Context, params *UserMessageParams) (*UserMessage, <-chan MessageEvent) {
	temp := b.tempUserMessage(params, uuid.NewString())
	return temp, b.sendUser(ctx, temp, params)
}

// ResendUserMessage 重发失败的文本消息，沿用原 request id，服务端按它去重
func (b *BaseChannel) ResendUserMessage(ctx context.Context, msg *UserMessage) (*UserMessage, <-chan MessageEvent) {
	if msg == nil || msg.SendingStatus() != SendingStatusFailed {
		temp := b.tempUserMessage(nil, uuid.NewString())
		return temp, failedStream(temp, newError(CodeInvalidParameter, errors.New("message is not failed")))
	}
	params := &UserMessageParams{
		BaseMessageParams: BaseMessageParams{
			Data:             msg.Data(),
			CustomType:       msg.CustomType(),
			MentionedUserIDs: userIDs(msg.MentionedUsers()),
			MetaArrays:       msg.MetaArrays(),
			ParentMessageID:  msg.ParentMessageID(),
		},
		Message: msg.Message,
	}
	temp := b.tempUserMessage(params, msg.RequestID())
	return temp, b.sendUser(ctx, temp, params)
}

func (b *BaseChannel) tempUserMessage(params *UserMessageParams, requestID string) *UserMessage {
	m := &UserMessage{baseMessage: b.tempBase(MessageTypeUser, requestID)}
	if params != nil {
		m.Message = params.Message
		b.applyParams(&m.baseMessage, params.BaseMessageParams)
	}
	return m
}

func (b *BaseChannel) tempBase(t MessageType, requestID string) baseMessage {
	now := time.Now()
	bm := baseMessage{
		requestID:     requestID,
		channelURL:    b.ChannelURL,
		channelType:   b.ChannelType,
		typ:           t,
		sendingStatus: int32(SendingStatusPending),
		createdAt:     now,
		updatedAt:     now,
	}
	if u := b.main.CurrentUser(); u != nil {
		bm.sender = &Sender{User: *u, Role: RoleNone}
		if b.IsOperator(u.UserID) {
			bm.sender.Role = RoleOperator
		}
	}
	return bm
}

func (b *BaseChannel) applyParams(m *baseMessage, p BaseMessageParams) {
	m.data = p.Data
	m.customType = p.CustomType
	m.metaArrays = p.MetaArrays
	m.parentMessageID = p.ParentMessageID
	for _, id := range p.MentionedUserIDs {
		m.mentionedUsers = append(m.mentionedUsers, User{UserID: id})
	}
}

func (b *BaseChannel) sendUser(ctx context.Context, temp *UserMessage, params *UserMessageParams) <-chan MessageEvent {
	if params == nil || strings.TrimSpace(params.Message) == "" {
		return failedStream(temp, newError(CodeInvalidParameter, errors.New("message is empty")))
	}
	req := wire.SendMessageReq{
		RequestID:        temp.RequestID(),
		Message:          params.Message,
		Data:             params.Data,
		CustomType:       params.CustomType,
		MentionedUserIDs: params.MentionedUserIDs,
		MetaArrays:       metaArraysToWire(params.MetaArrays),
		ParentMessageID:  params.ParentMessageID,
	}

	out := make(chan MessageEvent, sendStreamBuffer)
	go func() {
		defer close(out)
		w, err := b.deliverUserMessage(ctx, req)
		if err != nil {
			out <- failedEvent(temp, err)
			return
		}
		out <- MessageEvent{Kind: MessageEventSent, Message: messageFromWire(*w)}
	}()
	return out
}

func (b *BaseChannel) deliverUserMessage(ctx context.Context, req wire.SendMessageReq) (*wire.Message, error) {
	f, err := wire.NewFrame(cons.FrameMessage, req)
	if err != nil {
		return nil, newError(CodeInvalidParameter, err)
	}
	f.ChannelURL = b.ChannelURL
	f.ChannelType = string(b.ChannelType)
	f.PacketID = req.RequestID

	ack, err := b.main.conn.Request(ctx, f)
	switch {
	case err == nil:
		var w wire.Message
		if err := ack.Decode(&w); err != nil {
			return nil, newError(CodeRequestFailed, err)
		}
		return &w, nil
	case errors.Is(err, ErrNotConnected):
		var w wire.Message
		if err := b.api().post(ctx, b.path()+"/messages", req, &w); err != nil {
			return nil, err
		}
		return &w, nil
	}
	return nil, err
}

// SendFileMessage 发送文件消息。params.File 非空时先上传，上传过程通过流返回 Progress。
func (b *BaseChannel) SendFileMessage(ctx context.Context, params *FileMessageParams) (*FileMessage, <-chan MessageEvent) {
	temp := b.tempFileMessage(params, uuid.NewString())
	return temp, b.sendFile(ctx, temp, params)
}

// ResendFileMessage 重发失败的文件消息。原消息已有 URL 时 file 可为 nil。
func (b *BaseChannel) ResendFileMessage(ctx context.Context, msg *FileMessage, file io.Reader, size int64) (*FileMessage, <-chan MessageEvent) {
	if msg == nil || msg.SendingStatus() != SendingStatusFailed {
		temp := b.tempFileMessage(nil, uuid.NewString())
		return temp, failedStream(temp, newError(CodeInvalidParameter, errors.New("message is not failed")))
	}
	params := &FileMessageParams{
		BaseMessageParams: BaseMessageParams{
			Data:             msg.Data(),
			CustomType:       msg.CustomType(),
			MentionedUserIDs: userIDs(msg.MentionedUsers()),
			MetaArrays:       msg.MetaArrays(),
			ParentMessageID:  msg.ParentMessageID(),
		},
		FileURL:    msg.URL,
		FileName:   msg.Name,
		MimeType:   msg.MimeType,
		Thumbnails: msg.Thumbnails,
	}
	if file != nil {
		params.FileURL, params.File, params.FileSize = "", file, size
	}
	temp := b.tempFileMessage(params, msg.RequestID())
	return temp, b.sendFile(ctx, temp, params)
}

func (b *BaseChannel) tempFileMessage(params *FileMessageParams, requestID string) *FileMessage {
	m := &FileMessage{baseMessage: b.tempBase(MessageTypeFile, requestID)}
	if params != nil {
		m.URL, m.Name, m.Size, m.MimeType = params.FileURL, params.FileName, params.FileSize, params.MimeType
		m.Thumbnails = params.Thumbnails
		b.applyParams(&m.baseMessage, params.BaseMessageParams)
	}
	return m
}

func (b *BaseChannel) sendFile(ctx context.Context, temp *FileMessage, params *FileMessageParams) <-chan MessageEvent {
	if params == nil || (params.FileURL == "" && params.File == nil) {
		return failedStream(temp, newError(CodeInvalidParameter, errors.New("file or file url required")))
	}

	out := make(chan MessageEvent, sendStreamBuffer)
	go func() {
		defer close(out)
		file := wire.File{
			URL:  params.FileURL,
			Name: params.FileName,
			Size: params.FileSize,
			Type: params.MimeType,
		}
		for _, t := range params.Thumbnails {
			file.Thumbnails = append(file.Thumbnails, wire.Thumbnail{URL: t.URL, Width: t.Width, Height: t.Height})
		}
		if params.File != nil {
			up, err := b.api().upload(ctx, params.FileName, params.MimeType, params.File, params.FileSize, func(p Progress) {
				// 留一格给最终事件，进度满了就丢
				if len(out) < cap(out)-1 {
					pc := p
					out <- MessageEvent{Kind: MessageEventProgress, Message: temp, Progress: &pc}
				}
			})
			if err != nil {
				out <- failedEvent(temp, err)
				return
			}
			file.URL, file.Size = up.URL, up.Size
			if file.Name == "" {
				file.Name = up.Name
			}
			if file.Type == "" {
				file.Type = up.Type
			}
		}
		req := wire.SendFileMessageReq{
			SendMessageReq: wire.SendMessageReq{
				RequestID:        temp.RequestID(),
				Data:             params.Data,
				CustomType:       params.CustomType,
				MentionedUserIDs: params.MentionedUserIDs,
				MetaArrays:       metaArraysToWire(params.MetaArrays),
				ParentMessageID:  params.ParentMessageID,
			},
			File: file,
		}
		var w wire.Message
		if err := b.api().post(ctx, b.path()+"/messages/file", req, &w); err != nil {
			out <- failedEvent(temp, err)
			return
		}
		out <- MessageEvent{Kind: MessageEventSent, Message: messageFromWire(w)}
	}()
	return out
}

func failedEvent(temp BaseMessage, err error) MessageEvent {
	status := SendingStatusFailed
	if errors.Is(err, context.Canceled) {
		status = SendingStatusCanceled
	}
	atomic.StoreInt32(&temp.base().sendingStatus, int32(status))
	return MessageEvent{Kind: MessageEventFailed, Message: temp, Failure: &MessageFailure{Message: temp, Err: asError(err)}}
}

func failedStream(temp BaseMessage, err error) <-chan MessageEvent {
	out := make(chan MessageEvent, 1)
	out <- failedEvent(temp, err)
	close(out)
	return out
}

// asError 统一成 *Error
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(CodeRequestFailed, err)
}

// -------------------- 修改/删除/转发 --------------------

func updateBody(p BaseMessageParams) map[string]any {
	body := map[string]any{}
	if p.Data != "" {
		body["data"] = p.Data
	}
	if p.CustomType != "" {
		body["custom_type"] = p.CustomType
	}
	if p.MentionedUserIDs != nil {
		body["mentioned_user_ids"] = p.MentionedUserIDs
	}
	if p.MetaArrays != nil {
		body["meta_arrays"] = metaArraysToWire(p.MetaArrays)
	}
	return body
}

// UpdateUserMessage 修改自己发送的文本消息，空字段不修改
func (b *BaseChannel) UpdateUserMessage(ctx context.Context, messageID uint64, params *UserMessageParams) (*UserMessage, error) {
	if params == nil {
		return nil, ErrInvalidParameter
	}
	body := updateBody(params.BaseMessageParams)
	if params.Message != "" {
		body["message"] = params.Message
	}
	m, err := b.updateMessage(ctx, messageID, body)
	if err != nil {
		return nil, err
	}
	um, ok := m.(*UserMessage)
	if !ok {
		return nil, newError(CodeInvalidParameter, errors.New("not a user message"))
	}
	return um, nil
}

// UpdateFileMessage 修改文件消息的附加信息，文件本身不能改
func (b *BaseChannel) UpdateFileMessage(ctx context.Context, messageID uint64, params *FileMessageParams) (*FileMessage, error) {
	if params == nil {
		return nil, ErrInvalidParameter
	}
	m, err := b.updateMessage(ctx, messageID, updateBody(params.BaseMessageParams))
	if err != nil {
		return nil, err
	}
	fm, ok := m.(*FileMessage)
	if !ok {
		return nil, newError(CodeInvalidParameter, errors.New("not a file message"))
	}
	return fm, nil
}

func (b *BaseChannel) updateMessage(ctx context.Context, messageID uint64, body map[string]any) (BaseMessage, error) {
	var w wire.Message
	if err := b.api().put(ctx, messagePath(b.ChannelType, b.ChannelURL, messageID), body, &w); err != nil {
		return nil, err
	}
	return messageFromWire(w), nil
}

// DeleteMessage 删除消息（发送者或管理员）
func (b *BaseChannel) DeleteMessage(ctx context.Context, messageID uint64) error {
	return b.api().del(ctx, messagePath(b.ChannelType, b.ChannelURL, messageID), nil, nil)
}

// CopyUserMessage 把文本消息转发到 target
func (b *BaseChannel) CopyUserMessage(ctx context.Context, msg *UserMessage, target *BaseChannel) (*UserMessage, error) {
	if msg == nil {
		return nil, ErrInvalidParameter
	}
	m, err := b.copyMessage(ctx, msg.MessageID(), target)
	if err != nil {
		return nil, err
	}
	um, ok := m.(*UserMessage)
	if !ok {
		return nil, newError(CodeInvalidParameter, errors.New("not a user message"))
	}
	return um, nil
}

// CopyFileMessage 把文件消息转发到 target
func (b *BaseChannel) CopyFileMessage(ctx context.Context, msg *FileMessage, target *BaseChannel) (*FileMessage, error) {
	if msg == nil {
		return nil, ErrInvalidParameter
	}
	m, err := b.copyMessage(ctx, msg.MessageID(), target)
	if err != nil {
		return nil, err
	}
	fm, ok := m.(*FileMessage)
	if !ok {
		return nil, newError(CodeInvalidParameter, errors.New("not a file message"))
	}
	return fm, nil
}

func (b *BaseChannel) copyMessage(ctx context.Context, messageID uint64, target *BaseChannel) (BaseMessage, error) {
	if target == nil || target.ChannelURL == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.Message
	body := map[string]string{"target_channel_url": target.ChannelURL}
	if err := b.api().post(ctx, messagePath(b.ChannelType, b.ChannelURL, messageID)+"/copy", body, &w); err != nil {
		return nil, err
	}
	return messageFromWire(w), nil
}

// -------------------- 历史消息 --------------------

// GetNextMessagesByTimestamp ts 之后的消息
func (b *BaseChannel) GetNextMessagesByTimestamp(ctx context.Context, ts int64, params MessageListParams) ([]BaseMessage, error) {
	params.PrevLimit = 0
	if params.NextLimit == 0 {
		params.NextLimit = defaultLimit
	}
	return b.listMessages(ctx, ts, 0, params)
}

// GetPreviousMessagesByTimestamp ts 之前的消息
func (b *BaseChannel) GetPreviousMessagesByTimestamp(ctx context.Context, ts int64, params MessageListParams) ([]BaseMessage, error) {
	params.NextLimit = 0
	if params.PrevLimit == 0 {
		params.PrevLimit = defaultLimit
	}
	return b.listMessages(ctx, ts, 0, params)
}

// GetPreviousAndNextMessagesByTimestamp ts 前后各取 PrevLimit/NextLimit 条
func (b *BaseChannel) GetPreviousAndNextMessagesByTimestamp(ctx context.Context, ts int64, params MessageListParams) ([]BaseMessage, error) {
	return b.listMessages(ctx, ts, 0, params)
}

// GetNextMessagesByID 某条消息之后的消息
func (b *BaseChannel) GetNextMessagesByID(ctx context.Context, messageID uint64, params MessageListParams) ([]BaseMessage, error) {
	if messageID == 0 {
		return nil, ErrInvalidParameter
	}
	params.PrevLimit = 0
	if params.NextLimit == 0 {
		params.NextLimit = defaultLimit
	}
	return b.listMessages(ctx, 0, messageID, params)
}

// GetPreviousMessagesByID 某条消息之前的消息
func (b *BaseChannel) GetPreviousMessagesByID(ctx context.Context, messageID uint64, params MessageListParams) ([]BaseMessage, error) {
	if messageID == 0 {
		return nil, ErrInvalidParameter
	}
	params.NextLimit = 0
	if params.PrevLimit == 0 {
		params.PrevLimit = defaultLimit
	}
	return b.listMessages(ctx, 0, messageID, params)
}

func (b *BaseChannel) listMessages(ctx context.Context, ts int64, messageID uint64, p MessageListParams) ([]BaseMessage, error) {
	if p.PrevLimit < 0 || p.NextLimit < 0 || p.PrevLimit > maxLimit || p.NextLimit > maxLimit {
		return nil, ErrInvalidParameter
	}
	q := query{}.
		num("message_ts", ts).
		num("message_id", int64(messageID)).
		num("prev_limit", int64(p.PrevLimit)).
		num("next_limit", int64(p.NextLimit)).
		flag("include", p.IsInclusive).
		flag("reverse", p.Reverse).
		str("message_type", p.MessageType.query()).
		str("custom_type", p.CustomType).
		list("sender_ids", p.SenderUserIDs).
		flag("include_meta_array", p.IncludeMetaArray).
		flag("include_reactions", p.IncludeReactions).
		num("parent_message_id", int64(p.ParentMessageID))
	var ws []wire.Message
	if err := b.api().get(ctx, b.path()+"/messages", q.values(), &ws); err != nil {
		return nil, err
	}
	return messagesFromWire(ws), nil
}

// CreatePreviousMessageListQuery 从最新往前翻页
func (b *BaseChannel) CreatePreviousMessageListQuery() *PreviousMessageListQuery {
	return newPreviousMessageListQuery(b.api(), b.ChannelType, b.ChannelURL)
}

// -------------------- 回应 --------------------

// AddReaction 给消息加回应
func (b *BaseChannel) AddReaction(ctx context.Context, msg BaseMessage, key string) (*ReactionEvent, error) {
	if msg == nil || key == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.ReactionEvent
	path := messagePath(b.ChannelType, b.ChannelURL, msg.MessageID()) + "/reactions"
	if err := b.api().post(ctx, path, map[string]string{"key": key}, &w); err != nil {
		return nil, err
	}
	return reactionEventFromWire(w), nil
}

// DeleteReaction 撤销回应
func (b *BaseChannel) DeleteReaction(ctx context.Context, msg BaseMessage, key string) (*ReactionEvent, error) {
	if msg == nil || key == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.ReactionEvent
	path := messagePath(b.ChannelType, b.ChannelURL, msg.MessageID()) + "/reactions"
	if err := b.api().del(ctx, path, query{}.str("key", key).values(), &w); err != nil {
		return nil, err
	}
	return reactionEventFromWire(w), nil
}

// -------------------- 管理 --------------------

// BanUser 封禁，seconds<=0 为永久
func (b *BaseChannel) BanUser(ctx context.Context, userID string, seconds int64, description string) error {
	return b.restrict(ctx, "/bans", userID, seconds, description)
}

// UnbanUser 解除封禁
func (b *BaseChannel) UnbanUser(ctx context.Context, userID string) error {
	return b.api().del(ctx, b.path()+"/bans/"+pathEscape(userID), nil, nil)
}

// MuteUser 禁言，seconds<=0 为永久
func (b *BaseChannel) MuteUser(ctx context.Context, userID string, seconds int64, description string) error {
	return b.restrict(ctx, "/mutes", userID, seconds, description)
}

// UnmuteUser 解除禁言
func (b *BaseChannel) UnmuteUser(ctx context.Context, userID string) error {
	return b.api().del(ctx, b.path()+"/mutes/"+pathEscape(userID), nil, nil)
}

func (b *BaseChannel) restrict(ctx context.Context, sub, userID string, seconds int64, description string) error {
	if userID == "" {
		return ErrInvalidParameter
	}
	body := map[string]any{"user_id": userID, "seconds": seconds, "description": description}
	return b.api().post(ctx, b.path()+sub, body, nil)
}

// AddOperators 添加管理员
func (b *BaseChannel) AddOperators(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return ErrInvalidParameter
	}
	return b.api().post(ctx, b.path()+"/operators", map[string][]string{"user_ids": userIDs}, nil)
}

// RemoveOperators 移除管理员
func (b *BaseChannel) RemoveOperators(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return ErrInvalidParameter
	}
	return b.api().del(ctx, b.path()+"/operators", query{}.str("user_ids", strings.Join(userIDs, ",")).values(), nil)
}

// Freeze 冻结频道，只有管理员能发言
func (b *BaseChannel) Freeze(ctx context.Context) error { return b.setFrozen(ctx, true) }

// Unfreeze 解冻
func (b *BaseChannel) Unfreeze(ctx context.Context) error { return b.setFrozen(ctx, false) }

func (b *BaseChannel) setFrozen(ctx context.Context, frozen bool) error {
	if err := b.api().put(ctx, b.path()+"/freeze", map[string]bool{"freeze": frozen}, nil); err != nil {
		return err
	}
	b.IsFrozen = frozen
	return nil
}

// CreateBannedUserListQuery 封禁列表
func (b *BaseChannel) CreateBannedUserListQuery() *BannedUserListQuery {
	return &BannedUserListQuery{newUserListQuery(b.api(), b.path()+"/bans", nil)}
}

// CreateMutedUserListQuery 禁言列表
func (b *BaseChannel) CreateMutedUserListQuery() *MutedUserListQuery {
	return &MutedUserListQuery{newUserListQuery(b.api(), b.path()+"/mutes", nil)}
}

// CreateOperatorListQuery 管理员列表
func (b *BaseChannel) CreateOperatorListQuery() *OperatorListQuery {
	return &OperatorListQuery{newUserListQuery(b.api(), b.path()+"/operators", nil)}
}

// -------------------- 元数据 --------------------

// CreateMetaData 创建元数据，key 已存在时报错
func (b *BaseChannel) CreateMetaData(ctx context.Context, kv map[string]string) (map[string]string, error) {
	var out map[string]string
	err := b.api().post(ctx, b.path()+"/meta_data", map[string]any{"meta_data": kv}, &out)
	return out, err
}

// GetMetaData 读取指定 key
func (b *BaseChannel) GetMetaData(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return nil, ErrInvalidParameter
	}
	var out map[string]string
	err := b.api().get(ctx, b.path()+"/meta_data", query{}.list("keys", keys).values(), &out)
	return out, err
}

// GetAllMetaData 读取全部元数据
func (b *BaseChannel) GetAllMetaData(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := b.api().get(ctx, b.path()+"/meta_data", nil, &out)
	return out, err
}

// UpdateMetaData 修改元数据，upsert 时不存在的 key 会被创建
func (b *BaseChannel) UpdateMetaData(ctx context.Context, kv map[string]string, upsert bool) (map[string]string, error) {
	var out map[string]string
	err := b.api().put(ctx, b.path()+"/meta_data", map[string]any{"meta_data": kv, "upsert": upsert}, &out)
	return out, err
}

// DeleteMetaData 删除一个 key
func (b *BaseChannel) DeleteMetaData(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidParameter
	}
	return b.api().del(ctx, b.path()+"/meta_data", query{}.str("keys", key).values(), nil)
}

// DeleteAllMetaData 删除全部元数据
func (b *BaseChannel) DeleteAllMetaData(ctx context.Context) error {
	return b.api().del(ctx, b.path()+"/meta_data", nil, nil)
}

// CreateMetaCounters 创建计数器
func (b *BaseChannel) CreateMetaCounters(ctx context.Context, kv map[string]int64) (map[string]int64, error) {
	var out map[string]int64
	err := b.api().post(ctx, b.path()+"/meta_counters", map[string]any{"meta_counter": kv}, &out)
	return out, err
}

// GetMetaCounters 读取指定计数器
func (b *BaseChannel) GetMetaCounters(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return nil, ErrInvalidParameter
	}
	var out map[string]int64
	err := b.api().get(ctx, b.path()+"/meta_counters", query{}.list("keys", keys).values(), &out)
	return out, err
}

// GetAllMetaCounters 读取全部计数器
func (b *BaseChannel) GetAllMetaCounters(ctx context.Context) (map[string]int64, error) {
	var out map[string]int64
	err := b.api().get(ctx, b.path()+"/meta_counters", nil, &out)
	return out, err
}

// UpdateMetaCounters 直接设置计数器
func (b *BaseChannel) UpdateMetaCounters(ctx context.Context, kv map[string]int64, upsert bool) (map[string]int64, error) {
	return b.changeCounters(ctx, kv, "set", upsert)
}

// IncreaseMetaCounters 计数器加上给定值
func (b *BaseChannel) IncreaseMetaCounters(ctx context.Context, kv map[string]int64) (map[string]int64, error) {
	return b.changeCounters(ctx, kv, "increase", false)
}

// DecreaseMetaCounters 计数器减去给定值
func (b *BaseChannel) DecreaseMetaCounters(ctx context.Context, kv map[string]int64) (map[string]int64, error) {
	return b.changeCounters(ctx, kv, "decrease", false)
}

func (b *BaseChannel) changeCounters(ctx context.Context, kv map[string]int64, mode string, upsert bool) (map[string]int64, error) {
	var out map[string]int64
	body := map[string]any{"meta_counter": kv, "mode": mode, "upsert": upsert}
	err := b.api().put(ctx, b.path()+"/meta_counters", body, &out)
	return out, err
}

// DeleteMetaCounter 删除一个计数器
func (b *BaseChannel) DeleteMetaCounter(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidParameter
	}
	return b.api().del(ctx, b.path()+"/meta_counters", query{}.str("keys", key).values(), nil)
}

// DeleteAllMetaCounters 删除全部计数器
func (b *BaseChannel) DeleteAllMetaCounters(ctx context.Context) error {
	return b.api().del(ctx, b.path()+"/meta_counters", nil, nil)
}

// Delete 删除频道（管理员）
func (b *BaseChannel) Delete(ctx context.Context) error {
	return b.api().del(ctx, b.path(), nil, nil)
}
