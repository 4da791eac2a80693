package client

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
)

// BaseMessage 三种消息的公共视图
type BaseMessage interface {
	MessageID() uint64
	RequestID() string
	ChannelURL() string
	ChannelType() ChannelType
	Type() MessageType
	Sender() *Sender
	CustomType() string
	Data() string
	MentionedUsers() []User
	MetaArrays() []MessageMetaArray
	Reactions() []Reaction
	ParentMessageID() uint64
	SendingStatus() SendingStatus
	CreatedAt() time.Time
	UpdatedAt() time.Time

	base() *baseMessage
}

// MessageMetaArray key + 有序取值
type MessageMetaArray struct {
	Key   string
	Value []string
}

// Reaction 某个 key 的聚合回应
type Reaction struct {
	Key       string
	UserIDs   []string
	UpdatedAt time.Time
}

// ReactionEvent 单次回应变化
type ReactionEvent struct {
	MessageID uint64
	Key       string
	UserID    string
	Operation ReactionEventAction
	UpdatedAt time.Time
}

type baseMessage struct {
	messageID       uint64
	requestID       string
	channelURL      string
	channelType     ChannelType
	typ             MessageType
	sender          *Sender
	customType      string
	data            string
	mentionedUsers  []User
	metaArrays      []MessageMetaArray
	reactions       []Reaction
	parentMessageID uint64
	sendingStatus   int32 // SendingStatus，发送协程与调用方并发访问，走 atomic
	createdAt       time.Time
	updatedAt       time.Time
}

func (m *baseMessage) MessageID() uint64              { return m.messageID }
func (m *baseMessage) RequestID() string              { return m.requestID }
func (m *baseMessage) ChannelURL() string             { return m.channelURL }
func (m *baseMessage) ChannelType() ChannelType       { return m.channelType }
func (m *baseMessage) Type() MessageType              { return m.typ }
func (m *baseMessage) Sender() *Sender                { return m.sender }
func (m *baseMessage) CustomType() string             { return m.customType }
func (m *baseMessage) Data() string                   { return m.data }
func (m *baseMessage) MentionedUsers() []User         { return m.mentionedUsers }
func (m *baseMessage) MetaArrays() []MessageMetaArray { return m.metaArrays }
func (m *baseMessage) Reactions() []Reaction          { return m.reactions }
func (m *baseMessage) ParentMessageID() uint64        { return m.parentMessageID }
func (m *baseMessage) SendingStatus() SendingStatus {
	return SendingStatus(atomic.LoadInt32(&m.sendingStatus))
}

func (m *baseMessage) CreatedAt() time.Time { return m.createdAt }
func (m *baseMessage) UpdatedAt() time.Time { return m.updatedAt }
func (m *baseMessage) base() *baseMessage   { return m }

// ApplyReactionEvent 把回应事件合并进消息，返回是否有变化。非并发安全。
func (m *baseMessage) ApplyReactionEvent(ev *ReactionEvent) bool {
	if ev == nil || ev.MessageID != m.messageID {
		return false
	}
	idx := -1
	for i := range m.reactions {
		if m.reactions[i].Key == ev.Key {
			idx = i
			break
		}
	}
	switch ev.Operation {
	case ReactionEventActionAdd:
		if idx < 0 {
			m.reactions = append(m.reactions, Reaction{Key: ev.Key, UserIDs: []string{ev.UserID}, UpdatedAt: ev.UpdatedAt})
			return true
		}
		r := &m.reactions[idx]
		for _, id := range r.UserIDs {
			if id == ev.UserID {
				return false
			}
		}
		r.UserIDs = append(r.UserIDs, ev.UserID)
		r.UpdatedAt = ev.UpdatedAt
		return true
	case ReactionEventActionDelete:
		if idx < 0 {
			return false
		}
		r := &m.reactions[idx]
		for i, id := range r.UserIDs {
			if id != ev.UserID {
				continue
			}
			r.UserIDs = append(r.UserIDs[:i], r.UserIDs[i+1:]...)
			r.UpdatedAt = ev.UpdatedAt
			if len(r.UserIDs) == 0 {
				m.reactions = append(m.reactions[:idx], m.reactions[idx+1:]...)
			}
			return true
		}
	}
	return false
}

// UserMessage 文本消息
type UserMessage struct {
	baseMessage
	Message string
	// Translations 目标语言 -> 译文
	Translations map[string]string
}

// FileMessage 文件消息
type FileMessage struct {
	baseMessage
	URL        string
	Name       string
	Size       int64
	MimeType   string
	Thumbnails []Thumbnail
}

// Thumbnail 缩略图
type Thumbnail struct {
	URL    string
	Width  int
	Height int
}

// AdminMessage 管理员消息，没有发送者
type AdminMessage struct {
	baseMessage
	Message string
}

// ScheduledStatus 定时消息状态
type ScheduledStatus string

const (
	ScheduledStatusPending  ScheduledStatus = cons.ScheduledPending
	ScheduledStatusSent     ScheduledStatus = cons.ScheduledSent
	ScheduledStatusCanceled ScheduledStatus = cons.ScheduledCanceled
	ScheduledStatusFailed   ScheduledStatus = cons.ScheduledFailed
)

// ScheduledUserMessage 定时文本消息
type ScheduledUserMessage struct {
	ScheduledMessageID uint64
	ChannelURL         string
	Message            string
	Data               string
	CustomType         string
	MentionedUserIDs   []string
	MetaArrays         []MessageMetaArray
	ScheduledAt        time.Time
	Status             ScheduledStatus
	SentMessageID      uint64
	ErrorText          string
	Sender             *User
	CreatedAt          time.Time
}

// MessageEventKind 发送流里的事件
type MessageEventKind int

const (
	MessageEventProgress MessageEventKind = iota + 1
	MessageEventSent
	MessageEventFailed
)

// Progress 文件上传进度；BytesSent 为本次增量
type Progress struct {
	BytesSent      int64
	TotalBytesSent int64
	TotalExpected  int64
}

// MessageEvent 发送流的元素。Sent/Failed 之后流关闭。
type MessageEvent struct {
	Kind     MessageEventKind
	Message  BaseMessage
	Progress *Progress
	Failure  *MessageFailure
}

func messageFromWire(w wire.Message) BaseMessage {
	b := baseMessage{
		messageID:       w.MessageID,
		requestID:       w.RequestID,
		channelURL:      w.ChannelURL,
		channelType:     ChannelType(w.ChannelType),
		typ:             MessageType(w.Type),
		customType:      w.CustomType,
		data:            w.Data,
		mentionedUsers:  usersFromWire(w.MentionedUsers),
		metaArrays:      metaArraysFromWire(w.MetaArrays),
		reactions:       reactionsFromWire(w.Reactions),
		parentMessageID: w.ParentMessageID,
		sendingStatus:   int32(SendingStatusSucceeded),
		createdAt:       fromMillis(w.CreatedAt),
		updatedAt:       fromMillis(w.UpdatedAt),
	}
	if w.Sender != nil {
		b.sender = &Sender{User: userFromWire(*w.Sender), Role: Role(w.SenderRole)}
	}
	switch b.typ {
	case MessageTypeFile:
		fm := &FileMessage{baseMessage: b}
		if w.File != nil {
			fm.URL, fm.Name, fm.Size, fm.MimeType = w.File.URL, w.File.Name, w.File.Size, w.File.Type
			for _, t := range w.File.Thumbnails {
				fm.Thumbnails = append(fm.Thumbnails, Thumbnail{URL: t.URL, Width: t.Width, Height: t.Height})
			}
		}
		return fm
	case MessageTypeAdmin:
		return &AdminMessage{baseMessage: b, Message: w.Message}
	default:
		return &UserMessage{baseMessage: b, Message: w.Message}
	}
}

func messagesFromWire(ws []wire.Message) []BaseMessage {
	out := make([]BaseMessage, 0, len(ws))
	for _, w := range ws {
		out = append(out, messageFromWire(w))
	}
	return out
}

func scheduledFromWire(w wire.ScheduledMessage) *ScheduledUserMessage {
	return &ScheduledUserMessage{
		ScheduledMessageID: w.ScheduledMessageID,
		ChannelURL:         w.ChannelURL,
		Message:            w.Message,
		Data:               w.Data,
		CustomType:         w.CustomType,
		MentionedUserIDs:   w.MentionedUserIDs,
		MetaArrays:         metaArraysFromWire(w.MetaArrays),
		ScheduledAt:        fromMillis(w.ScheduledAt),
		Status:             ScheduledStatus(w.Status),
		SentMessageID:      w.SentMessageID,
		ErrorText:          w.ErrorText,
		Sender:             userPtrFromWire(w.Sender),
		CreatedAt:          fromMillis(w.CreatedAt),
	}
}

func reactionEventFromWire(w wire.ReactionEvent) *ReactionEvent {
	return &ReactionEvent{
		MessageID: w.MessageID,
		Key:       w.Key,
		UserID:    w.UserID,
		Operation: ReactionEventAction(w.Operation),
		UpdatedAt: fromMillis(w.UpdatedAt),
	}
}

func metaArraysFromWire(ws []wire.MetaArray) []MessageMetaArray {
	if len(ws) == 0 {
		return nil
	}
	out := make([]MessageMetaArray, len(ws))
	for i, w := range ws {
		out[i] = MessageMetaArray{Key: w.Key, Value: w.Value}
	}
	return out
}

func metaArraysToWire(ms []MessageMetaArray) []wire.MetaArray {
	if len(ms) == 0 {
		return nil
	}
	out := make([]wire.MetaArray, len(ms))
	for i, m := range ms {
		out[i] = wire.MetaArray{Key: m.Key, Value: m.Value}
	}
	return out
}

func reactionsFromWire(ws []wire.Reaction) []Reaction {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Reaction, len(ws))
	for i, w := range ws {
		out[i] = Reaction{Key: w.Key, UserIDs: w.UserIDs, UpdatedAt: fromMillis(w.UpdatedAt)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}
