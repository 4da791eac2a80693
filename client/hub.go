package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// subscriberBuffer 每个订阅者的缓冲，满了丢事件而不是阻塞读协程
const subscriberBuffer = 64

// ChannelEvent 频道事件。按 Kind 只填充对应字段，Raw 保留原始负载。
type ChannelEvent struct {
	ChannelURL  string
	ChannelType ChannelType
	Kind        ChannelEventKind

	Message      BaseMessage           // received/updated/mention
	MessageID    uint64                // deleted 以及回执
	User         *User                 // 单用户事件、回执、邀请被拒绝
	Users        []User                // 输入中用户、被邀请人、管理员列表
	Inviter      *User                 // 邀请事件
	MetaData     map[string]string     // meta data created/updated
	MetaCounters map[string]int64      // meta counters created/updated
	Keys         []string              // meta data/counters deleted
	Reaction     *ReactionEvent        // reaction updated
	Scheduled    *ScheduledUserMessage // scheduled message changed
	Timestamp    time.Time             // 回执时间

	Raw json.RawMessage
}

// UserEvent 用户级事件
type UserEvent struct {
	Kind              UserEventKind
	Friends           []User
	TotalUnreadCount  uint
	CountByCustomType map[string]uint
}

type channelSub struct {
	url string // 为空表示全部频道
	ch  chan ChannelEvent
}

// hub 事件扇出
type hub struct {
	log *zap.Logger

	mu       sync.RWMutex
	seq      int
	channels map[int]*channelSub
	users    map[int]chan UserEvent
	conns    map[int]chan ConnectionEvent
}

func newHub(log *zap.Logger) *hub {
	return &hub{
		log:      log,
		channels: make(map[int]*channelSub),
		users:    make(map[int]chan UserEvent),
		conns:    make(map[int]chan ConnectionEvent),
	}
}

func (h *hub) subscribeChannel(url string) (<-chan ChannelEvent, func()) {
	sub := &channelSub{url: url, ch: make(chan ChannelEvent, subscriberBuffer)}
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.channels[id] = sub
	h.mu.Unlock()
	return sub.ch, h.canceler(func() {
		delete(h.channels, id)
		close(sub.ch)
	})
}

func (h *hub) subscribeUser() (<-chan UserEvent, func()) {
	ch := make(chan UserEvent, subscriberBuffer)
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.users[id] = ch
	h.mu.Unlock()
	return ch, h.canceler(func() {
		delete(h.users, id)
		close(ch)
	})
}

func (h *hub) subscribeConnection() (<-chan ConnectionEvent, func()) {
	ch := make(chan ConnectionEvent, subscriberBuffer)
	h.mu.Lock()
	h.seq++
	id := h.seq
	h.conns[id] = ch
	h.mu.Unlock()
	return ch, h.canceler(func() {
		delete(h.conns, id)
		close(ch)
	})
}

// canceler 在写锁内执行 remove，多次调用只生效一次
func (h *hub) canceler(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			remove()
			h.mu.Unlock()
		})
	}
}

func (h *hub) publishChannel(ev ChannelEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.channels {
		if sub.url != "" && sub.url != ev.ChannelURL {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn("channel subscriber slow, event dropped",
				zap.String("channel_url", ev.ChannelURL),
				zap.String("kind", string(ev.Kind)))
		}
	}
}

func (h *hub) publishUser(ev UserEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.users {
		select {
		case ch <- ev:
		default:
			h.log.Warn("user subscriber slow, event dropped", zap.String("kind", string(ev.Kind)))
		}
	}
}

func (h *hub) publishConnection(ev ConnectionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.conns {
		select {
		case ch <- ev:
		default:
			h.log.Warn("connection subscriber slow, event dropped", zap.Int("kind", int(ev.Kind)))
		}
	}
}

// dispatch 解下行 event 帧并分发，返回解出的频道事件（用户事件返回 nil）
func (h *hub) dispatch(f wire.Frame) *ChannelEvent {
	switch f.Event {
	case cons.EventFriendsDiscovered:
		var p wire.FriendsPayload
		if err := f.Decode(&p); err != nil {
			h.decodeFailed(f, err)
			return nil
		}
		h.publishUser(UserEvent{Kind: UserEventFriendsDiscovered, Friends: usersFromWire(p.Friends)})
		return nil
	case cons.EventTotalUnreadCountUpdated:
		var p wire.UnreadCountPayload
		if err := f.Decode(&p); err != nil {
			h.decodeFailed(f, err)
			return nil
		}
		ev := UserEvent{Kind: UserEventTotalUnreadCountUpdated, TotalUnreadCount: nonNeg(p.TotalCount)}
		if len(p.CountByCustomType) > 0 {
			ev.CountByCustomType = make(map[string]uint, len(p.CountByCustomType))
			for k, v := range p.CountByCustomType {
				ev.CountByCustomType[k] = nonNeg(v)
			}
		}
		h.publishUser(ev)
		return nil
	}

	ev, err := decodeChannelEvent(f)
	if err != nil {
		h.decodeFailed(f, err)
		return nil
	}
	h.publishChannel(*ev)
	return ev
}

func (h *hub) decodeFailed(f wire.Frame, err error) {
	h.log.Warn("decode event failed", zap.String("event", f.Event), zap.String("channel_url", f.ChannelURL), zap.Error(err))
}

func decodeChannelEvent(f wire.Frame) (*ChannelEvent, error) {
	ev := &ChannelEvent{
		ChannelURL:  f.ChannelURL,
		ChannelType: ChannelType(f.ChannelType),
		Kind:        ChannelEventKind(f.Event),
		Raw:         f.Data,
	}
	switch f.Event {
	case cons.EventMessageReceived, cons.EventMessageUpdated, cons.EventMentionReceived:
		var m wire.Message
		if err := f.Decode(&m); err != nil {
			return nil, err
		}
		ev.Message = messageFromWire(m)
		ev.MessageID = m.MessageID
	case cons.EventMessageDeleted:
		var p wire.MessageDeletedPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.MessageID = p.MessageID
	case cons.EventReadReceiptUpdated, cons.EventDeliveryReceiptUpdated:
		var p wire.ReceiptPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		u := userFromWire(p.User)
		ev.User, ev.MessageID, ev.Timestamp = &u, p.MessageID, fromMillis(p.Timestamp)
	case cons.EventTypingStatusUpdated:
		var p wire.TypingPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.Users = usersFromWire(p.TypingUsers)
	case cons.EventInvitationReceived, cons.EventInvitationDeclined:
		var p wire.InvitationPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.Inviter = userPtrFromWire(p.Inviter)
		ev.Users = usersFromWire(p.Invitees)
		ev.User = userPtrFromWire(p.Invitee)
	case cons.EventUserJoined, cons.EventUserLeft, cons.EventUserMuted, cons.EventUserUnmuted,
		cons.EventUserBanned, cons.EventUserUnbanned:
		var p wire.UserPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		u := userFromWire(p.User)
		ev.User = &u
	case cons.EventMetaDataCreated, cons.EventMetaDataUpdated, cons.EventMetaDataDeleted:
		var p wire.MetaDataPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.MetaData, ev.Keys = p.MetaData, p.Keys
	case cons.EventMetaCountersCreated, cons.EventMetaCountersUpdated, cons.EventMetaCountersDeleted:
		var p wire.MetaCountersPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.MetaCounters, ev.Keys = p.MetaCounters, p.Keys
	case cons.EventReactionUpdated:
		var p wire.ReactionEvent
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.Reaction = reactionEventFromWire(p)
		ev.MessageID = p.MessageID
	case cons.EventOperatorsUpdated:
		var p wire.OperatorsPayload
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.Users = usersFromWire(p.Operators)
	case cons.EventScheduledMessageChanged:
		var p wire.ScheduledMessage
		if err := f.Decode(&p); err != nil {
			return nil, err
		}
		ev.Scheduled = scheduledFromWire(p)
	}
	return ev, nil
}

func nonNeg(n int) uint {
	if n < 0 {
		return 0
	}
	return uint(n)
}
