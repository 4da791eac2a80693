package client

import (
	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
)

// ConnectionState 连接状态
type ConnectionState int

const (
	StateClosed ConnectionState = iota
	StateConnecting
	StateOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// ConnectionEventKind 重连过程中的事件
type ConnectionEventKind int

const (
	ReconnectionStarted ConnectionEventKind = iota + 1
	ReconnectionSucceeded
	ReconnectionFailed
	ReconnectionCanceled
	Disconnected
)

func (k ConnectionEventKind) String() string {
	switch k {
	case ReconnectionStarted:
		return "reconnection_started"
	case ReconnectionSucceeded:
		return "reconnection_succeeded"
	case ReconnectionFailed:
		return "reconnection_failed"
	case ReconnectionCanceled:
		return "reconnection_canceled"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// ConnectionEvent 连接事件；Attempt 为当前重试次数，Err 为最近一次失败原因
type ConnectionEvent struct {
	Kind    ConnectionEventKind
	Attempt int
	Err     error
}

// ChannelType 频道类型
type ChannelType string

const (
	ChannelTypeGroup ChannelType = cons.ChannelTypeGroup
	ChannelTypeOpen  ChannelType = cons.ChannelTypeOpen
)

// MessageType 消息类型
type MessageType string

const (
	MessageTypeUser  MessageType = cons.MessageTypeUser
	MessageTypeFile  MessageType = cons.MessageTypeFile
	MessageTypeAdmin MessageType = cons.MessageTypeAdmin
)

// MessageTypeFilter 历史消息按类型过滤
type MessageTypeFilter int

const (
	MessageTypeFilterAll MessageTypeFilter = iota
	MessageTypeFilterUser
	MessageTypeFilterFile
	MessageTypeFilterAdmin
)

func (f MessageTypeFilter) query() string {
	switch f {
	case MessageTypeFilterUser:
		return cons.MessageTypeUser
	case MessageTypeFilterFile:
		return cons.MessageTypeFile
	case MessageTypeFilterAdmin:
		return cons.MessageTypeAdmin
	}
	return ""
}

// MemberState 当前用户在群组里的状态
type MemberState string

const (
	MemberStateNone    MemberState = cons.MemberStateNone
	MemberStateInvited MemberState = cons.MemberStateInvited
	MemberStateJoined  MemberState = cons.MemberStateJoined
)

// MemberStateFilter 按成员状态过滤群组
type MemberStateFilter int

const (
	MemberStateFilterAll MemberStateFilter = iota
	MemberStateFilterJoinedOnly
	MemberStateFilterInvitedOnly
)

func (f MemberStateFilter) query() string {
	switch f {
	case MemberStateFilterJoinedOnly:
		return cons.MemberStateJoined
	case MemberStateFilterInvitedOnly:
		return cons.MemberStateInvited
	}
	return "all"
}

// Role 频道内角色
type Role string

const (
	RoleNone     Role = cons.RoleNone
	RoleOperator Role = cons.RoleOperator
)

// MutedState 禁言状态
type MutedState string

const (
	MutedStateUnmuted MutedState = cons.MutedStateUnmuted
	MutedStateMuted   MutedState = cons.MutedStateMuted
)

// ReactionEventAction 回应的增删
type ReactionEventAction string

const (
	ReactionEventActionAdd    ReactionEventAction = cons.ReactionAdd
	ReactionEventActionDelete ReactionEventAction = cons.ReactionDelete
)

// SendingStatus 本地消息的发送状态
type SendingStatus int

const (
	SendingStatusNone SendingStatus = iota
	SendingStatusPending
	SendingStatusFailed
	SendingStatusSucceeded
	SendingStatusCanceled
)

func (s SendingStatus) String() string {
	switch s {
	case SendingStatusPending:
		return "pending"
	case SendingStatusFailed:
		return "failed"
	case SendingStatusSucceeded:
		return "succeeded"
	case SendingStatusCanceled:
		return "canceled"
	}
	return "none"
}

// ChannelEventKind 频道事件种类，取值与服务端事件名一致
type ChannelEventKind string

const (
	ChannelEventMessageReceived         ChannelEventKind = cons.EventMessageReceived
	ChannelEventMessageUpdated          ChannelEventKind = cons.EventMessageUpdated
	ChannelEventMessageDeleted          ChannelEventKind = cons.EventMessageDeleted
	ChannelEventMentionReceived         ChannelEventKind = cons.EventMentionReceived
	ChannelEventReadReceiptUpdated      ChannelEventKind = cons.EventReadReceiptUpdated
	ChannelEventDeliveryReceiptUpdated  ChannelEventKind = cons.EventDeliveryReceiptUpdated
	ChannelEventTypingStatusUpdated     ChannelEventKind = cons.EventTypingStatusUpdated
	ChannelEventInvitationReceived      ChannelEventKind = cons.EventInvitationReceived
	ChannelEventInvitationDeclined      ChannelEventKind = cons.EventInvitationDeclined
	ChannelEventUserJoined              ChannelEventKind = cons.EventUserJoined
	ChannelEventUserLeft                ChannelEventKind = cons.EventUserLeft
	ChannelEventUserMuted               ChannelEventKind = cons.EventUserMuted
	ChannelEventUserUnmuted             ChannelEventKind = cons.EventUserUnmuted
	ChannelEventUserBanned              ChannelEventKind = cons.EventUserBanned
	ChannelEventUserUnbanned            ChannelEventKind = cons.EventUserUnbanned
	ChannelEventFrozen                  ChannelEventKind = cons.EventChannelFrozen
	ChannelEventUnfrozen                ChannelEventKind = cons.EventChannelUnfrozen
	ChannelEventChanged                 ChannelEventKind = cons.EventChannelChanged
	ChannelEventHidden                  ChannelEventKind = cons.EventChannelHidden
	ChannelEventDeleted                 ChannelEventKind = cons.EventChannelDeleted
	ChannelEventMetaDataCreated         ChannelEventKind = cons.EventMetaDataCreated
	ChannelEventMetaDataUpdated         ChannelEventKind = cons.EventMetaDataUpdated
	ChannelEventMetaDataDeleted         ChannelEventKind = cons.EventMetaDataDeleted
	ChannelEventMetaCountersCreated     ChannelEventKind = cons.EventMetaCountersCreated
	ChannelEventMetaCountersUpdated     ChannelEventKind = cons.EventMetaCountersUpdated
	ChannelEventMetaCountersDeleted     ChannelEventKind = cons.EventMetaCountersDeleted
	ChannelEventReactionUpdated         ChannelEventKind = cons.EventReactionUpdated
	ChannelEventOperatorsUpdated        ChannelEventKind = cons.EventOperatorsUpdated
	ChannelEventScheduledMessageChanged ChannelEventKind = cons.EventScheduledMessageChanged
)

// UserEventKind 用户级事件种类
type UserEventKind string

const (
	UserEventFriendsDiscovered       UserEventKind = cons.EventFriendsDiscovered
	UserEventTotalUnreadCountUpdated UserEventKind = cons.EventTotalUnreadCountUpdated
)

// UnreadItemKey 未读计数位集合，可按位或组合
type UnreadItemKey int

const (
	UnreadItemGroupChannelUnreadMessageCount UnreadItemKey = wire.UnreadKeyGroupChannelMessage
	UnreadItemGroupChannelUnreadChannelCount UnreadItemKey = wire.UnreadKeyGroupChannelChannel
	UnreadItemGroupChannelInvitationCount    UnreadItemKey = wire.UnreadKeyGroupChannelInvitation
)

// UnreadItemCount 只填充请求过的项
type UnreadItemCount struct {
	GroupChannelUnreadMessageCount *uint
	GroupChannelUnreadChannelCount *uint
	GroupChannelInvitationCount    *uint
}

func unreadItemCountFromWire(w *wire.UnreadItemCount) *UnreadItemCount {
	if w == nil {
		return &UnreadItemCount{}
	}
	return &UnreadItemCount{
		GroupChannelUnreadMessageCount: uintPtr(w.GroupChannelUnreadMessageCount),
		GroupChannelUnreadChannelCount: uintPtr(w.GroupChannelUnreadChannelCount),
		GroupChannelInvitationCount:    uintPtr(w.GroupChannelInvitationCount),
	}
}

func uintPtr(n *int) *uint {
	if n == nil {
		return nil
	}
	v := uint(0)
	if *n > 0 {
		v = uint(*n)
	}
	return &v
}
