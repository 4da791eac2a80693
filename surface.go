package birdchat

import "github.com/cydxin/birdchat/client"

// 客户端 SDK 的常用类型，一次导入即可使用。实现都在 client 包。

// 连接
type (
	Main              = client.Main
	Options           = client.Options
	Reconnect         = client.Reconnect
	ConnectionManager = client.ConnectionManager
	ConnectionState   = client.ConnectionState
	ConnectionEvent   = client.ConnectionEvent
)

// 频道
type (
	BaseChannel                               = client.BaseChannel
	GroupChannel                              = client.GroupChannel
	OpenChannel                               = client.OpenChannel
	GroupChannelParams                        = client.GroupChannelParams
	OpenChannelParams                         = client.OpenChannelParams
	GroupChannelListQuery                     = client.GroupChannelListQuery
	PublicGroupChannelListQuery               = client.PublicGroupChannelListQuery
	GroupChannelMemberListQuery               = client.GroupChannelMemberListQuery
	OpenChannelListQuery                      = client.OpenChannelListQuery
	OperatorListQuery                         = client.OperatorListQuery
	ParticipantListQuery                      = client.ParticipantListQuery
	GroupChannelTotalUnreadMessageCountParams = client.GroupChannelTotalUnreadMessageCountParams
)

// 消息
type (
	BaseMessage                = client.BaseMessage
	UserMessage                = client.UserMessage
	FileMessage                = client.FileMessage
	AdminMessage               = client.AdminMessage
	ScheduledUserMessage       = client.ScheduledUserMessage
	BaseMessageParams          = client.BaseMessageParams
	UserMessageParams          = client.UserMessageParams
	FileMessageParams          = client.FileMessageParams
	ScheduledUserMessageParams = client.ScheduledUserMessageParams
	MessageListQuery           = client.MessageListQuery
	PreviousMessageListQuery   = client.PreviousMessageListQuery
	MessageSearchQuery         = client.MessageSearchQuery
	MessageMetaArray           = client.MessageMetaArray
	MessageListParams          = client.MessageListParams
	MessageEvent               = client.MessageEvent
	MessageFailure             = client.MessageFailure
)

// 用户
type (
	User                     = client.User
	Member                   = client.Member
	Sender                   = client.Sender
	UserListQuery            = client.UserListQuery
	ApplicationUserListQuery = client.ApplicationUserListQuery
	BannedUserListQuery      = client.BannedUserListQuery
	BlockedUserListQuery     = client.BlockedUserListQuery
	MutedUserListQuery       = client.MutedUserListQuery
	FriendListQuery          = client.FriendListQuery
)

// 回应、未读、错误
type (
	Reaction        = client.Reaction
	ReactionEvent   = client.ReactionEvent
	UnreadItemCount = client.UnreadItemCount
	UnreadItemKey   = client.UnreadItemKey
	Error           = client.Error
	ErrorCode       = client.ErrorCode
)

// 共用枚举与事件
type (
	ChannelType         = client.ChannelType
	MessageType         = client.MessageType
	MessageTypeFilter   = client.MessageTypeFilter
	MemberState         = client.MemberState
	MemberStateFilter   = client.MemberStateFilter
	Role                = client.Role
	MutedState          = client.MutedState
	ReactionEventAction = client.ReactionEventAction
	SendingStatus       = client.SendingStatus
	ChannelEventKind    = client.ChannelEventKind
	UserEventKind       = client.UserEventKind
	ChannelEvent        = client.ChannelEvent
	UserEvent           = client.UserEvent
)

// 错误码
const (
	ErrInvalidParameterCode = client.CodeInvalidParameter
	ErrUnauthorizedCode     = client.CodeUnauthorized
	ErrUserNotFoundCode     = client.CodeUserNotFound
	ErrChannelNotFoundCode  = client.CodeChannelNotFound
	ErrMessageNotFoundCode  = client.CodeMessageNotFound
	ErrResourceNotFoundCode = client.CodeResourceNotFound
	ErrNotOperatorCode      = client.CodeNotOperator
	ErrInternalCode         = client.CodeInternal
	ErrNotConnectedCode     = client.CodeNotConnected
	ErrQueryInProgressCode  = client.CodeQueryInProgress
	ErrAckTimeoutCode       = client.CodeAckTimeout
	ErrWebSocketClosedCode  = client.CodeWebSocketClosed
	ErrRequestFailedCode    = client.CodeRequestFailed
	ErrNotMemberCode        = client.CodeNotMember
	ErrUserMutedCode        = client.CodeUserMuted
	ErrChannelFrozenCode    = client.CodeChannelFrozen
	ErrUserBannedCode       = client.CodeUserBanned
	ErrUserBlockedCode      = client.CodeUserBlocked
)

// NewMain 见 client.NewMain
func NewMain(opts Options) *Main { return client.NewMain(opts) }

// DefaultOptions 见 client.DefaultOptions
func DefaultOptions(apiHost string) Options { return client.DefaultOptions(apiHost) }
