package cons

// 频道事件（event 字段），服务端推送，客户端按此分发到频道订阅者
const (
	EventMessageReceived         = "channel.message.received"         // 新消息
	EventMessageUpdated          = "channel.message.updated"          // 消息被编辑
	EventMessageDeleted          = "channel.message.deleted"          // 消息被删除
	EventMentionReceived         = "channel.mention.received"         // 被 @
	EventReadReceiptUpdated      = "channel.read_receipt.updated"     // 已读游标变化
	EventDeliveryReceiptUpdated  = "channel.delivery_receipt.updated" // 送达游标变化
	EventTypingStatusUpdated     = "channel.typing.updated"           // 输入中
	EventInvitationReceived      = "channel.invitation.received"      // 收到邀请
	EventInvitationDeclined      = "channel.invitation.declined"      // 邀请被拒绝
	EventUserJoined              = "channel.user.joined"              // 加入群组/进入开放频道
	EventUserLeft                = "channel.user.left"                // 离开群组/退出开放频道
	EventUserMuted               = "channel.user.muted"               // 禁言
	EventUserUnmuted             = "channel.user.unmuted"             // 解除禁言
	EventUserBanned              = "channel.user.banned"              // 封禁
	EventUserUnbanned            = "channel.user.unbanned"            // 解封
	EventChannelFrozen           = "channel.frozen"                   // 冻结
	EventChannelUnfrozen         = "channel.unfrozen"                 // 解冻
	EventChannelChanged          = "channel.changed"                  // 频道属性变化
	EventChannelHidden           = "channel.hidden"                   // 被当前用户隐藏
	EventChannelDeleted          = "channel.deleted"                  // 频道删除
	EventMetaDataCreated         = "channel.meta_data.created"        // 元数据
	EventMetaDataUpdated         = "channel.meta_data.updated"
	EventMetaDataDeleted         = "channel.meta_data.deleted"
	EventMetaCountersCreated     = "channel.meta_counters.created" // 计数器
	EventMetaCountersUpdated     = "channel.meta_counters.updated"
	EventMetaCountersDeleted     = "channel.meta_counters.deleted"
	EventReactionUpdated         = "channel.reaction.updated"          // 表情回应
	EventOperatorsUpdated        = "channel.operators.updated"         // 管理员列表变化
	EventScheduledMessageChanged = "channel.scheduled_message.changed" // 定时消息状态变化，仅发送者可见
)

// 用户事件
const (
	EventFriendsDiscovered       = "user.friends.discovered"
	EventTotalUnreadCountUpdated = "user.unread_count.updated"
)

// WS 帧类型（type 字段）
const (
	FrameMessage     = "message"      // 上行：发送用户消息
	FrameReadAck     = "read_ack"     // 上行：已读回执
	FrameDeliveryAck = "delivery_ack" // 上行：送达回执
	FrameTypingStart = "typing_start" // 上行：开始输入
	FrameTypingEnd   = "typing_end"   // 上行：结束输入
	FramePing        = "ping"         // 上行：应用层心跳
	FrameAck         = "ack"          // 下行：请求成功
	FrameError       = "error"        // 下行：请求失败
	FrameEvent       = "event"        // 下行：事件推送
	FramePong        = "pong"         // 下行：心跳回应
)

// 频道类型的对外字符串
const (
	ChannelTypeGroup = "group"
	ChannelTypeOpen  = "open"
)

// 消息类型的对外字符串
const (
	MessageTypeUser  = "MESG"
	MessageTypeFile  = "FILE"
	MessageTypeAdmin = "ADMM"
)

// 成员状态/角色的对外字符串
const (
	MemberStateInvited = "invited"
	MemberStateJoined  = "joined"
	MemberStateNone    = "none"

	RoleOperator = "operator"
	RoleNone     = "none"

	MutedStateMuted   = "muted"
	MutedStateUnmuted = "unmuted"
)

// 定时消息状态的对外字符串
const (
	ScheduledPending  = "pending"
	ScheduledSent     = "sent"
	ScheduledCanceled = "canceled"
	ScheduledFailed   = "failed"
)

// 表情回应操作
const (
	ReactionAdd    = "add"
	ReactionDelete = "delete"
)
