package wire

// 时间字段统一为毫秒时间戳

// User 用户
type User struct {
	UserID     string            `json:"user_id"`
	Nickname   string            `json:"nickname"`
	ProfileURL string            `json:"profile_url"`
	IsActive   bool              `json:"is_active"`
	IsOnline   bool              `json:"is_online"`
	LastSeenAt int64             `json:"last_seen_at,omitempty"`
	MetaData   map[string]string `json:"meta_data,omitempty"`
}

// Member 群组成员
type Member struct {
	User
	State   string `json:"state"`
	Role    string `json:"role"`
	IsMuted bool   `json:"is_muted"`
}

// File 文件消息的文件信息
type File struct {
	URL        string      `json:"url"`
	Name       string      `json:"name"`
	Size       int64       `json:"size"`
	Type       string      `json:"type"`
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// Thumbnail 缩略图
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MetaArray 消息的有序多值元数据
type MetaArray struct {
	Key   string   `json:"key"`
	Value []string `json:"value"`
}

// Reaction 某个 key 的聚合回应
type Reaction struct {
	Key       string   `json:"key"`
	UserIDs   []string `json:"user_ids"`
	UpdatedAt int64    `json:"updated_at"`
}

// ReactionEvent 单次回应变化
type ReactionEvent struct {
	MessageID uint64 `json:"message_id"`
	Key       string `json:"key"`
	UserID    string `json:"user_id"`
	Operation string `json:"operation"`
	UpdatedAt int64  `json:"updated_at"`
}

// Message 消息。Type 为 MESG/FILE/ADMM。
type Message struct {
	MessageID       uint64      `json:"message_id"`
	Type            string      `json:"type"`
	ChannelURL      string      `json:"channel_url"`
	ChannelType     string      `json:"channel_type"`
	RequestID       string      `json:"request_id,omitempty"`
	Message         string      `json:"message,omitempty"`
	Data            string      `json:"data,omitempty"`
	CustomType      string      `json:"custom_type,omitempty"`
	Sender          *User       `json:"user,omitempty"`
	SenderRole      string      `json:"sender_role,omitempty"`
	File            *File       `json:"file,omitempty"`
	MentionedUsers  []User      `json:"mentioned_users,omitempty"`
	MetaArrays      []MetaArray `json:"meta_arrays,omitempty"`
	Reactions       []Reaction  `json:"reactions,omitempty"`
	ParentMessageID uint64      `json:"parent_message_id,omitempty"`
	CreatedAt       int64       `json:"created_at"`
	UpdatedAt       int64       `json:"updated_at"`
}

// GroupChannel 群组频道，My* 字段以请求者视角填充
type GroupChannel struct {
	ChannelURL           string   `json:"channel_url"`
	Name                 string   `json:"name"`
	CoverURL             string   `json:"cover_url"`
	Data                 string   `json:"data,omitempty"`
	CustomType           string   `json:"custom_type,omitempty"`
	CreatedAt            int64    `json:"created_at"`
	IsFrozen             bool     `json:"freeze"`
	IsDistinct           bool     `json:"is_distinct"`
	IsPublic             bool     `json:"is_public"`
	IsAccessCodeRequired bool     `json:"is_access_code_required"`
	MemberCount          int      `json:"member_count"`
	JoinedMemberCount    int      `json:"joined_member_count"`
	Members              []Member `json:"members,omitempty"`
	Operators            []User   `json:"operators,omitempty"`
	LastMessage          *Message `json:"last_message,omitempty"`
	UnreadMessageCount   int      `json:"unread_message_count"`
	UnreadMentionCount   int      `json:"unread_mention_count"`
	MyMemberState        string   `json:"member_state"`
	MyRole               string   `json:"my_role"`
	MyMutedState         string   `json:"is_muted"`
	MyLastRead           int64    `json:"my_last_read,omitempty"`
	IsHidden             bool     `json:"is_hidden"`
	Inviter              *User    `json:"inviter,omitempty"`
	Created              bool     `json:"created,omitempty"`
}

// OpenChannel 开放频道
type OpenChannel struct {
	ChannelURL       string `json:"channel_url"`
	Name             string `json:"name"`
	CoverURL         string `json:"cover_url"`
	Data             string `json:"data,omitempty"`
	CustomType       string `json:"custom_type,omitempty"`
	CreatedAt        int64  `json:"created_at"`
	IsFrozen         bool   `json:"freeze"`
	ParticipantCount int    `json:"participant_count"`
	Operators        []User `json:"operators,omitempty"`
}

// ScheduledMessage 定时消息
type ScheduledMessage struct {
	ScheduledMessageID uint64      `json:"scheduled_message_id"`
	ChannelURL         string      `json:"channel_url"`
	Message            string      `json:"message"`
	Data               string      `json:"data,omitempty"`
	CustomType         string      `json:"custom_type,omitempty"`
	MentionedUserIDs   []string    `json:"mentioned_user_ids,omitempty"`
	MetaArrays         []MetaArray `json:"meta_arrays,omitempty"`
	ScheduledAt        int64       `json:"scheduled_at"`
	Status             string      `json:"status"`
	SentMessageID      uint64      `json:"sent_message_id,omitempty"`
	ErrorText          string      `json:"error,omitempty"`
	Sender             *User       `json:"user,omitempty"`
	CreatedAt          int64       `json:"created_at"`
}

// Page 分页结果。Next 为空表示没有更多。
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
}

// Session 登录结果
type Session struct {
	SessionToken string `json:"session_token"`
	User         User   `json:"user"`
}

// UnreadItemCount 未读计数，只填充请求的项
type UnreadItemCount struct {
	GroupChannelUnreadMessageCount *int `json:"group_channel_unread_message_count,omitempty"`
	GroupChannelUnreadChannelCount *int `json:"group_channel_unread_channel_count,omitempty"`
	GroupChannelInvitationCount    *int `json:"group_channel_invitation_count,omitempty"`
}

// UnreadItemKey 未读计数位集合
const (
	UnreadKeyGroupChannelMessage    = 1 << 0
	UnreadKeyGroupChannelChannel    = 1 << 1
	UnreadKeyGroupChannelInvitation = 1 << 2
)

// UploadedFile 上传结果
type UploadedFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// 事件负载

// UserPayload 单用户事件（joined/left/muted/banned...）
type UserPayload struct {
	User User `json:"user"`
}

// InvitationPayload 邀请事件
type InvitationPayload struct {
	Inviter  *User  `json:"inviter,omitempty"`
	Invitees []User `json:"invitees,omitempty"`
	Invitee  *User  `json:"invitee,omitempty"`
}

// ReceiptPayload 已读/送达事件
type ReceiptPayload struct {
	User      User   `json:"user"`
	MessageID uint64 `json:"message_id"`
	Timestamp int64  `json:"ts"`
}

// TypingPayload 输入中事件
type TypingPayload struct {
	TypingUsers []User `json:"typing_users"`
}

// MessageDeletedPayload 消息删除事件
type MessageDeletedPayload struct {
	MessageID uint64 `json:"message_id"`
}

// MetaDataPayload 元数据事件
type MetaDataPayload struct {
	MetaData map[string]string `json:"meta_data,omitempty"`
	Keys     []string          `json:"keys,omitempty"`
}

// MetaCountersPayload 计数器事件
type MetaCountersPayload struct {
	MetaCounters map[string]int64 `json:"meta_counters,omitempty"`
	Keys         []string         `json:"keys,omitempty"`
}

// OperatorsPayload 管理员变化事件
type OperatorsPayload struct {
	Operators []User `json:"operators"`
}

// FriendsPayload 好友发现事件
type FriendsPayload struct {
	Friends []User `json:"friends"`
}

// UnreadCountPayload 总未读变化事件
type UnreadCountPayload struct {
	TotalCount        int            `json:"total_count"`
	CountByCustomType map[string]int `json:"count_by_custom_type,omitempty"`
}
