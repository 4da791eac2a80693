package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// prefix 表前缀，engine 初始化时可通过 SetTablePrefix 覆盖
var prefix = "im_"

// SetTablePrefix 设置表前缀。需要在 AutoMigrate 和任何查询之前调用。
func SetTablePrefix(p string) {
	if p != "" {
		prefix = p
	}
}

// TablePrefix 当前表前缀
func TablePrefix() string { return prefix }

// User 用户表
type User struct {
	ID              uint64         `gorm:"primarykey"`
	UserID          string         `gorm:"size:80;uniqueIndex;not null"` // 对外用户 ID
	Nickname        string         `gorm:"size:100"`                     // 昵称
	ProfileURL      string         `gorm:"size:500"`                     // 头像
	AccessTokenHash string         `gorm:"size:255"`                     // access token 的 bcrypt 值，为空表示不校验
	IsActive        bool           `gorm:"default:true"`
	MetaData        datatypes.JSON `gorm:"type:json"`
	LastSeenAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return prefix + "user"
}

// 频道类型
const (
	ChannelTypeGroup uint8 = 1
	ChannelTypeOpen  uint8 = 2
)

// Channel 频道表（群组频道/开放频道共用）
type Channel struct {
	ID         uint64 `gorm:"primarykey"`
	ChannelURL string `gorm:"column:channel_url;size:100;uniqueIndex;not null"` // 对外频道标识
	Type       uint8  `gorm:"type:tinyint;index;not null"`                      // 1-群组 2-开放
	Name       string `gorm:"size:191"`
	CoverURL   string `gorm:"size:500"`
	Data       string `gorm:"type:text"`
	CustomType string `gorm:"size:100;index"`
	CreatorID  uint64 `gorm:"index"`

	IsDistinct bool `gorm:"default:false"`
	// DistinctKey 成员集合的摘要，唯一。非 distinct 频道及成员变化后的 distinct 频道为 NULL
	DistinctKey *string `gorm:"size:64;uniqueIndex"`
	IsPublic    bool    `gorm:"default:false"`
	AccessCode  string  `gorm:"size:100"` // 公开群组的进入码，为空表示无需
	IsFrozen    bool    `gorm:"default:false"`

	MemberCount      int `gorm:"default:0"`
	ParticipantCount int `gorm:"default:0"`

	LastMessageID *uint64 `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Channel) TableName() string {
	return prefix + "channel"
}

// 成员状态
const (
	MemberStateInvited uint8 = 1
	MemberStateJoined  uint8 = 2
)

// ChannelMember 群组频道成员表，同时承担用户维度的会话状态（隐藏/已读游标）
type ChannelMember struct {
	ID                 uint64  `gorm:"primarykey"`
	ChannelID          uint64  `gorm:"index:idx_channel_member,unique;not null"`
	UserID             uint64  `gorm:"index:idx_channel_member,unique;index;not null"`
	State              uint8   `gorm:"type:tinyint;default:2"`
	InviterID          *uint64 // 邀请人
	IsHidden           bool    `gorm:"default:false"`
	MessageOffsetID    *uint64 // 该 id 及之前的消息对本人不可见（隐藏时选择了隐藏历史）
	LastReadMsgID      *uint64 `gorm:"index"`
	LastDeliveredMsgID *uint64
	LastReadAt         *time.Time
	JoinedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (ChannelMember) TableName() string {
	return prefix + "channel_member"
}

// ChannelParticipant 开放频道在场用户
type ChannelParticipant struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index:idx_channel_participant,unique;not null"`
	UserID    uint64 `gorm:"index:idx_channel_participant,unique;not null"`
	EnteredAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (ChannelParticipant) TableName() string {
	return prefix + "channel_participant"
}

// ChannelOperator 频道管理员
type ChannelOperator struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index:idx_channel_operator,unique;not null"`
	UserID    uint64 `gorm:"index:idx_channel_operator,unique;not null"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (ChannelOperator) TableName() string {
	return prefix + "channel_operator"
}

// ChannelBan 封禁记录，EndAt 为空表示永久
type ChannelBan struct {
	ID          uint64 `gorm:"primarykey"`
	ChannelID   uint64 `gorm:"index:idx_channel_ban,unique;not null"`
	UserID      uint64 `gorm:"index:idx_channel_ban,unique;not null"`
	Description string `gorm:"size:255"`
	EndAt       *time.Time
	CreatedAt   time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (ChannelBan) TableName() string {
	return prefix + "channel_ban"
}

// ChannelMute 禁言记录，EndAt 为空表示永久
type ChannelMute struct {
	ID          uint64 `gorm:"primarykey"`
	ChannelID   uint64 `gorm:"index:idx_channel_mute,unique;not null"`
	UserID      uint64 `gorm:"index:idx_channel_mute,unique;not null"`
	Description string `gorm:"size:255"`
	EndAt       *time.Time
	CreatedAt   time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (ChannelMute) TableName() string {
	return prefix + "channel_mute"
}

// UserBlock 拉黑关系（单向）
type UserBlock struct {
	ID        uint64 `gorm:"primarykey"`
	UserID    uint64 `gorm:"index:idx_user_block,unique;not null"`
	TargetID  uint64 `gorm:"index:idx_user_block,unique;not null"`
	CreatedAt time.Time

	Target User `gorm:"foreignKey:TargetID"`
}

func (UserBlock) TableName() string {
	return prefix + "user_block"
}

// Friend 好友关系（单向发现）
type Friend struct {
	ID        uint64 `gorm:"primarykey"`
	UserID    uint64 `gorm:"index:idx_user_friend,unique;not null"`
	FriendID  uint64 `gorm:"index:idx_user_friend,unique;not null"`
	CreatedAt time.Time

	Friend User `gorm:"foreignKey:FriendID"`
}

func (Friend) TableName() string {
	return prefix + "friend"
}

// 消息类型
const (
	MessageTypeUser  uint8 = 1
	MessageTypeFile  uint8 = 2
	MessageTypeAdmin uint8 = 3
)

// Message 消息表
type Message struct {
	ID              uint64         `gorm:"primarykey"`
	ChannelID       uint64         `gorm:"index;not null"`
	SenderID        uint64         `gorm:"index"` // 管理员消息为 0
	Type            uint8          `gorm:"type:tinyint;default:1"`
	RequestID       string         `gorm:"size:64;index"`
	Message         string         `gorm:"type:text"`
	Data            string         `gorm:"type:text"`
	CustomType      string         `gorm:"size:100;index"`
	FileURL         string         `gorm:"size:1000"`
	FileName        string         `gorm:"size:255"`
	FileSize        int64          `gorm:"default:0"`
	FileType        string         `gorm:"size:100"`
	Thumbnails      datatypes.JSON `gorm:"type:json"`
	MentionedUsers  datatypes.JSON `gorm:"type:json"` // 对外 user_id 列表
	MetaArrays      datatypes.JSON `gorm:"type:json"`
	ParentMessageID *uint64        `gorm:"index"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`

	Sender User `gorm:"foreignKey:SenderID"`
}

func (Message) TableName() string {
	return prefix + "message"
}

// Reaction 表情回应
type Reaction struct {
	ID        uint64 `gorm:"primarykey"`
	MessageID uint64 `gorm:"index:idx_reaction,unique;not null"`
	UserID    uint64 `gorm:"index:idx_reaction,unique;not null"`
	Key       string `gorm:"index:idx_reaction,unique;size:64;not null"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (Reaction) TableName() string {
	return prefix + "reaction"
}

// ChannelMetaData 频道键值元数据
type ChannelMetaData struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index:idx_channel_meta,unique;not null"`
	Key       string `gorm:"index:idx_channel_meta,unique;size:128;not null"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChannelMetaData) TableName() string {
	return prefix + "channel_meta_data"
}

// ChannelMetaCounter 频道计数器
type ChannelMetaCounter struct {
	ID        uint64 `gorm:"primarykey"`
	ChannelID uint64 `gorm:"index:idx_channel_counter,unique;not null"`
	Key       string `gorm:"index:idx_channel_counter,unique;size:128;not null"`
	Value     int64  `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChannelMetaCounter) TableName() string {
	return prefix + "channel_meta_counter"
}

// 定时消息状态
const (
	ScheduledStatusPending  uint8 = 0
	ScheduledStatusSent     uint8 = 1
	ScheduledStatusCanceled uint8 = 2
	ScheduledStatusFailed   uint8 = 3
)

// ScheduledMessage 定时消息
type ScheduledMessage struct {
	ID             uint64         `gorm:"primarykey"`
	ChannelID      uint64         `gorm:"index;not null"`
	SenderID       uint64         `gorm:"index;not null"`
	Message        string         `gorm:"type:text"`
	Data           string         `gorm:"type:text"`
	CustomType     string         `gorm:"size:100"`
	MentionedUsers datatypes.JSON `gorm:"type:json"`
	MetaArrays     datatypes.JSON `gorm:"type:json"`
	ScheduledAt    time.Time      `gorm:"index:idx_sched_due;not null"`
	Status         uint8          `gorm:"type:tinyint;index:idx_sched_due;default:0"`
	SentMessageID  *uint64
	ErrorText      string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Sender User `gorm:"foreignKey:SenderID"`
}

func (ScheduledMessage) TableName() string {
	return prefix + "scheduled_message"
}

// All 返回所有需要迁移的模型
func All() []any {
	return []any{
		&User{},
		&Channel{},
		&ChannelMember{},
		&ChannelParticipant{},
		&ChannelOperator{},
		&ChannelBan{},
		&ChannelMute{},
		&UserBlock{},
		&Friend{},
		&Message{},
		&Reaction{},
		&ChannelMetaData{},
		&ChannelMetaCounter{},
		&ScheduledMessage{},
	}
}
