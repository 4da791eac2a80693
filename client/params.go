package client

import (
	"io"
	"time"
)

// BaseMessageParams 发送/修改消息的公共参数
type BaseMessageParams struct {
	Data             string
	CustomType       string
	MentionedUserIDs []string
	MetaArrays       []MessageMetaArray
	ParentMessageID  uint64
}

// UserMessageParams 文本消息
type UserMessageParams struct {
	BaseMessageParams
	Message string
}

// FileMessageParams 文件消息。FileURL 与 File 二选一：
// FileURL 直接引用已有地址，File 会先上传到 /files。
type FileMessageParams struct {
	BaseMessageParams
	FileURL  string
	File     io.Reader
	FileSize int64 // File 的总长度，未知时为 0，进度里 TotalExpected 也为 0
	FileName string
	MimeType string
	// Thumbnails 已生成的缩略图地址
	Thumbnails []Thumbnail
}

// ScheduledUserMessageParams 定时文本消息
type ScheduledUserMessageParams struct {
	BaseMessageParams
	Message     string
	ScheduledAt time.Time
}

// GroupChannelParams 创建/修改群组。修改时零值字段不提交，Update* 开关除外。
type GroupChannelParams struct {
	ChannelURL      string
	Name            string
	CoverURL        string
	Data            string
	CustomType      string
	UserIDs         []string
	OperatorUserIDs []string
	IsDistinct      bool
	IsPublic        bool
	AccessCode      string

	// UpdateIsPublic 修改时是否提交 IsPublic
	UpdateIsPublic bool
}

// AddUsers 追加成员
func (p *GroupChannelParams) AddUsers(users ...User) {
	p.UserIDs = append(p.UserIDs, userIDs(users)...)
}

// OpenChannelParams 创建/修改开放频道
type OpenChannelParams struct {
	ChannelURL      string
	Name            string
	CoverURL        string
	Data            string
	CustomType      string
	OperatorUserIDs []string
}

// GroupChannelTotalUnreadMessageCountParams 按频道 custom type 统计总未读
type GroupChannelTotalUnreadMessageCountParams struct {
	ChannelCustomTypes []string
}

// MessageListParams 以时间戳或消息 ID 为锚点拉取历史消息
type MessageListParams struct {
	IsInclusive      bool
	PrevLimit        int
	NextLimit        int
	Reverse          bool
	MessageType      MessageTypeFilter
	CustomType       string
	SenderUserIDs    []string
	IncludeMetaArray bool
	IncludeReactions bool
	ParentMessageID  uint64
}
