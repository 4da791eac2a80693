package repository

import (
	"strings"
	"time"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
)

// MessageDAO 封装 Message 相关的数据库操作
type MessageDAO struct {
	db *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *MessageDAO) WithDB(db *gorm.DB) *MessageDAO {
	if db == nil {
		return dao
	}
	return &MessageDAO{db: db}
}

func (dao *MessageDAO) Create(msg *models.Message) error {
	return dao.db.Create(msg).Error
}

// FindInChannel 查询频道内某条消息（预加载发送者）
func (dao *MessageDAO) FindInChannel(channelID, id uint64) (*models.Message, error) {
	var msg models.Message
	err := dao.db.Preload("Sender").Where("id = ? AND channel_id = ?", id, channelID).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByRequestID 同一发送者在频道内按 request_id 查重
func (dao *MessageDAO) FindByRequestID(channelID, senderID uint64, requestID string) (*models.Message, error) {
	var msg models.Message
	err := dao.db.Preload("Sender").
		Where("channel_id = ? AND sender_id = ? AND request_id = ?", channelID, senderID, requestID).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (dao *MessageDAO) FindByIDs(ids []uint64) ([]models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Message
	err := dao.db.Preload("Sender").Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (dao *MessageDAO) UpdateFields(id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return dao.db.Model(&models.Message{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 软删除
func (dao *MessageDAO) Delete(id uint64) error {
	return dao.db.Where("id = ?", id).Delete(&models.Message{}).Error
}

// MessageFilter 消息列表过滤条件
type MessageFilter struct {
	Type       uint8 // 0 表示全部
	CustomType string
	SenderIDs  []uint64
	// ParentID 非 0 时只取该消息的回复
	ParentID uint64
	// MinID 大于该 id 的消息才可见（隐藏前的消息）
	MinID uint64
}

func (f MessageFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Type != 0 {
		q = q.Where("type = ?", f.Type)
	}
	if f.CustomType != "" {
		q = q.Where("custom_type = ?", f.CustomType)
	}
	if len(f.SenderIDs) > 0 {
		q = q.Where("sender_id IN ?", f.SenderIDs)
	}
	if f.ParentID != 0 {
		q = q.Where("parent_message_id = ?", f.ParentID)
	}
	if f.MinID != 0 {
		q = q.Where("id > ?", f.MinID)
	}
	return q
}

// Anchor 消息列表锚点：时间戳或消息 id 二选一
type Anchor struct {
	Time time.Time
	ID   uint64
}

// ListBefore 锚点之前的消息，按新到旧返回
func (dao *MessageDAO) ListBefore(channelID uint64, a Anchor, inclusive bool, f MessageFilter, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	op := "<"
	if inclusive {
		op = "<="
	}
	q := dao.db.Preload("Sender").Where("channel_id = ?", channelID)
	if a.ID != 0 {
		q = q.Where("id "+op+" ?", a.ID)
	} else {
		q = q.Where("created_at "+op+" ?", a.Time)
	}
	var out []models.Message
	err := f.apply(q).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// ListAfter 锚点之后的消息，按旧到新返回
func (dao *MessageDAO) ListAfter(channelID uint64, a Anchor, inclusive bool, f MessageFilter, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	op := ">"
	if inclusive {
		op = ">="
	}
	q := dao.db.Preload("Sender").Where("channel_id = ?", channelID)
	if a.ID != 0 {
		q = q.Where("id "+op+" ?", a.ID)
	} else {
		q = q.Where("created_at "+op+" ?", a.Time)
	}
	var out []models.Message
	err := f.apply(q).Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// SearchFilter 消息搜索条件
type SearchFilter struct {
	Keyword    string
	Exact      bool
	ChannelIDs []uint64
	From       time.Time
	To         time.Time
}

// Search 在给定频道范围内按关键字搜索，按 id 倒序
func (dao *MessageDAO) Search(f SearchFilter, before uint64, limit int) ([]models.Message, error) {
	if len(f.ChannelIDs) == 0 {
		return nil, nil
	}
	q := dao.db.Preload("Sender").
		Where("channel_id IN ? AND type <> ?", f.ChannelIDs, models.MessageTypeAdmin)
	kw := strings.TrimSpace(f.Keyword)
	if f.Exact {
		q = q.Where("message = ?", kw)
	} else {
		q = q.Where("message LIKE ?", "%"+escapeLike(kw)+"%")
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at <= ?", f.To)
	}
	if before > 0 {
		q = q.Where("id < ?", before)
	}
	var out []models.Message
	err := q.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// UnreadCounts 用户在多个频道的未读数：id 大于已读游标且不是自己发的
func (dao *MessageDAO) UnreadCounts(userID uint64, channelIDs []uint64) (map[uint64]int, error) {
	out := make(map[uint64]int, len(channelIDs))
	if userID == 0 || len(channelIDs) == 0 {
		return out, nil
	}
	mt := models.Message{}.TableName()
	cmt := models.ChannelMember{}.TableName()

	var rows []struct {
		ChannelID uint64
		Cnt       int
	}
	err := dao.db.Table(mt+" AS m").
		Select("m.channel_id, COUNT(*) AS cnt").
		Joins("JOIN "+cmt+" AS cm ON cm.channel_id = m.channel_id AND cm.user_id = ?", userID).
		Where("m.channel_id IN ? AND m.id > COALESCE(cm.last_read_msg_id, 0) AND m.sender_id <> ? AND m.deleted_at IS NULL", channelIDs, userID).
		Group("m.channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ChannelID] = r.Cnt
	}
	return out, nil
}

// UnreadByCustomType 用户所有已加入群组的未读数，按 custom_type 聚合
func (dao *MessageDAO) UnreadByCustomType(userID uint64, customTypes []string) (map[string]int, error) {
	mt := models.Message{}.TableName()
	cmt := models.ChannelMember{}.TableName()
	ct := models.Channel{}.TableName()

	q := dao.db.Table(mt+" AS m").
		Select("c.custom_type, COUNT(*) AS cnt").
		Joins("JOIN "+cmt+" AS cm ON cm.channel_id = m.channel_id AND cm.user_id = ? AND cm.state = ?", userID, models.MemberStateJoined).
		Joins("JOIN "+ct+" AS c ON c.id = m.channel_id AND c.deleted_at IS NULL").
		Where("m.id > COALESCE(cm.last_read_msg_id, 0) AND m.sender_id <> ? AND m.deleted_at IS NULL", userID)
	if len(customTypes) > 0 {
		q = q.Where("c.custom_type IN ?", customTypes)
	}
	var rows []struct {
		CustomType string
		Cnt        int
	}
	if err := q.Group("c.custom_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.CustomType] = r.Cnt
	}
	return out, nil
}

// UnreadChannelCount 有未读消息的已加入群组数量
func (dao *MessageDAO) UnreadChannelCount(userID uint64) (int64, error) {
	mt := models.Message{}.TableName()
	cmt := models.ChannelMember{}.TableName()
	ct := models.Channel{}.TableName()

	var n int64
	err := dao.db.Table(mt+" AS m").
		Joins("JOIN "+cmt+" AS cm ON cm.channel_id = m.channel_id AND cm.user_id = ? AND cm.state = ?", userID, models.MemberStateJoined).
		Joins("JOIN "+ct+" AS c ON c.id = m.channel_id AND c.deleted_at IS NULL").
		Where("m.id > COALESCE(cm.last_read_msg_id, 0) AND m.sender_id <> ? AND m.deleted_at IS NULL", userID).
		Distinct("m.channel_id").
		Count(&n).Error
	return n, err
}
