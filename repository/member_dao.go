package repository

import (
	"time"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberDAO 封装 ChannelMember 相关的数据库操作（成员关系 + 用户维度的会话状态）
type MemberDAO struct {
	db *gorm.DB
}

func NewMemberDAO(db *gorm.DB) *MemberDAO {
	return &MemberDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *MemberDAO) WithDB(db *gorm.DB) *MemberDAO {
	if db == nil {
		return dao
	}
	return &MemberDAO{db: db}
}

// Find 查询某用户在某频道的成员记录
func (dao *MemberDAO) Find(channelID, userID uint64) (*models.ChannelMember, error) {
	var m models.ChannelMember
	err := dao.db.Where("channel_id = ? AND user_id = ?", channelID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert 新建或覆盖成员状态，已存在时重置隐藏标记
func (dao *MemberDAO) Upsert(m *models.ChannelMember) error {
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "inviter_id", "is_hidden", "joined_at", "updated_at"}),
	}).Create(m).Error
}

// Delete 删除成员记录
func (dao *MemberDAO) Delete(channelID, userID uint64) (int64, error) {
	res := dao.db.Where("channel_id = ? AND user_id = ?", channelID, userID).Delete(&models.ChannelMember{})
	return res.RowsAffected, res.Error
}

// DeleteByChannel 删除频道全部成员
func (dao *MemberDAO) DeleteByChannel(channelID uint64) error {
	return dao.db.Where("channel_id = ?", channelID).Delete(&models.ChannelMember{}).Error
}

// UserIDs 频道内成员的内部 user id；state 为 0 表示全部
func (dao *MemberDAO) UserIDs(channelID uint64, state uint8) ([]uint64, error) {
	q := dao.db.Model(&models.ChannelMember{}).Where("channel_id = ?", channelID)
	if state != 0 {
		q = q.Where("state = ?", state)
	}
	var ids []uint64
	err := q.Order("id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

// MemberFilter 成员列表过滤
type MemberFilter struct {
	OperatorsOnly    bool
	NonOperatorsOnly bool
	MutedOnly        bool
	NicknameStarts   string
}

// List 成员列表（预加载用户），按成员记录主键升序
func (dao *MemberDAO) List(channelID uint64, f MemberFilter, after uint64, limit int) ([]models.ChannelMember, error) {
	mt := models.ChannelMember{}.TableName()
	q := dao.db.Model(&models.ChannelMember{}).Preload("User").Where(mt+".channel_id = ?", channelID)
	if f.OperatorsOnly || f.NonOperatorsOnly {
		sub := dao.db.Model(&models.ChannelOperator{}).Select("user_id").Where("channel_id = ?", channelID)
		if f.OperatorsOnly {
			q = q.Where(mt+".user_id IN (?)", sub)
		} else {
			q = q.Where(mt+".user_id NOT IN (?)", sub)
		}
	}
	if f.MutedOnly {
		sub := dao.db.Model(&models.ChannelMute{}).Select("user_id").
			Where("channel_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, time.Now())
		q = q.Where(mt+".user_id IN (?)", sub)
	}
	if f.NicknameStarts != "" {
		ut := models.User{}.TableName()
		q = q.Joins("JOIN "+ut+" ON "+ut+".id = "+mt+".user_id").
			Where(ut+".nickname LIKE ?", escapeLike(f.NicknameStarts)+"%")
	}
	if after > 0 {
		q = q.Where(mt+".id > ?", after)
	}
	var out []models.ChannelMember
	err := q.Order(mt + ".id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// ListByChannels 批量取某用户在多个频道的成员记录
func (dao *MemberDAO) ListByChannels(userID uint64, channelIDs []uint64) ([]models.ChannelMember, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}
	var out []models.ChannelMember
	err := dao.db.Where("user_id = ? AND channel_id IN ?", userID, channelIDs).Find(&out).Error
	return out, err
}

// SetHidden 设置隐藏；offset 非空时同时把该 id 及之前的消息对本人隐藏，并视为已读
func (dao *MemberDAO) SetHidden(channelID, userID uint64, hidden bool, offset *uint64) error {
	fields := map[string]any{"is_hidden": hidden}
	if offset != nil {
		fields["message_offset_id"] = *offset
		fields["last_read_msg_id"] = gorm.Expr("CASE WHEN last_read_msg_id IS NULL OR last_read_msg_id < ? THEN ? ELSE last_read_msg_id END", *offset, *offset)
	}
	return dao.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Updates(fields).Error
}

// UnhideAll 频道有新消息时让所有成员重新可见
func (dao *MemberDAO) UnhideAll(channelID uint64) error {
	return dao.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND is_hidden = ?", channelID, true).
		Updates(map[string]any{"is_hidden": false}).Error
}

// UpdateLastRead 只向前推进 last_read_msg_id
func (dao *MemberDAO) UpdateLastRead(channelID, userID, msgID uint64, now time.Time) error {
	return dao.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Updates(map[string]any{
			"last_read_msg_id": gorm.Expr("CASE WHEN last_read_msg_id IS NULL OR last_read_msg_id < ? THEN ? ELSE last_read_msg_id END", msgID, msgID),
			"last_read_at":     now,
		}).Error
}

// UpdateLastDelivered 只向前推进 last_delivered_msg_id
func (dao *MemberDAO) UpdateLastDelivered(channelID, userID, msgID uint64) error {
	return dao.db.Model(&models.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Update("last_delivered_msg_id", gorm.Expr("CASE WHEN last_delivered_msg_id IS NULL OR last_delivered_msg_id < ? THEN ? ELSE last_delivered_msg_id END", msgID, msgID)).Error
}

// ListLastReadSnapshot 获取用户所有已加入且可见频道的 last_read_msg_id 快照。
// 返回：channel_id -> last_read_msg_id（NULL 视为 0）。
func (dao *MemberDAO) ListLastReadSnapshot(userID uint64) (map[uint64]uint64, error) {
	if userID == 0 {
		return map[uint64]uint64{}, nil
	}

	type row struct {
		ChannelID     uint64
		LastReadMsgID *uint64
	}
	var rows []row
	if err := dao.db.Model(&models.ChannelMember{}).
		Select("channel_id, last_read_msg_id").
		Where("user_id = ? AND state = ? AND is_hidden = ?", userID, models.MemberStateJoined, false).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[uint64]uint64, len(rows))
	for _, r := range rows {
		if r.ChannelID == 0 {
			continue
		}
		if r.LastReadMsgID == nil {
			out[r.ChannelID] = 0
			continue
		}
		out[r.ChannelID] = *r.LastReadMsgID
	}
	return out, nil
}

// CountByState 当前用户所在群组数量；state 为 0 表示全部
func (dao *MemberDAO) CountByState(userID uint64, state uint8) (int64, error) {
	mt := models.ChannelMember{}.TableName()
	ct := models.Channel{}.TableName()
	q := dao.db.Model(&models.ChannelMember{}).
		Joins("JOIN "+ct+" ON "+ct+".id = "+mt+".channel_id AND "+ct+".deleted_at IS NULL").
		Where(mt+".user_id = ?", userID)
	if state != 0 {
		q = q.Where(mt+".state = ?", state)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// JoinedCounts 每个频道已加入成员数
func (dao *MemberDAO) JoinedCounts(channelIDs []uint64) (map[uint64]int, error) {
	out := make(map[uint64]int, len(channelIDs))
	if len(channelIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ChannelID uint64
		Cnt       int
	}
	err := dao.db.Model(&models.ChannelMember{}).
		Select("channel_id, COUNT(*) AS cnt").
		Where("channel_id IN ? AND state = ?", channelIDs, models.MemberStateJoined).
		Group("channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ChannelID] = r.Cnt
	}
	return out, nil
}

// JoinedChannelIDs 用户已加入的全部群组
func (dao *MemberDAO) JoinedChannelIDs(userID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.ChannelMember{}).
		Where("user_id = ? AND state = ?", userID, models.MemberStateJoined).
		Pluck("channel_id", &ids).Error
	return ids, err
}
