package repository

import (
	"time"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModerationDAO 管理员、封禁、禁言、开放频道在场用户
type ModerationDAO struct {
	db *gorm.DB
}

func NewModerationDAO(db *gorm.DB) *ModerationDAO {
	return &ModerationDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *ModerationDAO) WithDB(db *gorm.DB) *ModerationDAO {
	if db == nil {
		return dao
	}
	return &ModerationDAO{db: db}
}

// -------------------- 管理员 --------------------

func (dao *ModerationDAO) IsOperator(channelID, userID uint64) (bool, error) {
	var n int64
	err := dao.db.Model(&models.ChannelOperator{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&n).Error
	return n > 0, err
}

// OperatorIDs 频道全部管理员
func (dao *ModerationDAO) OperatorIDs(channelID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.ChannelOperator{}).Where("channel_id = ?", channelID).
		Order("id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

// OperatorChannels 返回 channelIDs 中 userID 担任管理员的频道
func (dao *ModerationDAO) OperatorChannels(userID uint64, channelIDs []uint64) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	if len(channelIDs) == 0 {
		return out, nil
	}
	var ids []uint64
	err := dao.db.Model(&models.ChannelOperator{}).
		Where("user_id = ? AND channel_id IN ?", userID, channelIDs).
		Pluck("channel_id", &ids).Error
	for _, id := range ids {
		out[id] = true
	}
	return out, err
}

func (dao *ModerationDAO) AddOperators(channelID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.ChannelOperator, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, models.ChannelOperator{ChannelID: channelID, UserID: uid})
	}
	return dao.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (dao *ModerationDAO) RemoveOperators(channelID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	return dao.db.Where("channel_id = ? AND user_id IN ?", channelID, userIDs).
		Delete(&models.ChannelOperator{}).Error
}

func (dao *ModerationDAO) ListOperators(channelID uint64, after uint64, limit int) ([]models.ChannelOperator, error) {
	q := dao.db.Preload("User").Where("channel_id = ?", channelID)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.ChannelOperator
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// -------------------- 封禁 --------------------

// ActiveBan 未过期的封禁记录，没有时返回 gorm.ErrRecordNotFound
func (dao *ModerationDAO) ActiveBan(channelID, userID uint64, now time.Time) (*models.ChannelBan, error) {
	var b models.ChannelBan
	err := dao.db.Where("channel_id = ? AND user_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, userID, now).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBan 新建或刷新封禁
func (dao *ModerationDAO) UpsertBan(b *models.ChannelBan) error {
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "end_at"}),
	}).Create(b).Error
}

func (dao *ModerationDAO) DeleteBan(channelID, userID uint64) (int64, error) {
	res := dao.db.Where("channel_id = ? AND user_id = ?", channelID, userID).Delete(&models.ChannelBan{})
	return res.RowsAffected, res.Error
}

func (dao *ModerationDAO) ListBans(channelID uint64, now time.Time, after uint64, limit int) ([]models.ChannelBan, error) {
	q := dao.db.Preload("User").
		Where("channel_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, now)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.ChannelBan
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// -------------------- 禁言 --------------------

// ActiveMute 未过期的禁言记录，没有时返回 gorm.ErrRecordNotFound
func (dao *ModerationDAO) ActiveMute(channelID, userID uint64, now time.Time) (*models.ChannelMute, error) {
	var m models.ChannelMute
	err := dao.db.Where("channel_id = ? AND user_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, userID, now).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MutedUserIDs 批量判断哪些用户处于禁言
func (dao *ModerationDAO) MutedUserIDs(channelID uint64, now time.Time) (map[uint64]bool, error) {
	var ids []uint64
	err := dao.db.Model(&models.ChannelMute{}).
		Where("channel_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, now).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// MutedChannels 返回 channelIDs 中 userID 处于禁言的频道
func (dao *ModerationDAO) MutedChannels(userID uint64, channelIDs []uint64, now time.Time) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	if len(channelIDs) == 0 {
		return out, nil
	}
	var ids []uint64
	err := dao.db.Model(&models.ChannelMute{}).
		Where("user_id = ? AND channel_id IN ? AND (end_at IS NULL OR end_at > ?)", userID, channelIDs, now).
		Pluck("channel_id", &ids).Error
	for _, id := range ids {
		out[id] = true
	}
	return out, err
}

func (dao *ModerationDAO) UpsertMute(m *models.ChannelMute) error {
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "end_at"}),
	}).Create(m).Error
}

func (dao *ModerationDAO) DeleteMute(channelID, userID uint64) (int64, error) {
	res := dao.db.Where("channel_id = ? AND user_id = ?", channelID, userID).Delete(&models.ChannelMute{})
	return res.RowsAffected, res.Error
}

func (dao *ModerationDAO) ListMutes(channelID uint64, now time.Time, after uint64, limit int) ([]models.ChannelMute, error) {
	q := dao.db.Preload("User").
		Where("channel_id = ? AND (end_at IS NULL OR end_at > ?)", channelID, now)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.ChannelMute
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// -------------------- 开放频道在场用户 --------------------

func (dao *ModerationDAO) IsParticipant(channelID, userID uint64) (bool, error) {
	var n int64
	err := dao.db.Model(&models.ChannelParticipant{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&n).Error
	return n > 0, err
}

// AddParticipant 进入开放频道，返回是否新增
func (dao *ModerationDAO) AddParticipant(channelID, userID uint64, now time.Time) (bool, error) {
	res := dao.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ChannelParticipant{ChannelID: channelID, UserID: userID, EnteredAt: now})
	return res.RowsAffected > 0, res.Error
}

func (dao *ModerationDAO) RemoveParticipant(channelID, userID uint64) (int64, error) {
	res := dao.db.Where("channel_id = ? AND user_id = ?", channelID, userID).Delete(&models.ChannelParticipant{})
	return res.RowsAffected, res.Error
}

func (dao *ModerationDAO) ParticipantIDs(channelID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.ChannelParticipant{}).Where("channel_id = ?", channelID).
		Order("id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

func (dao *ModerationDAO) ListParticipants(channelID uint64, after uint64, limit int) ([]models.ChannelParticipant, error) {
	q := dao.db.Preload("User").Where("channel_id = ?", channelID)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.ChannelParticipant
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// DeleteChannelRows 删除频道时清理附属数据
func (dao *ModerationDAO) DeleteChannelRows(channelID uint64) error {
	for _, m := range []any{&models.ChannelOperator{}, &models.ChannelBan{}, &models.ChannelMute{}, &models.ChannelParticipant{}} {
		if err := dao.db.Where("channel_id = ?", channelID).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
