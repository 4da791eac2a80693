package repository

import (
	"time"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
)

// ScheduledDAO 定时消息
type ScheduledDAO struct {
	db *gorm.DB
}

func NewScheduledDAO(db *gorm.DB) *ScheduledDAO {
	return &ScheduledDAO{db: db}
}

func (dao *ScheduledDAO) WithDB(db *gorm.DB) *ScheduledDAO {
	if db == nil {
		return dao
	}
	return &ScheduledDAO{db: db}
}

func (dao *ScheduledDAO) Create(m *models.ScheduledMessage) error {
	return dao.db.Create(m).Error
}

func (dao *ScheduledDAO) Find(channelID, id uint64) (*models.ScheduledMessage, error) {
	var m models.ScheduledMessage
	if err := dao.db.Preload("Sender").Where("id = ? AND channel_id = ?", id, channelID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByChannel status 为 nil 表示全部
func (dao *ScheduledDAO) ListByChannel(channelID uint64, senderID uint64, status *uint8, after uint64, limit int) ([]models.ScheduledMessage, error) {
	q := dao.db.Preload("Sender").Where("channel_id = ?", channelID)
	if senderID != 0 {
		q = q.Where("sender_id = ?", senderID)
	}
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.ScheduledMessage
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// ListDue 到期待发送，按计划时间先后
func (dao *ScheduledDAO) ListDue(now time.Time, limit int) ([]models.ScheduledMessage, error) {
	var out []models.ScheduledMessage
	err := dao.db.Where("status = ? AND scheduled_at <= ?", models.ScheduledStatusPending, now).
		Order("scheduled_at ASC").Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// Transition 仅当当前为 from 时切换状态，返回是否命中；用于多节点下抢占
func (dao *ScheduledDAO) Transition(id uint64, from, to uint8, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := dao.db.Model(&models.ScheduledMessage{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}
