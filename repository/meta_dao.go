package repository

import (
	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetaDAO 频道元数据与计数器
type MetaDAO struct {
	db *gorm.DB
}

func NewMetaDAO(db *gorm.DB) *MetaDAO {
	return &MetaDAO{db: db}
}

func (dao *MetaDAO) WithDB(db *gorm.DB) *MetaDAO {
	if db == nil {
		return dao
	}
	return &MetaDAO{db: db}
}

// -------------------- 元数据 --------------------

// DataKeys 频道中已存在的 key
func (dao *MetaDAO) DataKeys(channelID uint64, keys []string) ([]string, error) {
	q := dao.db.Model(&models.ChannelMetaData{}).Where("channel_id = ?", channelID)
	if len(keys) > 0 {
		q = q.Where("`key` IN ?", keys)
	}
	var out []string
	err := q.Pluck("key", &out).Error
	return out, err
}

// UpsertData 写入元数据
func (dao *MetaDAO) UpsertData(channelID uint64, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	rows := make([]models.ChannelMetaData, 0, len(kv))
	for k, v := range kv {
		rows = append(rows, models.ChannelMetaData{ChannelID: channelID, Key: k, Value: v})
	}
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

// GetData keys 为空表示全部
func (dao *MetaDAO) GetData(channelID uint64, keys []string) (map[string]string, error) {
	q := dao.db.Where("channel_id = ?", channelID)
	if len(keys) > 0 {
		q = q.Where("`key` IN ?", keys)
	}
	var rows []models.ChannelMetaData
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// DeleteData keys 为空表示全部，返回被删除的 key
func (dao *MetaDAO) DeleteData(channelID uint64, keys []string) ([]string, error) {
	existing, err := dao.DataKeys(channelID, keys)
	if err != nil || len(existing) == 0 {
		return nil, err
	}
	err = dao.db.Where("channel_id = ? AND `key` IN ?", channelID, existing).Delete(&models.ChannelMetaData{}).Error
	return existing, err
}

// -------------------- 计数器 --------------------

func (dao *MetaDAO) CounterKeys(channelID uint64, keys []string) ([]string, error) {
	q := dao.db.Model(&models.ChannelMetaCounter{}).Where("channel_id = ?", channelID)
	if len(keys) > 0 {
		q = q.Where("`key` IN ?", keys)
	}
	var out []string
	err := q.Pluck("key", &out).Error
	return out, err
}

// SetCounters 覆盖写入
func (dao *MetaDAO) SetCounters(channelID uint64, kv map[string]int64) error {
	if len(kv) == 0 {
		return nil
	}
	rows := make([]models.ChannelMetaCounter, 0, len(kv))
	for k, v := range kv {
		rows = append(rows, models.ChannelMetaCounter{ChannelID: channelID, Key: k, Value: v})
	}
	return dao.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

// AddCounters 对已存在的 key 做增量
func (dao *MetaDAO) AddCounters(channelID uint64, delta map[string]int64) error {
	for k, d := range delta {
		err := dao.db.Model(&models.ChannelMetaCounter{}).
			Where("channel_id = ? AND `key` = ?", channelID, k).
			UpdateColumn("value", gorm.Expr("value + ?", d)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (dao *MetaDAO) GetCounters(channelID uint64, keys []string) (map[string]int64, error) {
	q := dao.db.Where("channel_id = ?", channelID)
	if len(keys) > 0 {
		q = q.Where("`key` IN ?", keys)
	}
	var rows []models.ChannelMetaCounter
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (dao *MetaDAO) DeleteCounters(channelID uint64, keys []string) ([]string, error) {
	existing, err := dao.CounterKeys(channelID, keys)
	if err != nil || len(existing) == 0 {
		return nil, err
	}
	err = dao.db.Where("channel_id = ? AND `key` IN ?", channelID, existing).Delete(&models.ChannelMetaCounter{}).Error
	return existing, err
}
