package repository

import (
	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionDAO 表情回应
type ReactionDAO struct {
	db *gorm.DB
}

func NewReactionDAO(db *gorm.DB) *ReactionDAO {
	return &ReactionDAO{db: db}
}

func (dao *ReactionDAO) WithDB(db *gorm.DB) *ReactionDAO {
	if db == nil {
		return dao
	}
	return &ReactionDAO{db: db}
}

// Add 幂等添加，返回是否新增
func (dao *ReactionDAO) Add(r *models.Reaction) (bool, error) {
	res := dao.db.Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	return res.RowsAffected > 0, res.Error
}

// Remove 返回是否删除了记录
func (dao *ReactionDAO) Remove(messageID, userID uint64, key string) (bool, error) {
	res := dao.db.Where("message_id = ? AND user_id = ? AND `key` = ?", messageID, userID, key).
		Delete(&models.Reaction{})
	return res.RowsAffected > 0, res.Error
}

// ListByMessages 批量取多条消息的回应（预加载用户），按创建顺序
func (dao *ReactionDAO) ListByMessages(messageIDs []uint64) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var out []models.Reaction
	err := dao.db.Preload("User").Where("message_id IN ?", messageIDs).Order("id ASC").Find(&out).Error
	return out, err
}

func (dao *ReactionDAO) DeleteByMessage(messageID uint64) error {
	return dao.db.Where("message_id = ?", messageID).Delete(&models.Reaction{}).Error
}
