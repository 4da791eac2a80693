package repository

import (
	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialDAO 拉黑与好友关系
type SocialDAO struct {
	db *gorm.DB
}

func NewSocialDAO(db *gorm.DB) *SocialDAO {
	return &SocialDAO{db: db}
}

func (dao *SocialDAO) WithDB(db *gorm.DB) *SocialDAO {
	if db == nil {
		return dao
	}
	return &SocialDAO{db: db}
}

func (dao *SocialDAO) Block(userID, targetID uint64) error {
	return dao.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBlock{UserID: userID, TargetID: targetID}).Error
}

func (dao *SocialDAO) Unblock(userID, targetID uint64) error {
	return dao.db.Where("user_id = ? AND target_id = ?", userID, targetID).Delete(&models.UserBlock{}).Error
}

// IsBlockedEither 任意方向拉黑都算
func (dao *SocialDAO) IsBlockedEither(a, b uint64) (bool, error) {
	var n int64
	err := dao.db.Model(&models.UserBlock{}).
		Where("(user_id = ? AND target_id = ?) OR (user_id = ? AND target_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}

// BlockedBy 返回 ids 中被 userID 拉黑的集合
func (dao *SocialDAO) BlockedBy(userID uint64, ids []uint64) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	if len(ids) == 0 {
		return out, nil
	}
	var hit []uint64
	err := dao.db.Model(&models.UserBlock{}).Where("user_id = ? AND target_id IN ?", userID, ids).
		Pluck("target_id", &hit).Error
	for _, id := range hit {
		out[id] = true
	}
	return out, err
}

func (dao *SocialDAO) ListBlocked(userID uint64, after uint64, limit int) ([]models.UserBlock, error) {
	q := dao.db.Preload("Target").Where("user_id = ?", userID)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.UserBlock
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// AddFriends 批量添加，已存在的忽略
func (dao *SocialDAO) AddFriends(userID uint64, friendIDs []uint64) error {
	if len(friendIDs) == 0 {
		return nil
	}
	rows := make([]models.Friend, 0, len(friendIDs))
	for _, fid := range friendIDs {
		rows = append(rows, models.Friend{UserID: userID, FriendID: fid})
	}
	return dao.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (dao *SocialDAO) DeleteFriend(userID, friendID uint64) error {
	return dao.db.Where("user_id = ? AND friend_id = ?", userID, friendID).Delete(&models.Friend{}).Error
}

func (dao *SocialDAO) ListFriends(userID uint64, after uint64, limit int) ([]models.Friend, error) {
	q := dao.db.Preload("Friend").Where("user_id = ?", userID)
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.Friend
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}
