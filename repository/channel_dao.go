package repository

import (
	"strings"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
)

// ChannelDAO 封装 Channel 相关的数据库操作
//
// 约定：
// - 只做数据访问，不做权限与通知。
// - 事务边界由 service 控制，事务中请使用 WithDB(tx)。
type ChannelDAO struct {
	db *gorm.DB
}

func NewChannelDAO(db *gorm.DB) *ChannelDAO {
	return &ChannelDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *ChannelDAO) WithDB(db *gorm.DB) *ChannelDAO {
	if db == nil {
		return dao
	}
	return &ChannelDAO{db: db}
}

func (dao *ChannelDAO) Create(ch *models.Channel) error {
	return dao.db.Create(ch).Error
}

// FindByURL 根据 channel_url 查询
func (dao *ChannelDAO) FindByURL(url string) (*models.Channel, error) {
	var ch models.Channel
	if err := dao.db.Where("channel_url = ?", url).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (dao *ChannelDAO) FindByID(id uint64) (*models.Channel, error) {
	var ch models.Channel
	if err := dao.db.Where("id = ?", id).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (dao *ChannelDAO) FindByIDs(ids []uint64) ([]models.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Channel
	err := dao.db.Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// FindDistinct 查找相同成员集合的 distinct 群组
func (dao *ChannelDAO) FindDistinct(key string) (*models.Channel, error) {
	var ch models.Channel
	err := dao.db.Where("type = ? AND is_distinct = ? AND distinct_key = ?", models.ChannelTypeGroup, true, key).
		First(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// ClearDistinctKey 让频道退出 distinct 去重，释放唯一索引上的摘要
func (dao *ChannelDAO) ClearDistinctKey(id uint64) error {
	return dao.db.Model(&models.Channel{}).Where("id = ?", id).
		UpdateColumn("distinct_key", gorm.Expr("NULL")).Error
}

func (dao *ChannelDAO) UpdateFields(id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return dao.db.Model(&models.Channel{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 软删除
func (dao *ChannelDAO) Delete(id uint64) error {
	return dao.db.Where("id = ?", id).Delete(&models.Channel{}).Error
}

// AddMemberCount member_count += delta
func (dao *ChannelDAO) AddMemberCount(id uint64, delta int) error {
	return dao.db.Model(&models.Channel{}).Where("id = ?", id).
		UpdateColumn("member_count", gorm.Expr("member_count + ?", delta)).Error
}

// AddParticipantCount participant_count += delta
func (dao *ChannelDAO) AddParticipantCount(id uint64, delta int) error {
	return dao.db.Model(&models.Channel{}).Where("id = ?", id).
		UpdateColumn("participant_count", gorm.Expr("participant_count + ?", delta)).Error
}

// SetLastMessage 只向前推进 last_message_id
func (dao *ChannelDAO) SetLastMessage(id, messageID uint64) error {
	return dao.db.Model(&models.Channel{}).
		Where("id = ? AND (last_message_id IS NULL OR last_message_id < ?)", id, messageID).
		UpdateColumn("last_message_id", messageID).Error
}

// 群组列表排序
const (
	OrderLatestLastMessage = "latest_last_message"
	OrderChronological     = "chronological"
)

// GroupChannelFilter 我的群组列表过滤条件
type GroupChannelFilter struct {
	UserID       uint64
	MemberState  uint8 // 0 表示全部
	IncludeEmpty bool
	CustomTypes  []string
	NameContains string
	ChannelURLs  []string
	ShowHidden   bool
	Order        string
}

// ListGroupForUser 当前用户所在群组。
// latest_last_message 排序下游标 Key 为 last_message_id；其余按主键。
func (dao *ChannelDAO) ListGroupForUser(f GroupChannelFilter, cur Cursor, limit int) ([]models.Channel, error) {
	ct := models.Channel{}.TableName()
	mt := models.ChannelMember{}.TableName()

	q := dao.db.Model(&models.Channel{}).
		Select(ct+".*").
		Joins("JOIN "+mt+" ON "+mt+".channel_id = "+ct+".id AND "+mt+".user_id = ?", f.UserID).
		Where(ct+".type = ?", models.ChannelTypeGroup)
	if f.MemberState != 0 {
		q = q.Where(mt+".state = ?", f.MemberState)
	}
	if !f.ShowHidden {
		q = q.Where(mt+".is_hidden = ?", false)
	}
	if !f.IncludeEmpty {
		q = q.Where(ct + ".last_message_id IS NOT NULL")
	}
	if len(f.CustomTypes) > 0 {
		q = q.Where(ct+".custom_type IN ?", f.CustomTypes)
	}
	if s := strings.TrimSpace(f.NameContains); s != "" {
		q = q.Where(ct+".name LIKE ?", "%"+escapeLike(s)+"%")
	}
	if len(f.ChannelURLs) > 0 {
		q = q.Where(ct+".channel_url IN ?", f.ChannelURLs)
	}

	switch f.Order {
	case OrderChronological:
		if cur.ID > 0 {
			q = q.Where(ct+".id < ?", cur.ID)
		}
		q = q.Order(ct + ".id DESC")
	default:
		if cur.ID > 0 {
			q = q.Where("(COALESCE("+ct+".last_message_id, 0) < ? OR (COALESCE("+ct+".last_message_id, 0) = ? AND "+ct+".id < ?))",
				cur.Key, cur.Key, cur.ID)
		}
		q = q.Order("COALESCE(" + ct + ".last_message_id, 0) DESC").Order(ct + ".id DESC")
	}

	var out []models.Channel
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

// PublicGroupFilter 公开群组过滤条件
type PublicGroupFilter struct {
	IncludeEmpty bool
	CustomTypes  []string
	NameContains string
}

// ListPublicGroup 公开群组，按主键升序
func (dao *ChannelDAO) ListPublicGroup(f PublicGroupFilter, after uint64, limit int) ([]models.Channel, error) {
	q := dao.db.Model(&models.Channel{}).
		Where("type = ? AND is_public = ?", models.ChannelTypeGroup, true)
	if !f.IncludeEmpty {
		q = q.Where("last_message_id IS NOT NULL")
	}
	if len(f.CustomTypes) > 0 {
		q = q.Where("custom_type IN ?", f.CustomTypes)
	}
	if s := strings.TrimSpace(f.NameContains); s != "" {
		q = q.Where("name LIKE ?", "%"+escapeLike(s)+"%")
	}
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.Channel
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}

// OpenChannelFilter 开放频道过滤条件
type OpenChannelFilter struct {
	NameKeyword string
	URLKeyword  string
	CustomType  string
}

// ListOpen 开放频道，按主键升序
func (dao *ChannelDAO) ListOpen(f OpenChannelFilter, after uint64, limit int) ([]models.Channel, error) {
	q := dao.db.Model(&models.Channel{}).Where("type = ?", models.ChannelTypeOpen)
	if s := strings.TrimSpace(f.NameKeyword); s != "" {
		q = q.Where("name LIKE ?", "%"+escapeLike(s)+"%")
	}
	if s := strings.TrimSpace(f.URLKeyword); s != "" {
		q = q.Where("channel_url LIKE ?", "%"+escapeLike(s)+"%")
	}
	if f.CustomType != "" {
		q = q.Where("custom_type = ?", f.CustomType)
	}
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var out []models.Channel
	err := q.Order("id ASC").Limit(limit).Find(&out).Error
	return out, err
}
