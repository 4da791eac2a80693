package repository

import (
	"strings"

	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
)

// UserDAO 封装 User 相关的数据库操作
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *UserDAO) WithDB(db *gorm.DB) *UserDAO {
	if db == nil {
		return dao
	}
	return &UserDAO{db: db}
}

func (dao *UserDAO) Create(u *models.User) error {
	return dao.db.Create(u).Error
}

func (dao *UserDAO) FindByID(id uint64) (*models.User, error) {
	var u models.User
	if err := dao.db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUserID 根据对外 user_id 查询
func (dao *UserDAO) FindByUserID(userID string) (*models.User, error) {
	var u models.User
	if err := dao.db.Where("user_id = ?", userID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUserIDs 批量查询，不存在的 user_id 会被忽略
func (dao *UserDAO) FindByUserIDs(userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	err := dao.db.Where("user_id IN ?", userIDs).Find(&users).Error
	return users, err
}

func (dao *UserDAO) FindByIDs(ids []uint64) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := dao.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// UpdateFields 更新部分字段
func (dao *UserDAO) UpdateFields(id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return dao.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// UserFilter 应用用户列表过滤条件
type UserFilter struct {
	UserIDs            []string
	NicknameStartsWith string
	MetaDataKey        string
	MetaDataValues     []string
}

// List 按主键升序分页
func (dao *UserDAO) List(f UserFilter, after uint64, limit int) ([]models.User, error) {
	q := dao.db.Model(&models.User{})
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if p := strings.TrimSpace(f.NicknameStartsWith); p != "" {
		q = q.Where("nickname LIKE ?", escapeLike(p)+"%")
	}
	if f.MetaDataKey != "" && len(f.MetaDataValues) > 0 {
		q = q.Where("JSON_UNQUOTE(JSON_EXTRACT(meta_data, ?)) IN ?", "$."+f.MetaDataKey, f.MetaDataValues)
	}
	if after > 0 {
		q = q.Where("id > ?", after)
	}
	var users []models.User
	err := q.Order("id ASC").Limit(limit).Find(&users).Error
	return users, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
