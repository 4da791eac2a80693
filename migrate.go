package birdchat

import (
	"fmt"

	"github.com/cydxin/birdchat/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// AutoMigrate 建表/补列，不删除已有列
func (c *ChatEngine) AutoMigrate() error {
	if c.config.DB == nil {
		return fmt.Errorf("db is nil")
	}
	c.Logger.Info("AutoMigrate...", zap.String("table_prefix", models.TablePrefix()))
	return c.config.DB.AutoMigrate(models.All()...)
}

// MissingTables 返回尚未创建的表名，用于部署前检查
func (c *ChatEngine) MissingTables() ([]string, error) {
	db := c.config.DB
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	var missing []string
	for _, m := range models.All() {
		name, err := tableName(db, m)
		if err != nil {
			return nil, err
		}
		if !db.Migrator().HasTable(name) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func tableName(db *gorm.DB, m any) (string, error) {
	if t, ok := m.(schema.Tabler); ok {
		return t.TableName(), nil
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(m); err != nil {
		return "", err
	}
	return stmt.Schema.Table, nil
}
