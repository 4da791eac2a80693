package models

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// TestTableNames 表名统一带前缀
func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Message{}.TableName():            "im_message",
		Channel{}.TableName():            "im_channel",
		ChannelMember{}.TableName():      "im_channel_member",
		ScheduledMessage{}.TableName():   "im_scheduled_message",
		ChannelMetaCounter{}.TableName(): "im_channel_meta_counter",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName() = %s, want %s", got, want)
		}
	}
}

func TestSetTablePrefix(t *testing.T) {
	old := TablePrefix()
	defer SetTablePrefix(old)

	SetTablePrefix("bc_")
	if got := (User{}).TableName(); got != "bc_user" {
		t.Fatalf("TableName() = %s, want bc_user", got)
	}

	// 空前缀不生效
	SetTablePrefix("")
	if got := TablePrefix(); got != "bc_" {
		t.Fatalf("TablePrefix() = %s, want bc_", got)
	}
}

// TestMessageCreate 插入消息时回填自增主键
func TestMessageCreate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}

	msg := &Message{
		ChannelID: 1,
		SenderID:  100,
		Type:      MessageTypeUser,
		Message:   "hello",
	}
	mock.ExpectExec("INSERT INTO `im_message`").
		WillReturnResult(sqlmock.NewResult(42, 1))

	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if msg.ID != 42 {
		t.Fatalf("ID = %d, want 42", msg.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestAllCoversEveryTable(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range All() {
		tn, ok := m.(interface{ TableName() string })
		if !ok {
			t.Fatalf("%T has no TableName", m)
		}
		if seen[tn.TableName()] {
			t.Fatalf("duplicate table %s", tn.TableName())
		}
		seen[tn.TableName()] = true
	}
	if len(seen) != 14 {
		t.Fatalf("expected 14 tables, got %d", len(seen))
	}
}
