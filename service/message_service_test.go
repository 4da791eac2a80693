package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/birdchat/models"
)

var messageCols = []string{"id", "channel_id", "sender_id", "type", "message", "created_at", "updated_at"}

func expectJoinedGroup(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE channel_url = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols).AddRow(uint64(3), "group_x", int(models.ChannelTypeGroup), "x", false, false, false, 2, now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_channel_member` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(memberCols).AddRow(uint64(1), uint64(3), uint64(1), int(models.MemberStateJoined), now, now, now))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_channel_operator`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
}

func TestMessageService_ListMessages_DefaultsToPrevious(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Unix(1_700_000_000, 0)
	ms := NewMessageService(&Service{DB: gormDB, Clock: func() time.Time { return now }})

	expectJoinedGroup(mock, now)
	// 时间戳为 0 时以当前时间为锚点，只取之前的 DefaultLimit 条
	mock.ExpectQuery("SELECT \\* FROM `im_message` WHERE channel_id = \\? AND created_at < \\? .*ORDER BY id DESC").
		WithArgs(uint64(3), now, 20).
		WillReturnRows(sqlmock.NewRows(messageCols))

	out, err := ms.ListMessages(context.Background(), 1, "group_x", ListMessagesReq{})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty page, got %d", len(out))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_ListMessages_NextOnlyInclusive(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Now()
	ms := NewMessageService(&Service{DB: gormDB})

	expectJoinedGroup(mock, now)
	mock.ExpectQuery("SELECT \\* FROM `im_message` WHERE channel_id = \\? AND id >= \\? .*ORDER BY id ASC").
		WithArgs(uint64(3), uint64(10), 5).
		WillReturnRows(sqlmock.NewRows(messageCols))

	if _, err := ms.ListMessages(context.Background(), 1, "group_x", ListMessagesReq{MessageID: 10, NextLimit: 5, Inclusive: true}); err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_ListMessages_BothSidesAnchorOnce(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Now()
	ms := NewMessageService(&Service{DB: gormDB})

	expectJoinedGroup(mock, now)
	mock.ExpectQuery("SELECT \\* FROM `im_message` WHERE channel_id = \\? AND id <= \\? .*ORDER BY id DESC").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(uint64(10), uint64(3), uint64(5), int(models.MessageTypeUser), "ten", now, now).
			AddRow(uint64(9), uint64(3), uint64(5), int(models.MessageTypeUser), "nine", now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_user`").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(5), "bob", "Bob", "", "", true, now, now))
	// 锚点已经包含在前半段，后半段用严格大于
	mock.ExpectQuery("SELECT \\* FROM `im_message` WHERE channel_id = \\? AND id > \\? .*ORDER BY id ASC").
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(uint64(11), uint64(3), uint64(5), int(models.MessageTypeUser), "eleven", now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_user`").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(5), "bob", "Bob", "", "", true, now, now))
	mock.ExpectQuery("SELECT `user_id` FROM `im_channel_operator` WHERE channel_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	out, err := ms.ListMessages(context.Background(), 1, "group_x", ListMessagesReq{MessageID: 10, PrevLimit: 2, NextLimit: 2, Inclusive: true})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	var got []uint64
	for _, m := range out {
		got = append(got, m.MessageID)
	}
	if len(got) != 3 || got[0] != 9 || got[1] != 10 || got[2] != 11 {
		t.Fatalf("expected [9 10 11], got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_ListMessages_LimitOutOfRange(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Now()
	ms := NewMessageService(&Service{DB: gormDB})

	for _, req := range []ListMessagesReq{
		{PrevLimit: 101},
		{NextLimit: 101},
		{PrevLimit: -1},
	} {
		expectJoinedGroup(mock, now)
		if _, err := ms.ListMessages(context.Background(), 1, "group_x", req); err != ErrInvalidParam {
			t.Fatalf("%+v: expected ErrInvalidParam, got %v", req, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
