package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestScheduledCreate_LeadWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewScheduledMessageService(&Service{Clock: func() time.Time { return now }}, nil)
	ctx := context.Background()

	for _, at := range []time.Time{
		now.Add(30 * time.Second),
		now.Add(MaxScheduleLead + time.Hour),
		now.Add(-time.Hour),
	} {
		_, err := s.Create(ctx, 1, "group_x", CreateScheduledReq{Message: "hi", ScheduledAt: at.UnixMilli()})
		if err != ErrScheduleInvalid {
			t.Fatalf("at %v: expected ErrScheduleInvalid, got %v", at, err)
		}
	}

	if _, err := s.Create(ctx, 1, "group_x", CreateScheduledReq{Message: " ", ScheduledAt: now.Add(time.Hour).UnixMilli()}); err != ErrInvalidParam {
		t.Fatalf("blank message: expected ErrInvalidParam, got %v", err)
	}
}

func TestScheduledDispatchDue_ClaimBeforeSend(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Unix(1_700_000_000, 0)
	base := &Service{DB: gormDB, Clock: func() time.Time { return now }}
	s := NewScheduledMessageService(base, NewMessageService(base))

	cols := []string{"id", "channel_id", "sender_id", "message", "scheduled_at", "status", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT \\* FROM `im_scheduled_message` WHERE status = \\? AND scheduled_at <= \\?").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(1), uint64(3), uint64(7), "first", now.Add(-time.Minute), 0, now, now).
			AddRow(uint64(2), uint64(404), uint64(7), "second", now, 0, now, now))
	// 第一条已被其他节点抢走：不再查频道也不发送
	mock.ExpectExec("UPDATE `im_scheduled_message` SET .* WHERE id = \\? AND status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// 第二条抢占成功后才进入发送流程
	mock.ExpectExec("UPDATE `im_scheduled_message` SET .* WHERE id = \\? AND status = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols))
	mock.ExpectExec("UPDATE `im_scheduled_message` SET .*`error_text`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sent, err := s.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected nothing sent, got %d", sent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
