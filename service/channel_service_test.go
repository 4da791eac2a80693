package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/birdchat/models"
)

func newChannelServiceMock(t *testing.T) (*ChannelService, sqlmock.Sqlmock, func()) {
	t.Helper()
	gormDB, mock, sqlDB := newMockDB(t)
	base := &Service{DB: gormDB}
	return NewChannelService(base, NewUserService(base), nil), mock, func() { _ = sqlDB.Close() }
}

func expectDistinctMembers(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(1), "alice", "Alice", "", "", true, now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id IN").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uint64(1), "alice", "Alice", "", "", true, now, now).
			AddRow(uint64(2), "bob", "Bob", "", "", true, now, now))
}

func TestChannelService_CreateGroup_DistinctReuse(t *testing.T) {
	cs, mock, closeDB := newChannelServiceMock(t)
	defer closeDB()
	now := time.Now()

	expectDistinctMembers(mock, now)
	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE type = \\? AND is_distinct = \\? AND distinct_key = \\?").
		WithArgs(sqlmock.AnyArg(), true, distinctKey([]string{"bob", "alice"}), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(channelCols).AddRow(uint64(7), "group_dm", int(models.ChannelTypeGroup), "", true, false, false, 2, now, now))
	mock.ExpectExec("UPDATE `im_channel_member` SET `is_hidden`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ch, created, err := cs.createGroup(context.Background(), 1, CreateGroupChannelReq{UserIDs: []string{"bob"}, IsDistinct: true})
	if err != nil {
		t.Fatalf("createGroup: %v", err)
	}
	if created || ch.ID != 7 {
		t.Fatalf("expected existing channel 7 with created=false, got id=%d created=%v", ch.ID, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestChannelService_CreateGroup_DistinctLostInsertRace(t *testing.T) {
	cs, mock, closeDB := newChannelServiceMock(t)
	defer closeDB()
	now := time.Now()

	expectDistinctMembers(mock, now)
	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE type = \\? AND is_distinct = \\? AND distinct_key = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `im_channel`").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry for key 'idx_im_channel_distinct_key'"))
	mock.ExpectRollback()
	// 另一个请求已经建好
	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE type = \\? AND is_distinct = \\? AND distinct_key = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols).AddRow(uint64(11), "group_dm", int(models.ChannelTypeGroup), "", true, false, false, 2, now, now))
	mock.ExpectExec("UPDATE `im_channel_member` SET `is_hidden`=\\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ch, created, err := cs.createGroup(context.Background(), 1, CreateGroupChannelReq{UserIDs: []string{"bob"}, IsDistinct: true})
	if err != nil {
		t.Fatalf("createGroup: %v", err)
	}
	if created || ch.ID != 11 {
		t.Fatalf("expected channel 11 with created=false, got id=%d created=%v", ch.ID, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestChannelService_CreateGroup_InsertErrorWithoutDistinct(t *testing.T) {
	cs, mock, closeDB := newChannelServiceMock(t)
	defer closeDB()
	now := time.Now()

	expectDistinctMembers(mock, now)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `im_channel`").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if _, _, err := cs.createGroup(context.Background(), 1, CreateGroupChannelReq{UserIDs: []string{"bob"}}); err == nil {
		t.Fatalf("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRemoveMember_ClearsDistinctKey(t *testing.T) {
	cs, mock, closeDB := newChannelServiceMock(t)
	defer closeDB()

	key := distinctKey([]string{"alice", "bob"})
	ch := &models.Channel{ID: 7, Type: models.ChannelTypeGroup, IsDistinct: true, DistinctKey: &key, MemberCount: 2}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `im_channel_member` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `im_channel` SET `distinct_key`=NULL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `im_channel` SET `member_count`=member_count \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := cs.removeMember(context.Background(), ch, 2); err != nil {
		t.Fatalf("removeMember: %v", err)
	}
	if ch.DistinctKey != nil {
		t.Fatalf("distinct key should be cleared after membership change")
	}

	// 非 distinct 频道只维护计数
	plain := &models.Channel{ID: 8, Type: models.ChannelTypeGroup, MemberCount: 3}
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `im_channel_member`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `im_channel` SET `member_count`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := cs.removeMember(context.Background(), plain, 2); err != nil {
		t.Fatalf("removeMember plain: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
