package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/birdchat/models"
)

var (
	channelCols = []string{"id", "channel_url", "type", "name", "is_distinct", "is_public", "is_frozen", "member_count", "created_at", "updated_at"}
	memberCols  = []string{"id", "channel_id", "user_id", "state", "joined_at", "created_at", "updated_at"}
	banCols     = []string{"id", "channel_id", "user_id", "description", "end_at", "created_at"}
)

func joinedView(ch *models.Channel, operator bool) *channelView {
	return &channelView{
		ch:       ch,
		member:   &models.ChannelMember{ChannelID: ch.ID, UserID: 1, State: models.MemberStateJoined},
		operator: operator,
	}
}

func TestCheckCanSend_NotMember(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	s := &Service{DB: gormDB}
	ctx := context.Background()

	group := &models.Channel{ID: 3, Type: models.ChannelTypeGroup}
	invited := &channelView{ch: group, member: &models.ChannelMember{State: models.MemberStateInvited}}
	for name, v := range map[string]*channelView{
		"no row":  {ch: group},
		"invited": invited,
		"open":    {ch: &models.Channel{ID: 4, Type: models.ChannelTypeOpen}},
	} {
		if err := s.checkCanSend(ctx, v, 1); err != ErrNotMember {
			t.Fatalf("%s: expected ErrNotMember, got %v", name, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCheckCanSend_FrozenOperatorExempt(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	s := &Service{DB: gormDB}
	ctx := context.Background()
	ch := &models.Channel{ID: 3, Type: models.ChannelTypeGroup, IsFrozen: true}

	if err := s.checkCanSend(ctx, joinedView(ch, false), 1); err != ErrChannelFrozen {
		t.Fatalf("expected ErrChannelFrozen, got %v", err)
	}

	mock.ExpectQuery("SELECT \\* FROM `im_channel_mute` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(banCols))
	if err := s.checkCanSend(ctx, joinedView(ch, true), 1); err != nil {
		t.Fatalf("operator in frozen channel: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCheckCanSend_ActiveMute(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	now := time.Unix(1_700_000_000, 0)
	s := &Service{DB: gormDB, Clock: func() time.Time { return now }}
	ch := &models.Channel{ID: 3, Type: models.ChannelTypeGroup}

	mock.ExpectQuery("SELECT \\* FROM `im_channel_mute` WHERE channel_id = \\? AND user_id = \\? AND \\(end_at IS NULL OR end_at > \\?\\)").
		WillReturnRows(sqlmock.NewRows(banCols).AddRow(uint64(9), uint64(3), uint64(1), "", now.Add(time.Minute), now))

	if err := s.checkCanSend(context.Background(), joinedView(ch, true), 1); err != ErrUserMuted {
		t.Fatalf("expected ErrUserMuted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCheckCanSend_BlockedOneToOne(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	s := &Service{DB: gormDB}
	ch := &models.Channel{ID: 3, Type: models.ChannelTypeGroup, IsDistinct: true, MemberCount: 2}

	for _, tc := range []struct {
		blocks int
		want   error
	}{
		{1, ErrUserBlocked},
		{0, nil},
	} {
		mock.ExpectQuery("SELECT \\* FROM `im_channel_mute`").
			WillReturnRows(sqlmock.NewRows(banCols))
		mock.ExpectQuery("SELECT `user_id` FROM `im_channel_member` WHERE channel_id = \\?").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(uint64(1)).AddRow(uint64(2)))
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_user_block` WHERE \\(user_id = \\? AND target_id = \\?\\) OR \\(user_id = \\? AND target_id = \\?\\)").
			WithArgs(uint64(1), uint64(2), uint64(2), uint64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(tc.blocks))

		if err := s.checkCanSend(context.Background(), joinedView(ch, false), 1); err != tc.want {
			t.Fatalf("blocks=%d: expected %v, got %v", tc.blocks, tc.want, err)
		}
	}

	// 多人 distinct 群组不看拉黑
	many := &models.Channel{ID: 5, Type: models.ChannelTypeGroup, IsDistinct: true, MemberCount: 3}
	mock.ExpectQuery("SELECT \\* FROM `im_channel_mute`").
		WillReturnRows(sqlmock.NewRows(banCols))
	if err := s.checkCanSend(context.Background(), joinedView(many, false), 1); err != nil {
		t.Fatalf("group of three: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestChannelService_Join_Banned(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	base := &Service{DB: gormDB}
	cs := NewChannelService(base, NewUserService(base), nil)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE channel_url = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols).AddRow(uint64(3), "group_pub", int(models.ChannelTypeGroup), "pub", false, true, false, 4, now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_channel_member` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(memberCols))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `im_channel_operator`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectQuery("SELECT \\* FROM `im_channel_ban` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(banCols).AddRow(uint64(1), uint64(3), uint64(1), "spam", nil, now))

	if _, err := cs.Join(context.Background(), 1, "group_pub", ""); err != ErrUserBanned {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestChannelService_Enter_Banned(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	base := &Service{DB: gormDB}
	cs := NewChannelService(base, NewUserService(base), nil)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `im_channel` WHERE channel_url = \\?").
		WillReturnRows(sqlmock.NewRows(channelCols).AddRow(uint64(8), "open_lobby", int(models.ChannelTypeOpen), "lobby", false, false, false, 0, now, now))
	mock.ExpectQuery("SELECT \\* FROM `im_channel_ban` WHERE channel_id = \\? AND user_id = \\?").
		WillReturnRows(sqlmock.NewRows(banCols).AddRow(uint64(1), uint64(8), uint64(1), "", now.Add(time.Hour), now))

	if _, err := cs.Enter(context.Background(), 1, "open_lobby"); err != ErrUserBanned {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
