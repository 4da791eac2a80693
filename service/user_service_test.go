package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/birdchat/repository"
	"golang.org/x/crypto/bcrypt"
)

var userCols = []string{"id", "user_id", "nickname", "profile_url", "access_token_hash", "is_active", "created_at", "updated_at"}

func hashOf(t *testing.T, token string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(b)
}

func TestUserService_Authenticate_AccessToken(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB})
	now := time.Now()
	hash := hashOf(t, "secret")

	for _, tc := range []struct {
		name  string
		token string
		ok    bool
	}{
		{"match", "secret", true},
		{"mismatch", "wrong", false},
	} {
		mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id = \\?").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(1), "alice", "Alice", "", hash, true, now, now))

		u, err := us.Authenticate(context.Background(), "alice", tc.token)
		if tc.ok {
			if err != nil || u.ID != 1 {
				t.Fatalf("%s: got %v, %v", tc.name, u, err)
			}
			continue
		}
		if err != ErrAccessTokenInvalid {
			t.Fatalf("%s: expected ErrAccessTokenInvalid, got %v", tc.name, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUserService_Authenticate_Inactive(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB})
	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(1), "alice", "Alice", "", "", false, now, now))

	if _, err := us.Authenticate(context.Background(), "alice", ""); err != ErrAccessTokenInvalid {
		t.Fatalf("expected ErrAccessTokenInvalid, got %v", err)
	}
}

func TestUserService_Authenticate_AutoCreate(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB, AutoCreateUsers: true})
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectExec("INSERT INTO `im_user`").
		WillReturnResult(sqlmock.NewResult(7, 1))

	u, err := us.Authenticate(context.Background(), "bob", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != 7 || u.Nickname != "bob" {
		t.Fatalf("unexpected user %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestUserService_Authenticate_NotFound(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB})
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols))

	if _, err := us.Authenticate(context.Background(), "ghost", ""); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_List_NextToken(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB})
	now := time.Now()
	rows := sqlmock.NewRows(userCols).
		AddRow(uint64(1), "a1", "A1", "", "", true, now, now).
		AddRow(uint64(2), "a2", "A2", "", "", true, now, now)
	mock.ExpectQuery("SELECT \\* FROM `im_user`").WillReturnRows(rows)

	page, err := us.List(context.Background(), repository.UserFilter{}, "", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Items[1].UserID != "a2" {
		t.Fatalf("unexpected items %+v", page.Items)
	}
	if page.Next == "" {
		t.Fatalf("full page should carry a next token")
	}
}

func TestUserService_ResolveIDs_Missing(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()

	us := NewUserService(&Service{DB: gormDB})
	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id IN").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(1), "a1", "A1", "", "", true, now, now))

	if _, err := us.ResolveIDs(context.Background(), []string{"a1", "a2", "a1"}); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
