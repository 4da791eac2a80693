package service

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestAuthService_ExtractToken_BearerFirst(t *testing.T) {
	a := NewAuthService(nil, nil)

	req := &http.Request{Header: make(http.Header), URL: &url.URL{RawQuery: "token=q"}}
	req.Header.Set("Authorization", "Bearer headerToken")

	got := a.ExtractToken(req)
	if got != "headerToken" {
		t.Fatalf("expected headerToken, got %q", got)
	}
}

func TestAuthService_ExtractToken_QueryFallback(t *testing.T) {
	a := NewAuthService(nil, nil)

	u, _ := url.Parse("http://example.com/path?token=queryToken")
	req := &http.Request{Header: make(http.Header), URL: u}

	got := a.ExtractToken(req)
	if got != "queryToken" {
		t.Fatalf("expected queryToken, got %q", got)
	}
}

func newMiniRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestAuthService_LoginAuthenticateLogout(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer func() { _ = sqlDB.Close() }()
	rdb, _ := newMiniRedis(t)

	s := &Service{DB: gormDB, RDB: rdb}
	a := NewAuthService(s, NewUserService(s))
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `im_user` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(uint64(9), "carol", "Carol", "", hashOf(t, "tok"), true, now, now))

	sess, err := a.Login(ctx, "carol", "tok")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.User.UserID != "carol" || sess.SessionToken == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	uid, err := a.Authenticate(ctx, sess.SessionToken)
	if err != nil || uid != 9 {
		t.Fatalf("Authenticate: uid=%d err=%v", uid, err)
	}

	if err := a.Logout(ctx, sess.SessionToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := a.Authenticate(ctx, sess.SessionToken); err != ErrSessionInvalid {
		t.Fatalf("expected ErrSessionInvalid after logout, got %v", err)
	}
}

func TestTokenService_RevokeAllAndExpiry(t *testing.T) {
	rdb, mr := newMiniRedis(t)
	ts := NewTokenService(rdb)
	ctx := context.Background()

	t1, err := ts.Issue(ctx, 3)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	t2, _ := ts.Issue(ctx, 3)
	if err := ts.RevokeAll(ctx, 3); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := ts.Resolve(ctx, tok); err != ErrSessionInvalid {
			t.Fatalf("token %s should be revoked, got %v", tok, err)
		}
	}

	t3, _ := ts.Issue(ctx, 4)
	mr.FastForward(defaultSessionTTL + time.Second)
	if _, err := ts.Resolve(ctx, t3); err != ErrSessionInvalid {
		t.Fatalf("expired token should be invalid, got %v", err)
	}
}
