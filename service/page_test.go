package service

import (
	"testing"

	"github.com/cydxin/birdchat/repository"
)

func TestPageArgs(t *testing.T) {
	cur, limit, err := pageArgs("", 0)
	if err != nil || cur.ID != 0 || limit != repository.DefaultLimit {
		t.Fatalf("empty token: %+v %d %v", cur, limit, err)
	}

	tok := repository.Cursor{Key: 5, ID: 42}.Encode()
	cur, limit, err = pageArgs(tok, 1000)
	if err != nil || cur.ID != 42 || cur.Key != 5 || limit != repository.MaxLimit {
		t.Fatalf("round trip: %+v %d %v", cur, limit, err)
	}

	if _, _, err := pageArgs("!!", 10); err != ErrInvalidParam {
		t.Fatalf("bad token should be ErrInvalidParam, got %v", err)
	}
}

func TestNextOf(t *testing.T) {
	if got := nextOf(3, 10, repository.Cursor{ID: 3}); got != "" {
		t.Fatalf("short page should end paging, got %q", got)
	}
	if got := nextOf(10, 10, repository.Cursor{ID: 10}); got == "" {
		t.Fatalf("full page should continue")
	}
}

func TestDistinctKey_OrderAndDuplicates(t *testing.T) {
	a := distinctKey([]string{"bob", "alice"})
	b := distinctKey([]string{"alice", "bob", "alice"})
	if a != b {
		t.Fatalf("same member set should share a key: %s vs %s", a, b)
	}
	if a == distinctKey([]string{"alice", "carol"}) {
		t.Fatalf("different sets must differ")
	}
	// 分隔符避免 "ab"+"c" 与 "a"+"bc" 冲突
	if distinctKey([]string{"ab", "c"}) == distinctKey([]string{"a", "bc"}) {
		t.Fatalf("concatenation collision")
	}
}

func TestNewChannelURL(t *testing.T) {
	u := newChannelURL("group")
	if len(u) != len("group_")+32 || u[:6] != "group_" {
		t.Fatalf("unexpected url %q", u)
	}
	if u == newChannelURL("group") {
		t.Fatalf("urls should be unique")
	}
}
