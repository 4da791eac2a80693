package service

import (
	"context"
	"testing"
	"time"
)

func TestUpdateTyping_Expiry(t *testing.T) {
	rdb, _ := newMiniRedis(t)
	now := time.Unix(1_700_000_000, 0)
	s := NewChannelService(&Service{RDB: rdb, Clock: func() time.Time { return now }}, nil, nil)
	ctx := context.Background()

	if ids, err := s.updateTyping(ctx, 1, "group_x", true); err != nil || len(ids) != 1 {
		t.Fatalf("start 1: %v %v", ids, err)
	}
	if ids, _ := s.updateTyping(ctx, 2, "group_x", true); len(ids) != 2 {
		t.Fatalf("two typists expected, got %v", ids)
	}

	now = now.Add(typingTTL + time.Second)
	ids, err := s.updateTyping(ctx, 3, "group_x", true)
	if err != nil {
		t.Fatalf("start 3: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("stale typists should expire, got %v", ids)
	}

	if ids, _ := s.updateTyping(ctx, 3, "group_x", false); len(ids) != 0 {
		t.Fatalf("end should clear, got %v", ids)
	}
	if n, _ := rdb.HLen(ctx, typingKey("group_x")).Result(); n != 0 {
		t.Fatalf("hash should be empty, got %d", n)
	}
}

func TestUpdateTyping_NoRedis(t *testing.T) {
	s := NewChannelService(&Service{}, nil, nil)
	ids, err := s.updateTyping(context.Background(), 7, "group_x", true)
	if err != nil || len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("got %v %v", ids, err)
	}
}
