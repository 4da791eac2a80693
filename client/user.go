package client

import (
	"time"

	"github.com/cydxin/birdchat/wire"
)

// User 用户
type User struct {
	UserID     string
	Nickname   string
	ProfileURL string
	IsActive   bool
	IsOnline   bool
	LastSeenAt time.Time
	MetaData   map[string]string
}

// Member 群组成员
type Member struct {
	User
	State      MemberState
	Role       Role
	MutedState MutedState
}

// Sender 消息发送者；Role 为发送时在频道里的角色
type Sender struct {
	User
	Role Role
}

func userFromWire(w wire.User) User {
	return User{
		UserID:     w.UserID,
		Nickname:   w.Nickname,
		ProfileURL: w.ProfileURL,
		IsActive:   w.IsActive,
		IsOnline:   w.IsOnline,
		LastSeenAt: fromMillis(w.LastSeenAt),
		MetaData:   w.MetaData,
	}
}

func userPtrFromWire(w *wire.User) *User {
	if w == nil {
		return nil
	}
	u := userFromWire(*w)
	return &u
}

func usersFromWire(ws []wire.User) []User {
	if len(ws) == 0 {
		return nil
	}
	out := make([]User, len(ws))
	for i, w := range ws {
		out[i] = userFromWire(w)
	}
	return out
}

func memberFromWire(w wire.Member) Member {
	m := Member{
		User:       userFromWire(w.User),
		State:      MemberState(w.State),
		Role:       Role(w.Role),
		MutedState: MutedStateUnmuted,
	}
	if w.IsMuted {
		m.MutedState = MutedStateMuted
	}
	return m
}

func userIDs(users []User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.UserID)
	}
	return out
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
