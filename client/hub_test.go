package client

import (
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func eventFrame(t *testing.T, event, url string, data any) wire.Frame {
	t.Helper()
	f, err := wire.NewFrame(cons.FrameEvent, data)
	require.NoError(t, err)
	f.Event, f.ChannelURL, f.ChannelType = event, url, cons.ChannelTypeGroup
	return f
}

func TestHub_DropsWhenSubscriberSlow(t *testing.T) {
	h := newHub(zap.NewNop())
	ch, cancel := h.subscribeChannel("group_a")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.publishChannel(ChannelEvent{ChannelURL: "group_a", Kind: ChannelEventFrozen})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_CancelClosesOnce(t *testing.T) {
	h := newHub(zap.NewNop())
	ch, cancel := h.subscribeUser()
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	// 取消后发布不会 panic
	h.publishUser(UserEvent{Kind: UserEventFriendsDiscovered})
}

func TestHub_AllChannelsSubscription(t *testing.T) {
	h := newHub(zap.NewNop())
	all, cancel := h.subscribeChannel("")
	defer cancel()

	h.publishChannel(ChannelEvent{ChannelURL: "group_a"})
	h.publishChannel(ChannelEvent{ChannelURL: "group_b"})
	assert.Len(t, all, 2)
}

func TestHub_DispatchChannelEvents(t *testing.T) {
	h := newHub(zap.NewNop())
	now := time.Now().UnixMilli()

	cases := []struct {
		name  string
		frame wire.Frame
		check func(t *testing.T, ev *ChannelEvent)
	}{
		{
			name:  "deleted",
			frame: eventFrame(t, cons.EventMessageDeleted, "group_a", wire.MessageDeletedPayload{MessageID: 9}),
			check: func(t *testing.T, ev *ChannelEvent) { assert.Equal(t, uint64(9), ev.MessageID) },
		},
		{
			name: "read receipt",
			frame: eventFrame(t, cons.EventReadReceiptUpdated, "group_a",
				wire.ReceiptPayload{User: wire.User{UserID: "bob"}, MessageID: 3, Timestamp: now}),
			check: func(t *testing.T, ev *ChannelEvent) {
				require.NotNil(t, ev.User)
				assert.Equal(t, "bob", ev.User.UserID)
				assert.Equal(t, now, ev.Timestamp.UnixMilli())
			},
		},
		{
			name: "typing",
			frame: eventFrame(t, cons.EventTypingStatusUpdated, "group_a",
				wire.TypingPayload{TypingUsers: []wire.User{{UserID: "bob"}, {UserID: "carol"}}}),
			check: func(t *testing.T, ev *ChannelEvent) { assert.Len(t, ev.Users, 2) },
		},
		{
			name: "invitation",
			frame: eventFrame(t, cons.EventInvitationReceived, "group_a",
				wire.InvitationPayload{Inviter: &wire.User{UserID: "alice"}, Invitees: []wire.User{{UserID: "bob"}}}),
			check: func(t *testing.T, ev *ChannelEvent) {
				require.NotNil(t, ev.Inviter)
				assert.Equal(t, "alice", ev.Inviter.UserID)
				assert.Len(t, ev.Users, 1)
			},
		},
		{
			name: "meta counters",
			frame: eventFrame(t, cons.EventMetaCountersUpdated, "group_a",
				wire.MetaCountersPayload{MetaCounters: map[string]int64{"likes": 3}}),
			check: func(t *testing.T, ev *ChannelEvent) { assert.Equal(t, int64(3), ev.MetaCounters["likes"]) },
		},
		{
			name: "reaction",
			frame: eventFrame(t, cons.EventReactionUpdated, "group_a",
				wire.ReactionEvent{MessageID: 4, Key: "smile", UserID: "bob", Operation: cons.ReactionAdd}),
			check: func(t *testing.T, ev *ChannelEvent) {
				require.NotNil(t, ev.Reaction)
				assert.Equal(t, ReactionEventActionAdd, ev.Reaction.Operation)
				assert.Equal(t, uint64(4), ev.MessageID)
			},
		},
		{
			name:  "frozen without payload",
			frame: eventFrame(t, cons.EventChannelFrozen, "group_a", struct{}{}),
			check: func(t *testing.T, ev *ChannelEvent) { assert.Equal(t, ChannelEventFrozen, ev.Kind) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := h.dispatch(tc.frame)
			require.NotNil(t, ev)
			assert.Equal(t, "group_a", ev.ChannelURL)
			tc.check(t, ev)
		})
	}
}

func TestHub_DispatchUserEvent(t *testing.T) {
	h := newHub(zap.NewNop())
	users, cancel := h.subscribeUser()
	defer cancel()

	ev := h.dispatch(eventFrame(t, cons.EventFriendsDiscovered, "", wire.FriendsPayload{Friends: []wire.User{{UserID: "bob"}}}))
	assert.Nil(t, ev)
	got := <-users
	assert.Equal(t, UserEventFriendsDiscovered, got.Kind)
	assert.Equal(t, "bob", got.Friends[0].UserID)
}

func TestHub_DispatchBadPayload(t *testing.T) {
	h := newHub(zap.NewNop())
	f := wire.Frame{Type: cons.FrameEvent, Event: cons.EventMessageDeleted, ChannelURL: "group_a", Data: []byte(`"oops"`)}
	assert.Nil(t, h.dispatch(f))
}
