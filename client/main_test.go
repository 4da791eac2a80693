package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedMain(t *testing.T, fs *fakeServer, mutate ...func(*Options)) *Main {
	t.Helper()
	o := fs.options()
	for _, f := range mutate {
		f(&o)
	}
	c := NewMain(o)
	me, err := c.Connect(context.Background(), "alice", "tok")
	require.NoError(t, err)
	require.Equal(t, "alice", me.UserID)
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}

func groupA(fs *fakeServer) {
	fs.on(http.MethodGet, "/group_channels/group_a", func(*http.Request) (int, any) {
		return 0, wire.GroupChannel{
			ChannelURL:    "group_a",
			Name:          "A",
			MemberCount:   2,
			MyMemberState: cons.MemberStateJoined,
			MyRole:        cons.RoleOperator,
			Members: []wire.Member{
				{User: wire.User{UserID: "alice"}, State: cons.MemberStateJoined, Role: cons.RoleOperator},
				{User: wire.User{UserID: "bob"}, State: cons.MemberStateJoined},
			},
		}
	})
}

func drain(t *testing.T, stream <-chan MessageEvent) []MessageEvent {
	t.Helper()
	var out []MessageEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("send stream not closed")
			return out
		}
	}
}

func TestMain_LoginRejected(t *testing.T) {
	fs := newFakeServer(t)
	c := NewMain(fs.options())
	_, err := c.Connect(context.Background(), "alice", "bad")
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
	assert.Nil(t, c.CurrentUser())
	assert.Equal(t, StateClosed, c.ConnectionState())
}

func TestMain_ConnectRequiresUserID(t *testing.T) {
	c := NewMain(DefaultOptions("http://127.0.0.1:1"))
	_, err := c.Connect(context.Background(), " ", "tok")
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestMain_GetGroupChannel(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)

	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)
	assert.Equal(t, "A", ch.Name)
	assert.Equal(t, MemberStateJoined, ch.MyMemberState)
	assert.Equal(t, RoleOperator, ch.MyRole)
	assert.Equal(t, MutedStateUnmuted, ch.MyMutedState)
	assert.Equal(t, []string{"alice", "bob"}, []string{ch.Members[0].UserID, ch.Members[1].UserID})

	_, err = c.GetGroupChannel(context.Background(), "group_missing")
	assert.True(t, errors.Is(err, &Error{Code: CodeResourceNotFound}), "got %v", err)
}

func TestMain_SendUserMessage(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	temp, stream := ch.SendUserMessage(context.Background(), &UserMessageParams{Message: "hello"})
	assert.Equal(t, SendingStatusPending, temp.SendingStatus())
	assert.NotEmpty(t, temp.RequestID())
	assert.Equal(t, "alice", temp.Sender().UserID)

	evs := drain(t, stream)
	require.Len(t, evs, 1)
	require.Equal(t, MessageEventSent, evs[0].Kind)
	sent, ok := evs[0].Message.(*UserMessage)
	require.True(t, ok)
	assert.Equal(t, temp.RequestID(), sent.RequestID())
	assert.Equal(t, "hello", sent.Message)
	assert.NotZero(t, sent.MessageID())
	assert.Equal(t, SendingStatusSucceeded, sent.SendingStatus())

	frames := fs.frames(cons.FrameMessage)
	require.Len(t, frames, 1)
	assert.Equal(t, temp.RequestID(), frames[0].PacketID)
}

func TestMain_SendUserMessageFailure(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	temp, stream := ch.SendUserMessage(context.Background(), &UserMessageParams{Message: "forbidden"})
	evs := drain(t, stream)
	require.Len(t, evs, 1)
	require.Equal(t, MessageEventFailed, evs[0].Kind)
	require.NotNil(t, evs[0].Failure)
	assert.Equal(t, CodeUserMuted, evs[0].Failure.Err.Code)
	assert.True(t, errors.Is(evs[0].Failure, ErrUserMuted))
	assert.Equal(t, SendingStatusFailed, temp.SendingStatus())

	// 重发沿用 request id
	again, stream := ch.ResendUserMessage(context.Background(), temp)
	assert.Equal(t, temp.RequestID(), again.RequestID())
	drain(t, stream)
}

func TestMain_SendEmptyMessage(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	_, stream := ch.SendUserMessage(context.Background(), &UserMessageParams{Message: "  "})
	evs := drain(t, stream)
	require.Len(t, evs, 1)
	assert.Equal(t, CodeInvalidParameter, evs[0].Failure.Err.Code)
}

func TestMain_SendFallsBackToREST(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	var body capture[string]
	fs.on(http.MethodPost, "/group_channels/group_a/messages", func(r *http.Request) (int, any) {
		b, _ := io.ReadAll(r.Body)
		body.set(string(b))
		return 0, wire.Message{MessageID: 7, Type: cons.MessageTypeUser, ChannelURL: "group_a", Message: "via rest"}
	})
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	// 只断 WebSocket，保留 session token
	require.NoError(t, c.Connection().Disconnect(context.Background()))

	_, stream := ch.SendUserMessage(context.Background(), &UserMessageParams{Message: "via rest"})
	evs := drain(t, stream)
	require.Len(t, evs, 1)
	require.Equal(t, MessageEventSent, evs[0].Kind)
	assert.Equal(t, uint64(7), evs[0].Message.MessageID())
	assert.Contains(t, body.get(), `"message":"via rest"`)
}

func TestMain_SendFileMessageWithUpload(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	payload := strings.Repeat("x", 200<<10)
	fs.on(http.MethodPost, "/files", func(r *http.Request) (int, any) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			return 10001, nil
		}
		n, _ := io.Copy(io.Discard, f)
		return 0, wire.UploadedFile{URL: "https://files/" + fh.Filename, Name: fh.Filename, Size: n, Type: fh.Header.Get("Content-Type")}
	})
	var sentFile capture[wire.File]
	fs.on(http.MethodPost, "/group_channels/group_a/messages/file", func(r *http.Request) (int, any) {
		var req wire.SendFileMessageReq
		_ = jsonDecode(r.Body, &req)
		sentFile.set(req.File)
		return 0, wire.Message{MessageID: 9, Type: cons.MessageTypeFile, ChannelURL: "group_a", File: &req.File}
	})
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	temp, stream := ch.SendFileMessage(context.Background(), &FileMessageParams{
		File:     strings.NewReader(payload),
		FileSize: int64(len(payload)),
		FileName: "a.txt",
		MimeType: "text/plain",
	})
	assert.Equal(t, SendingStatusPending, temp.SendingStatus())

	evs := drain(t, stream)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, MessageEventSent, last.Kind)
	fm, ok := last.Message.(*FileMessage)
	require.True(t, ok)
	assert.Equal(t, "https://files/a.txt", fm.URL)
	assert.Equal(t, int64(len(payload)), sentFile.get().Size)

	var prev int64
	for _, ev := range evs[:len(evs)-1] {
		require.Equal(t, MessageEventProgress, ev.Kind)
		assert.GreaterOrEqual(t, ev.Progress.TotalBytesSent, prev)
		assert.Equal(t, int64(len(payload)), ev.Progress.TotalExpected)
		prev = ev.Progress.TotalBytesSent
	}
}

func TestMain_SendFileMessageNeedsSource(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	_, stream := ch.SendFileMessage(context.Background(), &FileMessageParams{FileName: "a.txt"})
	evs := drain(t, stream)
	require.Len(t, evs, 1)
	assert.Equal(t, MessageEventFailed, evs[0].Kind)
}

func TestMain_ChannelEventsFilterByURL(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)
	// 确认 WS 已在服务端登记
	require.NoError(t, ch.StartTyping(context.Background()))

	evA, cancelA := c.ChannelEvents("group_a")
	defer cancelA()
	evB, cancelB := c.ChannelEvents("group_b")
	defer cancelB()

	fs.push(cons.EventMessageReceived, "group_a", wire.Message{
		MessageID: 55, Type: cons.MessageTypeUser, ChannelURL: "group_a", ChannelType: cons.ChannelTypeGroup, Message: "yo",
		Sender: &wire.User{UserID: "bob"},
	})

	select {
	case ev := <-evA:
		assert.Equal(t, ChannelEventKind(cons.EventMessageReceived), ev.Kind)
		require.NotNil(t, ev.Message)
		assert.Equal(t, uint64(55), ev.Message.MessageID())
		assert.Equal(t, "bob", ev.Message.Sender().UserID)
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case ev := <-evB:
		t.Fatalf("unexpected event for group_b: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMain_UserEvents(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)
	require.NoError(t, ch.EndTyping(context.Background()))

	events, cancel := c.UserEvents()
	defer cancel()
	fs.push(cons.EventTotalUnreadCountUpdated, "", wire.UnreadCountPayload{TotalCount: 3, CountByCustomType: map[string]int{"dm": 2}})

	select {
	case ev := <-events:
		assert.Equal(t, UserEventTotalUnreadCountUpdated, ev.Kind)
		assert.Equal(t, uint(3), ev.TotalUnreadCount)
		assert.Empty(t, cmp.Diff(map[string]uint{"dm": 2}, ev.CountByCustomType))
	case <-time.After(3 * time.Second):
		t.Fatal("user event not delivered")
	}
}

func TestMain_CacheSync(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs, func(o *Options) { o.CacheDir = t.TempDir() })
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)
	require.NoError(t, ch.StartTyping(context.Background()))

	now := time.Now().UnixMilli()
	for i := uint64(1); i <= 3; i++ {
		fs.push(cons.EventMessageReceived, "group_a", wire.Message{
			MessageID: i, Type: cons.MessageTypeUser, ChannelURL: "group_a", Message: "m", CreatedAt: now + int64(i),
		})
	}
	fs.push(cons.EventMessageDeleted, "group_a", wire.MessageDeletedPayload{MessageID: 2})

	require.Eventually(t, func() bool {
		msgs, err := c.CachedMessages(context.Background(), "group_a", 0, 10)
		return err == nil && len(msgs) == 2
	}, 3*time.Second, 20*time.Millisecond)

	msgs, err := c.CachedMessages(context.Background(), "group_a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, []uint64{msgs[0].MessageID(), msgs[1].MessageID()})
}

func TestMain_CountsAndUnreadItems(t *testing.T) {
	fs := newFakeServer(t)
	var gotState, gotKey capture[string]
	fs.on(http.MethodGet, "/users/me/channel_count", func(r *http.Request) (int, any) {
		gotState.set(r.URL.Query().Get("state"))
		return 0, map[string]int{"count": 4}
	})
	fs.on(http.MethodGet, "/users/me/unread_item_count", func(r *http.Request) (int, any) {
		gotKey.set(r.URL.Query().Get("key"))
		n := 5
		return 0, wire.UnreadItemCount{GroupChannelInvitationCount: &n}
	})
	c := connectedMain(t, fs)

	n, err := c.GetChannelCount(context.Background(), MemberStateFilterInvitedOnly)
	require.NoError(t, err)
	assert.Equal(t, uint(4), n)
	assert.Equal(t, cons.MemberStateInvited, gotState.get())

	res, err := c.GetUnreadItemCount(context.Background(), UnreadItemGroupChannelInvitationCount|UnreadItemGroupChannelUnreadMessageCount)
	require.NoError(t, err)
	assert.Equal(t, "5", gotKey.get())
	require.NotNil(t, res.GroupChannelInvitationCount)
	assert.Equal(t, uint(5), *res.GroupChannelInvitationCount)
	assert.Nil(t, res.GroupChannelUnreadMessageCount)
}

func TestMain_DisconnectClearsUser(t *testing.T) {
	fs := newFakeServer(t)
	c := NewMain(fs.options())
	_, err := c.Connect(context.Background(), "alice", "tok")
	require.NoError(t, err)
	require.NotNil(t, c.CurrentUser())

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Nil(t, c.CurrentUser())
	assert.Equal(t, StateClosed, c.ConnectionState())
}

func TestChannel_HistoryDirection(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	var q capture[url.Values]
	fs.on(http.MethodGet, "/group_channels/group_a/messages", func(r *http.Request) (int, any) {
		q.set(r.URL.Query())
		return 0, []wire.Message{}
	})
	c := connectedMain(t, fs)
	ctx := context.Background()
	ch, err := c.GetGroupChannel(ctx, "group_a")
	require.NoError(t, err)

	cases := []struct {
		name       string
		call       func() error
		prev, next string
	}{
		{"next by ts", func() error {
			_, err := ch.GetNextMessagesByTimestamp(ctx, 1700000000000, MessageListParams{})
			return err
		}, "", "20"},
		{"next by id", func() error { _, err := ch.GetNextMessagesByID(ctx, 7, MessageListParams{PrevLimit: 5}); return err }, "", "20"},
		{"prev by ts", func() error {
			_, err := ch.GetPreviousMessagesByTimestamp(ctx, 1700000000000, MessageListParams{})
			return err
		}, "20", ""},
		{"prev by id", func() error {
			_, err := ch.GetPreviousMessagesByID(ctx, 7, MessageListParams{NextLimit: 5})
			return err
		}, "20", ""},
		{"next keeps limit", func() error { _, err := ch.GetNextMessagesByID(ctx, 7, MessageListParams{NextLimit: 3}); return err }, "", "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.call())
			got := q.get()
			assert.Equal(t, tc.prev, got.Get("prev_limit"))
			assert.Equal(t, tc.next, got.Get("next_limit"))
		})
	}
}

func TestMain_SendingStatusReadableWhileSending(t *testing.T) {
	fs := newFakeServer(t)
	groupA(fs)
	c := connectedMain(t, fs)
	ch, err := c.GetGroupChannel(context.Background(), "group_a")
	require.NoError(t, err)

	temp, stream := ch.SendUserMessage(context.Background(), &UserMessageParams{Message: "forbidden"})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for temp.SendingStatus() == SendingStatusPending {
			time.Sleep(time.Millisecond)
		}
	}()
	drain(t, stream)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("status never left pending")
	}
	assert.Equal(t, SendingStatusFailed, temp.SendingStatus())
}
