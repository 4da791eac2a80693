package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newTestManager(fs *fakeServer, onEvent func(wire.Frame)) *ConnectionManager {
	o := fs.options().withDefaults()
	return newConnectionManager(o, newHub(zap.NewNop()), onEvent)
}

func waitConnEvent(t *testing.T, ch <-chan ConnectionEvent, want ConnectionEventKind) ConnectionEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("connection event %d not received", want)
			return ConnectionEvent{}
		}
	}
}

func TestConnectionManager_RequestAck(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fs := newFakeServer(t)
	m := newTestManager(fs, nil)
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, testToken))
	assert.Equal(t, StateOpen, m.State())

	ack, err := m.Request(ctx, wire.Frame{Type: cons.FrameTypingStart, ChannelURL: "group_a"})
	require.NoError(t, err)
	assert.Equal(t, cons.FrameAck, ack.Type)
	assert.NotEmpty(t, ack.PacketID)

	require.NoError(t, m.Disconnect(ctx))
	assert.Equal(t, StateClosed, m.State())
	fs.close()
}

func TestConnectionManager_NotConnected(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(fs, nil)
	_, err := m.Request(context.Background(), wire.Frame{Type: cons.FrameTypingStart})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestConnectionManager_Unauthorized(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(fs, nil)
	err := m.Connect(context.Background(), "wrong")
	assert.True(t, errors.Is(err, ErrUnauthorized), "got %v", err)
	assert.Equal(t, StateClosed, m.State())
}

func TestConnectionManager_AckTimeout(t *testing.T) {
	fs := newFakeServer(t)
	fs.noAck = true
	m := newTestManager(fs, nil)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, testToken))
	defer m.Disconnect(ctx)

	_, err := m.Request(ctx, wire.Frame{Type: cons.FrameTypingStart, ChannelURL: "group_a"})
	assert.True(t, errors.Is(err, ErrAckTimeout), "got %v", err)
}

func TestConnectionManager_ErrorFrame(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(fs, nil)
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, testToken))
	defer m.Disconnect(ctx)

	f, err := wire.NewFrame(cons.FrameMessage, wire.SendMessageReq{RequestID: "r1", Message: "forbidden"})
	require.NoError(t, err)
	f.ChannelURL = "group_a"
	_, err = m.Request(ctx, f)
	assert.True(t, errors.Is(err, ErrUserMuted), "got %v", err)
}

func TestConnectionManager_EventFrame(t *testing.T) {
	fs := newFakeServer(t)
	got := make(chan wire.Frame, 1)
	m := newTestManager(fs, func(f wire.Frame) { got <- f })
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, testToken))
	defer m.Disconnect(ctx)

	// 确认服务端已登记连接
	_, err := m.Request(ctx, wire.Frame{Type: cons.FrameTypingEnd, ChannelURL: "group_a"})
	require.NoError(t, err)

	fs.push(cons.EventChannelFrozen, "group_a", struct{}{})
	select {
	case f := <-got:
		assert.Equal(t, cons.EventChannelFrozen, f.Event)
		assert.Equal(t, "group_a", f.ChannelURL)
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestConnectionManager_Reconnect(t *testing.T) {
	fs := newFakeServer(t)
	m := newTestManager(fs, nil)
	events, cancel := m.Subscribe()
	defer cancel()
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, testToken))
	defer m.Disconnect(ctx)

	_, err := m.Request(ctx, wire.Frame{Type: cons.FrameTypingEnd, ChannelURL: "group_a"})
	require.NoError(t, err)

	fs.dropAll()
	waitConnEvent(t, events, ReconnectionStarted)
	ev := waitConnEvent(t, events, ReconnectionSucceeded)
	assert.GreaterOrEqual(t, ev.Attempt, 1)
	assert.Equal(t, StateOpen, m.State())

	_, err = m.Request(ctx, wire.Frame{Type: cons.FrameTypingEnd, ChannelURL: "group_a"})
	assert.NoError(t, err)
}

func TestConnectionManager_DisconnectCancelsReconnect(t *testing.T) {
	fs := newFakeServer(t)
	o := fs.options()
	o.Reconnect.Initial = time.Second
	m := newConnectionManager(o.withDefaults(), newHub(zap.NewNop()), nil)
	events, cancel := m.Subscribe()
	defer cancel()
	ctx := context.Background()
	require.NoError(t, m.Connect(ctx, testToken))

	_, err := m.Request(ctx, wire.Frame{Type: cons.FrameTypingEnd, ChannelURL: "group_a"})
	require.NoError(t, err)

	fs.dropAll()
	waitConnEvent(t, events, ReconnectionStarted)
	require.NoError(t, m.Disconnect(ctx))
	waitConnEvent(t, events, ReconnectionCanceled)
	assert.Equal(t, StateClosed, m.State())
}

func TestReconnect_Delay(t *testing.T) {
	r := Reconnect{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2, MaxRetries: 5}
	assert.Equal(t, 100*time.Millisecond, r.delay(1))
	assert.Equal(t, 200*time.Millisecond, r.delay(2))
	assert.Equal(t, 400*time.Millisecond, r.delay(3))
	assert.Equal(t, time.Second, r.delay(10))
}

func TestConnectionEventKind_String(t *testing.T) {
	assert.Equal(t, "reconnection_started", ReconnectionStarted.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "unknown", ConnectionEventKind(0).String())
}
