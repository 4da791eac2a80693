package client

import (
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFromWire_Types(t *testing.T) {
	file := messageFromWire(wire.Message{
		MessageID: 1, Type: cons.MessageTypeFile, ChannelURL: "group_a",
		File: &wire.File{URL: "https://f/a.png", Name: "a.png", Size: 10, Type: "image/png",
			Thumbnails: []wire.Thumbnail{{URL: "https://f/a_s.png", Width: 64, Height: 64}}},
		Sender: &wire.User{UserID: "bob"}, SenderRole: cons.RoleOperator,
	})
	fm, ok := file.(*FileMessage)
	require.True(t, ok)
	assert.Equal(t, "a.png", fm.Name)
	assert.Equal(t, []Thumbnail{{URL: "https://f/a_s.png", Width: 64, Height: 64}}, fm.Thumbnails)
	assert.Equal(t, RoleOperator, fm.Sender().Role)

	admin := messageFromWire(wire.Message{MessageID: 2, Type: cons.MessageTypeAdmin, Message: "notice"})
	am, ok := admin.(*AdminMessage)
	require.True(t, ok)
	assert.Nil(t, am.Sender())
	assert.Equal(t, "notice", am.Message)

	user := messageFromWire(wire.Message{MessageID: 3, Type: cons.MessageTypeUser, Message: "hi",
		MetaArrays: []wire.MetaArray{{Key: "tags", Value: []string{"a", "b"}}}})
	um, ok := user.(*UserMessage)
	require.True(t, ok)
	assert.Equal(t, SendingStatusSucceeded, um.SendingStatus())
	assert.Empty(t, cmp.Diff([]MessageMetaArray{{Key: "tags", Value: []string{"a", "b"}}}, um.MetaArrays()))
}

func TestApplyReactionEvent(t *testing.T) {
	m := messageFromWire(wire.Message{MessageID: 5, Type: cons.MessageTypeUser}).(*UserMessage)
	at := time.Now()

	add := func(user string) *ReactionEvent {
		return &ReactionEvent{MessageID: 5, Key: "smile", UserID: user, Operation: ReactionEventActionAdd, UpdatedAt: at}
	}
	del := func(user string) *ReactionEvent {
		return &ReactionEvent{MessageID: 5, Key: "smile", UserID: user, Operation: ReactionEventActionDelete, UpdatedAt: at}
	}

	assert.True(t, m.ApplyReactionEvent(add("bob")))
	assert.False(t, m.ApplyReactionEvent(add("bob")), "duplicate add is a no-op")
	assert.True(t, m.ApplyReactionEvent(add("carol")))
	require.Len(t, m.Reactions(), 1)
	assert.Equal(t, []string{"bob", "carol"}, m.Reactions()[0].UserIDs)

	assert.True(t, m.ApplyReactionEvent(del("bob")))
	assert.True(t, m.ApplyReactionEvent(del("carol")))
	assert.Empty(t, m.Reactions())
	assert.False(t, m.ApplyReactionEvent(del("carol")))

	other := add("bob")
	other.MessageID = 6
	assert.False(t, m.ApplyReactionEvent(other))
}
