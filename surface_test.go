package birdchat

import (
	"errors"
	"testing"

	"github.com/cydxin/birdchat/client"
	"github.com/stretchr/testify/assert"
)

func TestSurface_NamesResolve(t *testing.T) {
	var (
		_ *Main
		_ Options
		_ Reconnect
		_ *ConnectionManager
		_ ConnectionState
		_ ConnectionEvent

		_ *BaseChannel
		_ *GroupChannel
		_ *OpenChannel
		_ GroupChannelParams
		_ OpenChannelParams
		_ *GroupChannelListQuery
		_ *PublicGroupChannelListQuery
		_ *GroupChannelMemberListQuery
		_ *OpenChannelListQuery
		_ *OperatorListQuery
		_ *ParticipantListQuery
		_ GroupChannelTotalUnreadMessageCountParams

		_ BaseMessage
		_ *UserMessage
		_ *FileMessage
		_ *AdminMessage
		_ *ScheduledUserMessage
		_ BaseMessageParams
		_ UserMessageParams
		_ FileMessageParams
		_ ScheduledUserMessageParams
		_ *MessageListQuery
		_ *PreviousMessageListQuery
		_ *MessageSearchQuery
		_ MessageMetaArray
		_ MessageListParams
		_ MessageEvent
		_ *MessageFailure

		_ User
		_ Member
		_ Sender
		_ *UserListQuery
		_ *ApplicationUserListQuery
		_ *BannedUserListQuery
		_ *BlockedUserListQuery
		_ *MutedUserListQuery
		_ *FriendListQuery

		_ Reaction
		_ ReactionEvent
		_ UnreadItemCount
		_ UnreadItemKey
		_ *Error
		_ ErrorCode

		_ ChannelType
		_ MessageType
		_ MessageTypeFilter
		_ MemberState
		_ MemberStateFilter
		_ Role
		_ MutedState
		_ ReactionEventAction
		_ SendingStatus
		_ ChannelEventKind
		_ UserEventKind
		_ ChannelEvent
		_ UserEvent
	)

	var m *Main = NewMain(DefaultOptions("http://127.0.0.1:1"))
	assert.NotNil(t, m)
	assert.Equal(t, client.StateClosed, m.ConnectionState())
}

func TestSurface_ErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrInvalidParameterCode, ErrUnauthorizedCode, ErrUserNotFoundCode, ErrChannelNotFoundCode,
		ErrMessageNotFoundCode, ErrResourceNotFoundCode, ErrNotOperatorCode, ErrInternalCode,
		ErrNotConnectedCode, ErrQueryInProgressCode, ErrAckTimeoutCode, ErrWebSocketClosedCode,
		ErrRequestFailedCode, ErrNotMemberCode, ErrUserMutedCode, ErrChannelFrozenCode,
		ErrUserBannedCode, ErrUserBlockedCode,
	}
	seen := map[ErrorCode]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %d", c)
		seen[c] = true
	}
	assert.True(t, errors.Is(&Error{Code: ErrUserMutedCode}, client.ErrUserMuted))
}

func TestSurface_VersionAgrees(t *testing.T) {
	assert.Equal(t, VersionString(), string(VersionBytes()))
	assert.Equal(t, parseVersionNumber(VersionString()), VersionNumber())
}
