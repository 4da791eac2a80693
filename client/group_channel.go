package client

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
)

// GroupChannel 群组频道。My* 字段为当前用户视角。
type GroupChannel struct {
	BaseChannel

	Members              []Member
	MemberCount          int
	JoinedMemberCount    int
	IsDistinct           bool
	IsPublic             bool
	IsAccessCodeRequired bool
	UnreadMessageCount   uint
	UnreadMentionCount   uint
	LastMessage          BaseMessage
	MyMemberState        MemberState
	MyRole               Role
	MyMutedState         MutedState
	MyLastRead           time.Time
	IsHidden             bool
	Inviter              *User
}

func (g *GroupChannel) replace(w wire.GroupChannel) {
	*g = *g.main.groupFromWire(w)
}

// Invite 邀请用户
func (g *GroupChannel) Invite(ctx context.Context, users []User) error {
	return g.InviteUserIDs(ctx, userIDs(users))
}

// InviteUserIDs 按 user_id 邀请
func (g *GroupChannel) InviteUserIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrInvalidParameter
	}
	return g.api().post(ctx, g.path()+"/invite", map[string][]string{"user_ids": ids}, nil)
}

// AcceptInvitation 接受邀请，公开群组需要进入码时传 accessCode
func (g *GroupChannel) AcceptInvitation(ctx context.Context, accessCode string) error {
	return g.membership(ctx, "/accept", accessCode)
}

// DeclineInvitation 拒绝邀请
func (g *GroupChannel) DeclineInvitation(ctx context.Context) error {
	if err := g.api().post(ctx, g.path()+"/decline", nil, nil); err != nil {
		return err
	}
	g.MyMemberState = MemberStateNone
	return nil
}

// Join 加入公开群组
func (g *GroupChannel) Join(ctx context.Context, accessCode string) error {
	return g.membership(ctx, "/join", accessCode)
}

func (g *GroupChannel) membership(ctx context.Context, sub, accessCode string) error {
	var w wire.GroupChannel
	if err := g.api().post(ctx, g.path()+sub, map[string]string{"access_code": accessCode}, &w); err != nil {
		return err
	}
	g.replace(w)
	return nil
}

// Leave 退出群组
func (g *GroupChannel) Leave(ctx context.Context) error {
	if err := g.api().post(ctx, g.path()+"/leave", nil, nil); err != nil {
		return err
	}
	g.MyMemberState = MemberStateNone
	return nil
}

// Hide 从我的列表隐藏，有新消息时重新出现。hidePreviousMessages 时之前的消息对我不可见。
func (g *GroupChannel) Hide(ctx context.Context, hidePreviousMessages bool) error {
	body := map[string]bool{"hide_previous_messages": hidePreviousMessages}
	if err := g.api().post(ctx, g.path()+"/hide", body, nil); err != nil {
		return err
	}
	g.IsHidden = true
	return nil
}

// Unhide 取消隐藏
func (g *GroupChannel) Unhide(ctx context.Context) error {
	if err := g.api().del(ctx, g.path()+"/hide", nil, nil); err != nil {
		return err
	}
	g.IsHidden = false
	return nil
}

// Refresh 重新拉取群组信息
func (g *GroupChannel) Refresh(ctx context.Context) error {
	var w wire.GroupChannel
	if err := g.api().get(ctx, g.path(), nil, &w); err != nil {
		return err
	}
	g.replace(w)
	return nil
}

// Update 修改群组属性，空字段不修改
func (g *GroupChannel) Update(ctx context.Context, params *GroupChannelParams) error {
	if params == nil {
		return ErrInvalidParameter
	}
	body := map[string]any{}
	setIf(body, "name", params.Name)
	setIf(body, "cover_url", params.CoverURL)
	setIf(body, "data", params.Data)
	setIf(body, "custom_type", params.CustomType)
	setIf(body, "access_code", params.AccessCode)
	if params.UpdateIsPublic {
		body["is_public"] = params.IsPublic
	}
	var w wire.GroupChannel
	if err := g.api().put(ctx, g.path(), body, &w); err != nil {
		return err
	}
	g.replace(w)
	return nil
}

func setIf(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}

// MarkAsRead 全部标为已读。已连接时走 WebSocket。
func (g *GroupChannel) MarkAsRead(ctx context.Context) error {
	if g.main.ConnectionState() == StateOpen {
		f, err := wire.NewFrame(cons.FrameReadAck, wire.ReadAckReq{})
		if err != nil {
			return newError(CodeInvalidParameter, err)
		}
		f.ChannelURL = g.ChannelURL
		f.ChannelType = string(ChannelTypeGroup)
		_, err = g.main.conn.Request(ctx, f)
		if !errors.Is(err, ErrNotConnected) {
			if err == nil {
				g.UnreadMessageCount, g.UnreadMentionCount = 0, 0
			}
			return err
		}
	}
	if err := g.api().post(ctx, g.path()+"/read", nil, nil); err != nil {
		return err
	}
	g.UnreadMessageCount, g.UnreadMentionCount = 0, 0
	return nil
}

// StartTyping 开始输入，需要已连接
func (g *GroupChannel) StartTyping(ctx context.Context) error {
	return g.typing(ctx, cons.FrameTypingStart)
}

// EndTyping 结束输入，需要已连接
func (g *GroupChannel) EndTyping(ctx context.Context) error {
	return g.typing(ctx, cons.FrameTypingEnd)
}

func (g *GroupChannel) typing(ctx context.Context, typ string) error {
	f := wire.Frame{Type: typ, ChannelURL: g.ChannelURL, ChannelType: string(ChannelTypeGroup)}
	_, err := g.main.conn.Request(ctx, f)
	return err
}

// CreateMemberListQuery 成员列表
func (g *GroupChannel) CreateMemberListQuery() *GroupChannelMemberListQuery {
	return newMemberListQuery(g.api(), g.ChannelURL)
}

// -------------------- 定时消息 --------------------

// CreateScheduledUserMessage 创建定时文本消息
func (g *GroupChannel) CreateScheduledUserMessage(ctx context.Context, params *ScheduledUserMessageParams) (*ScheduledUserMessage, error) {
	if params == nil || params.Message == "" || params.ScheduledAt.IsZero() {
		return nil, ErrInvalidParameter
	}
	req := map[string]any{
		"message":            params.Message,
		"data":               params.Data,
		"custom_type":        params.CustomType,
		"mentioned_user_ids": params.MentionedUserIDs,
		"meta_arrays":        metaArraysToWire(params.MetaArrays),
		"scheduled_at":       params.ScheduledAt.UnixMilli(),
	}
	var w wire.ScheduledMessage
	if err := g.api().post(ctx, g.path()+"/scheduled_messages", req, &w); err != nil {
		return nil, err
	}
	return scheduledFromWire(w), nil
}

// CancelScheduledMessage 取消还未发出的定时消息
func (g *GroupChannel) CancelScheduledMessage(ctx context.Context, scheduledMessageID uint64) error {
	if scheduledMessageID == 0 {
		return ErrInvalidParameter
	}
	path := g.path() + "/scheduled_messages/" + strconv.FormatUint(scheduledMessageID, 10)
	return g.api().del(ctx, path, nil, nil)
}

// ScheduledMessageListQuery 我在某群组的定时消息
type ScheduledMessageListQuery struct {
	pager[*ScheduledUserMessage]
	// StatusFilter 为空时返回全部状态
	StatusFilter ScheduledStatus
}

// CreateScheduledMessageListQuery 定时消息列表
func (g *GroupChannel) CreateScheduledMessageListQuery() *ScheduledMessageListQuery {
	q := &ScheduledMessageListQuery{}
	q.fetch = pageFetch(g.api(), g.path()+"/scheduled_messages", func() query {
		return query{}.str("status", string(q.StatusFilter))
	}, scheduledFromWire)
	return q
}
