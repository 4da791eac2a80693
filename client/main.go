package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cydxin/birdchat/client/cache"
	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// Main SDK 入口：登录、连接、频道与查询工厂、事件订阅。
//
// 使用示例:
//
//	c := client.NewMain(client.DefaultOptions("https://chat.example.com"))
//	me, err := c.Connect(ctx, "alice", accessToken)
//	ch, _, err := c.CreateGroupChannel(ctx, &client.GroupChannelParams{UserIDs: []string{"bob"}})
//	msg, stream := ch.SendUserMessage(ctx, &client.UserMessageParams{Message: "hi"})
type Main struct {
	opts Options
	log  *zap.Logger
	api  *restClient
	hub  *hub
	conn *ConnectionManager

	mu    sync.RWMutex
	user  *User
	cache *cache.Store
}

// NewMain 创建客户端，不发起任何网络请求
func NewMain(opts Options) *Main {
	opts = opts.withDefaults()
	c := &Main{
		opts: opts,
		log:  opts.Logger.Named("birdchat"),
	}
	c.api = newRESTClient(opts.APIHost, opts.HTTPClient, c.log)
	c.hub = newHub(c.log)
	c.conn = newConnectionManager(opts, c.hub, c.onEvent)
	return c
}

// Connect 用 access token 换 session token 并建立 WebSocket 连接
func (c *Main) Connect(ctx context.Context, userID, accessToken string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidParameter
	}
	var sess wire.Session
	body := map[string]string{"user_id": userID, "access_token": accessToken}
	if err := c.api.post(ctx, "/session", body, &sess); err != nil {
		return nil, err
	}
	c.api.setToken(sess.SessionToken)

	if err := c.conn.Connect(ctx, sess.SessionToken); err != nil {
		c.api.setToken("")
		return nil, err
	}

	u := userFromWire(sess.User)
	c.mu.Lock()
	c.user = &u
	c.mu.Unlock()

	if c.opts.CacheDir != "" {
		if err := c.openCache(u.UserID); err != nil {
			// 缓存不可用不影响连接
			c.log.Warn("open message cache failed", zap.Error(err))
		}
	}
	c.log.Info("connected", zap.String("user_id", u.UserID))
	return &u, nil
}

func (c *Main) openCache(userID string) error {
	if err := os.MkdirAll(c.opts.CacheDir, 0o755); err != nil {
		return err
	}
	st, err := cache.Open(filepath.Join(c.opts.CacheDir, "birdchat_"+safeName(userID)+".db"))
	if err != nil {
		return err
	}
	c.mu.Lock()
	old := c.cache
	c.cache = st
	c.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

// Disconnect 断开连接、取消重连、清除当前用户
func (c *Main) Disconnect(ctx context.Context) error {
	err := c.conn.Disconnect(ctx)
	c.api.setToken("")

	c.mu.Lock()
	c.user = nil
	st := c.cache
	c.cache = nil
	c.mu.Unlock()
	if st != nil {
		if cerr := st.Close(); cerr != nil {
			c.log.Warn("close message cache failed", zap.Error(cerr))
		}
	}
	return err
}

// CurrentUser 当前登录用户，未登录时为 nil
func (c *Main) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// ConnectionState 连接状态
func (c *Main) ConnectionState() ConnectionState { return c.conn.State() }

// Connection 底层连接
func (c *Main) Connection() *ConnectionManager { return c.conn }

// -------------------- 事件 --------------------

// ConnectionEvents 订阅重连事件
func (c *Main) ConnectionEvents() (<-chan ConnectionEvent, func()) {
	return c.hub.subscribeConnection()
}

// UserEvents 订阅用户级事件
func (c *Main) UserEvents() (<-chan UserEvent, func()) {
	return c.hub.subscribeUser()
}

// ChannelEvents 订阅某个频道的事件，channelURL 为空时订阅全部频道
func (c *Main) ChannelEvents(channelURL string) (<-chan ChannelEvent, func()) {
	return c.hub.subscribeChannel(channelURL)
}

func (c *Main) onEvent(f wire.Frame) {
	ev := c.hub.dispatch(f)
	if ev == nil {
		return
	}
	c.mu.RLock()
	st := c.cache
	c.mu.RUnlock()
	if st == nil {
		return
	}
	ctx := context.Background()
	var err error
	switch f.Event {
	case cons.EventMessageReceived, cons.EventMessageUpdated:
		var m wire.Message
		if err = f.Decode(&m); err == nil {
			err = st.Upsert(ctx, m)
		}
	case cons.EventMessageDeleted:
		err = st.Delete(ctx, ev.ChannelURL, ev.MessageID)
	case cons.EventChannelDeleted:
		err = st.DeleteChannel(ctx, ev.ChannelURL)
	}
	if err != nil {
		c.log.Warn("sync message cache failed", zap.String("event", f.Event), zap.Error(err))
	}
}

// CachedMessages 从本地缓存读取 ts（毫秒）之前的消息，未启用缓存时返回空
func (c *Main) CachedMessages(ctx context.Context, channelURL string, ts int64, limit int) ([]BaseMessage, error) {
	c.mu.RLock()
	st := c.cache
	c.mu.RUnlock()
	if st == nil {
		return nil, nil
	}
	ws, err := st.ListBefore(ctx, channelURL, ts, limit)
	if err != nil {
		return nil, err
	}
	return messagesFromWire(ws), nil
}

// -------------------- 用户 --------------------

// BlockUserID 拉黑
func (c *Main) BlockUserID(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.User
	if err := c.api.post(ctx, "/users/me/blocks", map[string]string{"user_id": userID}, &w); err != nil {
		return nil, err
	}
	u := userFromWire(w)
	return &u, nil
}

// BlockUser 拉黑
func (c *Main) BlockUser(ctx context.Context, u *User) (*User, error) {
	if u == nil {
		return nil, ErrInvalidParameter
	}
	return c.BlockUserID(ctx, u.UserID)
}

// UnblockUserID 取消拉黑
func (c *Main) UnblockUserID(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidParameter
	}
	return c.api.del(ctx, "/users/me/blocks/"+pathEscape(userID), nil, nil)
}

// UnblockUser 取消拉黑
func (c *Main) UnblockUser(ctx context.Context, u *User) error {
	if u == nil {
		return ErrInvalidParameter
	}
	return c.UnblockUserID(ctx, u.UserID)
}

// UpdateCurrentUserInfo 修改昵称和头像，空字符串表示不修改
func (c *Main) UpdateCurrentUserInfo(ctx context.Context, nickname, profileURL string) (*User, error) {
	body := map[string]string{}
	if nickname != "" {
		body["nickname"] = nickname
	}
	if profileURL != "" {
		body["profile_url"] = profileURL
	}
	var w wire.User
	if err := c.api.put(ctx, "/users/me", body, &w); err != nil {
		return nil, err
	}
	u := userFromWire(w)
	c.mu.Lock()
	if c.user != nil {
		c.user = &u
	}
	c.mu.Unlock()
	return &u, nil
}

// AddFriends 添加好友
func (c *Main) AddFriends(ctx context.Context, userIDs []string) ([]User, error) {
	if len(userIDs) == 0 {
		return nil, ErrInvalidParameter
	}
	var ws []wire.User
	if err := c.api.post(ctx, "/users/me/friends", map[string][]string{"user_ids": userIDs}, &ws); err != nil {
		return nil, err
	}
	return usersFromWire(ws), nil
}

// DeleteFriend 删除好友
func (c *Main) DeleteFriend(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidParameter
	}
	return c.api.del(ctx, "/users/me/friends/"+pathEscape(userID), nil, nil)
}

type countResp struct {
	Count int `json:"count"`
}

// GetChannelCount 我的群组数
func (c *Main) GetChannelCount(ctx context.Context, filter MemberStateFilter) (uint, error) {
	var r countResp
	if err := c.api.get(ctx, "/users/me/channel_count", query{}.str("state", filter.query()).values(), &r); err != nil {
		return 0, err
	}
	return nonNeg(r.Count), nil
}

// GetTotalUnreadChannelCount 有未读消息的群组数
func (c *Main) GetTotalUnreadChannelCount(ctx context.Context) (uint, error) {
	var r countResp
	if err := c.api.get(ctx, "/users/me/unread_channel_count", nil, &r); err != nil {
		return 0, err
	}
	return nonNeg(r.Count), nil
}

// GetTotalUnreadMessageCount 总未读消息数，params 为 nil 时统计全部群组
func (c *Main) GetTotalUnreadMessageCount(ctx context.Context, params *GroupChannelTotalUnreadMessageCountParams) (uint, error) {
	q := query{}
	if params != nil {
		q.list("custom_types", params.ChannelCustomTypes)
	}
	var r wire.UnreadCountPayload
	if err := c.api.get(ctx, "/users/me/unread_message_count", q.values(), &r); err != nil {
		return 0, err
	}
	return nonNeg(r.TotalCount), nil
}

// GetUnreadItemCount 按位集合一次取多项未读计数
func (c *Main) GetUnreadItemCount(ctx context.Context, key UnreadItemKey) (*UnreadItemCount, error) {
	if key <= 0 {
		return nil, ErrInvalidParameter
	}
	var w wire.UnreadItemCount
	if err := c.api.get(ctx, "/users/me/unread_item_count", query{}.num("key", int64(key)).values(), &w); err != nil {
		return nil, err
	}
	return unreadItemCountFromWire(&w), nil
}

// -------------------- 频道 --------------------

// CreateGroupChannel 创建群组。distinct 且成员集合已存在时返回已有频道，created=false。
func (c *Main) CreateGroupChannel(ctx context.Context, params *GroupChannelParams) (*GroupChannel, bool, error) {
	if params == nil {
		return nil, false, ErrInvalidParameter
	}
	body := map[string]any{
		"channel_url":  params.ChannelURL,
		"name":         params.Name,
		"cover_url":    params.CoverURL,
		"data":         params.Data,
		"custom_type":  params.CustomType,
		"user_ids":     params.UserIDs,
		"operator_ids": params.OperatorUserIDs,
		"is_distinct":  params.IsDistinct,
		"is_public":    params.IsPublic,
		"access_code":  params.AccessCode,
	}
	var w wire.GroupChannel
	if err := c.api.post(ctx, "/group_channels", body, &w); err != nil {
		return nil, false, err
	}
	return c.groupFromWire(w), w.Created, nil
}

// GetGroupChannel 按 URL 获取群组
func (c *Main) GetGroupChannel(ctx context.Context, channelURL string) (*GroupChannel, error) {
	if channelURL == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.GroupChannel
	if err := c.api.get(ctx, groupPath(channelURL), nil, &w); err != nil {
		return nil, err
	}
	return c.groupFromWire(w), nil
}

// CreateOpenChannel 创建开放频道
func (c *Main) CreateOpenChannel(ctx context.Context, params *OpenChannelParams) (*OpenChannel, error) {
	if params == nil {
		return nil, ErrInvalidParameter
	}
	body := map[string]any{
		"channel_url":  params.ChannelURL,
		"name":         params.Name,
		"cover_url":    params.CoverURL,
		"data":         params.Data,
		"custom_type":  params.CustomType,
		"operator_ids": params.OperatorUserIDs,
	}
	var w wire.OpenChannel
	if err := c.api.post(ctx, "/open_channels", body, &w); err != nil {
		return nil, err
	}
	return c.openFromWire(w), nil
}

// GetOpenChannel 按 URL 获取开放频道
func (c *Main) GetOpenChannel(ctx context.Context, channelURL string) (*OpenChannel, error) {
	if channelURL == "" {
		return nil, ErrInvalidParameter
	}
	var w wire.OpenChannel
	if err := c.api.get(ctx, openPath(channelURL), nil, &w); err != nil {
		return nil, err
	}
	return c.openFromWire(w), nil
}

func (c *Main) groupFromWire(w wire.GroupChannel) *GroupChannel {
	g := &GroupChannel{
		BaseChannel: BaseChannel{
			ChannelURL:  w.ChannelURL,
			ChannelType: ChannelTypeGroup,
			Name:        w.Name,
			CoverURL:    w.CoverURL,
			Data:        w.Data,
			CustomType:  w.CustomType,
			CreatedAt:   fromMillis(w.CreatedAt),
			IsFrozen:    w.IsFrozen,
			Operators:   usersFromWire(w.Operators),
			main:        c,
		},
		MemberCount:          w.MemberCount,
		JoinedMemberCount:    w.JoinedMemberCount,
		IsDistinct:           w.IsDistinct,
		IsPublic:             w.IsPublic,
		IsAccessCodeRequired: w.IsAccessCodeRequired,
		UnreadMessageCount:   nonNeg(w.UnreadMessageCount),
		UnreadMentionCount:   nonNeg(w.UnreadMentionCount),
		MyMemberState:        MemberState(w.MyMemberState),
		MyRole:               Role(w.MyRole),
		MyMutedState:         MutedState(w.MyMutedState),
		MyLastRead:           fromMillis(w.MyLastRead),
		IsHidden:             w.IsHidden,
		Inviter:              userPtrFromWire(w.Inviter),
	}
	if g.MyMemberState == "" {
		g.MyMemberState = MemberStateNone
	}
	if g.MyRole == "" {
		g.MyRole = RoleNone
	}
	if g.MyMutedState == "" {
		g.MyMutedState = MutedStateUnmuted
	}
	for _, m := range w.Members {
		g.Members = append(g.Members, memberFromWire(m))
	}
	if w.LastMessage != nil {
		g.LastMessage = messageFromWire(*w.LastMessage)
	}
	return g
}

func (c *Main) openFromWire(w wire.OpenChannel) *OpenChannel {
	return &OpenChannel{
		BaseChannel: BaseChannel{
			ChannelURL:  w.ChannelURL,
			ChannelType: ChannelTypeOpen,
			Name:        w.Name,
			CoverURL:    w.CoverURL,
			Data:        w.Data,
			CustomType:  w.CustomType,
			CreatedAt:   fromMillis(w.CreatedAt),
			IsFrozen:    w.IsFrozen,
			Operators:   usersFromWire(w.Operators),
			main:        c,
		},
		ParticipantCount: w.ParticipantCount,
	}
}

// -------------------- 查询 --------------------

// CreateApplicationUserListQuery 全部用户
func (c *Main) CreateApplicationUserListQuery() *ApplicationUserListQuery {
	return newApplicationUserListQuery(c.api)
}

// CreateBlockedUserListQuery 我拉黑的用户
func (c *Main) CreateBlockedUserListQuery() *BlockedUserListQuery {
	return &BlockedUserListQuery{newUserListQuery(c.api, "/users/me/blocks", nil)}
}

// CreateFriendListQuery 我的好友
func (c *Main) CreateFriendListQuery() *FriendListQuery {
	return &FriendListQuery{newUserListQuery(c.api, "/users/me/friends", nil)}
}

// CreateMyGroupChannelListQuery 我的群组
func (c *Main) CreateMyGroupChannelListQuery() *GroupChannelListQuery {
	return newGroupChannelListQuery(c)
}

// CreatePublicGroupChannelListQuery 公开群组
func (c *Main) CreatePublicGroupChannelListQuery() *PublicGroupChannelListQuery {
	return newPublicGroupChannelListQuery(c)
}

// CreateOpenChannelListQuery 开放频道
func (c *Main) CreateOpenChannelListQuery() *OpenChannelListQuery {
	return newOpenChannelListQuery(c)
}

// CreateMessageSearchQuery 按关键字搜索消息
func (c *Main) CreateMessageSearchQuery(keyword string) (*MessageSearchQuery, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, newError(CodeInvalidParameter, errors.New("keyword is empty"))
	}
	return newMessageSearchQuery(c.api, keyword), nil
}
