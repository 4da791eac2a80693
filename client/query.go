package client

import (
	"context"
	"strconv"
	"sync"

	"github.com/cydxin/birdchat/wire"
)

// fetchFunc 取一页，返回下一页游标；游标为空表示没有更多
type fetchFunc[T any] func(ctx context.Context, next string, limit int) ([]T, string, error)

// pager 各分页查询的公共实现。Limit 默认 20，最大 100。
type pager[T any] struct {
	Limit int

	mu      sync.Mutex
	loading bool
	done    bool
	next    string
	fetch   fetchFunc[T]
}

// LoadNextPage 取下一页。正在加载时返回 ErrQueryInProgress，取完后返回空切片。
func (p *pager[T]) LoadNextPage(ctx context.Context) ([]T, error) {
	p.mu.Lock()
	if p.loading {
		p.mu.Unlock()
		return nil, ErrQueryInProgress
	}
	if p.done {
		p.mu.Unlock()
		return []T{}, nil
	}
	p.loading = true
	next, limit := p.next, clampLimit(p.Limit)
	p.mu.Unlock()

	items, nextToken, err := p.fetch(ctx, next, limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
	if err != nil {
		return nil, err
	}
	p.next = nextToken
	p.done = nextToken == ""
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// HasNext 是否还有下一页
func (p *pager[T]) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

// IsLoading 是否正在加载
func (p *pager[T]) IsLoading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}

// pageFetch 适配 GET path?next=&limit= 返回 wire.Page 的接口
func pageFetch[W, T any](api *restClient, path string, params func() query, conv func(W) T) fetchFunc[T] {
	return func(ctx context.Context, next string, limit int) ([]T, string, error) {
		q := query{}
		if params != nil {
			q = params()
		}
		q.str("next", next).num("limit", int64(limit))
		var page wire.Page[W]
		if err := api.get(ctx, path, q.values(), &page); err != nil {
			return nil, "", err
		}
		out := make([]T, 0, len(page.Items))
		for _, w := range page.Items {
			out = append(out, conv(w))
		}
		return out, page.Next, nil
	}
}

// -------------------- 用户 --------------------

// UserListQuery 用户列表分页，各用户查询共用
type UserListQuery struct {
	pager[User]
}

func newUserListQuery(api *restClient, path string, params func() query) *UserListQuery {
	q := &UserListQuery{}
	q.fetch = pageFetch(api, path, params, userFromWire)
	return q
}

// ApplicationUserListQuery 全部用户，可按 user id、昵称前缀、元数据过滤
type ApplicationUserListQuery struct {
	pager[User]
	UserIDsFilter            []string
	NicknameStartsWithFilter string
	MetaDataFilterKey        string
	MetaDataFilterValues     []string
}

// BannedUserListQuery 频道封禁列表
type BannedUserListQuery struct{ *UserListQuery }

// BlockedUserListQuery 我拉黑的用户
type BlockedUserListQuery struct{ *UserListQuery }

// MutedUserListQuery 频道禁言列表
type MutedUserListQuery struct{ *UserListQuery }

// OperatorListQuery 频道管理员
type OperatorListQuery struct{ *UserListQuery }

// ParticipantListQuery 开放频道在场用户
type ParticipantListQuery struct{ *UserListQuery }

// FriendListQuery 好友列表
type FriendListQuery struct{ *UserListQuery }

// -------------------- 频道 --------------------

// GroupChannelListOrder 我的群组排序方式
type GroupChannelListOrder string

const (
	OrderLatestLastMessage GroupChannelListOrder = "latest_last_message"
	OrderChronological     GroupChannelListOrder = "chronological"
)

// GroupChannelListQuery 我的群组
type GroupChannelListQuery struct {
	pager[*GroupChannel]
	IncludeEmpty      bool
	MemberStateFilter MemberStateFilter
	CustomTypesFilter []string
	ChannelNameFilter string
	ChannelURLsFilter []string
	IncludeHidden     bool
	Order             GroupChannelListOrder
}

// PublicGroupChannelListQuery 公开群组
type PublicGroupChannelListQuery struct {
	pager[*GroupChannel]
	IncludeEmpty      bool
	CustomTypesFilter []string
	ChannelNameFilter string
}

// GroupChannelMemberListQuery 群组成员
type GroupChannelMemberListQuery struct {
	pager[Member]
	OperatorFilter           OperatorFilter
	MutedMemberFilter        bool
	NicknameStartsWithFilter string
}

// OperatorFilter 成员列表按角色过滤
type OperatorFilter string

const (
	OperatorFilterAll         OperatorFilter = "all"
	OperatorFilterOperator    OperatorFilter = "operator"
	OperatorFilterNonOperator OperatorFilter = "nonoperator"
)

// OpenChannelListQuery 开放频道
type OpenChannelListQuery struct {
	pager[*OpenChannel]
	NameKeyword string
	URLKeyword  string
	CustomType  string
}

// -------------------- 消息 --------------------

// MessageListQuery 消息分页的公共实现
type MessageListQuery struct {
	pager[BaseMessage]
}

// PreviousMessageListQuery 从最新往前翻页
type PreviousMessageListQuery struct {
	MessageListQuery
	Reverse           bool
	MessageTypeFilter MessageTypeFilter
	CustomTypeFilter  string
	SenderUserIDs     []string
	IncludeMetaArray  bool
	IncludeReactions  bool
}

// MessageSearchQuery 按关键字搜索我加入的群组
type MessageSearchQuery struct {
	MessageListQuery
	Keyword    string
	ChannelURL string
	ExactMatch bool
	// 毫秒时间戳，0 表示不限
	MessageTimestampFrom int64
	MessageTimestampTo   int64
}

// -------------------- 构造 --------------------

func newApplicationUserListQuery(api *restClient) *ApplicationUserListQuery {
	q := &ApplicationUserListQuery{}
	q.fetch = pageFetch(api, "/users", func() query {
		return query{}.
			list("user_ids", q.UserIDsFilter).
			str("nickname_startswith", q.NicknameStartsWithFilter).
			str("meta_data_key", q.MetaDataFilterKey).
			list("meta_data_values", q.MetaDataFilterValues)
	}, userFromWire)
	return q
}

func newGroupChannelListQuery(c *Main) *GroupChannelListQuery {
	q := &GroupChannelListQuery{Order: OrderLatestLastMessage}
	q.fetch = pageFetch(c.api, "/group_channels", func() query {
		return query{}.
			flag("include_empty", q.IncludeEmpty).
			str("member_state", q.MemberStateFilter.query()).
			list("custom_types", q.CustomTypesFilter).
			str("name_contains", q.ChannelNameFilter).
			list("channel_urls", q.ChannelURLsFilter).
			flag("show_hidden", q.IncludeHidden).
			str("order", string(q.Order))
	}, c.groupFromWire)
	return q
}

func newPublicGroupChannelListQuery(c *Main) *PublicGroupChannelListQuery {
	q := &PublicGroupChannelListQuery{}
	q.fetch = pageFetch(c.api, "/group_channels/public", func() query {
		return query{}.
			flag("include_empty", q.IncludeEmpty).
			list("custom_types", q.CustomTypesFilter).
			str("name_contains", q.ChannelNameFilter)
	}, c.groupFromWire)
	return q
}

func newOpenChannelListQuery(c *Main) *OpenChannelListQuery {
	q := &OpenChannelListQuery{}
	q.fetch = pageFetch(c.api, "/open_channels", func() query {
		return query{}.
			str("name_keyword", q.NameKeyword).
			str("url_keyword", q.URLKeyword).
			str("custom_type", q.CustomType)
	}, c.openFromWire)
	return q
}

func newMemberListQuery(api *restClient, url string) *GroupChannelMemberListQuery {
	q := &GroupChannelMemberListQuery{OperatorFilter: OperatorFilterAll}
	q.fetch = pageFetch(api, groupPath(url)+"/members", func() query {
		return query{}.
			str("operator_filter", string(q.OperatorFilter)).
			flag("muted_only", q.MutedMemberFilter).
			str("nickname_startswith", q.NicknameStartsWithFilter)
	}, memberFromWire)
	return q
}

func newPreviousMessageListQuery(api *restClient, t ChannelType, url string) *PreviousMessageListQuery {
	q := &PreviousMessageListQuery{}
	q.fetch = func(ctx context.Context, next string, limit int) ([]BaseMessage, string, error) {
		anchor, _ := strconv.ParseUint(next, 10, 64)
		params := query{}.
			num("message_id", int64(anchor)).
			num("prev_limit", int64(limit)).
			str("message_type", q.MessageTypeFilter.query()).
			str("custom_type", q.CustomTypeFilter).
			list("sender_ids", q.SenderUserIDs).
			flag("include_meta_array", q.IncludeMetaArray).
			flag("include_reactions", q.IncludeReactions)
		if anchor == 0 {
			params.flag("include", true)
		}
		var ws []wire.Message
		if err := api.get(ctx, channelPath(t, url)+"/messages", params.values(), &ws); err != nil {
			return nil, "", err
		}
		msgs := messagesFromWire(ws)
		// 服务端按时间升序返回，最早的一条作为下一页锚点
		nextToken := ""
		if len(ws) >= limit && len(ws) > 0 {
			nextToken = strconv.FormatUint(ws[0].MessageID, 10)
		}
		if q.Reverse {
			for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
				msgs[i], msgs[j] = msgs[j], msgs[i]
			}
		}
		return msgs, nextToken, nil
	}
	return q
}

func newMessageSearchQuery(api *restClient, keyword string) *MessageSearchQuery {
	q := &MessageSearchQuery{Keyword: keyword}
	q.fetch = pageFetch(api, "/search/messages", func() query {
		return query{}.
			str("keyword", q.Keyword).
			str("channel_url", q.ChannelURL).
			flag("exact_match", q.ExactMatch).
			num("message_ts_from", q.MessageTimestampFrom).
			num("message_ts_to", q.MessageTimestampTo)
	}, messageFromWire)
	return q
}
