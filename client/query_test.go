package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPager_InProgress(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := &pager[int]{fetch: func(ctx context.Context, next string, limit int) ([]int, string, error) {
		close(started)
		<-release
		return []int{1}, "", nil
	}}

	done := make(chan error, 1)
	go func() {
		_, err := p.LoadNextPage(context.Background())
		done <- err
	}()
	<-started
	assert.True(t, p.IsLoading())

	_, err := p.LoadNextPage(context.Background())
	assert.True(t, errors.Is(err, ErrQueryInProgress))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, p.IsLoading())
	assert.False(t, p.HasNext())
}

func TestPager_EmptyAfterLastPage(t *testing.T) {
	calls := 0
	p := &pager[int]{fetch: func(ctx context.Context, next string, limit int) ([]int, string, error) {
		calls++
		if next == "" {
			return []int{1, 2}, "p2", nil
		}
		return []int{3}, "", nil
	}}
	ctx := context.Background()

	got, err := p.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.True(t, p.HasNext())

	got, err = p.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)
	assert.False(t, p.HasNext())

	got, err = p.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 2, calls)
}

func TestPager_ErrorKeepsCursor(t *testing.T) {
	fail := true
	var seen []string
	p := &pager[int]{fetch: func(ctx context.Context, next string, limit int) ([]int, string, error) {
		seen = append(seen, next)
		if fail {
			return nil, "", ErrRequestFailed
		}
		return []int{1}, "", nil
	}}
	_, err := p.LoadNextPage(context.Background())
	assert.Error(t, err)
	assert.True(t, p.HasNext())

	fail = false
	_, err = p.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, seen)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 20, clampLimit(-3))
	assert.Equal(t, 50, clampLimit(50))
	assert.Equal(t, 100, clampLimit(1000))
}

func TestPreviousMessageListQuery_Pages(t *testing.T) {
	fs := newFakeServer(t)
	var anchors capture[[]string]
	fs.on(http.MethodGet, "/group_channels/group_a/messages", func(r *http.Request) (int, any) {
		q := r.URL.Query()
		anchors.set(append(anchors.get(), q.Get("message_id")))
		limit, _ := strconv.Atoi(q.Get("prev_limit"))
		anchor, _ := strconv.ParseUint(q.Get("message_id"), 10, 64)
		if anchor == 0 {
			anchor = 6
		}
		// 1..5 共五条，返回 anchor 之前的 limit 条（升序）
		var out []wire.Message
		for id := anchor - 1; id >= 1 && len(out) < limit; id-- {
			out = append([]wire.Message{{MessageID: id, Type: cons.MessageTypeUser, ChannelURL: "group_a"}}, out...)
		}
		return 0, out
	})
	c := connectedMain(t, fs)

	q := newPreviousMessageListQuery(c.api, ChannelTypeGroup, "group_a")
	q.Limit = 2
	ctx := context.Background()

	var ids []uint64
	for q.HasNext() {
		page, err := q.LoadNextPage(ctx)
		require.NoError(t, err)
		for _, m := range page {
			ids = append(ids, m.MessageID())
		}
	}
	assert.Equal(t, []uint64{4, 5, 2, 3, 1}, ids)
	assert.Equal(t, []string{"", "4", "2"}, anchors.get())
}

func TestApplicationUserListQuery_Filters(t *testing.T) {
	fs := newFakeServer(t)
	var raw capture[string]
	fs.on(http.MethodGet, "/users", func(r *http.Request) (int, any) {
		raw.set(r.URL.RawQuery)
		return 0, wire.Page[wire.User]{Items: []wire.User{{UserID: "bob"}}}
	})
	c := connectedMain(t, fs)

	q := c.CreateApplicationUserListQuery()
	q.UserIDsFilter = []string{"bob", "carol"}
	q.NicknameStartsWithFilter = "b"
	users, err := q.LoadNextPage(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].UserID)
	assert.False(t, q.HasNext())
	assert.Contains(t, raw.get(), "user_ids=bob&user_ids=carol")
	assert.Contains(t, raw.get(), "nickname_startswith=b")
	assert.Contains(t, raw.get(), "limit=20")
}
