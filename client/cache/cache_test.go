package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cydxin/birdchat/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func msg(url string, id uint64, ts int64, text string) wire.Message {
	return wire.Message{MessageID: id, ChannelURL: url, Type: "MESG", Message: text, CreatedAt: ts}
}

func TestStore_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, s.Upsert(ctx, msg("group_a", i, int64(i*1000), "m")))
	}
	require.NoError(t, s.Upsert(ctx, msg("group_b", 9, 9000, "other")))

	got, err := s.ListBefore(ctx, "group_a", 0, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{got[0].MessageID, got[1].MessageID, got[2].MessageID})

	got, err = s.ListBefore(ctx, "group_a", 3000, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].MessageID)
}

func TestStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Upsert(ctx, msg("group_a", 1, 1000, "before")))
	require.NoError(t, s.Upsert(ctx, msg("group_a", 1, 1000, "after")))

	got, err := s.ListBefore(ctx, "group_a", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].Message)
}

func TestStore_SkipsUnsent(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Upsert(ctx, msg("group_a", 0, 1000, "pending")))
	got, err := s.ListBefore(ctx, "group_a", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Upsert(ctx, msg("group_a", 1, 1000, "x")))
	require.NoError(t, s.Upsert(ctx, msg("group_a", 2, 2000, "y")))
	require.NoError(t, s.Delete(ctx, "group_a", 1))

	got, err := s.ListBefore(ctx, "group_a", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].MessageID)

	require.NoError(t, s.DeleteChannel(ctx, "group_a"))
	got, err = s.ListBefore(ctx, "group_a", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
