package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, c := range []Cursor{{ID: 7}, {Key: 1700000000000, ID: 42}} {
		got, err := DecodeCursor(c.Encode())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestCursorEmpty(t *testing.T) {
	require.Equal(t, "", Cursor{}.Encode())
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Zero(t, c.ID)
}

func TestCursorInvalid(t *testing.T) {
	for _, tok := range []string{"!!", "YWJj", "MDow"} { // "abc", "0:0"
		_, err := DecodeCursor(tok)
		require.ErrorIs(t, err, ErrBadCursor, tok)
	}
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 5, NormalizeLimit(5))
	require.Equal(t, MaxLimit, NormalizeLimit(1000))
}
