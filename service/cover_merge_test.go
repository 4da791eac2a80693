package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := solid(10, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMergeCover_HTTPTile(t *testing.T) {
	red := pngOf(t, color.RGBA{R: 0xFF, A: 0xFF})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(red)
	}))
	defer srv.Close()

	res, err := MergeCover(context.Background(), []string{srv.URL}, CoverMergeConfig{OutputDir: t.TempDir(), CanvasSize: 64, URLPrefix: "/files/covers/"})
	require.NoError(t, err)
	require.Equal(t, "/files/covers/"+filepath.Base(res.FilePath), res.URL)

	f, err := os.Open(res.FilePath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	merged, _, err := image.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := merged.At(32, 32).RGBA()
	require.Greater(t, r, g)
	require.Greater(t, r, b)
}

func TestMergeCover_LocalPathRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), pngOf(t, color.RGBA{G: 0xFF, A: 0xFF}), 0o644))

	res, err := MergeCover(context.Background(), []string{"a.png", ""}, CoverMergeConfig{OutputDir: root, LocalPathRoot: root, CanvasSize: 64})
	require.NoError(t, err)
	require.FileExists(t, res.FilePath)
}

func TestMergeCover_SameSetSameName(t *testing.T) {
	require.Equal(t, coverName([]string{"a", "b"}), coverName([]string{"b", "a"}))
	require.NotEqual(t, coverName([]string{"a"}), coverName([]string{"a", "b"}))
}

func TestMergeCover_FailIfAllFetchFailed(t *testing.T) {
	_, err := MergeCover(context.Background(), []string{"http://127.0.0.1:1/none"}, CoverMergeConfig{OutputDir: t.TempDir(), FailIfAllFetchFailed: true})
	require.Error(t, err)
}

func TestGridSide(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 4: 2, 5: 3, 9: 3} {
		require.Equal(t, want, gridSide(n), "n=%d", n)
	}
}
