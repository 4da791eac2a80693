package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// 群组封面最多取的成员头像数
const maxCoverTiles = 9

// CoverMergeConfig 群组频道默认封面合成配置。
// 未设置封面的群组创建时，取前 9 位成员头像拼成九宫格写入 OutputDir，
// cover_url 为 URLPrefix + 文件名。
type CoverMergeConfig struct {
	CanvasSize int           // 画布边长（像素）
	Padding    int           // 外边距
	Gap        int           // 格子间距
	Timeout    time.Duration // 单个头像下载超时
	OutputDir  string        // 为空则使用 os.TempDir()/birdchat-covers

	// LocalPathRoot 解析相对路径头像（例如上传目录里的 files/xxx.png）
	LocalPathRoot string

	// URLPrefix 对外访问前缀；为空则直接返回文件名
	URLPrefix string

	// Headers 拉取头像时附带的请求头（私有 CDN、鉴权网关）
	Headers   map[string]string
	UserAgent string

	// FailIfAllFetchFailed 全部头像都拉取失败时返回 error，而不是生成全灰封面
	FailIfAllFetchFailed bool
}

func (c CoverMergeConfig) withDefaults() CoverMergeConfig {
	out := c
	if out.CanvasSize <= 0 {
		out.CanvasSize = 256
	}
	if out.Padding <= 0 {
		out.Padding = 8
	}
	if out.Gap <= 0 {
		out.Gap = 4
	}
	if out.Timeout <= 0 {
		out.Timeout = 5 * time.Second
	}
	if strings.TrimSpace(out.OutputDir) == "" {
		out.OutputDir = filepath.Join(os.TempDir(), "birdchat-covers")
	}
	return out
}

// CoverResult 合成结果
type CoverResult struct {
	URL      string
	FilePath string
}

// MergeCover 把成员头像拼成一张 PNG。空字符串用灰色占位。
// 同一组头像（不论顺序）生成同一个文件名。
func MergeCover(ctx context.Context, profileURLs []string, cfg CoverMergeConfig) (*CoverResult, error) {
	cfg = cfg.withDefaults()

	urls := make([]string, 0, maxCoverTiles)
	for _, u := range profileURLs {
		urls = append(urls, strings.TrimSpace(u))
		if len(urls) == maxCoverTiles {
			break
		}
	}
	if len(urls) == 0 {
		urls = []string{""}
	}

	tiles := make([]image.Image, len(urls))
	errs := make([]error, len(urls))
	client := &http.Client{Timeout: cfg.Timeout}
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			tiles[i], errs[i] = loadTile(gctx, client, u, cfg)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	var lastErr error
	for i := range tiles {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
		}
		if tiles[i] == nil {
			tiles[i] = solid(128, color.RGBA{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF})
		}
	}
	if cfg.FailIfAllFetchFailed && failed == len(urls) && lastErr != nil {
		return nil, fmt.Errorf("all cover tiles failed: %w", lastErr)
	}

	canvas := compose(tiles, cfg)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	name := coverName(urls)
	outPath := filepath.Join(cfg.OutputDir, name)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	url := name
	if p := strings.TrimSuffix(strings.TrimSpace(cfg.URLPrefix), "/"); p != "" {
		url = p + "/" + name
	}
	return &CoverResult{URL: url, FilePath: outPath}, nil
}

func coverName(urls []string) string {
	sorted := sortedStrings(urls)
	h := sha1.New()
	for _, u := range sorted {
		_, _ = io.WriteString(h, u)
		_, _ = io.WriteString(h, "|")
	}
	return hex.EncodeToString(h.Sum(nil)) + ".png"
}

// gridSide 1 张单格，2-4 张 2x2，其余 3x3
func gridSide(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 4:
		return 2
	default:
		return 3
	}
}

func compose(tiles []image.Image, cfg CoverMergeConfig) *image.RGBA {
	canvas := solid(cfg.CanvasSize, color.RGBA{R: 0xF2, G: 0xF2, B: 0xF2, A: 0xFF})

	side := gridSide(len(tiles))
	cell := (cfg.CanvasSize - 2*cfg.Padding - (side-1)*cfg.Gap) / side
	if cell <= 0 {
		cell = 1
	}
	rows := (len(tiles) + side - 1) / side
	gridW := side*cell + (side-1)*cfg.Gap
	gridH := rows*cell + (rows-1)*cfg.Gap
	x0 := (cfg.CanvasSize - gridW) / 2
	y0 := (cfg.CanvasSize - gridH) / 2

	for i, img := range tiles {
		x := x0 + (i%side)*(cell+cfg.Gap)
		y := y0 + (i/side)*(cell+cfg.Gap)
		draw.Draw(canvas, image.Rect(x, y, x+cell, y+cell), scale(img, cell), image.Point{}, draw.Over)
	}
	return canvas
}

func loadTile(ctx context.Context, client *http.Client, url string, cfg CoverMergeConfig) (image.Image, error) {
	switch {
	case url == "":
		return nil, nil
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return fetchTile(ctx, client, url, cfg)
	case strings.HasPrefix(url, "file://"):
		return decodeFile(strings.TrimPrefix(url, "file://"))
	}
	if root := strings.TrimSpace(cfg.LocalPathRoot); root != "" && !filepath.IsAbs(url) {
		if img, err := decodeFile(filepath.Join(root, filepath.FromSlash(url))); err == nil {
			return img, nil
		}
	}
	return decodeFile(url)
}

func fetchTile(ctx context.Context, client *http.Client, url string, cfg CoverMergeConfig) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	for k, v := range cfg.Headers {
		if k = strings.TrimSpace(k); k != "" {
			req.Header.Set(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	ct := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("fetch %s: content-type %s", url, ct)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, 5<<20))
	return img, err
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(io.LimitReader(f, 10<<20))
	return img, err
}

func solid(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// scale 最近邻缩放到 size x size
func scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return dst
	}
	for y := 0; y < size; y++ {
		sy := sb.Min.Y + y*sb.Dy()/size
		for x := 0; x < size; x++ {
			dst.Set(x, y, src.At(sb.Min.X+x*sb.Dx()/size, sy))
		}
	}
	return dst
}
