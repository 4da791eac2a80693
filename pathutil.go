package birdchat

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// appDir 可执行文件所在目录。编译后的二进制拿不到源码目录，线上部署以它为应用根目录。
func appDir() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	return os.TempDir()
}

// resolveDir 按优先级确定目录并确保存在：
//  1. 显式配置
//  2. <exeDir>/<fallback>
//  3. os.TempDir()/birdchat/<fallback>（前两者不可写时兜底）
func resolveDir(log *zap.Logger, configured, fallback string) string {
	candidates := []string{}
	if d := strings.TrimSpace(configured); d != "" {
		candidates = append(candidates, d)
	}
	candidates = append(candidates,
		filepath.Join(appDir(), filepath.FromSlash(fallback)),
		filepath.Join(os.TempDir(), "birdchat", filepath.FromSlash(fallback)),
	)
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("create dir failed", zap.String("dir", dir), zap.Error(err))
			continue
		}
		return dir
	}
	return candidates[len(candidates)-1]
}

// defaultURLPrefix 默认写库为相对路径，交给宿主应用的静态资源路由处理。
func defaultURLPrefix(configured, fallback string) string {
	if p := strings.TrimSpace(configured); p != "" {
		return p
	}
	return fallback
}

// addStatic 记录相对 URL 前缀对应的本地目录，绝对地址（CDN）不由本服务提供
func (c *ChatEngine) addStatic(prefix, dir string) {
	if prefix == "" || dir == "" || strings.Contains(prefix, "://") {
		return
	}
	c.staticDirs["/"+strings.Trim(prefix, "/")] = dir
}
