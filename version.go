package birdchat

import (
	"strconv"
	"strings"
)

// buildVersion 构建时通过
//
//	-ldflags "-X github.com/cydxin/birdchat.buildVersion=3.1.0"
//
// 覆盖，只在链接期设置，运行期只读。
var buildVersion = "3.0.0"

// VersionString 可打印的版本号
func VersionString() string {
	return buildVersion
}

// VersionBytes 版本号的字节形式，每次返回新切片
func VersionBytes() []byte {
	return []byte(buildVersion)
}

// VersionNumber 数值版本，取 major.minor。无法解析时返回 0。
func VersionNumber() float64 {
	return parseVersionNumber(buildVersion)
}

func parseVersionNumber(v string) float64 {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) == 0 || parts[0] == "" {
		return 0
	}
	s := parts[0]
	if len(parts) > 1 {
		s += "." + parts[1]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
