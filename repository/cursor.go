package repository

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// ErrBadCursor next token 无法解析
var ErrBadCursor = errors.New("invalid next token")

// 分页上限
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor 分页游标。ID 为最后一行主键；Key 为排序键（按主键排序时为 0）。
type Cursor struct {
	Key uint64
	ID  uint64
}

// Encode 编码为对外 next token
func (c Cursor) Encode() string {
	if c.ID == 0 {
		return ""
	}
	raw := strconv.FormatUint(c.ID, 10)
	if c.Key != 0 {
		raw = strconv.FormatUint(c.Key, 10) + ":" + raw
	}
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor 解析 next token，空串返回零值
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrBadCursor
	}
	parts := strings.SplitN(string(b), ":", 2)
	var c Cursor
	if len(parts) == 2 {
		if c.Key, err = strconv.ParseUint(parts[0], 10, 64); err != nil {
			return Cursor{}, ErrBadCursor
		}
		parts = parts[1:]
	}
	if c.ID, err = strconv.ParseUint(parts[0], 10, 64); err != nil || c.ID == 0 {
		return Cursor{}, ErrBadCursor
	}
	return c, nil
}

// NormalizeLimit 把 limit 限制在 [1, MaxLimit]，0 或负数取默认值
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
