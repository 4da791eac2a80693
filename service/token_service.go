package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// 默认 session 过期时间
	defaultSessionTTL = 7 * 24 * time.Hour
)

// TokenService 负责 session token 的签发、校验与注销。
// Redis Key 设计：
// - bc:session:{token} -> 内部 userID (String, TTL)
// - bc:user_sessions:{userID} -> Set(token...) (Set, TTL 略大于 token)
//
// 单 token 注销：DEL + SREM；全端注销：SMEMBERS 再批量 DEL。
type TokenService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTokenService(rdb *redis.Client) *TokenService {
	return &TokenService{rdb: rdb, ttl: defaultSessionTTL}
}

func (s *TokenService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

func sessionKey(token string) string {
	return "bc:session:" + token
}

func userSessionsKey(userID uint64) string {
	return fmt.Sprintf("bc:user_sessions:%d", userID)
}

// newOpaqueToken 32 字节随机数的 hex
func newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue 为用户签发新的 session token
func (s *TokenService) Issue(ctx context.Context, userID uint64) (string, error) {
	if err := s.ensure(); err != nil {
		return "", err
	}
	token, err := newOpaqueToken()
	if err != nil {
		return "", err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(token), strconv.FormatUint(userID, 10), s.ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl+24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve 根据 token 取内部 userID，不存在返回 ErrSessionInvalid
func (s *TokenService) Resolve(ctx context.Context, token string) (uint64, error) {
	if err := s.ensure(); err != nil {
		return 0, err
	}
	val, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionInvalid
	}
	if err != nil {
		return 0, err
	}
	uid, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, ErrSessionInvalid
	}
	return uid, nil
}

// Refresh 滑动续期
func (s *TokenService) Refresh(ctx context.Context, token string) error {
	uid, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Expire(ctx, sessionKey(token), s.ttl)
	pipe.Expire(ctx, userSessionsKey(uid), s.ttl+24*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

// Revoke 注销单个 token
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if err := s.ensure(); err != nil {
		return err
	}
	uid, err := s.Resolve(ctx, token)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	if err == nil {
		pipe.SRem(ctx, userSessionsKey(uid), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeAll 注销用户全部 token
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
	if err := s.ensure(); err != nil {
		return err
	}
	tokens, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, t := range tokens {
		pipe.Del(ctx, sessionKey(t))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
