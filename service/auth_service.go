package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
)

// AuthService 提供鉴权核心能力，供中间件/WS 握手使用。
// - 用 user_id + access token 换 session token（Login）
// - 解析 token（Bearer 优先，其次 query）
// - 校验 token -> 内部 userID（Redis）
// - 注销
type AuthService struct {
	*Service
	token *TokenService
	users *UserService
}

func NewAuthService(s *Service, users *UserService) *AuthService {
	var a AuthService
	if s != nil {
		a.Service = s
		a.token = NewTokenService(s.RDB)
	}
	a.users = users
	return &a
}

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate 根据 session token 获取内部 userID。
func (a *AuthService) Authenticate(ctx context.Context, token string) (uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrSessionInvalid
	}
	return a.token.Resolve(ctx, token)
}

// Login 校验 access token 并签发 session token。
func (a *AuthService) Login(ctx context.Context, userID, accessToken string) (*wire.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidParam
	}
	u, err := a.users.Authenticate(ctx, userID, accessToken)
	if err != nil {
		return nil, err
	}
	token, err := a.token.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	a.log().Info("session issued", zap.String("user_id", u.UserID))
	return &wire.Session{SessionToken: token, User: a.toWireUser(u)}, nil
}

// Logout 注销单个 session token。
func (a *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.token.Revoke(ctx, token)
}

// LogoutAll 注销用户全部 session。
func (a *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	return a.token.RevokeAll(ctx, userID)
}
