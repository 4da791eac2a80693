package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cydxin/birdchat/response"
	"github.com/gin-gonic/gin"
)

const (
	// ContextUserIDKey gin context 里保存内部 user id（uint64）的 key
	ContextUserIDKey = "user_id"
	ContextTokenKey  = "token"
)

// Authenticator session token -> 内部 user id，*service.AuthService 实现了它
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

// AuthOptions 可选配置。
type AuthOptions struct {
	// HeaderKey 默认 Authorization
	HeaderKey string
	// QueryKey 默认 token
	QueryKey string
}

func (o *AuthOptions) withDefaults() AuthOptions {
	var out AuthOptions
	if o != nil {
		out = *o
	}
	if out.HeaderKey == "" {
		out.HeaderKey = "Authorization"
	}
	if out.QueryKey == "" {
		out.QueryKey = "token"
	}
	return out
}

/*
	GinAuthMiddleware Gin 鉴权中间件：

- 优先从 Authorization: Bearer <token> 读取
- 如果没有，再从 query 参数读取（默认 token=xxx）
- 校验通过后把 user id 和 token 写入 gin.Context

使用：router.Use(middleware.GinAuthMiddleware(authService, nil))
*/
func GinAuthMiddleware(auth Authenticator, opt *AuthOptions) gin.HandlerFunc {
	cfg := opt.withDefaults()

	return func(c *gin.Context) {
		if auth == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(response.CodeInternalError, "auth service is nil"))
			return
		}

		token := bearer(c.GetHeader(cfg.HeaderKey))
		if token == "" {
			token = strings.TrimSpace(c.Query(cfg.QueryKey))
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "missing token"))
			return
		}

		uid, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, err.Error()))
			return
		}

		c.Set(ContextUserIDKey, uid)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

func bearer(h string) string {
	parts := strings.SplitN(strings.TrimSpace(h), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
