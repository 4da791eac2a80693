package birdchat

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cydxin/birdchat/middleware"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorCodes service 错误 -> 业务状态码
var errorCodes = []struct {
	err  error
	code int
}{
	{service.ErrInvalidParam, response.CodeParamError},
	{service.ErrScheduleInvalid, response.CodeParamError},
	{service.ErrUserNotFound, response.CodeUserNotFound},
	{service.ErrAccessTokenInvalid, response.CodeAccessTokenError},
	{service.ErrSessionInvalid, response.CodeTokenInvalid},
	{service.ErrChannelNotFound, response.CodeChannelNotFound},
	{service.ErrMessageNotFound, response.CodeMessageNotFound},
	{service.ErrNotMember, response.CodeNotMember},
	{service.ErrNotOperator, response.CodePermissionDeny},
	{service.ErrNotSender, response.CodePermissionDeny},
	{service.ErrChannelNotPublic, response.CodePermissionDeny},
	{service.ErrChannelFrozen, response.CodeChannelFrozen},
	{service.ErrUserMuted, response.CodeUserMuted},
	{service.ErrUserBanned, response.CodeUserBanned},
	{service.ErrUserBlocked, response.CodeUserBlocked},
	{service.ErrAccessCodeInvalid, response.CodeAccessCodeInvalid},
	{service.ErrNotFound, response.CodeNotFound},
}

// codeOf 未知错误统一为内部错误，不把底层信息透给客户端
func codeOf(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.err.Error()
		}
	}
	return response.CodeInternalError, "internal error"
}

// fail 业务错误：HTTP 200 + 业务状态码
func (c *ChatEngine) fail(ctx *gin.Context, err error) {
	code, msg := codeOf(err)
	if code == response.CodeInternalError {
		c.Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(http.StatusOK, response.Error(code, msg))
}

func ok(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, response.Success(data))
}

func badParam(ctx *gin.Context, msg string) {
	ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, msg))
}

// currentUID 由 GinAuthMiddleware 写入
func currentUID(ctx *gin.Context) uint64 {
	v, _ := ctx.Get(middleware.ContextUserIDKey)
	uid, _ := v.(uint64)
	return uid
}

func queryInt(ctx *gin.Context, key string) int {
	n, _ := strconv.Atoi(ctx.Query(key))
	return n
}

func queryInt64(ctx *gin.Context, key string) int64 {
	n, _ := strconv.ParseInt(ctx.Query(key), 10, 64)
	return n
}

func queryBool(ctx *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(ctx.Query(key))
	return b
}

// queryList 支持 ?k=a&k=b 与 ?k=a,b
func queryList(ctx *gin.Context, key string) []string {
	var out []string
	for _, v := range ctx.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func paramUint(ctx *gin.Context, key string) (uint64, bool) {
	n, err := strconv.ParseUint(ctx.Param(key), 10, 64)
	return n, err == nil && n > 0
}
