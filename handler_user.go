package birdchat

import (
	"net/http"
	"strings"

	"github.com/cydxin/birdchat/middleware"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/service"
	"github.com/cydxin/birdchat/wire"
	"github.com/gin-gonic/gin"
)

// -------------------- 会话（Session） --------------------

// LoginReq 用 user_id + access token 换 session token
type LoginReq struct {
	UserID      string `json:"user_id" binding:"required"`
	AccessToken string `json:"access_token"`
}

// GinHandleLogin 登录
// @Summary 登录
// @Description 用 user_id + access token 换取 session token，之后 REST 与 WS 都用它鉴权
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body LoginReq true "登录信息"
// @Success 200 {object} response.Response{data=wire.Session} "登录成功"
// @Failure 400 {object} response.Response "参数错误"
// @Router /session [post]
func (c *ChatEngine) GinHandleLogin(ctx *gin.Context) {
	var req LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	sess, err := c.AuthService.Login(ctx.Request.Context(), req.UserID, req.AccessToken)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, sess)
}

// GinHandleLogout 注销当前 session
// @Summary 注销
// @Tags 会话
// @Produce json
// @Param all query bool false "注销该用户全部 session"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /session [delete]
func (c *ChatEngine) GinHandleLogout(ctx *gin.Context) {
	var err error
	if queryBool(ctx, "all") {
		err = c.AuthService.LogoutAll(ctx.Request.Context(), currentUID(ctx))
	} else {
		token, _ := ctx.Get(middleware.ContextTokenKey)
		s, _ := token.(string)
		err = c.AuthService.Logout(ctx.Request.Context(), s)
	}
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// -------------------- 用户（User） --------------------

// GinHandleGetMe 当前用户
// @Summary 当前用户信息
// @Tags 用户
// @Produce json
// @Success 200 {object} response.Response{data=wire.User}
// @Security BearerAuth
// @Router /users/me [get]
func (c *ChatEngine) GinHandleGetMe(ctx *gin.Context) {
	u, err := c.UserService.Get(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, u)
}

// GinHandleUpdateMe 修改昵称/头像/元数据
// @Summary 修改当前用户资料
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.UpdateProfileReq true "不传的字段不修改"
// @Success 200 {object} response.Response{data=wire.User}
// @Security BearerAuth
// @Router /users/me [put]
func (c *ChatEngine) GinHandleUpdateMe(ctx *gin.Context) {
	var req service.UpdateProfileReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	u, err := c.UserService.UpdateProfile(ctx.Request.Context(), currentUID(ctx), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, u)
}

// GinHandleListUsers 应用用户列表
// @Summary 用户列表
// @Tags 用户
// @Produce json
// @Param user_ids query string false "逗号分隔"
// @Param nickname_startswith query string false "昵称前缀"
// @Param meta_data_key query string false "元数据 key"
// @Param meta_data_values query string false "元数据取值，逗号分隔"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量，默认20，最大100"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /users [get]
func (c *ChatEngine) GinHandleListUsers(ctx *gin.Context) {
	f := repository.UserFilter{
		UserIDs:            queryList(ctx, "user_ids"),
		NicknameStartsWith: ctx.Query("nickname_startswith"),
		MetaDataKey:        ctx.Query("meta_data_key"),
		MetaDataValues:     queryList(ctx, "meta_data_values"),
	}
	page, err := c.UserService.List(ctx.Request.Context(), f, ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// UserIDReq 单个目标用户
type UserIDReq struct {
	UserID string `json:"user_id" binding:"required"`
}

// UserIDsReq 多个目标用户
type UserIDsReq struct {
	UserIDs []string `json:"user_ids" binding:"required"`
}

// GinHandleBlockUser 拉黑
// @Summary 拉黑用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body UserIDReq true "被拉黑的用户"
// @Success 200 {object} response.Response{data=wire.User}
// @Security BearerAuth
// @Router /users/me/blocks [post]
func (c *ChatEngine) GinHandleBlockUser(ctx *gin.Context) {
	var req UserIDReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	u, err := c.UserService.Block(ctx.Request.Context(), currentUID(ctx), req.UserID)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, u)
}

// GinHandleUnblockUser 取消拉黑
// @Summary 取消拉黑
// @Tags 用户
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /users/me/blocks/{user_id} [delete]
func (c *ChatEngine) GinHandleUnblockUser(ctx *gin.Context) {
	if err := c.UserService.Unblock(ctx.Request.Context(), currentUID(ctx), ctx.Param("user_id")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleListBlocked 拉黑列表
// @Summary 拉黑列表
// @Tags 用户
// @Produce json
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /users/me/blocks [get]
func (c *ChatEngine) GinHandleListBlocked(ctx *gin.Context) {
	page, err := c.UserService.ListBlocked(ctx.Request.Context(), currentUID(ctx), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleAddFriends 添加好友（单向发现）
// @Summary 添加好友
// @Tags 好友
// @Accept json
// @Produce json
// @Param req body UserIDsReq true "好友 user_id 列表"
// @Success 200 {object} response.Response{data=[]wire.User}
// @Security BearerAuth
// @Router /users/me/friends [post]
func (c *ChatEngine) GinHandleAddFriends(ctx *gin.Context) {
	var req UserIDsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	users, err := c.UserService.AddFriends(ctx.Request.Context(), currentUID(ctx), req.UserIDs)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, users)
}

// GinHandleDeleteFriend 删除好友
// @Summary 删除好友
// @Tags 好友
// @Produce json
// @Param user_id path string true "好友 user_id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /users/me/friends/{user_id} [delete]
func (c *ChatEngine) GinHandleDeleteFriend(ctx *gin.Context) {
	if err := c.UserService.DeleteFriend(ctx.Request.Context(), currentUID(ctx), ctx.Param("user_id")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleListFriends 好友列表
// @Summary 好友列表
// @Tags 好友
// @Produce json
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /users/me/friends [get]
func (c *ChatEngine) GinHandleListFriends(ctx *gin.Context) {
	page, err := c.UserService.ListFriends(ctx.Request.Context(), currentUID(ctx), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// -------------------- 未读计数 --------------------

// CountResp 单个计数
type CountResp struct {
	Count int `json:"count"`
}

// GinHandleUnreadMessageCount 总未读消息数
// @Summary 总未读消息数
// @Tags 未读
// @Produce json
// @Param custom_types query string false "按频道 custom_type 过滤，逗号分隔"
// @Success 200 {object} response.Response{data=wire.UnreadCountPayload}
// @Security BearerAuth
// @Router /users/me/unread_message_count [get]
func (c *ChatEngine) GinHandleUnreadMessageCount(ctx *gin.Context) {
	total, byType, err := c.UnreadService.TotalUnreadMessageCount(ctx.Request.Context(), currentUID(ctx), queryList(ctx, "custom_types"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, wire.UnreadCountPayload{TotalCount: total, CountByCustomType: byType})
}

// GinHandleUnreadChannelCount 有未读的群组数
// @Summary 有未读的群组数
// @Tags 未读
// @Produce json
// @Success 200 {object} response.Response{data=CountResp}
// @Security BearerAuth
// @Router /users/me/unread_channel_count [get]
func (c *ChatEngine) GinHandleUnreadChannelCount(ctx *gin.Context) {
	n, err := c.UnreadService.UnreadChannelCount(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, CountResp{Count: n})
}

// GinHandleChannelCount 按成员状态统计群组数
// @Summary 群组数
// @Tags 未读
// @Produce json
// @Param state query string false "all/joined/invited"
// @Success 200 {object} response.Response{data=CountResp}
// @Security BearerAuth
// @Router /users/me/channel_count [get]
func (c *ChatEngine) GinHandleChannelCount(ctx *gin.Context) {
	n, err := c.UnreadService.ChannelCount(ctx.Request.Context(), currentUID(ctx), ctx.Query("state"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, CountResp{Count: n})
}

// GinHandleUnreadItemCount 组合未读计数
// @Summary 组合未读计数
// @Tags 未读
// @Produce json
// @Param key query int true "位集合：1 未读消息数，2 未读群组数，4 邀请数"
// @Success 200 {object} response.Response{data=wire.UnreadItemCount}
// @Security BearerAuth
// @Router /users/me/unread_item_count [get]
func (c *ChatEngine) GinHandleUnreadItemCount(ctx *gin.Context) {
	res, err := c.UnreadService.UnreadItemCount(ctx.Request.Context(), currentUID(ctx), queryInt(ctx, "key"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, res)
}

// -------------------- 文件 --------------------

// GinHandleUploadFile 上传文件，返回的 url 用于发送文件消息
// @Summary 上传文件
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文件"
// @Success 200 {object} response.Response{data=wire.UploadedFile}
// @Failure 400 {object} response.Response "参数错误"
// @Security BearerAuth
// @Router /files [post]
func (c *ChatEngine) GinHandleUploadFile(ctx *gin.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		badParam(ctx, err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, response.Error(response.CodeInternalError, err.Error()))
		return
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	res, err := c.FileService.Save(ctx.Request.Context(), currentUID(ctx), fh.Filename, contentType, f)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, res)
}
