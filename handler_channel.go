package birdchat

import (
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 群组频道 --------------------

// GinHandleCreateGroupChannel 创建群组
// @Summary 创建群组
// @Description is_distinct 且成员集合相同时返回已有频道（created=false）
// @Tags 群组
// @Accept json
// @Produce json
// @Param req body service.CreateGroupChannelReq true "群组信息"
// @Success 200 {object} response.Response{data=wire.GroupChannel}
// @Security BearerAuth
// @Router /group_channels [post]
func (c *ChatEngine) GinHandleCreateGroupChannel(ctx *gin.Context) {
	var req service.CreateGroupChannelReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	gc, err := c.ChannelService.CreateGroup(ctx.Request.Context(), currentUID(ctx), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, gc)
}

// GinHandleListMyGroupChannels 我的群组
// @Summary 我的群组列表
// @Tags 群组
// @Produce json
// @Param include_empty query bool false "包含没有消息的群组"
// @Param member_state query string false "all/joined/invited"
// @Param custom_types query string false "逗号分隔"
// @Param name_contains query string false "名称包含"
// @Param channel_urls query string false "逗号分隔"
// @Param show_hidden query bool false "包含已隐藏"
// @Param order query string false "latest_last_message/chronological"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.GroupChannel]}
// @Security BearerAuth
// @Router /group_channels [get]
func (c *ChatEngine) GinHandleListMyGroupChannels(ctx *gin.Context) {
	page, err := c.ChannelService.ListMyGroups(ctx.Request.Context(), currentUID(ctx), service.ListGroupReq{
		IncludeEmpty: queryBool(ctx, "include_empty"),
		MemberState:  ctx.Query("member_state"),
		CustomTypes:  queryList(ctx, "custom_types"),
		NameContains: ctx.Query("name_contains"),
		ChannelURLs:  queryList(ctx, "channel_urls"),
		ShowHidden:   queryBool(ctx, "show_hidden"),
		Order:        ctx.Query("order"),
		Next:         ctx.Query("next"),
		Limit:        queryInt(ctx, "limit"),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleListPublicGroupChannels 公开群组
// @Summary 公开群组列表
// @Tags 群组
// @Produce json
// @Param include_empty query bool false "包含没有消息的群组"
// @Param custom_types query string false "逗号分隔"
// @Param name_contains query string false "名称包含"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.GroupChannel]}
// @Security BearerAuth
// @Router /group_channels/public [get]
func (c *ChatEngine) GinHandleListPublicGroupChannels(ctx *gin.Context) {
	page, err := c.ChannelService.ListPublicGroups(ctx.Request.Context(), currentUID(ctx), service.ListPublicReq{
		IncludeEmpty: queryBool(ctx, "include_empty"),
		CustomTypes:  queryList(ctx, "custom_types"),
		NameContains: ctx.Query("name_contains"),
		Next:         ctx.Query("next"),
		Limit:        queryInt(ctx, "limit"),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleGetGroupChannel 群组详情
// @Summary 群组详情
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response{data=wire.GroupChannel}
// @Security BearerAuth
// @Router /group_channels/{channel_url} [get]
func (c *ChatEngine) GinHandleGetGroupChannel(ctx *gin.Context) {
	gc, err := c.ChannelService.GetGroup(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, gc)
}

// GinHandleUpdateGroupChannel 修改群组
// @Summary 修改群组
// @Tags 群组
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body service.UpdateChannelReq true "不传的字段不修改"
// @Success 200 {object} response.Response{data=wire.GroupChannel}
// @Security BearerAuth
// @Router /group_channels/{channel_url} [put]
func (c *ChatEngine) GinHandleUpdateGroupChannel(ctx *gin.Context) {
	var req service.UpdateChannelReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	gc, err := c.ChannelService.UpdateGroup(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, gc)
}

// GinHandleDeleteChannel 删除频道（管理员）
// @Summary 删除频道
// @Tags 群组,开放频道
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url} [delete]
// @Router /open_channels/{channel_url} [delete]
func (c *ChatEngine) GinHandleDeleteChannel(ctx *gin.Context) {
	if err := c.ChannelService.DeleteChannel(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleInvite 邀请成员
// @Summary 邀请成员
// @Tags 群组
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body UserIDsReq true "被邀请的 user_id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/invite [post]
func (c *ChatEngine) GinHandleInvite(ctx *gin.Context) {
	var req UserIDsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if err := c.ChannelService.Invite(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.UserIDs); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// AccessCodeReq 接受邀请/加入公开群组
type AccessCodeReq struct {
	AccessCode string `json:"access_code"`
}

// GinHandleAcceptInvitation 接受邀请
// @Summary 接受邀请
// @Tags 群组
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body AccessCodeReq false "公开群组的进入码"
// @Success 200 {object} response.Response{data=wire.GroupChannel}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/accept [post]
func (c *ChatEngine) GinHandleAcceptInvitation(ctx *gin.Context) {
	var req AccessCodeReq
	_ = ctx.ShouldBindJSON(&req)
	gc, err := c.ChannelService.AcceptInvitation(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.AccessCode)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, gc)
}

// GinHandleDeclineInvitation 拒绝邀请
// @Summary 拒绝邀请
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/decline [post]
func (c *ChatEngine) GinHandleDeclineInvitation(ctx *gin.Context) {
	if err := c.ChannelService.DeclineInvitation(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleJoin 加入公开群组
// @Summary 加入公开群组
// @Tags 群组
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body AccessCodeReq false "进入码"
// @Success 200 {object} response.Response{data=wire.GroupChannel}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/join [post]
func (c *ChatEngine) GinHandleJoin(ctx *gin.Context) {
	var req AccessCodeReq
	_ = ctx.ShouldBindJSON(&req)
	gc, err := c.ChannelService.Join(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.AccessCode)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, gc)
}

// GinHandleLeave 退出群组
// @Summary 退出群组
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/leave [post]
func (c *ChatEngine) GinHandleLeave(ctx *gin.Context) {
	if err := c.ChannelService.Leave(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// HideReq 隐藏群组
type HideReq struct {
	HidePreviousMessages bool `json:"hide_previous_messages"`
}

// GinHandleHide 隐藏群组，有新消息时自动恢复
// @Summary 隐藏群组
// @Tags 群组
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body HideReq false "是否同时隐藏历史消息"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/hide [post]
func (c *ChatEngine) GinHandleHide(ctx *gin.Context) {
	var req HideReq
	_ = ctx.ShouldBindJSON(&req)
	if err := c.ChannelService.Hide(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.HidePreviousMessages); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleUnhide 取消隐藏
// @Summary 取消隐藏
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/hide [delete]
func (c *ChatEngine) GinHandleUnhide(ctx *gin.Context) {
	if err := c.ChannelService.Unhide(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleMarkAsRead 全部标记已读
// @Summary 标记已读
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/read [post]
func (c *ChatEngine) GinHandleMarkAsRead(ctx *gin.Context) {
	uid := currentUID(ctx)
	if err := c.ReadReceipt.MarkAsRead(ctx.Request.Context(), uid, ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	c.UnreadService.PublishTotal(ctx.Request.Context(), uid)
	ok(ctx, nil)
}

// GinHandleListMembers 成员列表
// @Summary 成员列表
// @Tags 群组
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param operator_filter query string false "all/operator/nonoperator"
// @Param muted_only query bool false "只看被禁言的"
// @Param nickname_startswith query string false "昵称前缀"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.Member]}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/members [get]
func (c *ChatEngine) GinHandleListMembers(ctx *gin.Context) {
	f := repository.MemberFilter{
		MutedOnly:      queryBool(ctx, "muted_only"),
		NicknameStarts: ctx.Query("nickname_startswith"),
	}
	switch ctx.Query("operator_filter") {
	case "", "all":
	case "operator":
		f.OperatorsOnly = true
	case "nonoperator":
		f.NonOperatorsOnly = true
	default:
		badParam(ctx, "invalid operator_filter")
		return
	}
	page, err := c.ChannelService.ListMembers(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), service.ListMembersReq{
		Filter: f,
		Next:   ctx.Query("next"),
		Limit:  queryInt(ctx, "limit"),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// -------------------- 定时消息 --------------------

// GinHandleCreateScheduled 创建定时消息
// @Summary 创建定时消息
// @Description scheduled_at 为毫秒时间戳，需在 1 分钟到 30 天之后
// @Tags 定时消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body service.CreateScheduledReq true "消息内容"
// @Success 200 {object} response.Response{data=wire.ScheduledMessage}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/scheduled_messages [post]
func (c *ChatEngine) GinHandleCreateScheduled(ctx *gin.Context) {
	var req service.CreateScheduledReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.ScheduledService.Create(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// GinHandleListScheduled 我在该群组的定时消息
// @Summary 定时消息列表
// @Tags 定时消息
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param status query string false "pending/sent/canceled/failed"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.ScheduledMessage]}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/scheduled_messages [get]
func (c *ChatEngine) GinHandleListScheduled(ctx *gin.Context) {
	page, err := c.ScheduledService.List(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Query("status"), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleCancelScheduled 取消定时消息
// @Summary 取消定时消息
// @Tags 定时消息
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param id path int true "定时消息 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/scheduled_messages/{id} [delete]
func (c *ChatEngine) GinHandleCancelScheduled(ctx *gin.Context) {
	id, valid := paramUint(ctx, "id")
	if !valid {
		badParam(ctx, "invalid id")
		return
	}
	if err := c.ScheduledService.Cancel(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), id); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// -------------------- 开放频道 --------------------

// GinHandleCreateOpenChannel 创建开放频道
// @Summary 创建开放频道
// @Tags 开放频道
// @Accept json
// @Produce json
// @Param req body service.CreateOpenChannelReq true "频道信息"
// @Success 200 {object} response.Response{data=wire.OpenChannel}
// @Security BearerAuth
// @Router /open_channels [post]
func (c *ChatEngine) GinHandleCreateOpenChannel(ctx *gin.Context) {
	var req service.CreateOpenChannelReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	oc, err := c.ChannelService.CreateOpen(ctx.Request.Context(), currentUID(ctx), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, oc)
}

// GinHandleListOpenChannels 开放频道列表
// @Summary 开放频道列表
// @Tags 开放频道
// @Produce json
// @Param name_keyword query string false "名称包含"
// @Param url_keyword query string false "URL 包含"
// @Param custom_type query string false "custom_type"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.OpenChannel]}
// @Security BearerAuth
// @Router /open_channels [get]
func (c *ChatEngine) GinHandleListOpenChannels(ctx *gin.Context) {
	page, err := c.ChannelService.ListOpen(ctx.Request.Context(), service.ListOpenReq{
		Filter: repository.OpenChannelFilter{
			NameKeyword: ctx.Query("name_keyword"),
			URLKeyword:  ctx.Query("url_keyword"),
			CustomType:  ctx.Query("custom_type"),
		},
		Next:  ctx.Query("next"),
		Limit: queryInt(ctx, "limit"),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleGetOpenChannel 开放频道详情
// @Summary 开放频道详情
// @Tags 开放频道
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response{data=wire.OpenChannel}
// @Security BearerAuth
// @Router /open_channels/{channel_url} [get]
func (c *ChatEngine) GinHandleGetOpenChannel(ctx *gin.Context) {
	oc, err := c.ChannelService.GetOpen(ctx.Request.Context(), ctx.Param("channel_url"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, oc)
}

// GinHandleUpdateOpenChannel 修改开放频道（管理员）
// @Summary 修改开放频道
// @Tags 开放频道
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body service.UpdateChannelReq true "不传的字段不修改"
// @Success 200 {object} response.Response{data=wire.OpenChannel}
// @Security BearerAuth
// @Router /open_channels/{channel_url} [put]
func (c *ChatEngine) GinHandleUpdateOpenChannel(ctx *gin.Context) {
	var req service.UpdateChannelReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	oc, err := c.ChannelService.UpdateOpen(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, oc)
}

// GinHandleEnter 进入开放频道
// @Summary 进入开放频道
// @Tags 开放频道
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response{data=wire.OpenChannel}
// @Security BearerAuth
// @Router /open_channels/{channel_url}/enter [post]
func (c *ChatEngine) GinHandleEnter(ctx *gin.Context) {
	oc, err := c.ChannelService.Enter(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, oc)
}

// GinHandleExit 退出开放频道
// @Summary 退出开放频道
// @Tags 开放频道
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /open_channels/{channel_url}/exit [post]
func (c *ChatEngine) GinHandleExit(ctx *gin.Context) {
	if err := c.ChannelService.Exit(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleListParticipants 在场用户
// @Summary 在场用户列表
// @Tags 开放频道
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /open_channels/{channel_url}/participants [get]
func (c *ChatEngine) GinHandleListParticipants(ctx *gin.Context) {
	page, err := c.ChannelService.ListParticipants(ctx.Request.Context(), ctx.Param("channel_url"), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}
