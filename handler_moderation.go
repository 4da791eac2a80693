package birdchat

import (
	"github.com/cydxin/birdchat/service"
	"github.com/gin-gonic/gin"
)

// RestrictReq 封禁/禁言，seconds<=0 表示永久
type RestrictReq struct {
	UserID      string `json:"user_id" binding:"required"`
	Seconds     int64  `json:"seconds"`
	Description string `json:"description"`
}

// FreezeReq 冻结/解冻
type FreezeReq struct {
	Freeze bool `json:"freeze"`
}

// GinHandleBan 封禁用户
// @Summary 封禁用户
// @Description 被封禁者会被移出频道并失去管理员身份
// @Tags 频道管理
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body RestrictReq true "封禁参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/bans [post]
// @Router /open_channels/{channel_url}/bans [post]
func (c *ChatEngine) GinHandleBan(ctx *gin.Context) {
	var req RestrictReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if err := c.ModerationService.Ban(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.UserID, req.Seconds, req.Description); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleUnban 解除封禁
// @Summary 解除封禁
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param user_id path string true "user_id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/bans/{user_id} [delete]
// @Router /open_channels/{channel_url}/bans/{user_id} [delete]
func (c *ChatEngine) GinHandleUnban(ctx *gin.Context) {
	if err := c.ModerationService.Unban(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Param("user_id")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleListBanned 封禁列表
// @Summary 封禁列表
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/bans [get]
// @Router /open_channels/{channel_url}/bans [get]
func (c *ChatEngine) GinHandleListBanned(ctx *gin.Context) {
	page, err := c.ModerationService.ListBanned(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleMute 禁言
// @Summary 禁言
// @Tags 频道管理
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body RestrictReq true "禁言参数"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/mutes [post]
// @Router /open_channels/{channel_url}/mutes [post]
func (c *ChatEngine) GinHandleMute(ctx *gin.Context) {
	var req RestrictReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if err := c.ModerationService.Mute(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.UserID, req.Seconds, req.Description); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleUnmute 解除禁言
// @Summary 解除禁言
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param user_id path string true "user_id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/mutes/{user_id} [delete]
// @Router /open_channels/{channel_url}/mutes/{user_id} [delete]
func (c *ChatEngine) GinHandleUnmute(ctx *gin.Context) {
	if err := c.ModerationService.Unmute(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Param("user_id")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleListMuted 禁言列表
// @Summary 禁言列表
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/mutes [get]
// @Router /open_channels/{channel_url}/mutes [get]
func (c *ChatEngine) GinHandleListMuted(ctx *gin.Context) {
	page, err := c.ModerationService.ListMuted(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleListOperators 管理员列表
// @Summary 管理员列表
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.User]}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/operators [get]
// @Router /open_channels/{channel_url}/operators [get]
func (c *ChatEngine) GinHandleListOperators(ctx *gin.Context) {
	page, err := c.ModerationService.ListOperators(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ctx.Query("next"), queryInt(ctx, "limit"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}

// GinHandleAddOperators 添加管理员
// @Summary 添加管理员
// @Tags 频道管理
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body UserIDsReq true "user_id 列表"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/operators [post]
// @Router /open_channels/{channel_url}/operators [post]
func (c *ChatEngine) GinHandleAddOperators(ctx *gin.Context) {
	var req UserIDsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if err := c.ModerationService.AddOperators(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.UserIDs); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleRemoveOperators 移除管理员
// @Summary 移除管理员
// @Tags 频道管理
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param user_ids query string true "逗号分隔的 user_id"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/operators [delete]
// @Router /open_channels/{channel_url}/operators [delete]
func (c *ChatEngine) GinHandleRemoveOperators(ctx *gin.Context) {
	ids := queryList(ctx, "user_ids")
	if len(ids) == 0 {
		badParam(ctx, "user_ids required")
		return
	}
	if err := c.ModerationService.RemoveOperators(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), ids); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleFreeze 冻结/解冻频道
// @Summary 冻结频道
// @Tags 频道管理
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body FreezeReq true "freeze=true 冻结"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/freeze [put]
// @Router /open_channels/{channel_url}/freeze [put]
func (c *ChatEngine) GinHandleFreeze(ctx *gin.Context) {
	var req FreezeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if err := c.ModerationService.SetFrozen(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.Freeze); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// -------------------- 元数据 --------------------

// MetaDataReq 元数据写入
type MetaDataReq struct {
	MetaData map[string]string `json:"meta_data" binding:"required"`
	Upsert   bool              `json:"upsert"`
}

// MetaCounterReq 计数器写入，mode 为 set/increase/decrease
type MetaCounterReq struct {
	MetaCounter map[string]int64 `json:"meta_counter" binding:"required"`
	Mode        string           `json:"mode"`
	Upsert      bool             `json:"upsert"`
}

// GinHandleCreateMetaData 创建元数据，key 已存在时报错
// @Summary 创建元数据
// @Tags 元数据
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body MetaDataReq true "键值"
// @Success 200 {object} response.Response{data=map[string]string}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_data [post]
// @Router /open_channels/{channel_url}/meta_data [post]
func (c *ChatEngine) GinHandleCreateMetaData(ctx *gin.Context) {
	var req MetaDataReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	kv, err := c.ChannelService.CreateMetaData(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.MetaData)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleGetMetaData 读取元数据，不传 keys 返回全部
// @Summary 读取元数据
// @Tags 元数据
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param keys query string false "逗号分隔"
// @Success 200 {object} response.Response{data=map[string]string}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_data [get]
// @Router /open_channels/{channel_url}/meta_data [get]
func (c *ChatEngine) GinHandleGetMetaData(ctx *gin.Context) {
	kv, err := c.ChannelService.GetMetaData(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), queryList(ctx, "keys"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleUpdateMetaData 修改元数据
// @Summary 修改元数据
// @Tags 元数据
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body MetaDataReq true "键值，upsert=true 时不存在的 key 会被创建"
// @Success 200 {object} response.Response{data=map[string]string}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_data [put]
// @Router /open_channels/{channel_url}/meta_data [put]
func (c *ChatEngine) GinHandleUpdateMetaData(ctx *gin.Context) {
	var req MetaDataReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	kv, err := c.ChannelService.UpdateMetaData(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.MetaData, req.Upsert)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleDeleteMetaData 删除元数据，不传 keys 删除全部
// @Summary 删除元数据
// @Tags 元数据
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param keys query string false "逗号分隔"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_data [delete]
// @Router /open_channels/{channel_url}/meta_data [delete]
func (c *ChatEngine) GinHandleDeleteMetaData(ctx *gin.Context) {
	if err := c.ChannelService.DeleteMetaData(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), queryList(ctx, "keys")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// GinHandleCreateMetaCounters 创建计数器
// @Summary 创建计数器
// @Tags 元数据
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body MetaCounterReq true "键值"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_counters [post]
// @Router /open_channels/{channel_url}/meta_counters [post]
func (c *ChatEngine) GinHandleCreateMetaCounters(ctx *gin.Context) {
	var req MetaCounterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	kv, err := c.ChannelService.CreateMetaCounters(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.MetaCounter)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleGetMetaCounters 读取计数器
// @Summary 读取计数器
// @Tags 元数据
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param keys query string false "逗号分隔"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_counters [get]
// @Router /open_channels/{channel_url}/meta_counters [get]
func (c *ChatEngine) GinHandleGetMetaCounters(ctx *gin.Context) {
	kv, err := c.ChannelService.GetMetaCounters(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), queryList(ctx, "keys"))
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleUpdateMetaCounters 修改计数器
// @Summary 修改计数器
// @Tags 元数据
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body MetaCounterReq true "mode 默认 set"
// @Success 200 {object} response.Response{data=map[string]int64}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_counters [put]
// @Router /open_channels/{channel_url}/meta_counters [put]
func (c *ChatEngine) GinHandleUpdateMetaCounters(ctx *gin.Context) {
	var req MetaCounterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = service.CounterSet
	}
	kv, err := c.ChannelService.UpdateMetaCounters(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req.MetaCounter, req.Mode, req.Upsert)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, kv)
}

// GinHandleDeleteMetaCounters 删除计数器
// @Summary 删除计数器
// @Tags 元数据
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param keys query string false "逗号分隔"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/meta_counters [delete]
// @Router /open_channels/{channel_url}/meta_counters [delete]
func (c *ChatEngine) GinHandleDeleteMetaCounters(ctx *gin.Context) {
	if err := c.ChannelService.DeleteMetaCounters(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), queryList(ctx, "keys")); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}
