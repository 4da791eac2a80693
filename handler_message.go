package birdchat

import (
	"github.com/cydxin/birdchat/service"
	"github.com/cydxin/birdchat/wire"
	"github.com/gin-gonic/gin"
)

// GinHandleListMessages 历史消息
// @Summary 历史消息
// @Description 以 message_ts 或 message_id 为锚点向前/向后取；默认时间升序
// @Tags 消息
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param message_ts query int false "锚点时间（毫秒）"
// @Param message_id query int false "锚点消息 ID，优先于 message_ts"
// @Param prev_limit query int false "锚点之前条数"
// @Param next_limit query int false "锚点之后条数"
// @Param include query bool false "包含锚点本身"
// @Param reverse query bool false "新到旧"
// @Param message_type query string false "MESG/FILE/ADMM"
// @Param custom_type query string false "custom_type"
// @Param sender_ids query string false "逗号分隔的 user_id"
// @Param include_meta_array query bool false "返回 meta_arrays"
// @Param include_reactions query bool false "返回 reactions"
// @Param parent_message_id query int false "只取某条消息的回复"
// @Success 200 {object} response.Response{data=[]wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages [get]
// @Router /open_channels/{channel_url}/messages [get]
func (c *ChatEngine) GinHandleListMessages(ctx *gin.Context) {
	msgs, err := c.MsgService.ListMessages(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), service.ListMessagesReq{
		MessageTS:        queryInt64(ctx, "message_ts"),
		MessageID:        uint64(queryInt64(ctx, "message_id")),
		PrevLimit:        queryInt(ctx, "prev_limit"),
		NextLimit:        queryInt(ctx, "next_limit"),
		Inclusive:        queryBool(ctx, "include"),
		Reverse:          queryBool(ctx, "reverse"),
		MessageType:      ctx.Query("message_type"),
		CustomType:       ctx.Query("custom_type"),
		SenderUserIDs:    queryList(ctx, "sender_ids"),
		IncludeMetaArray: queryBool(ctx, "include_meta_array"),
		IncludeReactions: queryBool(ctx, "include_reactions"),
		ParentMessageID:  uint64(queryInt64(ctx, "parent_message_id")),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	if msgs == nil {
		msgs = []wire.Message{}
	}
	ok(ctx, msgs)
}

// GinHandleSendUserMessage 发送文本消息
// @Summary 发送文本消息
// @Description 同一 request_id 重复提交返回第一次的结果
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body wire.SendMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages [post]
// @Router /open_channels/{channel_url}/messages [post]
func (c *ChatEngine) GinHandleSendUserMessage(ctx *gin.Context) {
	var req wire.SendMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.MsgService.SendUserMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// GinHandleSendFileMessage 发送文件消息，文件需先通过 /files 上传
// @Summary 发送文件消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body wire.SendFileMessageReq true "文件信息"
// @Success 200 {object} response.Response{data=wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/file [post]
// @Router /open_channels/{channel_url}/messages/file [post]
func (c *ChatEngine) GinHandleSendFileMessage(ctx *gin.Context) {
	var req wire.SendFileMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.MsgService.SendFileMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// GinHandleSendAdminMessage 管理员消息
// @Summary 发送管理员消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param req body service.AdminMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/admin [post]
// @Router /open_channels/{channel_url}/messages/admin [post]
func (c *ChatEngine) GinHandleSendAdminMessage(ctx *gin.Context) {
	var req service.AdminMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.MsgService.SendAdminMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// GinHandleUpdateMessage 修改消息
// @Summary 修改消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param message_id path int true "消息 ID"
// @Param req body service.UpdateMessageReq true "不传的字段不修改"
// @Success 200 {object} response.Response{data=wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/{message_id} [put]
// @Router /open_channels/{channel_url}/messages/{message_id} [put]
func (c *ChatEngine) GinHandleUpdateMessage(ctx *gin.Context) {
	msgID, valid := paramUint(ctx, "message_id")
	if !valid {
		badParam(ctx, "invalid message_id")
		return
	}
	var req service.UpdateMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.MsgService.UpdateMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), msgID, req)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// GinHandleDeleteMessage 删除消息（发送者或管理员）
// @Summary 删除消息
// @Tags 消息
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param message_id path int true "消息 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/{message_id} [delete]
// @Router /open_channels/{channel_url}/messages/{message_id} [delete]
func (c *ChatEngine) GinHandleDeleteMessage(ctx *gin.Context) {
	msgID, valid := paramUint(ctx, "message_id")
	if !valid {
		badParam(ctx, "invalid message_id")
		return
	}
	if err := c.MsgService.DeleteMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), msgID); err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, nil)
}

// CopyMessageReq 转发到的目标频道
type CopyMessageReq struct {
	TargetChannelURL string `json:"target_channel_url" binding:"required"`
}

// GinHandleCopyMessage 转发消息
// @Summary 转发消息
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "源频道 URL"
// @Param message_id path int true "消息 ID"
// @Param req body CopyMessageReq true "目标频道"
// @Success 200 {object} response.Response{data=wire.Message}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/{message_id}/copy [post]
// @Router /open_channels/{channel_url}/messages/{message_id}/copy [post]
func (c *ChatEngine) GinHandleCopyMessage(ctx *gin.Context) {
	msgID, valid := paramUint(ctx, "message_id")
	if !valid {
		badParam(ctx, "invalid message_id")
		return
	}
	var req CopyMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	m, err := c.MsgService.CopyMessage(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), msgID, req.TargetChannelURL)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, m)
}

// ReactionReq 回应
type ReactionReq struct {
	Key string `json:"key" binding:"required"`
}

// GinHandleAddReaction 添加回应
// @Summary 添加回应
// @Tags 消息
// @Accept json
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param message_id path int true "消息 ID"
// @Param req body ReactionReq true "回应 key"
// @Success 200 {object} response.Response{data=wire.ReactionEvent}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/{message_id}/reactions [post]
// @Router /open_channels/{channel_url}/messages/{message_id}/reactions [post]
func (c *ChatEngine) GinHandleAddReaction(ctx *gin.Context) {
	msgID, valid := paramUint(ctx, "message_id")
	if !valid {
		badParam(ctx, "invalid message_id")
		return
	}
	var req ReactionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badParam(ctx, err.Error())
		return
	}
	ev, err := c.ReactionService.AddReaction(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), msgID, req.Key)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, ev)
}

// GinHandleDeleteReaction 取消回应
// @Summary 取消回应
// @Tags 消息
// @Produce json
// @Param channel_url path string true "频道 URL"
// @Param message_id path int true "消息 ID"
// @Param key query string true "回应 key"
// @Success 200 {object} response.Response{data=wire.ReactionEvent}
// @Security BearerAuth
// @Router /group_channels/{channel_url}/messages/{message_id}/reactions [delete]
// @Router /open_channels/{channel_url}/messages/{message_id}/reactions [delete]
func (c *ChatEngine) GinHandleDeleteReaction(ctx *gin.Context) {
	msgID, valid := paramUint(ctx, "message_id")
	if !valid {
		badParam(ctx, "invalid message_id")
		return
	}
	key := ctx.Query("key")
	if key == "" {
		badParam(ctx, "key required")
		return
	}
	ev, err := c.ReactionService.DeleteReaction(ctx.Request.Context(), currentUID(ctx), ctx.Param("channel_url"), msgID, key)
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, ev)
}

// GinHandleSearchMessages 搜索消息
// @Summary 搜索消息
// @Tags 消息
// @Produce json
// @Param keyword query string true "关键字"
// @Param channel_url query string false "限定频道"
// @Param exact_match query bool false "精确匹配"
// @Param message_ts_from query int false "起始时间（毫秒）"
// @Param message_ts_to query int false "结束时间（毫秒）"
// @Param next query string false "分页游标"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=wire.Page[wire.Message]}
// @Security BearerAuth
// @Router /search/messages [get]
func (c *ChatEngine) GinHandleSearchMessages(ctx *gin.Context) {
	page, err := c.MsgService.Search(ctx.Request.Context(), currentUID(ctx), service.SearchReq{
		Keyword:    ctx.Query("keyword"),
		ChannelURL: ctx.Query("channel_url"),
		Exact:      queryBool(ctx, "exact_match"),
		From:       queryInt64(ctx, "message_ts_from"),
		To:         queryInt64(ctx, "message_ts_to"),
		Next:       ctx.Query("next"),
		Limit:      queryInt(ctx, "limit"),
	})
	if err != nil {
		c.fail(ctx, err)
		return
	}
	ok(ctx, page)
}
