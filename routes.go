package birdchat

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 在路由组（一般为 /api/v1）上挂载全部接口。
// POST /session 与 GET /ws 自行鉴权，其余接口经过 GinAuthMiddleware。
//
// 使用示例:
//
//	engine := birdchat.NewEngine(...)
//	r := gin.Default()
//	engine.RegisterRoutes(r.Group("/api/v1"))
func (c *ChatEngine) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/session", c.GinHandleLogin)
	g.GET("/ws", c.ServeWS)

	a := g.Group("", c.GinAuthMiddleware(nil))
	a.DELETE("/session", c.GinHandleLogout)

	me := a.Group("/users/me")
	me.GET("", c.GinHandleGetMe)
	me.PUT("", c.GinHandleUpdateMe)
	me.GET("/blocks", c.GinHandleListBlocked)
	me.POST("/blocks", c.GinHandleBlockUser)
	me.DELETE("/blocks/:user_id", c.GinHandleUnblockUser)
	me.GET("/friends", c.GinHandleListFriends)
	me.POST("/friends", c.GinHandleAddFriends)
	me.DELETE("/friends/:user_id", c.GinHandleDeleteFriend)
	me.GET("/unread_message_count", c.GinHandleUnreadMessageCount)
	me.GET("/unread_channel_count", c.GinHandleUnreadChannelCount)
	me.GET("/channel_count", c.GinHandleChannelCount)
	me.GET("/unread_item_count", c.GinHandleUnreadItemCount)
	a.GET("/users", c.GinHandleListUsers)

	a.POST("/files", c.GinHandleUploadFile)
	a.GET("/search/messages", c.GinHandleSearchMessages)

	gc := a.Group("/group_channels")
	gc.POST("", c.GinHandleCreateGroupChannel)
	gc.GET("", c.GinHandleListMyGroupChannels)
	gc.GET("/public", c.GinHandleListPublicGroupChannels)
	gc.GET("/:channel_url", c.GinHandleGetGroupChannel)
	gc.PUT("/:channel_url", c.GinHandleUpdateGroupChannel)
	gc.DELETE("/:channel_url", c.GinHandleDeleteChannel)
	gc.POST("/:channel_url/invite", c.GinHandleInvite)
	gc.POST("/:channel_url/accept", c.GinHandleAcceptInvitation)
	gc.POST("/:channel_url/decline", c.GinHandleDeclineInvitation)
	gc.POST("/:channel_url/join", c.GinHandleJoin)
	gc.POST("/:channel_url/leave", c.GinHandleLeave)
	gc.POST("/:channel_url/hide", c.GinHandleHide)
	gc.DELETE("/:channel_url/hide", c.GinHandleUnhide)
	gc.POST("/:channel_url/read", c.GinHandleMarkAsRead)
	gc.GET("/:channel_url/members", c.GinHandleListMembers)
	gc.POST("/:channel_url/scheduled_messages", c.GinHandleCreateScheduled)
	gc.GET("/:channel_url/scheduled_messages", c.GinHandleListScheduled)
	gc.DELETE("/:channel_url/scheduled_messages/:id", c.GinHandleCancelScheduled)
	c.channelRoutes(gc)

	oc := a.Group("/open_channels")
	oc.POST("", c.GinHandleCreateOpenChannel)
	oc.GET("", c.GinHandleListOpenChannels)
	oc.GET("/:channel_url", c.GinHandleGetOpenChannel)
	oc.PUT("/:channel_url", c.GinHandleUpdateOpenChannel)
	oc.DELETE("/:channel_url", c.GinHandleDeleteChannel)
	oc.POST("/:channel_url/enter", c.GinHandleEnter)
	oc.POST("/:channel_url/exit", c.GinHandleExit)
	oc.GET("/:channel_url/participants", c.GinHandleListParticipants)
	c.channelRoutes(oc)
}

// channelRoutes 群组/开放频道共用的接口
func (c *ChatEngine) channelRoutes(g *gin.RouterGroup) {
	g.GET("/:channel_url/messages", c.GinHandleListMessages)
	g.POST("/:channel_url/messages", c.GinHandleSendUserMessage)
	g.POST("/:channel_url/messages/file", c.GinHandleSendFileMessage)
	g.POST("/:channel_url/messages/admin", c.GinHandleSendAdminMessage)
	g.PUT("/:channel_url/messages/:message_id", c.GinHandleUpdateMessage)
	g.DELETE("/:channel_url/messages/:message_id", c.GinHandleDeleteMessage)
	g.POST("/:channel_url/messages/:message_id/copy", c.GinHandleCopyMessage)
	g.POST("/:channel_url/messages/:message_id/reactions", c.GinHandleAddReaction)
	g.DELETE("/:channel_url/messages/:message_id/reactions", c.GinHandleDeleteReaction)

	g.POST("/:channel_url/meta_data", c.GinHandleCreateMetaData)
	g.GET("/:channel_url/meta_data", c.GinHandleGetMetaData)
	g.PUT("/:channel_url/meta_data", c.GinHandleUpdateMetaData)
	g.DELETE("/:channel_url/meta_data", c.GinHandleDeleteMetaData)
	g.POST("/:channel_url/meta_counters", c.GinHandleCreateMetaCounters)
	g.GET("/:channel_url/meta_counters", c.GinHandleGetMetaCounters)
	g.PUT("/:channel_url/meta_counters", c.GinHandleUpdateMetaCounters)
	g.DELETE("/:channel_url/meta_counters", c.GinHandleDeleteMetaCounters)

	g.GET("/:channel_url/bans", c.GinHandleListBanned)
	g.POST("/:channel_url/bans", c.GinHandleBan)
	g.DELETE("/:channel_url/bans/:user_id", c.GinHandleUnban)
	g.GET("/:channel_url/mutes", c.GinHandleListMuted)
	g.POST("/:channel_url/mutes", c.GinHandleMute)
	g.DELETE("/:channel_url/mutes/:user_id", c.GinHandleUnmute)
	g.GET("/:channel_url/operators", c.GinHandleListOperators)
	g.POST("/:channel_url/operators", c.GinHandleAddOperators)
	g.DELETE("/:channel_url/operators", c.GinHandleRemoveOperators)
	g.PUT("/:channel_url/freeze", c.GinHandleFreeze)
}

// RegisterStatic 挂载上传文件与群组封面的静态目录，URL 前缀为绝对地址时不挂载
func (c *ChatEngine) RegisterStatic(r gin.IRoutes) {
	for prefix, dir := range c.staticDirs {
		r.Static(prefix, dir)
	}
}
