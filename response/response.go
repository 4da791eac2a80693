package response

// Response 统一响应结构
type Response struct {
	Code int         `json:"code" example:"0"`                    // 业务状态码
	Msg  string      `json:"msg" example:"success"`               // 提示消息
	Data interface{} `json:"data,omitempty" swaggertype:"object"` // 响应数据
}

// 业务状态码定义
// 使用说明：
// - 中间件层：使用 HTTP 状态码（401/403/500）
// - 业务层：HTTP 200 + 业务状态码
// 客户端 SDK 依赖这些数值做错误映射，只能新增不能改值。
const (
	CodeSuccess           = 0     // 成功
	CodeParamError        = 10001 // 参数错误
	CodeUserNotFound      = 10002 // 用户不存在
	CodeAccessTokenError  = 10003 // access token 校验失败
	CodeTokenInvalid      = 10004 // session token 无效/过期
	CodePermissionDeny    = 10005 // 权限不足（非管理员）
	CodeChannelNotFound   = 10010 // 频道不存在
	CodeMessageNotFound   = 10011 // 消息不存在
	CodeNotMember         = 10012 // 不是成员/未进入频道
	CodeChannelFrozen     = 10013 // 频道已冻结
	CodeUserMuted         = 10014 // 被禁言
	CodeUserBanned        = 10015 // 被封禁
	CodeUserBlocked       = 10016 // 被拉黑
	CodeAccessCodeInvalid = 10017 // 进入码错误
	CodeNotFound          = 10018 // 其他资源不存在（元数据/定时消息等）
	CodeInternalError     = 99999 // 内部错误
)

// Success 成功响应
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

// Error 错误响应
func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}
