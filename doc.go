// Package birdchat 即时通讯服务端引擎与客户端 SDK 的统一入口
// @title BirdChat API
// @version 3.0
// @description 即时通讯服务的 RESTful API 文档，包含会话、用户、群组频道、开放频道、消息、频道管理、元数据、定时消息等模块
// @description
// @description ## 业务状态码说明
// @description | Code | 说明 |
// @description |------|------|
// @description | 0 | 成功 |
// @description | 10001 | 参数错误 |
// @description | 10002 | 用户不存在 |
// @description | 10003 | access token 校验失败 |
// @description | 10004 | session token 无效/过期 |
// @description | 10005 | 权限不足（非管理员） |
// @description | 10010 | 频道不存在 |
// @description | 10011 | 消息不存在 |
// @description | 10012 | 不是成员/未进入频道 |
// @description | 10013 | 频道已冻结 |
// @description | 10014 | 被禁言 |
// @description | 10015 | 被封禁 |
// @description | 10016 | 被拉黑 |
// @description | 10017 | 进入码错误 |
// @description | 10018 | 资源不存在 |
// @description | 99999 | 内部错误 |
// @description
// @description ## HTTP 状态码说明
// @description - **200**: 业务请求已处理（根据 response.code 判断业务状态）
// @description - **400**: 请求体无法解析
// @description - **401**: 认证失败（未登录/Token 无效）
// @description - **500**: 服务器内部错误
// @description
// @description ## 响应格式
// @description ```json
// @description {
// @description   "code": 0,
// @description   "msg": "success",
// @description   "data": {}
// @description }
// @description ```
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:6789
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 格式：Bearer <session_token>
//
// @securityDefinitions.apikey QueryToken
// @in query
// @name token
// @description 用于 WebSocket 等无法传 header 的场景
package birdchat

//go:generate swag init -g doc.go -o docs --parseInternal
