package client

import (
	"fmt"

	"github.com/cydxin/birdchat/response"
)

// ErrorCode SDK 错误码
type ErrorCode int

const (
	CodeInvalidParameter ErrorCode = 400100
	CodeUnauthorized     ErrorCode = 400302
	CodeUserNotFound     ErrorCode = 400201
	CodeChannelNotFound  ErrorCode = 400300
	CodeMessageNotFound  ErrorCode = 400400
	CodeResourceNotFound ErrorCode = 400500
	CodeNotOperator      ErrorCode = 400108
	CodeInternal         ErrorCode = 500901

	CodeNotConnected    ErrorCode = 800101
	CodeQueryInProgress ErrorCode = 800170
	CodeAckTimeout      ErrorCode = 800180
	CodeWebSocketClosed ErrorCode = 800200
	CodeRequestFailed   ErrorCode = 800220

	CodeNotMember     ErrorCode = 900020
	CodeUserMuted     ErrorCode = 900041
	CodeChannelFrozen ErrorCode = 900050
	CodeUserBanned    ErrorCode = 900060
	CodeUserBlocked   ErrorCode = 900080
)

var codeNames = map[ErrorCode]string{
	CodeInvalidParameter: "invalid parameter",
	CodeUnauthorized:     "unauthorized",
	CodeUserNotFound:     "user not found",
	CodeChannelNotFound:  "channel not found",
	CodeMessageNotFound:  "message not found",
	CodeResourceNotFound: "resource not found",
	CodeNotOperator:      "not operator",
	CodeInternal:         "internal error",
	CodeNotConnected:     "not connected",
	CodeQueryInProgress:  "query in progress",
	CodeAckTimeout:       "ack timeout",
	CodeWebSocketClosed:  "websocket closed",
	CodeRequestFailed:    "request failed",
	CodeNotMember:        "not member",
	CodeUserMuted:        "user muted",
	CodeChannelFrozen:    "channel frozen",
	CodeUserBanned:       "user banned",
	CodeUserBlocked:      "user blocked",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error %d", int(c))
}

// Error SDK 返回的错误。errors.Is 按 Code 比较。
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("birdchat: %s (%d): %v", msg, int(e.Code), e.Cause)
	}
	return fmt.Sprintf("birdchat: %s (%d)", msg, int(e.Code))
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Message: code.String(), Cause: cause}
}

// 用于 errors.Is 的哨兵值
var (
	ErrInvalidParameter = &Error{Code: CodeInvalidParameter}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized}
	ErrUserNotFound     = &Error{Code: CodeUserNotFound}
	ErrChannelNotFound  = &Error{Code: CodeChannelNotFound}
	ErrMessageNotFound  = &Error{Code: CodeMessageNotFound}
	ErrNotOperator      = &Error{Code: CodeNotOperator}
	ErrNotConnected     = &Error{Code: CodeNotConnected}
	ErrQueryInProgress  = &Error{Code: CodeQueryInProgress}
	ErrAckTimeout       = &Error{Code: CodeAckTimeout}
	ErrWebSocketClosed  = &Error{Code: CodeWebSocketClosed}
	ErrRequestFailed    = &Error{Code: CodeRequestFailed}
	ErrNotMember        = &Error{Code: CodeNotMember}
	ErrUserMuted        = &Error{Code: CodeUserMuted}
	ErrChannelFrozen    = &Error{Code: CodeChannelFrozen}
	ErrUserBanned       = &Error{Code: CodeUserBanned}
	ErrUserBlocked      = &Error{Code: CodeUserBlocked}
)

// 服务端业务码 -> SDK 错误码
var serverCodes = map[int]ErrorCode{
	response.CodeParamError:        CodeInvalidParameter,
	response.CodeUserNotFound:      CodeUserNotFound,
	response.CodeAccessTokenError:  CodeUnauthorized,
	response.CodeTokenInvalid:      CodeUnauthorized,
	response.CodePermissionDeny:    CodeNotOperator,
	response.CodeChannelNotFound:   CodeChannelNotFound,
	response.CodeMessageNotFound:   CodeMessageNotFound,
	response.CodeNotMember:         CodeNotMember,
	response.CodeChannelFrozen:     CodeChannelFrozen,
	response.CodeUserMuted:         CodeUserMuted,
	response.CodeUserBanned:        CodeUserBanned,
	response.CodeUserBlocked:       CodeUserBlocked,
	response.CodeAccessCodeInvalid: CodeInvalidParameter,
	response.CodeNotFound:          CodeResourceNotFound,
	response.CodeInternalError:     CodeInternal,
}

// serverError 把服务端的 {code,msg} 还原为 *Error
func serverError(code int, msg string) *Error {
	c, ok := serverCodes[code]
	if !ok {
		c = CodeRequestFailed
	}
	if msg == "" {
		msg = c.String()
	}
	return &Error{Code: c, Message: msg}
}

// MessageFailure 临时消息已经生成后发送失败
type MessageFailure struct {
	Message BaseMessage
	Err     *Error
}

func (f *MessageFailure) Error() string {
	if f.Err == nil {
		return "birdchat: message failed"
	}
	return f.Err.Error()
}

func (f *MessageFailure) Unwrap() error {
	if f.Err == nil {
		return nil
	}
	return f.Err
}
