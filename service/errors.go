package service

import (
	"errors"

	"gorm.io/gorm"
)

// 业务错误，handler 层据此映射 response code
var (
	ErrInvalidParam       = errors.New("invalid parameter")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccessTokenInvalid = errors.New("access token mismatch")
	ErrSessionInvalid     = errors.New("session token invalid")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMember          = errors.New("not a member of the channel")
	ErrNotOperator        = errors.New("operator permission required")
	ErrNotSender          = errors.New("only the sender can modify the message")
	ErrChannelFrozen      = errors.New("channel is frozen")
	ErrUserMuted          = errors.New("user is muted")
	ErrUserBanned         = errors.New("user is banned")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrAccessCodeInvalid  = errors.New("access code invalid")
	ErrChannelNotPublic   = errors.New("channel is not public")
	ErrNotFound           = errors.New("not found")
	ErrScheduleInvalid    = errors.New("scheduled_at out of range")
)

// notFound 把 gorm.ErrRecordNotFound 换成业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
