package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cydxin/birdchat/response"
	"github.com/stretchr/testify/assert"
)

func TestServerError_Mapping(t *testing.T) {
	cases := []struct {
		code int
		want *Error
	}{
		{response.CodeParamError, ErrInvalidParameter},
		{response.CodeTokenInvalid, ErrUnauthorized},
		{response.CodeAccessTokenError, ErrUnauthorized},
		{response.CodePermissionDeny, ErrNotOperator},
		{response.CodeChannelNotFound, ErrChannelNotFound},
		{response.CodeMessageNotFound, ErrMessageNotFound},
		{response.CodeNotMember, ErrNotMember},
		{response.CodeChannelFrozen, ErrChannelFrozen},
		{response.CodeUserMuted, ErrUserMuted},
		{response.CodeUserBanned, ErrUserBanned},
		{response.CodeUserBlocked, ErrUserBlocked},
		{12345, ErrRequestFailed},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			err := serverError(tc.code, "")
			assert.True(t, errors.Is(err, tc.want), "code %d -> %v", tc.code, err)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestError_IsByCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", newError(CodeAckTimeout, cause))

	assert.True(t, errors.Is(err, ErrAckTimeout))
	assert.False(t, errors.Is(err, ErrNotConnected))
	assert.True(t, errors.Is(err, cause))

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, CodeAckTimeout, e.Code)
	assert.Contains(t, e.Error(), "800180")
}

func TestMessageFailure_NilSafe(t *testing.T) {
	f := &MessageFailure{}
	assert.NotEmpty(t, f.Error())
	assert.Nil(t, f.Unwrap())

	f = &MessageFailure{Err: newError(CodeUserBanned, nil)}
	assert.True(t, errors.Is(f, ErrUserBanned))
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "channel frozen", CodeChannelFrozen.String())
	assert.Equal(t, "error 42", ErrorCode(42).String())
}
