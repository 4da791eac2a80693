package client

import (
	"context"

	"github.com/cydxin/birdchat/wire"
)

// OpenChannel 开放频道，进入即可收发消息，不保留成员关系
type OpenChannel struct {
	BaseChannel
	ParticipantCount int
}

func (o *OpenChannel) replace(w wire.OpenChannel) {
	*o = *o.main.openFromWire(w)
}

// Enter 进入频道
func (o *OpenChannel) Enter(ctx context.Context) error {
	var w wire.OpenChannel
	if err := o.api().post(ctx, o.path()+"/enter", nil, &w); err != nil {
		return err
	}
	o.replace(w)
	return nil
}

// Exit 离开频道
func (o *OpenChannel) Exit(ctx context.Context) error {
	if err := o.api().post(ctx, o.path()+"/exit", nil, nil); err != nil {
		return err
	}
	if o.ParticipantCount > 0 {
		o.ParticipantCount--
	}
	return nil
}

// Refresh 重新拉取频道信息
func (o *OpenChannel) Refresh(ctx context.Context) error {
	var w wire.OpenChannel
	if err := o.api().get(ctx, o.path(), nil, &w); err != nil {
		return err
	}
	o.replace(w)
	return nil
}

// Update 修改频道属性，空字段不修改
func (o *OpenChannel) Update(ctx context.Context, params *OpenChannelParams) error {
	if params == nil {
		return ErrInvalidParameter
	}
	body := map[string]any{}
	setIf(body, "name", params.Name)
	setIf(body, "cover_url", params.CoverURL)
	setIf(body, "data", params.Data)
	setIf(body, "custom_type", params.CustomType)
	var w wire.OpenChannel
	if err := o.api().put(ctx, o.path(), body, &w); err != nil {
		return err
	}
	o.replace(w)
	return nil
}

// CreateParticipantListQuery 在场用户
func (o *OpenChannel) CreateParticipantListQuery() *ParticipantListQuery {
	return &ParticipantListQuery{newUserListQuery(o.api(), o.path()+"/participants", nil)}
}
