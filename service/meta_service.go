package service

import (
	"context"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
)

const maxMetaKeyLen = 128

func validMetaKeys[V any](kv map[string]V) bool {
	if len(kv) == 0 {
		return false
	}
	for k := range kv {
		if k == "" || len(k) > maxMetaKeyLen {
			return false
		}
	}
	return true
}

func keysOf[V any](kv map[string]V) []string {
	out := make([]string, 0, len(kv))
	for k := range kv {
		out = append(out, k)
	}
	return sortedStrings(out)
}

// splitExisting 把 kv 分成已存在与新建两部分
func splitExisting[V any](kv map[string]V, existing []string) (created, updated map[string]V) {
	has := make(map[string]bool, len(existing))
	for _, k := range existing {
		has[k] = true
	}
	created, updated = map[string]V{}, map[string]V{}
	for k, v := range kv {
		if has[k] {
			updated[k] = v
		} else {
			created[k] = v
		}
	}
	return created, updated
}

// -------------------- 元数据 --------------------

// CreateMetaData 任何一个 key 已存在都拒绝
func (s *ChannelService) CreateMetaData(ctx context.Context, uid uint64, url string, kv map[string]string) (map[string]string, error) {
	if !validMetaKeys(kv) {
		return nil, ErrInvalidParam
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	dao := repository.NewMetaDAO(s.db(ctx))
	existing, err := dao.DataKeys(v.ch.ID, keysOf(kv))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrInvalidParam
	}
	if err := dao.UpsertData(v.ch.ID, kv); err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventMetaDataCreated, wire.MetaDataPayload{MetaData: kv})
	return kv, nil
}

// GetMetaData keys 为空返回全部
func (s *ChannelService) GetMetaData(ctx context.Context, uid uint64, url string, keys []string) (map[string]string, error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	return repository.NewMetaDAO(s.db(ctx)).GetData(v.ch.ID, uniqStrings(keys))
}

// UpdateMetaData upsert 为假时不存在的 key 返回 ErrNotFound
func (s *ChannelService) UpdateMetaData(ctx context.Context, uid uint64, url string, kv map[string]string, upsert bool) (map[string]string, error) {
	if !validMetaKeys(kv) {
		return nil, ErrInvalidParam
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	dao := repository.NewMetaDAO(s.db(ctx))
	existing, err := dao.DataKeys(v.ch.ID, keysOf(kv))
	if err != nil {
		return nil, err
	}
	created, updated := splitExisting(kv, existing)
	if len(created) > 0 && !upsert {
		return nil, ErrNotFound
	}
	if err := dao.UpsertData(v.ch.ID, kv); err != nil {
		return nil, err
	}
	if len(created) > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaDataCreated, wire.MetaDataPayload{MetaData: created})
	}
	if len(updated) > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaDataUpdated, wire.MetaDataPayload{MetaData: updated})
	}
	return kv, nil
}

// DeleteMetaData keys 为空删除全部
func (s *ChannelService) DeleteMetaData(ctx context.Context, uid uint64, url string, keys []string) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	deleted, err := repository.NewMetaDAO(s.db(ctx)).DeleteData(v.ch.ID, uniqStrings(keys))
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaDataDeleted, wire.MetaDataPayload{Keys: deleted})
	}
	return nil
}

// -------------------- 计数器 --------------------

func (s *ChannelService) CreateMetaCounters(ctx context.Context, uid uint64, url string, kv map[string]int64) (map[string]int64, error) {
	if !validMetaKeys(kv) {
		return nil, ErrInvalidParam
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	dao := repository.NewMetaDAO(s.db(ctx))
	existing, err := dao.CounterKeys(v.ch.ID, keysOf(kv))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrInvalidParam
	}
	if err := dao.SetCounters(v.ch.ID, kv); err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventMetaCountersCreated, wire.MetaCountersPayload{MetaCounters: kv})
	return kv, nil
}

func (s *ChannelService) GetMetaCounters(ctx context.Context, uid uint64, url string, keys []string) (map[string]int64, error) {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	return repository.NewMetaDAO(s.db(ctx)).GetCounters(v.ch.ID, uniqStrings(keys))
}

// 计数器更新方式
const (
	CounterSet      = "set"
	CounterIncrease = "increase"
	CounterDecrease = "decrease"
)

// UpdateMetaCounters mode 为 set/increase/decrease；增减只作用于已存在的 key。
// 返回更新后的值。
func (s *ChannelService) UpdateMetaCounters(ctx context.Context, uid uint64, url string, kv map[string]int64, mode string, upsert bool) (map[string]int64, error) {
	if !validMetaKeys(kv) {
		return nil, ErrInvalidParam
	}
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	dao := repository.NewMetaDAO(s.db(ctx))
	existing, err := dao.CounterKeys(v.ch.ID, keysOf(kv))
	if err != nil {
		return nil, err
	}
	created, updated := splitExisting(kv, existing)

	switch mode {
	case "", CounterSet:
		if len(created) > 0 && !upsert {
			return nil, ErrNotFound
		}
		if err := dao.SetCounters(v.ch.ID, kv); err != nil {
			return nil, err
		}
	case CounterIncrease, CounterDecrease:
		if len(created) > 0 {
			return nil, ErrNotFound
		}
		delta := make(map[string]int64, len(kv))
		for k, d := range kv {
			if mode == CounterDecrease {
				d = -d
			}
			delta[k] = d
		}
		if err := dao.AddCounters(v.ch.ID, delta); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidParam
	}

	out, err := dao.GetCounters(v.ch.ID, keysOf(kv))
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		c := make(map[string]int64, len(created))
		for k := range created {
			c[k] = out[k]
		}
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaCountersCreated, wire.MetaCountersPayload{MetaCounters: c})
	}
	if len(updated) > 0 {
		u := make(map[string]int64, len(updated))
		for k := range updated {
			u[k] = out[k]
		}
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaCountersUpdated, wire.MetaCountersPayload{MetaCounters: u})
	}
	return out, nil
}

func (s *ChannelService) DeleteMetaCounters(ctx context.Context, uid uint64, url string, keys []string) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	deleted, err := repository.NewMetaDAO(s.db(ctx)).DeleteCounters(v.ch.ID, uniqStrings(keys))
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.Events.Broadcast(ctx, v.ch, cons.EventMetaCountersDeleted, wire.MetaCountersPayload{Keys: deleted})
	}
	return nil
}
