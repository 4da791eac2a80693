package service

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/wire"
	"gorm.io/datatypes"
)

// ms 转毫秒时间戳，零值返回 0
func ms(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMS(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}

func channelTypeName(t uint8) string {
	if t == models.ChannelTypeOpen {
		return cons.ChannelTypeOpen
	}
	return cons.ChannelTypeGroup
}

func messageTypeName(t uint8) string {
	switch t {
	case models.MessageTypeFile:
		return cons.MessageTypeFile
	case models.MessageTypeAdmin:
		return cons.MessageTypeAdmin
	default:
		return cons.MessageTypeUser
	}
}

func messageTypeFromName(s string) uint8 {
	switch s {
	case cons.MessageTypeUser:
		return models.MessageTypeUser
	case cons.MessageTypeFile:
		return models.MessageTypeFile
	case cons.MessageTypeAdmin:
		return models.MessageTypeAdmin
	default:
		return 0
	}
}

func (s *Service) toWireUser(u *models.User) wire.User {
	if u == nil {
		return wire.User{}
	}
	out := wire.User{
		UserID:     u.UserID,
		Nickname:   u.Nickname,
		ProfileURL: u.ProfileURL,
		IsActive:   u.IsActive,
		IsOnline:   s.isOnline(u.ID),
	}
	if u.LastSeenAt != nil {
		out.LastSeenAt = ms(*u.LastSeenAt)
	}
	if len(u.MetaData) > 0 {
		_ = json.Unmarshal(u.MetaData, &out.MetaData)
	}
	return out
}

func (s *Service) toWireUsers(us []models.User) []wire.User {
	out := make([]wire.User, 0, len(us))
	for i := range us {
		out = append(out, s.toWireUser(&us[i]))
	}
	return out
}

func jsonOf(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return b
}

func stringsOf(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(j, &out)
	return out
}

func metaArraysOf(j datatypes.JSON) []wire.MetaArray {
	if len(j) == 0 {
		return nil
	}
	var out []wire.MetaArray
	_ = json.Unmarshal(j, &out)
	return out
}

// toWireMessage 需要的额外信息由调用方批量准备
type messageExtras struct {
	mentioned map[string]wire.User         // user_id -> user
	reactions map[uint64][]models.Reaction // message_id -> reactions
	operators map[uint64]bool              // 发送者是否为管理员
}

func (s *Service) toWireMessage(ch *models.Channel, m *models.Message, ex *messageExtras) wire.Message {
	out := wire.Message{
		MessageID:   m.ID,
		Type:        messageTypeName(m.Type),
		ChannelURL:  ch.ChannelURL,
		ChannelType: channelTypeName(ch.Type),
		RequestID:   m.RequestID,
		Message:     m.Message,
		Data:        m.Data,
		CustomType:  m.CustomType,
		MetaArrays:  metaArraysOf(m.MetaArrays),
		CreatedAt:   ms(m.CreatedAt),
		UpdatedAt:   ms(m.UpdatedAt),
	}
	if m.ParentMessageID != nil {
		out.ParentMessageID = *m.ParentMessageID
	}
	if m.Type != models.MessageTypeAdmin && m.SenderID != 0 {
		u := s.toWireUser(&m.Sender)
		out.Sender = &u
		out.SenderRole = cons.RoleNone
		if ex != nil && ex.operators[m.SenderID] {
			out.SenderRole = cons.RoleOperator
		}
	}
	if m.Type == models.MessageTypeFile {
		f := &wire.File{URL: m.FileURL, Name: m.FileName, Size: m.FileSize, Type: m.FileType}
		if len(m.Thumbnails) > 0 {
			_ = json.Unmarshal(m.Thumbnails, &f.Thumbnails)
		}
		out.File = f
	}
	for _, uid := range stringsOf(m.MentionedUsers) {
		u := wire.User{UserID: uid}
		if ex != nil {
			if full, ok := ex.mentioned[uid]; ok {
				u = full
			}
		}
		out.MentionedUsers = append(out.MentionedUsers, u)
	}
	if ex != nil {
		out.Reactions = aggregateReactions(ex.reactions[m.ID])
	}
	return out
}

// aggregateReactions 按 key 聚合，key 顺序按首次出现
func aggregateReactions(rs []models.Reaction) []wire.Reaction {
	if len(rs) == 0 {
		return nil
	}
	idx := map[string]int{}
	var out []wire.Reaction
	for _, r := range rs {
		i, ok := idx[r.Key]
		if !ok {
			i = len(out)
			idx[r.Key] = i
			out = append(out, wire.Reaction{Key: r.Key})
		}
		out[i].UserIDs = append(out[i].UserIDs, r.User.UserID)
		if t := ms(r.CreatedAt); t > out[i].UpdatedAt {
			out[i].UpdatedAt = t
		}
	}
	return out
}

func uniqUint64(in []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(in))
	out := make([]uint64, 0, len(in))
	for _, v := range in {
		if v == 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func uniqStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
