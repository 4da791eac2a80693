package repository

import (
	"github.com/cydxin/birdchat/models"
	"gorm.io/gorm"
)

// ChannelIDRange 频道内的消息 id 区间 (MinExclusive, MaxInclusive]
type ChannelIDRange struct {
	ChannelID    uint64
	MinExclusive uint64
	MaxInclusive uint64
}

// MentionDAO 查询未读区间内 @ 了某用户的消息
type MentionDAO struct {
	db *gorm.DB
}

func NewMentionDAO(db *gorm.DB) *MentionDAO {
	return &MentionDAO{db: db}
}

func (dao *MentionDAO) WithDB(db *gorm.DB) *MentionDAO {
	if db == nil {
		return dao
	}
	return &MentionDAO{db: db}
}

// CountInRanges 统计每个频道未读区间内 mentioned_users 含 userID 的消息数。
//
// 用 (channel_id, id 区间) 做 OR 组合，只 select channel_id。
// 群组列表一页最多 100 个频道，OR 长度可控。
func (dao *MentionDAO) CountInRanges(userID string, ranges []ChannelIDRange) (map[uint64]int, error) {
	out := make(map[uint64]int)
	if userID == "" {
		return out, nil
	}

	var conds []string
	var args []any
	for _, rg := range ranges {
		if rg.ChannelID == 0 || rg.MaxInclusive == 0 || rg.MinExclusive >= rg.MaxInclusive {
			continue
		}
		conds = append(conds, "(channel_id = ? AND id > ? AND id <= ?)")
		args = append(args, rg.ChannelID, rg.MinExclusive, rg.MaxInclusive)
	}
	if len(conds) == 0 {
		return out, nil
	}

	where := conds[0]
	for _, c := range conds[1:] {
		where += " OR " + c
	}

	var rows []struct {
		ChannelID uint64
		Cnt       int
	}
	err := dao.db.Model(&models.Message{}).
		Select("channel_id, COUNT(*) AS cnt").
		Where("JSON_CONTAINS(mentioned_users, JSON_QUOTE(?))", userID).
		Where(where, args...).
		Group("channel_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ChannelID] = r.Cnt
	}
	return out, nil
}
