package service

import (
	"context"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
)

// 单个频道详情里附带的成员数上限，超出请走成员列表
const inlineMemberLimit = 100

// buildGroupChannels 以 uid 视角批量组装群组频道。
// 未读数、@ 数、我的角色/禁言都按频道批量查询，避免 N+1。
func (s *Service) buildGroupChannels(ctx context.Context, uid uint64, chs []models.Channel) ([]wire.GroupChannel, error) {
	out := make([]wire.GroupChannel, 0, len(chs))
	if len(chs) == 0 {
		return out, nil
	}
	db := s.db(ctx)

	ids := make([]uint64, 0, len(chs))
	var lastIDs []uint64
	for _, ch := range chs {
		ids = append(ids, ch.ID)
		if ch.LastMessageID != nil {
			lastIDs = append(lastIDs, *ch.LastMessageID)
		}
	}

	members, err := repository.NewMemberDAO(db).ListByChannels(uid, ids)
	if err != nil {
		return nil, err
	}
	mine := make(map[uint64]*models.ChannelMember, len(members))
	var inviterIDs []uint64
	for i := range members {
		mine[members[i].ChannelID] = &members[i]
		if members[i].InviterID != nil {
			inviterIDs = append(inviterIDs, *members[i].InviterID)
		}
	}

	joined, err := repository.NewMemberDAO(db).JoinedCounts(ids)
	if err != nil {
		return nil, err
	}
	unread, err := repository.NewMessageDAO(db).UnreadCounts(uid, ids)
	if err != nil {
		return nil, err
	}
	mod := repository.NewModerationDAO(db)
	ops, err := mod.OperatorChannels(uid, ids)
	if err != nil {
		return nil, err
	}
	muted, err := mod.MutedChannels(uid, ids, s.now())
	if err != nil {
		return nil, err
	}

	lastMsgs, err := repository.NewMessageDAO(db).FindByIDs(lastIDs)
	if err != nil {
		return nil, err
	}
	lastByID := make(map[uint64]*models.Message, len(lastMsgs))
	for i := range lastMsgs {
		lastByID[lastMsgs[i].ID] = &lastMsgs[i]
	}

	inviters := map[uint64]*models.User{}
	if len(inviterIDs) > 0 {
		us, err := repository.NewUserDAO(db).FindByIDs(uniqUint64(inviterIDs))
		if err != nil {
			return nil, err
		}
		for i := range us {
			inviters[us[i].ID] = &us[i]
		}
	}

	me, err := repository.NewUserDAO(db).FindByID(uid)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	var ranges []repository.ChannelIDRange
	for _, ch := range chs {
		m := mine[ch.ID]
		if m == nil || ch.LastMessageID == nil {
			continue
		}
		var lr uint64
		if m.LastReadMsgID != nil {
			lr = *m.LastReadMsgID
		}
		ranges = append(ranges, repository.ChannelIDRange{ChannelID: ch.ID, MinExclusive: lr, MaxInclusive: *ch.LastMessageID})
	}
	mentions, err := repository.NewMentionDAO(db).CountInRanges(me.UserID, ranges)
	if err != nil {
		return nil, err
	}

	for i := range chs {
		ch := &chs[i]
		gc := wire.GroupChannel{
			ChannelURL:           ch.ChannelURL,
			Name:                 ch.Name,
			CoverURL:             ch.CoverURL,
			Data:                 ch.Data,
			CustomType:           ch.CustomType,
			CreatedAt:            ms(ch.CreatedAt),
			IsFrozen:             ch.IsFrozen,
			IsDistinct:           ch.IsDistinct,
			IsPublic:             ch.IsPublic,
			IsAccessCodeRequired: ch.AccessCode != "",
			MemberCount:          ch.MemberCount,
			JoinedMemberCount:    joined[ch.ID],
			UnreadMessageCount:   unread[ch.ID],
			UnreadMentionCount:   mentions[ch.ID],
			MyMemberState:        cons.MemberStateNone,
			MyRole:               cons.RoleNone,
			MyMutedState:         cons.MutedStateUnmuted,
		}
		if ops[ch.ID] {
			gc.MyRole = cons.RoleOperator
		}
		if muted[ch.ID] {
			gc.MyMutedState = cons.MutedStateMuted
		}
		if m := mine[ch.ID]; m != nil {
			gc.MyMemberState = memberStateName(m.State)
			gc.IsHidden = m.IsHidden
			if m.LastReadAt != nil {
				gc.MyLastRead = ms(*m.LastReadAt)
			}
			if m.InviterID != nil {
				if u := inviters[*m.InviterID]; u != nil {
					w := s.toWireUser(u)
					gc.Inviter = &w
				}
			}
			if m.MessageOffsetID != nil && ch.LastMessageID != nil && *ch.LastMessageID <= *m.MessageOffsetID {
				gc.UnreadMessageCount = 0
			}
		}
		if ch.LastMessageID != nil {
			if lm := lastByID[*ch.LastMessageID]; lm != nil && (mine[ch.ID] == nil || mine[ch.ID].MessageOffsetID == nil || lm.ID > *mine[ch.ID].MessageOffsetID) {
				w := s.toWireMessage(ch, lm, nil)
				gc.LastMessage = &w
			}
		}
		out = append(out, gc)
	}
	return out, nil
}

// attachMembers 单频道详情附带成员与管理员
func (s *Service) attachMembers(ctx context.Context, ch *models.Channel, gc *wire.GroupChannel) error {
	rows, err := repository.NewMemberDAO(s.db(ctx)).List(ch.ID, repository.MemberFilter{}, 0, inlineMemberLimit)
	if err != nil {
		return err
	}
	members, err := s.wireMembers(ctx, ch, rows)
	if err != nil {
		return err
	}
	gc.Members = members
	for _, m := range members {
		if m.Role == cons.RoleOperator {
			gc.Operators = append(gc.Operators, m.User)
		}
	}
	return nil
}

// wireMembers 成员列表，带角色与禁言状态
func (s *Service) wireMembers(ctx context.Context, ch *models.Channel, rows []models.ChannelMember) ([]wire.Member, error) {
	mod := repository.NewModerationDAO(s.db(ctx))
	opIDs, err := mod.OperatorIDs(ch.ID)
	if err != nil {
		return nil, err
	}
	ops := make(map[uint64]bool, len(opIDs))
	for _, id := range opIDs {
		ops[id] = true
	}
	muted, err := mod.MutedUserIDs(ch.ID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]wire.Member, 0, len(rows))
	for i := range rows {
		m := wire.Member{
			User:    s.toWireUser(&rows[i].User),
			State:   memberStateName(rows[i].State),
			Role:    cons.RoleNone,
			IsMuted: muted[rows[i].UserID],
		}
		if ops[rows[i].UserID] {
			m.Role = cons.RoleOperator
		}
		out = append(out, m)
	}
	return out, nil
}

func memberStateName(st uint8) string {
	switch st {
	case models.MemberStateInvited:
		return cons.MemberStateInvited
	case models.MemberStateJoined:
		return cons.MemberStateJoined
	default:
		return cons.MemberStateNone
	}
}

func (s *Service) toWireOpenChannel(ctx context.Context, ch *models.Channel) (*wire.OpenChannel, error) {
	oc := &wire.OpenChannel{
		ChannelURL:       ch.ChannelURL,
		Name:             ch.Name,
		CoverURL:         ch.CoverURL,
		Data:             ch.Data,
		CustomType:       ch.CustomType,
		CreatedAt:        ms(ch.CreatedAt),
		IsFrozen:         ch.IsFrozen,
		ParticipantCount: ch.ParticipantCount,
	}
	ops, err := repository.NewModerationDAO(s.db(ctx)).ListOperators(ch.ID, 0, repository.MaxLimit)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		oc.Operators = append(oc.Operators, s.toWireUser(&ops[i].User))
	}
	return oc, nil
}
