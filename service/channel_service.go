package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChannelService 群组频道与开放频道
type ChannelService struct {
	*Service
	users  *UserService
	unread *UnreadService
}

func NewChannelService(s *Service, users *UserService, unread *UnreadService) *ChannelService {
	return &ChannelService{Service: s, users: users, unread: unread}
}

func newChannelURL(kind string) string {
	return kind + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// distinctKey 成员集合的摘要，与顺序无关
func distinctKey(userIDs []string) string {
	h := sha1.New()
	for _, id := range sortedStrings(uniqStrings(userIDs)) {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CreateGroupChannelReq 创建群组
type CreateGroupChannelReq struct {
	ChannelURL      string   `json:"channel_url"`
	Name            string   `json:"name"`
	CoverURL        string   `json:"cover_url"`
	Data            string   `json:"data"`
	CustomType      string   `json:"custom_type"`
	UserIDs         []string `json:"user_ids"`
	OperatorUserIDs []string `json:"operator_ids"`
	IsDistinct      bool     `json:"is_distinct"`
	IsPublic        bool     `json:"is_public"`
	AccessCode      string   `json:"access_code"`
}

// CreateGroup 创建群组，创建者与 user_ids 直接成为已加入成员。
// distinct 且成员集合已存在时返回已有频道，Created=false。
func (s *ChannelService) CreateGroup(ctx context.Context, uid uint64, req CreateGroupChannelReq) (*wire.GroupChannel, error) {
	ch, created, err := s.createGroup(ctx, uid, req)
	if err != nil {
		return nil, err
	}
	return s.getGroup(ctx, uid, ch, created)
}

func (s *ChannelService) createGroup(ctx context.Context, uid uint64, req CreateGroupChannelReq) (*models.Channel, bool, error) {
	me, err := repository.NewUserDAO(s.db(ctx)).FindByID(uid)
	if err != nil {
		return nil, false, notFound(err, ErrUserNotFound)
	}
	userIDs := uniqStrings(append([]string{me.UserID}, req.UserIDs...))
	users, err := s.users.ResolveIDs(ctx, userIDs)
	if err != nil {
		return nil, false, err
	}
	if req.IsDistinct && req.IsPublic {
		return nil, false, ErrInvalidParam
	}

	var key *string
	if req.IsDistinct {
		k := distinctKey(userIDs)
		key = &k
		existing, err := s.reuseDistinct(ctx, uid, k)
		if err != nil || existing != nil {
			return existing, false, err
		}
	}

	opUsers, err := s.users.ResolveIDs(ctx, req.OperatorUserIDs)
	if err != nil {
		return nil, false, err
	}
	opIDs := make([]uint64, 0, len(opUsers))
	for _, u := range opUsers {
		opIDs = append(opIDs, u.ID)
	}
	if len(opIDs) == 0 {
		opIDs = []uint64{uid}
	}

	url := strings.TrimSpace(req.ChannelURL)
	if url == "" {
		url = newChannelURL("group")
	}
	ch := &models.Channel{
		ChannelURL:  url,
		Type:        models.ChannelTypeGroup,
		Name:        strings.TrimSpace(req.Name),
		CoverURL:    strings.TrimSpace(req.CoverURL),
		Data:        req.Data,
		CustomType:  req.CustomType,
		CreatorID:   uid,
		IsDistinct:  req.IsDistinct,
		DistinctKey: key,
		IsPublic:    req.IsPublic,
		AccessCode:  req.AccessCode,
		MemberCount: len(users),
	}
	now := s.now()
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewChannelDAO(tx).Create(ch); err != nil {
			return err
		}
		members := repository.NewMemberDAO(tx)
		for _, u := range users {
			m := &models.ChannelMember{ChannelID: ch.ID, UserID: u.ID, State: models.MemberStateJoined, JoinedAt: &now}
			if u.ID != uid {
				m.InviterID = &uid
			}
			if err := members.Upsert(m); err != nil {
				return err
			}
		}
		return repository.NewModerationDAO(tx).AddOperators(ch.ID, opIDs)
	})
	if err != nil {
		// 并发创建同一成员集合时唯一索引只放行一个，其余复用先建成的频道
		if key != nil {
			if existing, ferr := s.reuseDistinct(ctx, uid, *key); ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	s.log().Info("group channel created", zap.String("channel_url", ch.ChannelURL), zap.Int("members", len(users)))

	if ch.CoverURL == "" && s.CoverMerge != nil {
		s.fillCover(ctx, ch, users)
	}
	return ch, true, nil
}

// reuseDistinct 查找同一成员集合的 distinct 群组并对 uid 取消隐藏，不存在时返回 nil
func (s *ChannelService) reuseDistinct(ctx context.Context, uid uint64, key string) (*models.Channel, error) {
	existing, err := repository.NewChannelDAO(s.db(ctx)).FindDistinct(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := repository.NewMemberDAO(s.db(ctx)).SetHidden(existing.ID, uid, false, nil); err != nil {
		return nil, err
	}
	return existing, nil
}

// fillCover 失败只记日志，不影响创建
func (s *ChannelService) fillCover(ctx context.Context, ch *models.Channel, users []models.User) {
	urls := make([]string, 0, len(users))
	for _, u := range users {
		urls = append(urls, u.ProfileURL)
	}
	res, err := MergeCover(ctx, urls, *s.CoverMerge)
	if err != nil {
		s.log().Warn("merge group cover failed", zap.String("channel_url", ch.ChannelURL), zap.Error(err))
		return
	}
	if err := repository.NewChannelDAO(s.db(ctx)).UpdateFields(ch.ID, map[string]any{"cover_url": res.URL}); err != nil {
		s.log().Warn("save group cover failed", zap.String("channel_url", ch.ChannelURL), zap.Error(err))
		return
	}
	ch.CoverURL = res.URL
}

func (s *ChannelService) getGroup(ctx context.Context, uid uint64, ch *models.Channel, created bool) (*wire.GroupChannel, error) {
	list, err := s.buildGroupChannels(ctx, uid, []models.Channel{*ch})
	if err != nil {
		return nil, err
	}
	gc := list[0]
	gc.Created = created
	if err := s.attachMembers(ctx, ch, &gc); err != nil {
		return nil, err
	}
	return &gc, nil
}

// GetGroup 成员（含受邀）或公开群组可查看
func (s *ChannelService) GetGroup(ctx context.Context, uid uint64, url string) (*wire.GroupChannel, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return nil, ErrChannelNotFound
	}
	if v.member == nil && !v.ch.IsPublic {
		return nil, ErrNotMember
	}
	return s.getGroup(ctx, uid, v.ch, false)
}

// ListGroupReq 我的群组列表
type ListGroupReq struct {
	IncludeEmpty bool
	MemberState  string // all / joined / invited
	CustomTypes  []string
	NameContains string
	ChannelURLs  []string
	ShowHidden   bool
	Order        string
	Next         string
	Limit        int
}

func (s *ChannelService) ListMyGroups(ctx context.Context, uid uint64, req ListGroupReq) (*wire.Page[wire.GroupChannel], error) {
	cur, limit, err := pageArgs(req.Next, req.Limit)
	if err != nil {
		return nil, err
	}
	f := repository.GroupChannelFilter{
		UserID:       uid,
		IncludeEmpty: req.IncludeEmpty,
		CustomTypes:  req.CustomTypes,
		NameContains: req.NameContains,
		ChannelURLs:  req.ChannelURLs,
		ShowHidden:   req.ShowHidden,
		Order:        req.Order,
	}
	switch req.MemberState {
	case cons.MemberStateJoined:
		f.MemberState = models.MemberStateJoined
	case cons.MemberStateInvited:
		f.MemberState = models.MemberStateInvited
	}
	chs, err := repository.NewChannelDAO(s.db(ctx)).ListGroupForUser(f, cur, limit)
	if err != nil {
		return nil, err
	}
	items, err := s.buildGroupChannels(ctx, uid, chs)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.GroupChannel]{Items: items}
	if n := len(chs); n > 0 {
		last := chs[n-1]
		c := repository.Cursor{ID: last.ID}
		if req.Order != repository.OrderChronological && last.LastMessageID != nil {
			c.Key = *last.LastMessageID
		}
		page.Next = nextOf(n, limit, c)
	}
	return page, nil
}

// ListPublicReq 公开群组列表
type ListPublicReq struct {
	IncludeEmpty bool
	CustomTypes  []string
	NameContains string
	Next         string
	Limit        int
}

func (s *ChannelService) ListPublicGroups(ctx context.Context, uid uint64, req ListPublicReq) (*wire.Page[wire.GroupChannel], error) {
	cur, limit, err := pageArgs(req.Next, req.Limit)
	if err != nil {
		return nil, err
	}
	chs, err := repository.NewChannelDAO(s.db(ctx)).ListPublicGroup(repository.PublicGroupFilter{
		IncludeEmpty: req.IncludeEmpty,
		CustomTypes:  req.CustomTypes,
		NameContains: req.NameContains,
	}, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	items, err := s.buildGroupChannels(ctx, uid, chs)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.GroupChannel]{Items: items}
	if n := len(chs); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: chs[n-1].ID})
	}
	return page, nil
}

// UpdateChannelReq nil 表示不修改
type UpdateChannelReq struct {
	Name       *string `json:"name"`
	CoverURL   *string `json:"cover_url"`
	Data       *string `json:"data"`
	CustomType *string `json:"custom_type"`
	IsPublic   *bool   `json:"is_public"`
	AccessCode *string `json:"access_code"`
}

func (r UpdateChannelReq) fields(group bool) map[string]any {
	f := map[string]any{}
	if r.Name != nil {
		f["name"] = strings.TrimSpace(*r.Name)
	}
	if r.CoverURL != nil {
		f["cover_url"] = strings.TrimSpace(*r.CoverURL)
	}
	if r.Data != nil {
		f["data"] = *r.Data
	}
	if r.CustomType != nil {
		f["custom_type"] = *r.CustomType
	}
	if group && r.IsPublic != nil {
		f["is_public"] = *r.IsPublic
	}
	if group && r.AccessCode != nil {
		f["access_code"] = *r.AccessCode
	}
	return f
}

// canEdit 有管理员时只有管理员能改，否则已加入成员都可以
func (s *ChannelService) canEdit(ctx context.Context, v *channelView) error {
	if v.operator {
		return nil
	}
	ops, err := repository.NewModerationDAO(s.db(ctx)).OperatorIDs(v.ch.ID)
	if err != nil {
		return err
	}
	if len(ops) > 0 || !v.joined() {
		return ErrNotOperator
	}
	return nil
}

func (s *ChannelService) UpdateGroup(ctx context.Context, uid uint64, url string, req UpdateChannelReq) (*wire.GroupChannel, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return nil, ErrChannelNotFound
	}
	if err := s.canEdit(ctx, v); err != nil {
		return nil, err
	}
	if err := repository.NewChannelDAO(s.db(ctx)).UpdateFields(v.ch.ID, req.fields(true)); err != nil {
		return nil, err
	}
	ch, err := s.findChannel(ctx, url)
	if err != nil {
		return nil, err
	}
	s.Events.Broadcast(ctx, ch, cons.EventChannelChanged, struct{}{})
	return s.getGroup(ctx, uid, ch, false)
}

// DeleteChannel 管理员删除频道（群组/开放通用）
func (s *ChannelService) DeleteChannel(ctx context.Context, uid uint64, url string) error {
	v, err := s.requireOperator(ctx, uid, url)
	if err != nil {
		return err
	}
	audience, err := s.Events.Audience(ctx, v.ch)
	if err != nil {
		return err
	}
	if v.ch.Type == models.ChannelTypeGroup {
		invited, err := repository.NewMemberDAO(s.db(ctx)).UserIDs(v.ch.ID, models.MemberStateInvited)
		if err != nil {
			return err
		}
		audience = append(audience, invited...)
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMemberDAO(tx).DeleteByChannel(v.ch.ID); err != nil {
			return err
		}
		if err := repository.NewModerationDAO(tx).DeleteChannelRows(v.ch.ID); err != nil {
			return err
		}
		meta := repository.NewMetaDAO(tx)
		if _, err := meta.DeleteData(v.ch.ID, nil); err != nil {
			return err
		}
		if _, err := meta.DeleteCounters(v.ch.ID, nil); err != nil {
			return err
		}
		channels := repository.NewChannelDAO(tx)
		// 软删除的行仍占着唯一索引
		if v.ch.DistinctKey != nil {
			if err := channels.ClearDistinctKey(v.ch.ID); err != nil {
				return err
			}
		}
		return channels.Delete(v.ch.ID)
	})
	if err != nil {
		return err
	}
	s.log().Info("channel deleted", zap.String("channel_url", url), zap.Uint64("by", uid))
	s.Events.ChannelEvent(ctx, v.ch, cons.EventChannelDeleted, struct{}{}, audience)
	return nil
}

// -------------------- 成员关系 --------------------

// Invite 邀请用户，被邀请人进入 invited 状态，需 AcceptInvitation 后才成为成员
func (s *ChannelService) Invite(ctx context.Context, uid uint64, url string, userIDs []string) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return ErrChannelNotFound
	}
	if v.ch.IsDistinct {
		return ErrInvalidParam
	}
	users, err := s.users.ResolveIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	mod := repository.NewModerationDAO(s.db(ctx))
	members := repository.NewMemberDAO(s.db(ctx))
	var invitees []models.User
	for _, u := range users {
		if _, err := mod.ActiveBan(v.ch.ID, u.ID, s.now()); err == nil {
			return ErrUserBanned
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := members.Find(v.ch.ID, u.ID); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		invitees = append(invitees, u)
	}
	if len(invitees) == 0 {
		return nil
	}

	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		md := repository.NewMemberDAO(tx)
		for _, u := range invitees {
			if err := md.Upsert(&models.ChannelMember{ChannelID: v.ch.ID, UserID: u.ID, State: models.MemberStateInvited, InviterID: &uid}); err != nil {
				return err
			}
		}
		return repository.NewChannelDAO(tx).AddMemberCount(v.ch.ID, len(invitees))
	})
	if err != nil {
		return err
	}

	inviter, err := repository.NewUserDAO(s.db(ctx)).FindByID(uid)
	if err != nil {
		return err
	}
	wi := s.toWireUser(inviter)
	extra := make([]uint64, 0, len(invitees))
	for _, u := range invitees {
		extra = append(extra, u.ID)
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventInvitationReceived, wire.InvitationPayload{
		Inviter:  &wi,
		Invitees: s.toWireUsers(invitees),
	}, extra...)
	return nil
}

func (s *ChannelService) checkAccessCode(ch *models.Channel, code string) error {
	if ch.IsPublic && ch.AccessCode != "" && ch.AccessCode != code {
		return ErrAccessCodeInvalid
	}
	return nil
}

// AcceptInvitation 接受邀请
func (s *ChannelService) AcceptInvitation(ctx context.Context, uid uint64, url, accessCode string) (*wire.GroupChannel, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.member == nil || v.member.State != models.MemberStateInvited {
		return nil, ErrNotMember
	}
	if err := s.checkAccessCode(v.ch, accessCode); err != nil {
		return nil, err
	}
	now := s.now()
	v.member.State = models.MemberStateJoined
	v.member.JoinedAt = &now
	if err := repository.NewMemberDAO(s.db(ctx)).Upsert(v.member); err != nil {
		return nil, err
	}
	s.publishUser(ctx, v.ch, uid, cons.EventUserJoined)
	return s.getGroup(ctx, uid, v.ch, false)
}

// DeclineInvitation 拒绝邀请，移除 invited 记录
func (s *ChannelService) DeclineInvitation(ctx context.Context, uid uint64, url string) error {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.member == nil || v.member.State != models.MemberStateInvited {
		return ErrNotMember
	}
	if err := s.removeMember(ctx, v.ch, uid); err != nil {
		return err
	}
	db := repository.NewUserDAO(s.db(ctx))
	invitee, err := db.FindByID(uid)
	if err != nil {
		return err
	}
	payload := wire.InvitationPayload{}
	wi := s.toWireUser(invitee)
	payload.Invitee = &wi
	if v.member.InviterID != nil {
		if u, err := db.FindByID(*v.member.InviterID); err == nil {
			w := s.toWireUser(u)
			payload.Inviter = &w
		}
	}
	s.Events.Broadcast(ctx, v.ch, cons.EventInvitationDeclined, payload, uid)
	return nil
}

// Join 加入公开群组
func (s *ChannelService) Join(ctx context.Context, uid uint64, url, accessCode string) (*wire.GroupChannel, error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return nil, ErrChannelNotFound
	}
	if !v.ch.IsPublic {
		return nil, ErrChannelNotPublic
	}
	if v.joined() {
		return s.getGroup(ctx, uid, v.ch, false)
	}
	if err := s.checkAccessCode(v.ch, accessCode); err != nil {
		return nil, err
	}
	if _, err := repository.NewModerationDAO(s.db(ctx)).ActiveBan(v.ch.ID, uid, s.now()); err == nil {
		return nil, ErrUserBanned
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	now := s.now()
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMemberDAO(tx).Upsert(&models.ChannelMember{ChannelID: v.ch.ID, UserID: uid, State: models.MemberStateJoined, JoinedAt: &now}); err != nil {
			return err
		}
		if v.member == nil {
			return repository.NewChannelDAO(tx).AddMemberCount(v.ch.ID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishUser(ctx, v.ch, uid, cons.EventUserJoined)
	return s.getGroup(ctx, uid, v.ch, false)
}

// Leave 退出群组，同时失去管理员身份
func (s *ChannelService) Leave(ctx context.Context, uid uint64, url string) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return ErrChannelNotFound
	}
	if err := s.removeMember(ctx, v.ch, uid); err != nil {
		return err
	}
	if err := repository.NewModerationDAO(s.db(ctx)).RemoveOperators(v.ch.ID, []uint64{uid}); err != nil {
		return err
	}
	s.publishUser(ctx, v.ch, uid, cons.EventUserLeft, uid)
	return nil
}

// removeMember 删除成员并维护计数；distinct 群组成员集合变了，不再参与去重
func (s *Service) removeMember(ctx context.Context, ch *models.Channel, uid uint64) error {
	cleared := false
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repository.NewMemberDAO(tx).Delete(ch.ID, uid)
		if err != nil || n == 0 {
			return err
		}
		channels := repository.NewChannelDAO(tx)
		if ch.DistinctKey != nil {
			if err := channels.ClearDistinctKey(ch.ID); err != nil {
				return err
			}
			cleared = true
		}
		return channels.AddMemberCount(ch.ID, -int(n))
	})
	if err == nil && cleared {
		ch.DistinctKey = nil
	}
	return err
}

// publishUser 推送单用户事件（joined/left/muted/banned...）
func (s *Service) publishUser(ctx context.Context, ch *models.Channel, uid uint64, event string, extra ...uint64) {
	u, err := repository.NewUserDAO(s.db(ctx)).FindByID(uid)
	if err != nil {
		s.log().Warn("user event lookup failed", zap.Uint64("uid", uid), zap.String("event", event), zap.Error(err))
		return
	}
	s.Events.Broadcast(ctx, ch, event, wire.UserPayload{User: s.toWireUser(u)}, extra...)
}

// Hide 隐藏群组；hidePrev 为真时当前及之前的消息对自己不可见
func (s *ChannelService) Hide(ctx context.Context, uid uint64, url string, hidePrev bool) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return ErrChannelNotFound
	}
	var offset *uint64
	if hidePrev && v.ch.LastMessageID != nil {
		offset = v.ch.LastMessageID
	}
	if err := repository.NewMemberDAO(s.db(ctx)).SetHidden(v.ch.ID, uid, true, offset); err != nil {
		return err
	}
	s.Events.ChannelEvent(ctx, v.ch, cons.EventChannelHidden, struct{}{}, []uint64{uid})
	if offset != nil {
		s.unread.PublishTotal(ctx, uid)
	}
	return nil
}

func (s *ChannelService) Unhide(ctx context.Context, uid uint64, url string) error {
	v, err := s.requireJoined(ctx, uid, url)
	if err != nil {
		return err
	}
	return repository.NewMemberDAO(s.db(ctx)).SetHidden(v.ch.ID, uid, false, nil)
}

// ListMembersReq 成员列表
type ListMembersReq struct {
	Filter repository.MemberFilter
	Next   string
	Limit  int
}

func (s *ChannelService) ListMembers(ctx context.Context, uid uint64, url string, req ListMembersReq) (*wire.Page[wire.Member], error) {
	v, err := s.viewChannel(ctx, uid, url)
	if err != nil {
		return nil, err
	}
	if v.ch.Type != models.ChannelTypeGroup {
		return nil, ErrChannelNotFound
	}
	if v.member == nil && !v.ch.IsPublic {
		return nil, ErrNotMember
	}
	cur, limit, err := pageArgs(req.Next, req.Limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewMemberDAO(s.db(ctx)).List(v.ch.ID, req.Filter, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	items, err := s.wireMembers(ctx, v.ch, rows)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.Member]{Items: items}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}
