package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/models"
	"github.com/cydxin/birdchat/repository"
	"github.com/cydxin/birdchat/wire"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 用户资料、拉黑与好友
type UserService struct {
	*Service
}

func NewUserService(s *Service) *UserService {
	return &UserService{Service: s}
}

// Authenticate 校验 user_id + access token。
// 用户不存在且开启 AutoCreateUsers 时自动创建；未设置 access token 的用户不校验。
func (s *UserService) Authenticate(ctx context.Context, userID, accessToken string) (*models.User, error) {
	dao := repository.NewUserDAO(s.db(ctx))
	u, err := dao.FindByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !s.AutoCreateUsers {
			return nil, ErrUserNotFound
		}
		u = &models.User{UserID: userID, Nickname: userID, IsActive: true}
		if err := dao.Create(u); err != nil {
			return nil, err
		}
		s.log().Info("user auto created", zap.String("user_id", userID))
		return u, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccessTokenInvalid
	}
	if u.AccessTokenHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(u.AccessTokenHash), []byte(accessToken)) != nil {
			return nil, ErrAccessTokenInvalid
		}
	}
	return u, nil
}

// IssueAccessToken 为用户生成新的 access token，不存在则创建。
// 明文只返回这一次，库里只存 bcrypt。
func (s *UserService) IssueAccessToken(ctx context.Context, userID, nickname string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidParam
	}
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	dao := repository.NewUserDAO(s.db(ctx))
	u, err := dao.FindByUserID(userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if nickname == "" {
			nickname = userID
		}
		err = dao.Create(&models.User{UserID: userID, Nickname: nickname, IsActive: true, AccessTokenHash: string(hash)})
	case err == nil:
		err = dao.UpdateFields(u.ID, map[string]any{"access_token_hash": string(hash)})
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get 内部 id 查用户
func (s *UserService) Get(ctx context.Context, id uint64) (*wire.User, error) {
	u, err := repository.NewUserDAO(s.db(ctx)).FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	out := s.toWireUser(u)
	return &out, nil
}

// ResolveIDs 对外 user_id 转内部用户，任何一个不存在都返回 ErrUserNotFound
func (s *UserService) ResolveIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	ids := uniqStrings(userIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := repository.NewUserDAO(s.db(ctx)).FindByUserIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, ErrUserNotFound
	}
	return users, nil
}

func (s *UserService) resolveOne(ctx context.Context, userID string) (*models.User, error) {
	u, err := repository.NewUserDAO(s.db(ctx)).FindByUserID(strings.TrimSpace(userID))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

// UpdateProfileReq nil 表示不修改
type UpdateProfileReq struct {
	Nickname   *string           `json:"nickname"`
	ProfileURL *string           `json:"profile_url"`
	MetaData   map[string]string `json:"meta_data"`
}

// UpdateProfile 修改昵称/头像/元数据，meta_data 整体覆盖
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, req UpdateProfileReq) (*wire.User, error) {
	fields := map[string]any{}
	if req.Nickname != nil {
		n := strings.TrimSpace(*req.Nickname)
		if n == "" || len([]rune(n)) > 100 {
			return nil, ErrInvalidParam
		}
		fields["nickname"] = n
	}
	if req.ProfileURL != nil {
		fields["profile_url"] = strings.TrimSpace(*req.ProfileURL)
	}
	if req.MetaData != nil {
		fields["meta_data"] = jsonOf(req.MetaData)
	}
	if err := repository.NewUserDAO(s.db(ctx)).UpdateFields(id, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// TouchLastSeen 断线时记录最后在线时间
func (s *UserService) TouchLastSeen(ctx context.Context, id uint64) {
	now := s.now()
	if err := repository.NewUserDAO(s.db(ctx)).UpdateFields(id, map[string]any{"last_seen_at": &now}); err != nil {
		s.log().Warn("update last_seen_at failed", zap.Uint64("uid", id), zap.Error(err))
	}
}

// List 应用用户列表
func (s *UserService) List(ctx context.Context, f repository.UserFilter, next string, limit int) (*wire.Page[wire.User], error) {
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	users, err := repository.NewUserDAO(s.db(ctx)).List(f, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: s.toWireUsers(users)}
	if n := len(users); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: users[n-1].ID})
	}
	return page, nil
}

// -------------------- 拉黑 --------------------

// Block 拉黑对方，返回被拉黑的用户
func (s *UserService) Block(ctx context.Context, id uint64, targetUserID string) (*wire.User, error) {
	t, err := s.resolveOne(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if t.ID == id {
		return nil, ErrInvalidParam
	}
	if err := repository.NewSocialDAO(s.db(ctx)).Block(id, t.ID); err != nil {
		return nil, err
	}
	out := s.toWireUser(t)
	return &out, nil
}

func (s *UserService) Unblock(ctx context.Context, id uint64, targetUserID string) error {
	t, err := s.resolveOne(ctx, targetUserID)
	if err != nil {
		return err
	}
	return repository.NewSocialDAO(s.db(ctx)).Unblock(id, t.ID)
}

func (s *UserService) ListBlocked(ctx context.Context, id uint64, next string, limit int) (*wire.Page[wire.User], error) {
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewSocialDAO(s.db(ctx)).ListBlocked(id, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: make([]wire.User, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireUser(&rows[i].Target))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}

// -------------------- 好友 --------------------

// AddFriends 添加好友（单向），成功后推送 friends discovered
func (s *UserService) AddFriends(ctx context.Context, id uint64, userIDs []string) ([]wire.User, error) {
	users, err := s.ResolveIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(users))
	found := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID == id {
			continue
		}
		ids = append(ids, u.ID)
		found = append(found, u)
	}
	if len(ids) == 0 {
		return []wire.User{}, nil
	}
	if err := repository.NewSocialDAO(s.db(ctx)).AddFriends(id, ids); err != nil {
		return nil, err
	}
	out := s.toWireUsers(found)
	s.Events.UserEvent(ctx, id, cons.EventFriendsDiscovered, wire.FriendsPayload{Friends: out})
	return out, nil
}

func (s *UserService) DeleteFriend(ctx context.Context, id uint64, friendUserID string) error {
	f, err := s.resolveOne(ctx, friendUserID)
	if err != nil {
		return err
	}
	return repository.NewSocialDAO(s.db(ctx)).DeleteFriend(id, f.ID)
}

func (s *UserService) ListFriends(ctx context.Context, id uint64, next string, limit int) (*wire.Page[wire.User], error) {
	cur, limit, err := pageArgs(next, limit)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewSocialDAO(s.db(ctx)).ListFriends(id, cur.ID, limit)
	if err != nil {
		return nil, err
	}
	page := &wire.Page[wire.User]{Items: make([]wire.User, 0, len(rows))}
	for i := range rows {
		page.Items = append(page.Items, s.toWireUser(&rows[i].Friend))
	}
	if n := len(rows); n > 0 {
		page.Next = nextOf(n, limit, repository.Cursor{ID: rows[n-1].ID})
	}
	return page, nil
}
