package service

import (
	"github.com/cydxin/birdchat/repository"
)

// SessionBootstrapService 用于 WS 连接建立时，加载用户会话相关的轻量状态到内存。
// 当前用于：加载已加入且未隐藏频道的 last_read_msg_id。
type SessionBootstrapService struct {
	*Service
}

func NewSessionBootstrapService(s *Service) *SessionBootstrapService {
	return &SessionBootstrapService{Service: s}
}

// GetLastReads 返回当前用户所有可见频道的已读游标。
// Key: channel_id, Value: last_read_msg_id（为 0 表示未读过任何消息/NULL）。
func (s *SessionBootstrapService) GetLastReads(userID uint64) (map[uint64]uint64, error) {
	return repository.NewMemberDAO(s.DB).ListLastReadSnapshot(userID)
}
