package birdchat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Time pong超时时间
	pongWait = 60 * time.Second

	// Send 对应的ping 必须小于pong
	pingPeriod = (pongWait * 9) / 10

	// Maximum 对等端允许消息大小
	maxMessageSize = 64 << 10

	// 用户所有连接断开后，延迟多久 flush 并回收 session
	sessionGCDelay = 5 * time.Minute

	// 已落库且多久无变化的 ReadList 被回收
	readListIdle = 10 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// Client ws和hub的连接
// 说明：Client 代表“某个具体 websocket 连接”，用户级别可复用的数据放到 UserSession。
type Client struct {
	hub *WsServer

	conn *websocket.Conn

	// 消息缓冲区
	send chan []byte

	// UserID 内部用户 id
	UserID uint64

	// UserSession 指向用户级别共享状态（已读缓存等）
	session *UserSession
}

// UserSession 用户级别共享状态（同一用户多设备/多连接复用）
type UserSession struct {
	UserID uint64

	ReadMu   sync.Mutex
	ReadList map[uint64]uint64 // channel id -> last read message id

	lastSeen time.Time

	// dirty 表示 ReadList 有更新但尚未落库
	dirty bool
	// lastFlush 上次落库时间
	lastFlush time.Time

	// lastReadChangeAt ReadList 最后一次变化时间（用于回收已落库且长时间无变化的数据）
	lastReadChangeAt time.Time
}

// mergeRead 只前进不后退，返回是否有变化
func (s *UserSession) mergeRead(channelID, lastRead uint64) bool {
	if channelID == 0 || lastRead == 0 {
		return false
	}
	s.ReadMu.Lock()
	defer s.ReadMu.Unlock()
	s.lastSeen = time.Now()
	if s.ReadList == nil {
		s.ReadList = make(map[uint64]uint64)
	}
	if old := s.ReadList[channelID]; lastRead <= old {
		return false
	}
	s.ReadList[channelID] = lastRead
	s.dirty = true
	s.lastReadChangeAt = time.Now()
	return true
}

func (s *UserSession) snapshotRead() map[uint64]uint64 {
	s.ReadMu.Lock()
	defer s.ReadMu.Unlock()
	if len(s.ReadList) == 0 {
		return nil
	}
	snap := make(map[uint64]uint64, len(s.ReadList))
	for k, v := range s.ReadList {
		snap[k] = v
	}
	return snap
}

// markFlushed 在落库成功后调用
func (s *UserSession) markFlushed() {
	s.ReadMu.Lock()
	s.dirty = false
	s.lastFlush = time.Now()
	s.lastReadChangeAt = s.lastFlush
	s.ReadMu.Unlock()
}

// snapshotReadAndDirty 返回快照及是否 dirty（用于周期 flush）
func (s *UserSession) snapshotReadAndDirty() (map[uint64]uint64, bool) {
	s.ReadMu.Lock()
	defer s.ReadMu.Unlock()
	if !s.dirty || len(s.ReadList) == 0 {
		return nil, false
	}
	snap := make(map[uint64]uint64, len(s.ReadList))
	for k, v := range s.ReadList {
		snap[k] = v
	}
	return snap, true
}

// pruneReadListIfIdle 清理已落库且长时间无变化的 ReadList，释放内存。
// 仅当 session 非 dirty 时执行，避免丢失待落库数据。
func (s *UserSession) pruneReadListIfIdle(idleFor time.Duration) {
	if idleFor <= 0 {
		return
	}
	s.ReadMu.Lock()
	defer s.ReadMu.Unlock()
	if s.dirty || len(s.ReadList) == 0 {
		return
	}
	// lastFlush 为 0 表示从未 flush 过
	if s.lastFlush.IsZero() || s.lastReadChangeAt.IsZero() {
		return
	}
	if time.Since(s.lastReadChangeAt) < idleFor {
		return
	}
	s.ReadList = nil
}

// readPump 将消息从client (websocket 连接) 到hub管理。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("readPump error", zap.Uint64("uid", c.UserID), zap.Error(err))
			}
			break
		}
		c.hub.handleMessage(c, message)
	}
}

// writePump 将消息从hub管理写到具体的client (websocket 连接)。
// 每帧单独一条 TextMessage，客户端按帧解析 JSON。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.log.Debug("writePump 写入ping失败", zap.Uint64("uid", c.UserID), zap.Error(err))
				return
			}
		}
	}
}

// WsServer 本节点的 WebSocket 连接管理
type WsServer struct {
	clients map[*Client]bool
	// 用户ID ->该用户所有活跃的Websocket连接（支持多设备）
	userClients map[uint64][]*Client

	// 用户级别共享 session
	Sessions map[uint64]*UserSession

	// 用户ID -> “延迟移除/flush” 的定时器
	gcTimers map[uint64]*time.Timer

	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	log *zap.Logger

	flushInterval time.Duration

	// 回调处理消息
	onMessage func(client *Client, msg []byte)
	// flushRead 把 ReadList 落库
	flushRead func(userID uint64, snap map[uint64]uint64) error
	// loadRead 建连时加载已读游标
	loadRead func(userID uint64) (map[uint64]uint64, error)
	// onOffline 用户最后一个连接断开
	onOffline func(userID uint64)
}

func NewWsServer(log *zap.Logger) *WsServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &WsServer{
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		userClients:   make(map[uint64][]*Client),
		Sessions:      make(map[uint64]*UserSession),
		gcTimers:      make(map[uint64]*time.Timer),
		log:           log,
		flushInterval: 60 * time.Second,
	}
}

// Run 主循环，ctx 结束时 flush 所有 session 后返回
func (h *WsServer) Run(ctx context.Context) {
	flushTicker := time.NewTicker(h.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flushAll(true)
			return

		case <-flushTicker.C:
			h.flushAll(false)

		case client := <-h.register:
			h.mu.Lock()
			if t, ok := h.gcTimers[client.UserID]; ok {
				t.Stop()
				delete(h.gcTimers, client.UserID)
			}
			h.clients[client] = true
			h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.removeUserClient(client)
			}
			// 不立刻 delete session：交给 timer 决定是否清理，给断开-重连留窗口
			uid := client.UserID
			offline := len(h.userClients[uid]) == 0
			if offline {
				if t, ok := h.gcTimers[uid]; ok {
					t.Stop()
				}
				h.gcTimers[uid] = time.AfterFunc(sessionGCDelay, func() { h.collect(uid) })
			}
			h.mu.Unlock()
			if offline && h.onOffline != nil {
				h.onOffline(uid)
			}
		}
	}
}

// removeUserClient 需持有写锁
func (h *WsServer) removeUserClient(client *Client) {
	conns := h.userClients[client.UserID]
	for i, conn := range conns {
		if conn == client {
			h.userClients[client.UserID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
}

// flushAll 在线周期 flush：只 flush dirty 的 session；不在 h.mu 下做 DB IO，避免阻塞 ws 主循环。
func (h *WsServer) flushAll(final bool) {
	h.mu.RLock()
	sessions := make([]*UserSession, 0, len(h.Sessions))
	for _, s := range h.Sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, sess := range sessions {
		h.flushSession(sess)
		if !final {
			sess.pruneReadListIfIdle(readListIdle)
		}
	}
}

func (h *WsServer) flushSession(sess *UserSession) {
	if sess == nil || h.flushRead == nil {
		return
	}
	snap, dirty := sess.snapshotReadAndDirty()
	if !dirty {
		return
	}
	if err := h.flushRead(sess.UserID, snap); err != nil {
		h.log.Warn("flush read cursor failed", zap.Uint64("uid", sess.UserID), zap.Error(err))
		return
	}
	sess.markFlushed()
}

// FlushUser 立即落库某用户的已读游标（未读数计算前调用）
func (h *WsServer) FlushUser(userID uint64) {
	h.mu.RLock()
	sess := h.Sessions[userID]
	h.mu.RUnlock()
	h.flushSession(sess)
}

// collect 用户无连接超过 sessionGCDelay：flush 后回收
func (h *WsServer) collect(uid uint64) {
	// timer 回调里不要用 client 指针，用 uid 查当前状态
	h.mu.RLock()
	conns := h.userClients[uid]
	sess := h.Sessions[uid]
	h.mu.RUnlock()
	if len(conns) > 0 {
		return
	}
	h.flushSession(sess)

	h.mu.Lock()
	if len(h.userClients[uid]) == 0 {
		delete(h.Sessions, uid)
	}
	delete(h.gcTimers, uid)
	h.mu.Unlock()
}

func (h *WsServer) handleMessage(client *Client, msg []byte) {
	if h.onMessage != nil {
		h.onMessage(client, msg)
	}
}

func (h *WsServer) SetOnMessage(fn func(client *Client, msg []byte)) {
	h.onMessage = fn
}

// session 复用/创建用户级 session，新建或 ReadList 为空时从库里加载已读游标
func (h *WsServer) session(userID uint64) *UserSession {
	h.mu.Lock()
	sess := h.Sessions[userID]
	created := sess == nil
	if created {
		sess = &UserSession{UserID: userID, lastSeen: time.Now()}
		h.Sessions[userID] = sess
	}
	if t, ok := h.gcTimers[userID]; ok {
		t.Stop()
		delete(h.gcTimers, userID)
	}
	h.mu.Unlock()

	if h.loadRead == nil {
		return sess
	}
	sess.ReadMu.Lock()
	empty := len(sess.ReadList) == 0
	sess.ReadMu.Unlock()
	if !created && !empty {
		return sess
	}
	m, err := h.loadRead(userID)
	if err != nil {
		h.log.Warn("load read cursors failed", zap.Uint64("uid", userID), zap.Error(err))
		return sess
	}
	for channelID, lastRead := range m {
		sess.mergeRead(channelID, lastRead)
	}
	// 初始化加载不算未落库变更
	sess.ReadMu.Lock()
	sess.dirty = false
	sess.ReadMu.Unlock()
	return sess
}

// ServeWS 升级连接。userID 由调用方鉴权后传入。
func (h *WsServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		UserID:  userID,
		session: h.session(userID),
	}
	h.register <- client
	h.log.Debug("ws client registered", zap.Uint64("uid", userID))

	go client.writePump()
	go client.readPump()
}

// SendToUser 发送帧到用户在本节点的全部连接；缓冲满时丢弃，避免阻塞
func (h *WsServer) SendToUser(userID uint64, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.userClients[userID] {
		select {
		case client.send <- msg:
		default:
			h.log.Debug("ws send buffer full, drop", zap.Uint64("uid", userID))
		}
	}
}

// Online 用户在本节点是否有连接
func (h *WsServer) Online(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// sendTo 只回给发起请求的那条连接。
// 只在该连接的 readPump 中调用，此时连接尚未注销，send 不会被关闭。
func (h *WsServer) sendTo(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		h.log.Debug("ws send buffer full, drop", zap.Uint64("uid", client.UserID))
	}
}
