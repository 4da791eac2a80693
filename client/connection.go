package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// wsSession 一条物理连接及其读写协程
type wsSession struct {
	conn *websocket.Conn
	send chan []byte
	stop chan struct{}
	once sync.Once
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})
}

// ConnectionManager 维护到服务端的 WebSocket：读写协程、packet_id 请求应答、断线指数退避重连
type ConnectionManager struct {
	log        *zap.Logger
	url        string
	dialer     *websocket.Dialer
	reconnect  Reconnect
	ackTimeout time.Duration
	hub        *hub
	onEvent    func(wire.Frame)

	mu      sync.Mutex
	state   ConnectionState
	token   string
	sess    *wsSession
	pending map[string]chan wire.Frame
	life    context.Context
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

func newConnectionManager(o Options, h *hub, onEvent func(wire.Frame)) *ConnectionManager {
	return &ConnectionManager{
		log:        o.Logger,
		url:        o.WSHost + apiPrefix + "/ws",
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		reconnect:  o.Reconnect,
		ackTimeout: o.AckTimeout,
		hub:        h,
		onEvent:    onEvent,
		pending:    make(map[string]chan wire.Frame),
	}
}

// State 当前连接状态
func (m *ConnectionManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe 订阅重连事件
func (m *ConnectionManager) Subscribe() (<-chan ConnectionEvent, func()) {
	return m.hub.subscribeConnection()
}

// Connect 用 session token 建立连接。已连接时先断开旧连接。
func (m *ConnectionManager) Connect(ctx context.Context, token string) error {
	if m.State() != StateClosed {
		if err := m.Disconnect(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.state = StateConnecting
	m.token = token
	m.life, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	conn, err := m.dial(ctx, token)
	if err != nil {
		m.mu.Lock()
		m.state = StateClosed
		m.cancel()
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.life.Err() != nil {
		_ = conn.Close()
		return newError(CodeWebSocketClosed, context.Canceled)
	}
	m.start(conn)
	m.state = StateOpen
	return nil
}

// Disconnect 关闭连接并取消进行中的重连
func (m *ConnectionManager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	sess := m.sess
	m.sess = nil
	m.state = StateClosed
	m.token = ""
	m.failPendingLocked()
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		_ = sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		sess.close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ConnectionManager) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	conn, resp, err := m.dialer.DialContext(ctx, m.url, h)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, newError(CodeUnauthorized, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newError(CodeWebSocketClosed, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// start 需持有 mu
func (m *ConnectionManager) start(conn *websocket.Conn) {
	sess := &wsSession{conn: conn, send: make(chan []byte, sendBuffer), stop: make(chan struct{})}
	m.sess = sess
	m.wg.Add(2)
	go m.writePump(sess)
	go m.readPump(sess)
}

func (m *ConnectionManager) readPump(sess *wsSession) {
	defer m.wg.Done()
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	var readErr error
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		var f wire.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.log.Warn("bad frame from server", zap.Error(err))
			continue
		}
		m.handleFrame(f)
	}
	sess.close()
	m.lost(sess, readErr)
}

func (m *ConnectionManager) writePump(sess *wsSession) {
	defer m.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				m.log.Debug("ws write failed", zap.Error(err))
				sess.close()
				return
			}
		case <-ticker.C:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sess.close()
				return
			}
		case <-sess.stop:
			return
		}
	}
}

func (m *ConnectionManager) handleFrame(f wire.Frame) {
	switch f.Type {
	case cons.FrameAck, cons.FrameError:
		m.mu.Lock()
		ch, ok := m.pending[f.PacketID]
		if ok {
			delete(m.pending, f.PacketID)
		}
		m.mu.Unlock()
		if ok {
			ch <- f
		}
	case cons.FrameEvent:
		if m.onEvent != nil {
			m.onEvent(f)
		}
	}
}

// lost 读协程退出后调用；非主动断开时进入重连
func (m *ConnectionManager) lost(sess *wsSession, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != sess {
		return
	}
	m.sess = nil
	m.failPendingLocked()
	m.log.Info("connection lost", zap.Error(err))

	if m.reconnect.MaxRetries <= 0 || m.life == nil || m.life.Err() != nil {
		m.state = StateClosed
		m.hub.publishConnection(ConnectionEvent{Kind: Disconnected, Err: err})
		return
	}
	m.state = StateConnecting
	m.wg.Add(1)
	go m.reconnectLoop(m.life, m.token, err)
}

func (m *ConnectionManager) reconnectLoop(ctx context.Context, token string, cause error) {
	defer m.wg.Done()
	m.hub.publishConnection(ConnectionEvent{Kind: ReconnectionStarted, Err: cause})

	lastErr := cause
	for attempt := 1; attempt <= m.reconnect.MaxRetries; attempt++ {
		timer := time.NewTimer(m.reconnect.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			m.hub.publishConnection(ConnectionEvent{Kind: ReconnectionCanceled, Attempt: attempt})
			return
		case <-timer.C:
		}

		conn, err := m.dial(ctx, token)
		if err != nil {
			lastErr = err
			m.log.Info("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			if errors.Is(err, ErrUnauthorized) {
				break
			}
			continue
		}

		m.mu.Lock()
		if ctx.Err() != nil {
			m.mu.Unlock()
			_ = conn.Close()
			m.hub.publishConnection(ConnectionEvent{Kind: ReconnectionCanceled, Attempt: attempt})
			return
		}
		m.start(conn)
		m.state = StateOpen
		m.mu.Unlock()
		m.hub.publishConnection(ConnectionEvent{Kind: ReconnectionSucceeded, Attempt: attempt})
		return
	}

	m.mu.Lock()
	if ctx.Err() == nil {
		m.state = StateClosed
	}
	m.mu.Unlock()
	m.hub.publishConnection(ConnectionEvent{Kind: ReconnectionFailed, Attempt: m.reconnect.MaxRetries, Err: lastErr})
}

// failPendingLocked 连接断开时让等待中的请求返回，需持有 mu
func (m *ConnectionManager) failPendingLocked() {
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
}

// Request 发送一帧并等待同 packet_id 的 ack/error
func (m *ConnectionManager) Request(ctx context.Context, f wire.Frame) (wire.Frame, error) {
	if f.PacketID == "" {
		f.PacketID = uuid.NewString()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return wire.Frame{}, newError(CodeInvalidParameter, err)
	}

	reply := make(chan wire.Frame, 1)
	m.mu.Lock()
	sess := m.sess
	if sess == nil {
		m.mu.Unlock()
		return wire.Frame{}, ErrNotConnected
	}
	m.pending[f.PacketID] = reply
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, f.PacketID)
		m.mu.Unlock()
	}()

	select {
	case sess.send <- data:
	case <-sess.stop:
		return wire.Frame{}, ErrWebSocketClosed
	case <-ctx.Done():
		return wire.Frame{}, ctx.Err()
	}

	timer := time.NewTimer(m.ackTimeout)
	defer timer.Stop()
	select {
	case resp, ok := <-reply:
		if !ok {
			return wire.Frame{}, ErrWebSocketClosed
		}
		if resp.Type == cons.FrameError {
			return resp, serverError(resp.Code, resp.Message)
		}
		return resp, nil
	case <-timer.C:
		return wire.Frame{}, ErrAckTimeout
	case <-ctx.Done():
		return wire.Frame{}, ctx.Err()
	}
}
