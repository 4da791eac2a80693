package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/response"
	"github.com/cydxin/birdchat/wire"
	"github.com/gorilla/websocket"
)

const testToken = "sess-token"

// fakeServer 模拟服务端：/session 登录、/ws 回 ack，其余路径按 routes 返回
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []wire.Frame
	routes   map[string]func(r *http.Request) (int, any)
	nextID   uint64
	// noAck 为真时不回 ack，用于超时测试
	noAck bool
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{t: t, routes: map[string]func(*http.Request) (int, any){}, nextID: 100}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/session", fs.handleSession)
	mux.HandleFunc("/api/v1/ws", fs.handleWS)
	mux.HandleFunc("/", fs.handleREST)
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.close)
	return fs
}

func (fs *fakeServer) close() {
	fs.dropAll()
	fs.srv.Close()
}

func (fs *fakeServer) options() Options {
	o := DefaultOptions(fs.srv.URL)
	o.AckTimeout = 500 * time.Millisecond
	o.Reconnect = Reconnect{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 2, MaxRetries: 3}
	return o
}

func (fs *fakeServer) on(method, path string, h func(r *http.Request) (int, any)) {
	fs.mu.Lock()
	fs.routes[method+" "+path] = h
	fs.mu.Unlock()
}

func writeEnvelope(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	msg := "success"
	if code != 0 {
		msg = "rejected"
	}
	_ = json.NewEncoder(w).Encode(response.Response{Code: code, Msg: msg, Data: data})
}

func (fs *fakeServer) handleSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		AccessToken string `json:"access_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.AccessToken == "bad" {
		writeEnvelope(w, response.CodeAccessTokenError, nil)
		return
	}
	writeEnvelope(w, 0, wire.Session{SessionToken: testToken, User: wire.User{UserID: req.UserID, Nickname: req.UserID}})
}

func (fs *fakeServer) handleREST(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		writeEnvelope(w, response.CodeTokenInvalid, nil)
		return
	}
	fs.mu.Lock()
	h := fs.routes[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api/v1")]
	fs.mu.Unlock()
	if h == nil {
		writeEnvelope(w, response.CodeNotFound, nil)
		return
	}
	code, data := h(r)
	writeEnvelope(w, code, data)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (fs *fakeServer) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fs.mu.Lock()
	fs.conns = append(fs.conns, conn)
	fs.mu.Unlock()

	for {
		var f wire.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		fs.mu.Lock()
		fs.received = append(fs.received, f)
		noAck := fs.noAck
		fs.mu.Unlock()
		if noAck {
			continue
		}
		resp := fs.reply(f)
		// 与 push 共用写锁，gorilla 连接只允许一个写者
		fs.mu.Lock()
		_ = conn.WriteJSON(resp)
		fs.mu.Unlock()
	}
}

func (fs *fakeServer) reply(f wire.Frame) wire.Frame {
	switch f.Type {
	case cons.FrameMessage:
		var req wire.SendMessageReq
		_ = f.Decode(&req)
		if req.Message == "forbidden" {
			return wire.Frame{Type: cons.FrameError, PacketID: f.PacketID, Code: response.CodeUserMuted, Message: "muted"}
		}
		fs.mu.Lock()
		fs.nextID++
		id := fs.nextID
		fs.mu.Unlock()
		ack, _ := wire.NewFrame(cons.FrameAck, wire.Message{
			MessageID:   id,
			Type:        cons.MessageTypeUser,
			ChannelURL:  f.ChannelURL,
			ChannelType: f.ChannelType,
			RequestID:   req.RequestID,
			Message:     req.Message,
			CreatedAt:   time.Now().UnixMilli(),
		})
		ack.PacketID, ack.ChannelURL = f.PacketID, f.ChannelURL
		return ack
	}
	return wire.Frame{Type: cons.FrameAck, PacketID: f.PacketID, ChannelURL: f.ChannelURL}
}

// push 向所有连接推送事件
func (fs *fakeServer) push(event, channelURL string, data any) {
	f, _ := wire.NewFrame(cons.FrameEvent, data)
	f.Event, f.ChannelURL, f.ChannelType = event, channelURL, cons.ChannelTypeGroup
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, c := range fs.conns {
		_ = c.WriteJSON(f)
	}
}

// dropAll 服务端主动断开全部连接
func (fs *fakeServer) dropAll() {
	fs.mu.Lock()
	conns := fs.conns
	fs.conns = nil
	fs.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (fs *fakeServer) frames(typ string) []wire.Frame {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []wire.Frame
	for _, f := range fs.received {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func jsonDecode(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) }

// capture 在 handler 协程里记录值，测试协程读取
type capture[T any] struct {
	mu sync.Mutex
	v  T
}

func (c *capture[T]) set(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *capture[T]) get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}
