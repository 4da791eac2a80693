package relay

import (
	"context"
	"sync"
)

// Memory 进程内 relay，单节点部署或测试使用
type Memory struct {
	mu     sync.RWMutex
	subs   map[int]chan Envelope
	nextID int
	closed bool
	done   chan struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan Envelope), done: make(chan struct{})}
}

// Publish 非阻塞投递，订阅者缓冲满时丢弃
func (m *Memory) Publish(ctx context.Context, env Envelope) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for _, ch := range m.subs {
		select {
		case ch <- env:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, h Handler) error {
	ch := make(chan Envelope, 256)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case env := <-ch:
			h(env)
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
