package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cydxin/birdchat/cons"
	"github.com/cydxin/birdchat/relay"
	"github.com/cydxin/birdchat/wire"
)

func TestEventPublisher_DeliverLocalAndRelay(t *testing.T) {
	mem := relay.NewMemory()
	defer func() { _ = mem.Close() }()

	var mu sync.Mutex
	local := map[uint64]int{}
	s := &Service{
		NodeID: "node-a",
		Relay:  mem,
		WsNotifier: func(uid uint64, _ []byte) {
			mu.Lock()
			local[uid]++
			mu.Unlock()
		},
	}
	p := NewEventPublisher(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan relay.Envelope, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = mem.Subscribe(ctx, func(env relay.Envelope) { got <- env })
	}()
	<-ready
	// 等待订阅注册
	time.Sleep(20 * time.Millisecond)

	p.UserEvent(ctx, 5, cons.EventFriendsDiscovered, wire.FriendsPayload{})
	p.Deliver(ctx, []uint64{1, 1, 2}, wire.Frame{Type: cons.FramePong})

	select {
	case env := <-got:
		if env.Origin != "node-a" || len(env.UserIDs) != 1 || env.UserIDs[0] != 5 {
			t.Fatalf("unexpected envelope %+v", env)
		}
		var f wire.Frame
		if err := json.Unmarshal(env.Frame, &f); err != nil || f.Event != cons.EventFriendsDiscovered {
			t.Fatalf("frame %+v err %v", f, err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay envelope not received")
	}

	mu.Lock()
	defer mu.Unlock()
	if local[5] != 1 || local[1] != 1 || local[2] != 1 {
		t.Fatalf("local deliveries %v", local)
	}
}

func TestEventPublisher_NilSafe(t *testing.T) {
	var p *EventPublisher
	p.UserEvent(context.Background(), 1, cons.EventFriendsDiscovered, nil)
	p.Broadcast(context.Background(), nil, cons.EventChannelChanged, nil)
}
