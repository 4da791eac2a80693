package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryFanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan Envelope, 2)
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- m.Subscribe(ctx, func(e Envelope) { got <- e }) }()
	}
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.subs) == 2
	}, time.Second, 5*time.Millisecond)

	env := Envelope{Origin: "a", UserIDs: []uint64{1, 2}, Frame: json.RawMessage(`{"type":"event"}`)}
	require.NoError(t, m.Publish(ctx, env))

	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			require.Equal(t, env.UserIDs, e.UserIDs)
			require.JSONEq(t, `{"type":"event"}`, string(e.Frame))
		case <-time.After(time.Second):
			t.Fatal("envelope not delivered")
		}
	}

	cancel()
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-done, context.Canceled)
	}
	require.NoError(t, m.Close())
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Publish(context.Background(), Envelope{}), ErrClosed)
	require.ErrorIs(t, m.Subscribe(context.Background(), func(Envelope) {}), ErrClosed)
}

func TestMemoryCloseStopsSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMemory()
	done := make(chan error, 1)
	go func() { done <- m.Subscribe(context.Background(), func(Envelope) {}) }()
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.subs) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close())
	require.ErrorIs(t, <-done, ErrClosed)
}

func TestFilterOrigin(t *testing.T) {
	var n int
	h := FilterOrigin("self", func(Envelope) { n++ })
	h(Envelope{Origin: "self"})
	h(Envelope{Origin: "other"})
	require.Equal(t, 1, n)
}

func TestEnvelopeCodec(t *testing.T) {
	env := Envelope{Origin: "node-1", UserIDs: []uint64{7}, Frame: json.RawMessage(`{"type":"ack","packet_id":"p"}`)}
	b, err := encode(env)
	require.NoError(t, err)
	out, err := decode(b)
	require.NoError(t, err)
	require.Equal(t, env.Origin, out.Origin)
	require.Equal(t, env.UserIDs, out.UserIDs)
	require.JSONEq(t, string(env.Frame), string(out.Frame))

	_, err = decode([]byte("{"))
	require.Error(t, err)
}

func TestConstructorsValidateConfig(t *testing.T) {
	_, err := NewNATS(NATSConfig{}, nil)
	require.Error(t, err)
	_, err = NewRabbitMQ(RabbitMQConfig{}, nil)
	require.Error(t, err)
	_, err = NewKafka(KafkaConfig{}, nil)
	require.Error(t, err)
}
