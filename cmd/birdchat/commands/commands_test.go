package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cydxin/birdchat"
	"github.com/cydxin/birdchat/config"
	"github.com/cydxin/birdchat/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, birdchat.VersionString(), strings.TrimSpace(out.String()))
}

func TestRootRejectsBadConfig(t *testing.T) {
	t.Setenv("BIRDCHAT_RELAY_KIND", "zeromq")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "--check"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zeromq")
}

func TestNewRelay(t *testing.T) {
	r, err := newRelay(config.RelayConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = newRelay(config.RelayConfig{Kind: config.RelayMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &relay.Memory{}, r)
	assert.NoError(t, r.Close())

	_, err = newRelay(config.RelayConfig{Kind: config.RelayKafka}, zap.NewNop())
	assert.Error(t, err)

	_, err = newRelay(config.RelayConfig{Kind: "zeromq"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	opts := engineOptions(c, nil, nil, nil, zap.NewNop())
	var bc birdchat.Config
	for _, o := range opts {
		o(&bc)
	}
	assert.Equal(t, "im_", bc.TablePrefix)
	assert.Equal(t, c.Scheduled.Interval, bc.ScheduledDispatchInterval)
	assert.Equal(t, c.Upload.MaxBytes, bc.Upload.MaxBytes)
	assert.Nil(t, bc.Relay)
	assert.Nil(t, bc.RDB)
}
