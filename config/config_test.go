package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "birdchat.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":6789", c.HTTP.Addr)
	assert.Equal(t, "/api/v1", c.HTTP.BasePath)
	assert.Equal(t, "127.0.0.1:6379", c.Redis.Addr)
	assert.Equal(t, "im_", c.Engine.TablePrefix)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, RelayNone, c.Relay.Kind)
	assert.Equal(t, 5*time.Second, c.Scheduled.Interval)
	assert.EqualValues(t, 25<<20, c.Upload.MaxBytes)
	assert.True(t, c.Swagger.Enabled)
}

func TestLoad_File(t *testing.T) {
	p := writeFile(t, `
http:
  addr: ":9000"
mysql:
  dsn: "u:p@tcp(db:3306)/chat"
engine:
  table_prefix: "bc_"
  auto_create_users: true
  read_flush_interval: 2s
scheduled:
  interval: 0s
relay:
  kind: kafka
  kafka:
    brokers: ["k1:9092", "k2:9092"]
    client_id: node-a
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.HTTP.Addr)
	assert.Equal(t, "u:p@tcp(db:3306)/chat", c.MySQL.DSN)
	assert.Equal(t, "bc_", c.Engine.TablePrefix)
	assert.True(t, c.Engine.AutoCreateUsers)
	assert.Equal(t, 2*time.Second, c.Engine.ReadFlushInterval)
	assert.Zero(t, c.Scheduled.Interval)
	assert.Equal(t, RelayKafka, c.Relay.Kind)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Relay.Kafka.Brokers)
	assert.Equal(t, "birdchat.relay", c.Relay.Kafka.Topic)
	assert.Equal(t, "node-a", c.Relay.Kafka.ClientID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BIRDCHAT_REDIS_ADDR", "redis:6380")
	t.Setenv("BIRDCHAT_LOG_LEVEL", "debug")
	t.Setenv("BIRDCHAT_RELAY_KIND", "nats")
	t.Setenv("BIRDCHAT_RELAY_NATS_URL", "nats://n:4222")

	p := writeFile(t, "redis:\n  addr: \"file:6379\"\n")
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "redis:6380", c.Redis.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, RelayNATS, c.Relay.Kind)
	assert.Equal(t, "nats://n:4222", c.Relay.NATS.URL)
	assert.Equal(t, "birdchat.relay", c.Relay.NATS.Subject)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown relay": "relay:\n  kind: zeromq\n",
		"nats no url":   "relay:\n  kind: nats\n",
		"mq no url":     "relay:\n  kind: rabbitmq\n",
		"kafka brokers": "relay:\n  kind: kafka\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
