package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: memory\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 100, cfg.Scheduler.BatchSize)
	assert.Equal(t, 8, cfg.Scheduler.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.Delivery.Backoff.Delay)
	assert.Equal(t, 2.0, cfg.Delivery.Backoff.Backoff)
	assert.Equal(t, time.Hour, cfg.Delivery.MaxDelay)
	assert.Equal(t, 160, cfg.SMS.MaxLength)
	assert.Equal(t, "log", cfg.Audit.Sink)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
scheduler:
  batch_size: 2
  parallelism: 1
  interval: 250ms
delivery:
  backoff:
    delay: 1s
  max_delay: 8s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scheduler.BatchSize)
	assert.Equal(t, 1, cfg.Scheduler.Parallelism)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.Interval)
	assert.Equal(t, time.Second, cfg.Delivery.Backoff.Delay)
	assert.Equal(t, 8*time.Second, cfg.Delivery.MaxDelay)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: cassandra
scheduler:
  batch_size: 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.batch_size")
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDelivery_MaxAttemptsFor(t *testing.T) {
	d := Delivery{
		MaxAttempts:   map[string]int{"email": 5, "sms": 3},
		PriorityBonus: map[string]int{"urgent": 2},
	}

	assert.Equal(t, 5, d.MaxAttemptsFor(model.ChannelEmail, model.PriorityNormal))
	assert.Equal(t, 5, d.MaxAttemptsFor(model.ChannelSMS, model.PriorityUrgent))
	assert.Equal(t, 1, d.MaxAttemptsFor(model.ChannelPush, model.PriorityLow))
}

func TestKafka_BrokerList(t *testing.T) {
	k := Kafka{Brokers: "a:9092, b:9092,,"}
	assert.Equal(t, []string{"a:9092", "b:9092"}, k.BrokerList())
}

func TestDSN(t *testing.T) {
	n := DatabaseNode{Host: "db", Port: "5432", User: "u", Pass: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", n.DSN())
}
