package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Jobs.AutoCompleteDelay)
	assert.Equal(t, 10, cfg.Rewards.PickupCompletionPoints)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JOBS_AUTO_COMPLETE_DELAY", "90s")
	t.Setenv("JOBS_POLL_INTERVAL", "3")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REWARDS_PICKUP_POINTS", "25")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Jobs.AutoCompleteDelay)
	assert.Equal(t, 3*time.Second, cfg.Jobs.PollInterval)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Rewards.PickupCompletionPoints)
}

func TestGetEnvAsDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, 5*time.Second, getEnvAsDuration("SOME_DURATION", 5*time.Second))
}
