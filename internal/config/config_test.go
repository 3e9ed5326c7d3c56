package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0 */5 * * * *", cfg.Engine.SweepSchedule)
	assert.Equal(t, "0 */5 * * * *", cfg.Engine.EvaluationSchedule)
	assert.Equal(t, "0 */10 * * * *", cfg.Engine.HealthSchedule)
	assert.Equal(t, 4*time.Minute, cfg.Engine.TaskTimeout)
	assert.Equal(t, 15, cfg.Engine.AlertEscalationMinutes)
	assert.Equal(t, "system", cfg.Engine.Requester)

	assert.Equal(t, uint32(5), cfg.Breaker.AgentThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.AgentTimeout)
	assert.Equal(t, uint32(5), cfg.Breaker.PersistenceThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.PersistenceTimeout)

	assert.Equal(t, 50, cfg.Batch.Size)
	assert.Equal(t, 3, cfg.Batch.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Batch.BaseBackoff)

	assert.Equal(t, 90.0, cfg.Health.CPULimit)
	assert.Equal(t, 90.0, cfg.Health.MemoryLimit)
	assert.Equal(t, 95.0, cfg.Health.DiskLimit)

	assert.Equal(t, "0.0.0.0:9190", cfg.Server.Addr())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Batch.Size)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Engine.AlertEscalationMinutes)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	doc := `
engine:
  sweep_schedule: "0 * * * * *"
  alert_escalation_minutes: 30
breaker:
  agent_threshold: 10
batch:
  size: 25
server:
  host: 127.0.0.1
  port: 8080
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slaengine.yaml"), []byte(doc), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "0 * * * * *", cfg.Engine.SweepSchedule)
	assert.Equal(t, 30, cfg.Engine.AlertEscalationMinutes)
	assert.Equal(t, uint32(10), cfg.Breaker.AgentThreshold)
	assert.Equal(t, 25, cfg.Batch.Size)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())

	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Batch.RetryAttempts)
	assert.Equal(t, "system", cfg.Engine.Requester)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slaengine.yaml"), []byte("engine: ["), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SLAENGINE_BATCH_SIZE", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Batch.Size)
}
