// Package config loads engine configuration with viper: defaults, an
// optional YAML file, and SLAENGINE_-prefixed environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the engine deployment configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Health   HealthConfig   `mapstructure:"health"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Server   ServerConfig   `mapstructure:"server"`
}

// EngineConfig covers sweep scheduling and escalation thresholds.
type EngineConfig struct {
	SweepSchedule          string        `mapstructure:"sweep_schedule"`
	EvaluationSchedule     string        `mapstructure:"evaluation_schedule"`
	HealthSchedule         string        `mapstructure:"health_schedule"`
	TaskTimeout            time.Duration `mapstructure:"task_timeout"`
	AlertEscalationMinutes int           `mapstructure:"alert_escalation_minutes"`
	Requester              string        `mapstructure:"requester"`
}

// BreakerConfig tunes the two named circuit breakers.
type BreakerConfig struct {
	AgentThreshold       uint32        `mapstructure:"agent_threshold"`
	AgentTimeout         time.Duration `mapstructure:"agent_timeout"`
	PersistenceThreshold uint32        `mapstructure:"persistence_threshold"`
	PersistenceTimeout   time.Duration `mapstructure:"persistence_timeout"`
}

// BatchConfig tunes the batch/retry processor.
type BatchConfig struct {
	Size          int           `mapstructure:"size"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	BaseBackoff   time.Duration `mapstructure:"base_backoff"`
}

// HealthConfig holds the fleet health classification limits.
type HealthConfig struct {
	CPULimit    float64 `mapstructure:"cpu_limit"`
	MemoryLimit float64 `mapstructure:"memory_limit"`
	DiskLimit   float64 `mapstructure:"disk_limit"`
}

// CalendarConfig holds the default business calendar documents. Working
// hours are a per-day hour list; holidays are month/day maps.
type CalendarConfig struct {
	WorkingHours    string `mapstructure:"working_hours"`
	Holidays        string `mapstructure:"holidays"`
	OneTimeHolidays string `mapstructure:"one_time_holidays"`
}

// ServerConfig covers the observability HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listener address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.sweep_schedule", "0 */5 * * * *")
	v.SetDefault("engine.evaluation_schedule", "0 */5 * * * *")
	v.SetDefault("engine.health_schedule", "0 */10 * * * *")
	v.SetDefault("engine.task_timeout", 4*time.Minute)
	v.SetDefault("engine.alert_escalation_minutes", 15)
	v.SetDefault("engine.requester", "system")

	v.SetDefault("breaker.agent_threshold", 5)
	v.SetDefault("breaker.agent_timeout", 60*time.Second)
	v.SetDefault("breaker.persistence_threshold", 5)
	v.SetDefault("breaker.persistence_timeout", 60*time.Second)

	v.SetDefault("batch.size", 50)
	v.SetDefault("batch.retry_attempts", 3)
	v.SetDefault("batch.base_backoff", time.Second)

	v.SetDefault("health.cpu_limit", 90.0)
	v.SetDefault("health.memory_limit", 90.0)
	v.SetDefault("health.disk_limit", 95.0)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9190)
}

// Load reads configuration from an optional YAML file in configPath, with
// environment variables (SLAENGINE_ prefix) overriding file values and
// defaults filling the rest.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		v.SetConfigName("slaengine")
		v.AddConfigPath(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SLAENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without touching the
// filesystem or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return cfg
}
