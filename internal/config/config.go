package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	S3           S3Config           `mapstructure:"s3"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Generator    GeneratorConfig    `mapstructure:"generator"`
	Activity     ActivityConfig     `mapstructure:"activity"`
	Limits       LimitsConfig       `mapstructure:"limits"`
	Fraud        FraudConfig        `mapstructure:"fraud"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"` // gin mode: debug | release
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // dev | prod
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo | memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// RedisConfig enables the Redis activity store when Enabled is set.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// GeneratorConfig configures the remote generative content service.
type GeneratorConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
}

type ActivityConfig struct {
	Retention       time.Duration `mapstructure:"retention"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// TierLimits are the structural quota limits of one tier.
type TierLimits struct {
	MaxDaysPerPlan     int `mapstructure:"max_days_per_plan"`
	MaxConcurrentPlans int `mapstructure:"max_concurrent_plans"`
	MaxPlansPerHour    int `mapstructure:"max_plans_per_hour"`
}

// WindowLimits are the per-minute/hour/day thresholds of one action kind.
type WindowLimits struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`
	PerDay    int `mapstructure:"per_day"`
}

type LimitsConfig struct {
	Tiers   map[string]TierLimits   `mapstructure:"tiers"`
	Actions map[string]WindowLimits `mapstructure:"actions"`
}

type FraudConfig struct {
	MaxActionsPerHour int           `mapstructure:"max_actions_per_hour"`
	BurstGap          time.Duration `mapstructure:"burst_gap"`
	BurstRatio        float64       `mapstructure:"burst_ratio"`
	MinSample         int           `mapstructure:"min_sample"`
	CoolDown          time.Duration `mapstructure:"cool_down"`
	IgnoreKinds       []string      `mapstructure:"ignore_kinds"`
}

type OrchestratorConfig struct {
	LookBack          int           `mapstructure:"look_back"`
	PacingBase        time.Duration `mapstructure:"pacing_base"`
	PacingPerDay      time.Duration `mapstructure:"pacing_per_day"`
	PacingMax         time.Duration `mapstructure:"pacing_max"`
	LongPauseEvery    int           `mapstructure:"long_pause_every"`
	LongPause         time.Duration `mapstructure:"long_pause"`
	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	MaxRateLimitWait  time.Duration `mapstructure:"max_rate_limit_wait"`
	MaxConcurrentRuns int64         `mapstructure:"max_concurrent_runs"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// Config file is optional; defaults and env vars are enough to boot.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.mode", "dev")

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "wellness_app_default")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "activity")

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("generator.base_url", "https://api.openai.com")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.timeout", "60s")
	v.SetDefault("generator.temperature", 0.7)
	v.SetDefault("generator.max_tokens", 4096)
	v.SetDefault("generator.requests_per_sec", 2.0)
	v.SetDefault("generator.burst", 2)

	v.SetDefault("activity.retention", "168h")
	v.SetDefault("activity.janitor_interval", "1h")

	d := Defaults()
	v.SetDefault("limits.tiers", toTierMap(d.Limits.Tiers))
	v.SetDefault("limits.actions", toActionMap(d.Limits.Actions))

	v.SetDefault("fraud.max_actions_per_hour", d.Fraud.MaxActionsPerHour)
	v.SetDefault("fraud.burst_gap", d.Fraud.BurstGap.String())
	v.SetDefault("fraud.burst_ratio", d.Fraud.BurstRatio)
	v.SetDefault("fraud.min_sample", d.Fraud.MinSample)
	v.SetDefault("fraud.cool_down", d.Fraud.CoolDown.String())
	v.SetDefault("fraud.ignore_kinds", d.Fraud.IgnoreKinds)

	v.SetDefault("orchestrator.look_back", d.Orchestrator.LookBack)
	v.SetDefault("orchestrator.pacing_base", d.Orchestrator.PacingBase.String())
	v.SetDefault("orchestrator.pacing_per_day", d.Orchestrator.PacingPerDay.String())
	v.SetDefault("orchestrator.pacing_max", d.Orchestrator.PacingMax.String())
	v.SetDefault("orchestrator.long_pause_every", d.Orchestrator.LongPauseEvery)
	v.SetDefault("orchestrator.long_pause", d.Orchestrator.LongPause.String())
	v.SetDefault("orchestrator.retry_max_attempts", d.Orchestrator.RetryMaxAttempts)
	v.SetDefault("orchestrator.max_rate_limit_wait", d.Orchestrator.MaxRateLimitWait.String())
	v.SetDefault("orchestrator.max_concurrent_runs", d.Orchestrator.MaxConcurrentRuns)
	v.SetDefault("orchestrator.run_timeout", d.Orchestrator.RunTimeout.String())
}

// Defaults returns the built-in quota, rate, fraud and pacing tables.
// Components fall back to these when a value is missing from the loaded config.
func Defaults() Config {
	return Config{
		Limits: LimitsConfig{
			Tiers: map[string]TierLimits{
				"free":    {MaxDaysPerPlan: 30, MaxConcurrentPlans: 3, MaxPlansPerHour: 5},
				"premium": {MaxDaysPerPlan: 90, MaxConcurrentPlans: 20, MaxPlansPerHour: 5},
			},
			Actions: map[string]WindowLimits{
				"plan_creation":  {PerMinute: 2, PerHour: 5, PerDay: 20},
				"day_creation":   {PerMinute: 10, PerHour: 100, PerDay: 500},
				"day_completion": {PerMinute: 30, PerHour: 200, PerDay: 1000},
				"plan_export":    {PerMinute: 5, PerHour: 30, PerDay: 100},
			},
		},
		Fraud: FraudConfig{
			MaxActionsPerHour: 50,
			BurstGap:          5 * time.Second,
			BurstRatio:        0.5,
			MinSample:         10,
			CoolDown:          time.Hour,
			IgnoreKinds:       []string{"day_creation"},
		},
		Orchestrator: OrchestratorConfig{
			LookBack:          5,
			PacingBase:        500 * time.Millisecond,
			PacingPerDay:      50 * time.Millisecond,
			PacingMax:         3 * time.Second,
			LongPauseEvery:    7,
			LongPause:         5 * time.Second,
			RetryMaxAttempts:  2,
			MaxRateLimitWait:  5 * time.Minute,
			MaxConcurrentRuns: 4,
			RunTimeout:        2 * time.Hour,
		},
	}
}

func toTierMap(tiers map[string]TierLimits) map[string]any {
	out := make(map[string]any, len(tiers))
	for name, t := range tiers {
		out[name] = map[string]any{
			"max_days_per_plan":    t.MaxDaysPerPlan,
			"max_concurrent_plans": t.MaxConcurrentPlans,
			"max_plans_per_hour":   t.MaxPlansPerHour,
		}
	}
	return out
}

func toActionMap(actions map[string]WindowLimits) map[string]any {
	out := make(map[string]any, len(actions))
	for name, w := range actions {
		out[name] = map[string]any{
			"per_minute": w.PerMinute,
			"per_hour":   w.PerHour,
			"per_day":    w.PerDay,
		}
	}
	return out
}
