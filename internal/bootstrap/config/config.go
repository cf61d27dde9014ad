package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"guardian/internal/bootstrap/logging"
	"guardian/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Screening ScreeningConfig `mapstructure:"screening"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	Review    ReviewConfig    `mapstructure:"review"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Autoscale AutoscaleConfig `mapstructure:"autoscale"`
	Events    EventsConfig    `mapstructure:"events"`
	Server    ServerConfig    `mapstructure:"server"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type QueueConfig struct {
	// Driver selects the adapter: "memory" for tests/local, "nats" for a
	// JetStream-backed deployment.
	Driver            string        `mapstructure:"driver"`
	URL               string        `mapstructure:"url"`
	StreamPrefix      string        `mapstructure:"stream_prefix"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	ReceiveWait       time.Duration `mapstructure:"receive_wait"`
}

type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

type ScreeningConfig struct {
	Workers       int     `mapstructure:"workers"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	ScorerRetries int     `mapstructure:"scorer_retries"`

	// EscalationThreshold routes records above it to deep analysis;
	// HighPriorityThreshold additionally tags the escalation message.
	EscalationThreshold   float64 `mapstructure:"escalation_threshold"`
	HighPriorityThreshold float64 `mapstructure:"high_priority_threshold"`

	// Feature weights of the screening heuristic.
	MotionWeight float64 `mapstructure:"motion_weight"`
	SkinWeight   float64 `mapstructure:"skin_weight"`
	ColorWeight  float64 `mapstructure:"color_weight"`
}

type AnalysisConfig struct {
	SampleRate    float64 `mapstructure:"sample_rate"`
	ScorerRetries int     `mapstructure:"scorer_retries"`

	// Blend split between the specialized model endpoint and the general
	// classifier for each sub-score.
	SpecializedWeight float64 `mapstructure:"specialized_weight"`
	GeneralWeight     float64 `mapstructure:"general_weight"`

	NSFWEndpoint     string        `mapstructure:"nsfw_endpoint"`
	ViolenceEndpoint string        `mapstructure:"violence_endpoint"`
	EndpointToken    string        `mapstructure:"endpoint_token"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type DecisionConfig struct {
	RiskWeight       float64 `mapstructure:"risk_weight"`
	NSFWWeight       float64 `mapstructure:"nsfw_weight"`
	ViolenceWeight   float64 `mapstructure:"violence_weight"`
	ApproveThreshold float64 `mapstructure:"approve_threshold"`
	RejectThreshold  float64 `mapstructure:"reject_threshold"`
}

type ReviewConfig struct {
	// SLA is the elapsed-time expectation for a record sitting in review.
	// Breach is an observability signal, not a hard failure.
	SLA time.Duration `mapstructure:"sla"`
}

type DispatchConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type AutoscaleConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	MaxReplicas       int           `mapstructure:"max_replicas"`
	BacklogPerReplica int           `mapstructure:"backlog_per_replica"`

	// ScaleDownIdle is how long the escalation queue must stay empty before
	// the pool drops to zero, protecting against cold-start thrashing.
	ScaleDownIdle time.Duration `mapstructure:"scale_down_idle"`
}

type EventsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := validate(cfg); err != nil {
		return Config{}, errs.Wrap(err, "validate config")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("queue_driver", cfg.Queue.Driver),
		slog.String("database_driver", cfg.Database.Driver),
	)

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if cfg.Queue.Driver != "memory" && cfg.Queue.Driver != "nats" {
		return fmt.Errorf("unsupported queue.driver %q", cfg.Queue.Driver)
	}
	if cfg.Queue.Driver == "nats" && cfg.Queue.URL == "" {
		return errors.New("queue.url is required for the nats driver")
	}
	for name, value := range map[string]float64{
		"screening.escalation_threshold": cfg.Screening.EscalationThreshold,
		"decision.approve_threshold":     cfg.Decision.ApproveThreshold,
		"decision.reject_threshold":      cfg.Decision.RejectThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, value)
		}
	}
	if cfg.Decision.ApproveThreshold > cfg.Decision.RejectThreshold {
		return errors.New("decision.approve_threshold must not exceed decision.reject_threshold")
	}
	if cfg.Autoscale.MaxReplicas < 0 {
		return errors.New("autoscale.max_replicas must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "guardian")
	v.SetDefault("app.env", "local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/guardian.sqlite")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.url", "")
	v.SetDefault("queue.stream_prefix", "GUARDIAN")
	v.SetDefault("queue.visibility_timeout", 5*time.Minute)
	v.SetDefault("queue.receive_wait", 5*time.Second)

	v.SetDefault("artifacts.dir", "data/artifacts")

	v.SetDefault("screening.workers", 2)
	v.SetDefault("screening.sample_rate", 0.5)
	v.SetDefault("screening.scorer_retries", 3)
	v.SetDefault("screening.escalation_threshold", 0.3)
	v.SetDefault("screening.high_priority_threshold", 0.7)
	v.SetDefault("screening.motion_weight", 0.35)
	v.SetDefault("screening.skin_weight", 0.35)
	v.SetDefault("screening.color_weight", 0.30)

	v.SetDefault("analysis.sample_rate", 1.0)
	v.SetDefault("analysis.scorer_retries", 3)
	v.SetDefault("analysis.specialized_weight", 0.7)
	v.SetDefault("analysis.general_weight", 0.3)
	v.SetDefault("analysis.nsfw_endpoint", "")
	v.SetDefault("analysis.violence_endpoint", "")
	v.SetDefault("analysis.endpoint_token", "")
	v.SetDefault("analysis.request_timeout", 30*time.Second)

	v.SetDefault("decision.risk_weight", 0.4)
	v.SetDefault("decision.nsfw_weight", 0.7)
	v.SetDefault("decision.violence_weight", 0.3)
	v.SetDefault("decision.approve_threshold", 0.2)
	v.SetDefault("decision.reject_threshold", 0.8)

	v.SetDefault("review.sla", 4*time.Hour)

	v.SetDefault("dispatch.webhook_url", "")
	v.SetDefault("dispatch.max_attempts", 5)
	v.SetDefault("dispatch.initial_backoff", time.Second)
	v.SetDefault("dispatch.request_timeout", 10*time.Second)

	v.SetDefault("autoscale.interval", 15*time.Second)
	v.SetDefault("autoscale.max_replicas", 4)
	v.SetDefault("autoscale.backlog_per_replica", 5)
	v.SetDefault("autoscale.scale_down_idle", 3*time.Minute)

	v.SetDefault("events.ttl", 90*24*time.Hour)
	v.SetDefault("events.purge_interval", time.Hour)

	v.SetDefault("server.addr", ":8080")
}
