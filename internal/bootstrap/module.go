package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"guardian/internal/bootstrap/config"
	"guardian/internal/bootstrap/database"
	"guardian/internal/bootstrap/logging"
	"guardian/internal/domain/moderation"
	"guardian/internal/infrastructure/artifact"
	"guardian/internal/infrastructure/idempotency"
	"guardian/internal/infrastructure/notify"
	sqliterepo "guardian/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "guardian/internal/infrastructure/persistence/sqlite/uow"
	queueinfra "guardian/internal/infrastructure/queue"
	scorerinfra "guardian/internal/infrastructure/scorer"
	"guardian/internal/ports"
	"guardian/internal/usecase/pipeline"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRecordRepository,
			fx.As(new(ports.RecordRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			idempotency.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideQueue),
	fx.Provide(provideArtifactStore),
	fx.Provide(provideService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideQueue(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.WorkQueue, error) {
	switch cfg.Queue.Driver {
	case "memory":
		return queueinfra.NewMemoryQueue(cfg.Queue.VisibilityTimeout, cfg.Queue.ReceiveWait), nil
	case "nats":
		q, err := queueinfra.NewNATSQueue(ctx, cfg.Queue)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error { return q.Close() },
		})
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver)
	}
}

func provideArtifactStore(cfg config.Config) (ports.ArtifactStore, error) {
	return artifact.NewFSStore(cfg.Artifacts.Dir)
}

// provideService assembles the pipeline: screening runs the local heuristic,
// each deep-analysis sub-score blends a specialized endpoint (when
// configured) with a local general classifier.
func provideService(cfg config.Config, repo ports.RecordRepository, unit ports.UnitOfWork, cache ports.Cache, queue ports.WorkQueue, artifacts ports.ArtifactStore) (*pipeline.Service, error) {
	screening := scorerinfra.NewHeuristicScorer(scorerinfra.FeatureWeights{
		Motion: cfg.Screening.MotionWeight,
		Skin:   cfg.Screening.SkinWeight,
		Color:  cfg.Screening.ColorWeight,
	})

	nsfw := analysisScorers(cfg, "nsfw", cfg.Analysis.NSFWEndpoint,
		scorerinfra.NewProfileScorer("nsfw-general", 0x46, 0x8c))
	violence := analysisScorers(cfg, "violence", cfg.Analysis.ViolenceEndpoint,
		scorerinfra.NewProfileScorer("violence-general", 0x00, 0x1f))

	return pipeline.NewService(pipeline.Params{
		Repo:            repo,
		UoW:             unit,
		Cache:           cache,
		Queue:           queue,
		Artifacts:       artifacts,
		Sampler:         scorerinfra.NewChunkSampler(),
		ScreeningScorer: screening,
		NSFWScorers:     nsfw,
		ViolenceScorers: violence,
		Sender:          notify.NewSender(cfg.Dispatch.WebhookURL, cfg.Dispatch.RequestTimeout),
		Settings: pipeline.Settings{
			ScreeningSampleRate:    cfg.Screening.SampleRate,
			AnalysisSampleRate:     cfg.Analysis.SampleRate,
			ScreeningScorerRetries: cfg.Screening.ScorerRetries,
			AnalysisScorerRetries:  cfg.Analysis.ScorerRetries,
			EscalationThreshold:    cfg.Screening.EscalationThreshold,
			HighPriorityThreshold:  cfg.Screening.HighPriorityThreshold,
			FinalWeights: moderation.FinalScoreWeights{
				Risk:     cfg.Decision.RiskWeight,
				NSFW:     cfg.Decision.NSFWWeight,
				Violence: cfg.Decision.ViolenceWeight,
			},
			Thresholds: moderation.Thresholds{
				Approve: cfg.Decision.ApproveThreshold,
				Reject:  cfg.Decision.RejectThreshold,
			},
			ReviewSLA:              cfg.Review.SLA,
			DispatchMaxAttempts:    cfg.Dispatch.MaxAttempts,
			DispatchInitialBackoff: cfg.Dispatch.InitialBackoff,
			EventTTL:               cfg.Events.TTL,
		},
	})
}

func analysisScorers(cfg config.Config, name, endpoint string, general ports.Scorer) []pipeline.WeightedScorer {
	scorers := []pipeline.WeightedScorer{
		{Scorer: general, Weight: cfg.Analysis.GeneralWeight},
	}
	if endpoint != "" {
		specialized := scorerinfra.NewRemoteScorer(name, endpoint,
			cfg.Analysis.EndpointToken, cfg.Analysis.RequestTimeout)
		scorers = append(scorers, pipeline.WeightedScorer{
			Scorer: specialized,
			Weight: cfg.Analysis.SpecializedWeight,
		})
	}
	return scorers
}

func provideApp(cfg config.Config, db *gorm.DB, queue ports.WorkQueue) *App {
	return &App{
		Config: cfg,
		DB:     db,
		Queue:  queue,
	}
}
