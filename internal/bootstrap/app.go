// Package bootstrap wires configuration into the dependency graph and hands
// back a ready-to-serve application.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/analysis"
	"interview-backend/internal/frames"
	"interview-backend/internal/insight"
	"interview-backend/internal/insight/gateway"
	"interview-backend/internal/logger"
	"interview-backend/internal/media"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/server"
	"interview-backend/internal/shared/storage/db"
	"interview-backend/internal/shared/storage/object"
	localstore "interview-backend/internal/shared/storage/object/local"
	s3store "interview-backend/internal/shared/storage/object/s3"
	"interview-backend/internal/transcript"
	"interview-backend/internal/vision"
)

// App holds the wired dependencies.
type App struct {
	Config config.Config
	Log    *logger.Logger
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	FramesService   *frames.Service
	AnalysisService *analysis.Service
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	log := logger.New()

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := buildExtractor(cfg)
	if err != nil {
		return nil, err
	}

	var repo analysis.Repo
	if sqlDB != nil {
		repo = &analysis.PGRepo{DB: sqlDB}
	} else {
		repo = analysis.NewMemoryRepo()
	}

	retriever := &media.StoreRetriever{
		Store:     store,
		Prefix:    cfg.MediaPrefix,
		SourceFPS: cfg.MediaSourceFPS,
	}

	generator, err := buildInsightGenerator(cfg, log)
	if err != nil {
		return nil, err
	}

	framesSvc := frames.NewService(extractor, tuning, log)
	analysisSvc := analysis.NewService(
		repo,
		framesSvc,
		retriever,
		transcript.NewAnalyzer(tuning.Transcript),
		generator,
		tuning,
		log,
	)

	router := server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Log:             log.Component("http"),
		AnalysisHandler: analysis.NewHandler(analysisSvc),
		FramesHandler:   frames.NewHandler(framesSvc),
	})

	return &App{
		Config:          cfg,
		Log:             log,
		Router:          router,
		DB:              sqlDB,
		Store:           store,
		FramesService:   framesSvc,
		AnalysisService: analysisSvc,
	}, nil
}

func buildDB(ctx context.Context, cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Component("bootstrap").Info("DATABASE_URL empty; using in-memory job store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Component("bootstrap").WithField("error", err.Error()).
				Warn("database connect failed; using in-memory job store")
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildExtractor(cfg config.Config) (vision.Extractor, error) {
	if strings.TrimSpace(cfg.ExtractorURL) == "" {
		return nil, fmt.Errorf("EXTRACTOR_URL is required")
	}
	return vision.NewRemoteExtractor(cfg.ExtractorURL), nil
}

func buildInsightGenerator(cfg config.Config, log *logger.Logger) (insight.Generator, error) {
	if strings.TrimSpace(cfg.InsightGatewayURL) == "" {
		log.Component("bootstrap").Info("insight gateway not configured; reports omit coaching")
		return insight.Placeholder{}, nil
	}
	return gateway.NewClient(cfg.InsightGatewayURL, cfg.InsightAPIKey, cfg.InsightModel, log)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
