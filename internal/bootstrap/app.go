package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review-backend/internal/llm"
	"resume-review-backend/internal/llm/gemini"
	"resume-review-backend/internal/pipeline"
	"resume-review-backend/internal/queue"
	"resume-review-backend/internal/resumes"
	"resume-review-backend/internal/shared/config"
	"resume-review-backend/internal/shared/server"
	"resume-review-backend/internal/shared/storage/db"
	"resume-review-backend/internal/shared/storage/object"
	localstore "resume-review-backend/internal/shared/storage/object/local"
	s3store "resume-review-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	Objects object.ObjectStore
	Queue   queue.Client
	LLM     llm.Client

	ResumeStore   resumes.Store
	ResumeService *resumes.Service
	ResumeHandler *resumes.Handler
	Processor     *pipeline.Processor
}

// Options controls which pieces Build wires up.
type Options struct {
	// DBOptions tunes the connection pool; servers and workers use
	// different defaults.
	DBOptions db.Options
	// WithRouter attaches the HTTP router. The worker leaves it off.
	WithRouter bool
}

// Build prepares shared dependencies from configuration.
func Build(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, opts.DBOptions)
	if err != nil {
		return nil, err
	}

	objects, err := buildObjects(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Objects: objects,
		LLM:     llmClient,
	}

	if sqlDB != nil {
		app.ResumeStore = &resumes.PGStore{DB: sqlDB}
	} else {
		app.ResumeStore = resumes.NewMemoryStore()
	}

	app.Processor = &pipeline.Processor{
		Store:   app.ResumeStore,
		Objects: app.Objects,
		LLM:     app.LLM,
	}

	app.Queue, err = buildQueue(ctx, cfg, app.Processor)
	if err != nil {
		return nil, err
	}

	app.ResumeService = &resumes.Service{
		Store:   app.ResumeStore,
		Objects: app.Objects,
		Queue:   app.Queue,
	}
	app.ResumeHandler = resumes.NewHandler(app.ResumeService)

	if opts.WithRouter {
		app.Router = server.NewRouter(cfg, app.ResumeHandler)
	}
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: GEMINI_API_KEY empty; reviews will fail until set")
			return unconfiguredLLM{}, nil
		}
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
}

func buildQueue(ctx context.Context, cfg config.Config, proc *pipeline.Processor) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: RR_SQS_QUEUE_URL empty; running pipeline in-process")
			return &queue.InProcClient{
				Handle: func(ctx context.Context, msg queue.Message) error {
					return proc.Run(ctx, msg.ResumeID, msg.OwnerID)
				},
			}, nil
		}
		return nil, fmt.Errorf("RR_SQS_QUEUE_URL is required")
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func isDevLike(env string) bool {
	switch env {
	case "dev", "local", "":
		return true
	default:
		return false
	}
}

// unconfiguredLLM fails every review with a provider error so the pipeline
// marks the run failed instead of panicking on a nil client.
type unconfiguredLLM struct{}

func (unconfiguredLLM) Review(ctx context.Context, in llm.ReviewInput) (llm.Review, error) {
	return llm.Review{}, fmt.Errorf("gemini api key not configured: %w", llm.ErrProviderUnavailable)
}
