package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anime-shed/lecture-indexer-go/internal/analyzer"
	"github.com/anime-shed/lecture-indexer-go/internal/annotator"
	"github.com/anime-shed/lecture-indexer-go/internal/config"
	"github.com/anime-shed/lecture-indexer-go/internal/describer"
	"github.com/anime-shed/lecture-indexer-go/internal/jobs"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/observer"
	"github.com/anime-shed/lecture-indexer-go/internal/ocr"
	"github.com/anime-shed/lecture-indexer-go/internal/ocr/tesseract"
	"github.com/anime-shed/lecture-indexer-go/internal/pipeline"
	"github.com/anime-shed/lecture-indexer-go/internal/repository"
	"github.com/anime-shed/lecture-indexer-go/internal/storage"
	"github.com/anime-shed/lecture-indexer-go/internal/transport"
	"github.com/anime-shed/lecture-indexer-go/internal/video"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	driver  *pipeline.Driver
	manager *jobs.Manager
	handler http.Handler
	closers []func() error
}

// NewContainer builds the dependency graph from cfg
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	store, err := c.buildStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	files, err := storage.NewJobFiles(cfg.JobsDir)
	if err != nil {
		c.Close()
		return nil, err
	}

	mirror, err := c.buildMirror(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver())
	if cfg.RabbitMQURL != "" {
		amqpObserver, err := observer.NewAMQPObserver(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			c.Close()
			return nil, err
		}
		events.Subscribe(amqpObserver)
		c.closers = append(c.closers, amqpObserver.Close)
	}

	c.driver = NewDriver(cfg)

	c.manager = jobs.NewManager(jobs.Deps{
		Store:    store,
		Files:    files,
		Pipeline: c.driver,
		Pool:     jobs.NewWorkerPool(cfg.WorkerCount, cfg.JobQueueSize),
		Events:   events,
		Mirror:   mirror,
		Fetcher:  storage.NewHTTPVideoFetcher(cfg.VideoFetchTimeout),
	})
	c.handler = transport.NewHandler(c.manager, c.driver, cfg)

	return c, nil
}

// NewDriver wires the extraction pipeline: ffmpeg frames, tesseract OCR and the scene describer
func NewDriver(cfg *config.Config) *pipeline.Driver {
	textExtractor := ocr.NewExtractor(
		tesseract.NewEngine(cfg.OCRLanguage),
		analyzer.NewOCRPreprocessor(),
		cfg.OCRConfidenceThreshold,
	)
	desc := newDescriber(cfg)

	defaults := pipeline.DefaultOptions().
		WithStdThreshold(cfg.KeyframeStdThreshold).
		WithConfidenceThreshold(cfg.OCRConfidenceThreshold)

	return pipeline.NewDriver(
		video.NewFFmpegOpener(cfg.FFmpegPath, cfg.FFprobePath),
		func(opts pipeline.Options) pipeline.FrameAnnotator {
			return annotator.New(textExtractor.WithThreshold(opts.ConfidenceThreshold), desc)
		},
		defaults,
	)
}

func newDescriber(cfg *config.Config) describer.Describer {
	if !cfg.DescriberEnabled || cfg.OpenAIAPIKey == "" {
		logger.Warn("Scene description disabled; annotations will carry a placeholder description")
		return describer.Disabled{}
	}
	return describer.New(describer.Config{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.DescriberModel,
		MaxTokens: cfg.DescriberMaxTokens,
		Timeout:   cfg.DescriberTimeout,
	})
}

func (c *Container) buildStore(ctx context.Context) (repository.JobStore, error) {
	if c.config.JobStore != "postgres" {
		return repository.NewMemoryJobStore(), nil
	}

	pool, err := pgxpool.New(ctx, c.config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrRepositoryUnavailable, err)
	}
	store := repository.NewPostgresJobStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (c *Container) buildMirror(ctx context.Context) (storage.ArtifactMirror, error) {
	switch c.config.ArtifactMirror {
	case "azure":
		return storage.NewAzureMirror(c.config.AzureAccountName, c.config.AzureAccountKey, c.config.AzureContainer)
	case "minio":
		mirror, err := storage.NewMinioMirror(storage.MinioConfig{
			Endpoint:  c.config.MinIOEndpoint,
			AccessKey: c.config.MinIOAccessKey,
			SecretKey: c.config.MinIOSecretKey,
			UseSSL:    c.config.MinIOUseSSL,
			Bucket:    c.config.MinIOBucket,
		})
		if err != nil {
			return nil, err
		}
		if err := mirror.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return mirror, nil
	default:
		return storage.NoopMirror{}, nil
	}
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Manager returns the job manager
func (c *Container) Manager() *jobs.Manager {
	return c.manager
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases external connections in reverse order of creation
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
