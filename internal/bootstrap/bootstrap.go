package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/kirillkom/taxdoc-vault/internal/adapters/http"
	"github.com/kirillkom/taxdoc-vault/internal/config"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
	"github.com/kirillkom/taxdoc-vault/internal/core/usecase"
	"github.com/kirillkom/taxdoc-vault/internal/export"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/audit"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/dlp"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/docai"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/hints"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/match"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/queue/nats"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/render"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/resilience"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/storage/s3"
	"github.com/kirillkom/taxdoc-vault/internal/infrastructure/textcheck"
)

type App struct {
	Config config.Config

	Queue ports.TaskQueue
	Repo  ports.DocumentRepository

	UploadUC      ports.DocumentUploader
	LifecycleUC   ports.DocumentLifecycle
	ExtractionsUC ports.ExtractionReader
	RedactUC      ports.RedactionProcessor
	ExtractUC     ports.ExtractionProcessor
	Exporter      *export.Service

	// FileHandler is set only for the local filesystem backend, which serves
	// its signed links through the API itself.
	FileHandler http.Handler

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	extRepo := postgres.NewExtractionRepository(db)

	var (
		storage     ports.BlobStorage
		fileHandler http.Handler
	)
	switch cfg.StorageBackend {
	case "s3":
		storage, err = s3.New(ctx, cfg.S3Bucket, s3.Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
	case "localfs":
		local, err := localfs.New(cfg.StoragePath, cfg.PublicBaseURL, []byte(cfg.AuthSecret))
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		storage = local
		fileHandler = httpadapter.NewFileHandler(local, []byte(cfg.AuthSecret))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSRedactSubject, cfg.NATSExtractSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	var auditSink ports.AuditSink
	var auditClose func()
	switch cfg.AuditSink {
	case "nats":
		natsSink, err := audit.NewNATSSink(cfg.NATSURL, cfg.NATSAuditSubject, logger)
		if err != nil {
			return nil, fmt.Errorf("init audit sink: %w", err)
		}
		auditSink = natsSink
		auditClose = natsSink.Close
	default:
		auditSink = audit.NewLogSink(logger)
	}

	recognizer := docai.New(cfg.DocAIBaseURL, cfg.DocAIProcessorID, executor)
	detector := dlp.New(cfg.DLPURL, executor)
	matcher := match.New()
	renderer := render.New()
	probe := textcheck.New()
	hintExtractor := hints.New()
	parser := ollama.NewParser(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor))

	validator := usecase.NewRedactionValidator(probe, recognizer, detector)

	uploadUC := usecase.NewUploadDocumentUseCase(docRepo, storage, queue, auditSink)
	redactUC := usecase.NewRedactDocumentUseCase(docRepo, storage, recognizer, detector, matcher, renderer, validator, auditSink)
	lifecycleUC := usecase.NewDocumentLifecycleUseCase(docRepo, extRepo, storage, queue, auditSink)
	extractUC := usecase.NewExtractFieldsUseCase(docRepo, extRepo, storage, recognizer, hintExtractor, parser, auditSink)
	extractionsUC := usecase.NewExtractionReaderUseCase(docRepo, extRepo, auditSink)
	exporter := export.NewService(docRepo, extRepo, logger)

	return &App{
		Config: cfg,

		Queue: queue,
		Repo:  docRepo,

		UploadUC:      uploadUC,
		LifecycleUC:   lifecycleUC,
		ExtractionsUC: extractionsUC,
		RedactUC:      redactUC,
		ExtractUC:     extractUC,
		Exporter:      exporter,

		FileHandler: fileHandler,

		closeFn: func() {
			queue.Close()
			if auditClose != nil {
				auditClose()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
