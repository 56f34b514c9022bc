package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"docsearch-backend/internal/documents"
	"docsearch-backend/internal/ingest"
	"docsearch-backend/internal/search"
	"docsearch-backend/internal/shared/config"
	"docsearch-backend/internal/shared/resilience"
	"docsearch-backend/internal/shared/server"
	"docsearch-backend/internal/shared/storage/db"
	"docsearch-backend/internal/shared/storage/object"
	localstore "docsearch-backend/internal/shared/storage/object/local"
	s3store "docsearch-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API and the ingestion worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Index  search.Index

	DocumentsRepo    documents.DocumentsRepo
	Hub              *documents.Hub
	Reconciler       *documents.Reconciler
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	Pipeline         *ingest.Pipeline
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

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, localStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	index, err := buildIndex(cfg)
	if err != nil {
		return nil, err
	}

	var repo documents.DocumentsRepo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	hub := documents.NewHub()
	reconciler := &documents.Reconciler{Repo: repo, Updates: hub}

	svc := &documents.Service{
		Repo:              repo,
		Store:             store,
		Index:             index,
		Updates:           hub,
		UploadURLExpiry:   cfg.UploadURLExpiry,
		DownloadURLExpiry: cfg.DownloadURLExpiry,
	}

	pipeline := &ingest.Pipeline{
		Store:      store,
		Repo:       repo,
		Index:      index,
		Reconciler: reconciler,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.TransientRetryAttempts,
			InitialDelay: cfg.TransientRetryBaseDelay,
		},
	}

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		Index:            index,
		DocumentsRepo:    repo,
		Hub:              hub,
		Reconciler:       reconciler,
		DocumentsService: svc,
		DocumentsHandler: documents.NewHandler(svc),
		Pipeline:         pipeline,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           cfg,
		DocumentsHandler: app.DocumentsHandler,
		LocalStore:       localStore,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// buildStore returns the configured store and, for the local backend, the
// concrete local store so the router can serve its dev routes.
func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, *localstore.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		local := localstore.New(cfg.LocalStoreDir, "http://localhost:"+strings.TrimPrefix(cfg.Port, ":"))
		return local, local, nil
	}
}

func buildIndex(cfg config.Config) (search.Index, error) {
	if strings.TrimSpace(cfg.SearchEndpoint) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENSEARCH_ENDPOINT empty; using in-memory index")
			return search.NewMemoryIndex(), nil
		}
		return nil, fmt.Errorf("OPENSEARCH_ENDPOINT is required")
	}
	return search.NewOpenSearchIndex(cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchUsername, cfg.SearchPassword)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
