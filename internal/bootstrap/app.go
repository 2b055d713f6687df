package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/analyses"
	"quoteflow-backend/internal/groups"
	"quoteflow-backend/internal/oracle"
	openai "quoteflow-backend/internal/oracle/openai"
	"quoteflow-backend/internal/quotes"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/config"
	"quoteflow-backend/internal/shared/server"
	"quoteflow-backend/internal/shared/storage/db"
	"quoteflow-backend/internal/shared/storage/object"
	localstore "quoteflow-backend/internal/shared/storage/object/local"
	"quoteflow-backend/internal/sourcefiles"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	QuotesRepo   quotes.Repo
	FilesRepo    sourcefiles.Repo
	AnalysesRepo analyses.Repo
	GroupsRepo   groups.Repo

	RefData         *refdata.Provider
	FilesService    *sourcefiles.Service
	QuotesService   *quotes.Service
	AnalysesService *analyses.Service
	GroupsService   *groups.Service

	QuoteHandler    *quotes.Handler
	FileHandler     *sourcefiles.Handler
	AnalysisHandler *analyses.Handler
	GroupHandler    *groups.Handler
	RefDataHandler  *refdata.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  localstore.New(cfg.LocalStoreDir),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		QuoteHandler:    app.QuoteHandler,
		FileHandler:     app.FileHandler,
		AnalysisHandler: app.AnalysisHandler,
		GroupHandler:    app.GroupHandler,
		RefDataHandler:  app.RefDataHandler,
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

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.QuotesRepo = &quotes.PGRepo{DB: app.DB}
		app.FilesRepo = &sourcefiles.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
		app.GroupsRepo = &groups.PGRepo{DB: app.DB}
		app.RefData = refdata.NewProvider(&refdata.PGRepo{DB: app.DB})
	} else {
		app.QuotesRepo = quotes.NewMemoryRepo()
		app.FilesRepo = sourcefiles.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
		app.GroupsRepo = groups.NewMemoryRepo()
		app.RefData = refdata.NewProvider(refdata.NewMemoryRepo())
	}

	oracleClient, err := buildOracle(app.Config)
	if err != nil {
		return err
	}

	filesSvc := &sourcefiles.Service{
		Repo:  app.FilesRepo,
		Store: app.Store,
	}

	quotesSvc := &quotes.Service{
		Repo:    app.QuotesRepo,
		Ref:     app.RefData,
		Records: app.AnalysesRepo,
		Groups:  app.GroupsRepo,
	}

	analysesSvc := &analyses.Service{
		Repo:   app.AnalysesRepo,
		Files:  filesSvc,
		Ref:    app.RefData,
		Oracle: oracleClient,
		Quotes: quotesSvc,
		Recalc: quotesSvc,
	}

	groupsSvc := &groups.Service{
		Repo:    app.GroupsRepo,
		Files:   filesSvc,
		Ref:     app.RefData,
		Oracle:  oracleClient,
		Quotes:  quotesSvc,
		Recalc:  quotesSvc,
		Records: analysesSvc,
	}

	app.FilesService = filesSvc
	app.QuotesService = quotesSvc
	app.AnalysesService = analysesSvc
	app.GroupsService = groupsSvc
	app.QuoteHandler = quotes.NewHandler(quotesSvc)
	app.FileHandler = sourcefiles.NewHandler(filesSvc)
	app.AnalysisHandler = analyses.NewHandler(analysesSvc)
	app.GroupHandler = groups.NewHandler(groupsSvc)
	app.RefDataHandler = refdata.NewHandler(app.RefData)

	if app.QuoteHandler == nil || app.AnalysisHandler == nil || app.GroupHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}

func buildOracle(cfg config.Config) (oracle.Client, error) {
	client := oracle.Client(oracle.PlaceholderClient{})
	if cfg.OracleProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.OracleModel)
		if err != nil {
			if !isDevLike(cfg.Env) {
				return nil, err
			}
			log.Printf("bootstrap: oracle not configured; analysis calls will fail: %v", err)
		} else {
			client = openaiClient
		}
	}
	return oracle.WithTimeout(client, cfg.OracleTimeout), nil
}
