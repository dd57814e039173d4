// Package bootstrap wires configuration into a runnable application graph
// shared by the relay and worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ecosense-relay/internal/backend"
	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/panel"
	"ecosense-relay/internal/probe"
	"ecosense-relay/internal/relay"
	"ecosense-relay/internal/services/health"
	"ecosense-relay/internal/shared/config"
	"ecosense-relay/internal/shared/server"
	"ecosense-relay/internal/shared/storage/db"
	"ecosense-relay/internal/shared/storage/object"
	localstore "ecosense-relay/internal/shared/storage/object/local"
	s3store "ecosense-relay/internal/shared/storage/object/s3"
	"ecosense-relay/internal/sites"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

var errMissingDatabaseURL = errors.New("DATABASE_URL is required")

// App holds the shared dependency graph.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     store.Store
	Snapshots object.ObjectStore
	Backend   backend.Client
	Tabs      *tabs.Registry
	Relay     *relay.Service
	Bus       dispatch.Bus
	// LocalBus is set when DispatchMode is local so callers can flush
	// in-flight deliveries on shutdown.
	LocalBus *dispatch.LocalBus
	Probe    *probe.Probe
	Rerunner *probe.Rerunner
	Panel    *panel.Service
}

// Build prepares the dependency graph and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var resultStore store.Store
	if sqlDB != nil {
		resultStore = store.NewPGStore(sqlDB)
	} else {
		resultStore = store.NewMemoryStore()
	}

	snapshots, err := buildSnapshots(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backendClient := backend.Client(backend.PlaceholderClient{})
	if strings.TrimSpace(cfg.BackendURL) != "" {
		httpClient, err := backend.NewHTTPClient(cfg.BackendURL, cfg.BackendScale)
		if err != nil {
			return nil, err
		}
		backendClient = httpClient
	}

	registry := tabs.NewRegistry()
	relaySvc := &relay.Service{
		Store:     resultStore,
		Backend:   backendClient,
		Notifier:  registry,
		Snapshots: snapshots,
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     resultStore,
		Snapshots: snapshots,
		Backend:   backendClient,
		Tabs:      registry,
		Relay:     relaySvc,
	}

	if err := buildBus(ctx, app); err != nil {
		return nil, err
	}

	indicator := probe.NewIndicator(time.Duration(cfg.ToastTTLSeconds) * time.Second)
	app.Probe = &probe.Probe{
		Store:       resultStore,
		Eligibility: buildEligibility(cfg),
		Bus:         app.Bus,
		Indicator:   indicator,
		Tabs:        registry,
	}
	app.Rerunner = &probe.Rerunner{Probe: app.Probe}
	app.Panel = &panel.Service{
		Store:    resultStore,
		Notifier: registry,
		Trigger:  app.Rerunner,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		MessageHandler: relay.NewHandler(app.Bus),
		PanelHandler:   panel.NewHandler(app.Panel, resultStore),
		Health:         health.NewService(resultStore),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory result store")
			return nil, nil
		}
		return nil, errMissingDatabaseURL
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory result store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory result store: %v", err)
			sqlDB.Close()
			return nil, nil
		}
		sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}

func buildSnapshots(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.SnapshotStore {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalSnapshotDir), nil
	}
}

func buildBus(ctx context.Context, app *App) error {
	if app.Config.DispatchMode == "sqs" {
		bus, err := dispatch.NewSQSBus(ctx)
		if err != nil {
			return err
		}
		app.Bus = bus
		return nil
	}
	local := dispatch.NewLocalBus(app.Relay)
	app.Bus = local
	app.LocalBus = local
	return nil
}

func buildEligibility(cfg config.Config) probe.Strategy {
	if cfg.Eligibility == "injected" {
		return probe.InjectionScoped{}
	}
	domains := append([]string{}, sites.DefaultDomains...)
	domains = append(domains, cfg.ExtraDomains...)
	return probe.Whitelist{Matcher: sites.NewMatcher(domains)}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
