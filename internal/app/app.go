package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/db"
	"github.com/yungbote/coursehub-backend/internal/events"
	httpserver "github.com/yungbote/coursehub-backend/internal/http"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

func New(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if strings.EqualFold(cfg.LogMode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "coursehub-backend",
		Role:        processRole(cfg),
		Environment: cfg.Environment,
		Version:     os.Getenv("APP_VERSION"),
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	var router *gin.Engine
	if cfg.RunServer {
		handlerset := wireHandlers(theDB, log, serviceset)
		middleware := wireMiddleware(log, serviceset, clients)
		router, err = wireRouter(log, cfg, handlerset, middleware, metrics)
		if err != nil {
			clients.Close()
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("init router: %w", err)
		}
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Run starts every configured component and blocks until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)

	if rb, ok := a.Clients.Bus.(*events.RedisBus); ok {
		g.Go(func() error { return rb.Start(ctx) })
	}

	if a.Metrics != nil {
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
		if !a.Cfg.RunServer {
			a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		}
	}

	if a.Services.JobWorker != nil {
		w := a.Services.JobWorker
		g.Go(func() error {
			w.Start(ctx)
			<-ctx.Done()
			w.Wait()
			return nil
		})
	}
	if a.Services.TemporalWorker != nil {
		r := a.Services.TemporalWorker
		g.Go(func() error { return r.Start(ctx) })
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Start(ctx)
	}

	if a.Router != nil {
		srv := httpserver.NewServer(a.Router, a.Log)
		g.Go(func() error { return srv.Run(ctx, a.Cfg.HTTPAddr) })
	}

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func processRole(cfg Config) string {
	switch {
	case cfg.RunServer && cfg.RunWorker:
		return "api+worker"
	case cfg.RunWorker:
		return "worker"
	default:
		return "api"
	}
}
