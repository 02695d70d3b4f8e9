package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelf/internal/catalog"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/registry"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/sources/seed"
	memorystore "github.com/MrSnakeDoc/shelf/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/shelf/internal/store/redis"
	"github.com/MrSnakeDoc/shelf/internal/suggest"
	"github.com/MrSnakeDoc/shelf/internal/utils"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

var (
	_ registry.Storage = (*memorystore.Store)(nil)
	_ registry.Storage = (*redisstore.Store)(nil)
)

// httpServer is the part of *httpserver.Server the app drives.
type httpServer interface {
	Start() error
	Stop(ctx context.Context) error
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      httpServer
	redisClient *goredis.Client
	registry    *registry.Registry
	refresher   *scheduler.CatalogRefresher
	suggest     *suggest.Controller
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	storage, key, redisClient, err := openStorage(ctx, cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s storage: %v", cfg.Storage, err)
		os.Exit(1)
	}

	reg, err := registry.Open(ctx, storage, key, loggerClient.Named("registry"))
	if err != nil {
		loggerClient.Errorf("Failed to load sources: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("source registry loaded",
		logger.String("storage", cfg.Storage),
		logger.Int("sources", reg.Len()))

	if cfg.SeedFile != "" {
		if _, err := seed.NewImporter(cfg.SeedFile, loggerClient).Import(ctx, reg); err != nil {
			loggerClient.Warn("seed import failed, starting with the stored sources",
				logger.String("file", cfg.SeedFile),
				logger.Error(err))
		}
	}

	gh := github.NewClient(github.Options{
		APIURL:            cfg.GitHubAPIURL,
		WebURL:            cfg.GitHubWebURL,
		Timeout:           cfg.GitHubTimeout,
		RequestsPerSecond: cfg.GitHubRPS,
	}, loggerClient.Named("github"))

	fetcher := catalog.NewFetcher(gh, catalog.Options{
		Extension:  cfg.DocumentExt,
		DateLayout: cfg.DateLayout,
	}, loggerClient.Named("catalog"))

	memIndex := index.NewMemoryIndex()

	// Create manual refresh trigger channel
	refreshTrigger := make(chan struct{}, 1)
	refresher := scheduler.NewCatalogRefresher(reg, fetcher, memIndex, loggerClient, refreshTrigger)

	suggestions := suggest.New(gh, reg, suggest.Options{Delay: cfg.DebounceDelay}, loggerClient.Named("suggest"))

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
		RatePerMinute: cfg.RatePerMinute,
		Storage:       cfg.Storage,
		RedisClient:   redisClient,
		Registry:      reg,
		Index:         memIndex,
		Refresher:     refresher,
		Suggest:       suggestions,
		GitHub:        gh,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		registry:    reg,
		refresher:   refresher,
		suggest:     suggestions,
	}
}

// openStorage returns the registry backend selected by cfg and the key the
// source list lives under. The redis client is nil for memory storage.
func openStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (registry.Storage, string, *goredis.Client, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("memory storage selected, sources are lost on restart")
		return memorystore.NewStore(), cfg.StorageKey, nil, nil
	}

	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, "", nil, err
	}
	return redisstore.NewStore(client), cfg.StorageKey, client, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shelf v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial catalog build, then refreshes on demand only
	a.refresher.Start(ctx)
	a.logger.Info("catalog refresher started", logger.Int("sources", a.registry.Len()))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.shutdownBackground()
		return err
	}

	if err := a.shutdown(); err != nil {
		return err
	}

	a.logger.Info("✅ Shelf stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

// shutdown stops the HTTP server, then everything beside it. Background work
// is stopped even when the server does not stop in time.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	err := a.server.Stop(shutdownCtx)
	a.shutdownBackground()
	if err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

// shutdownBackground stops everything running beside the HTTP server.
func (a *App) shutdownBackground() {
	a.refresher.Stop()
	a.suggest.Close()

	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}
}
