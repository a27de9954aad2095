package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"adstory/internal/http/handlers"
	httpapi "adstory/internal/http/httpapi"
	"adstory/internal/infra"
	"adstory/internal/infra/credentials"
	"adstory/internal/infra/geoip"
	"adstory/internal/jobs"
	"adstory/internal/providers"
	"adstory/internal/storage"
	"adstory/internal/storyboard"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := infra.LoadProfile(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: load profile failed")
	}
	catalog := profile.Catalog()

	// Keys live in Postgres when configured, otherwise in memory.
	var keys credentials.KeyStore
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: ensure credential schema failed")
		}
		keys = store
	} else {
		logger.Warn().Msg("api: DATABASE_URL empty, device keys are kept in memory")
		keys = credentials.NewMemoryStore("")
	}
	resolver := &credentials.Resolver{Store: keys, DefaultKey: cfg.GeminiAPIKey}

	providerLog := logger.With().Str("component", "provider").Logger()
	provider, err := providers.New(cfg, resolver.Resolve, &providerLog)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure provider failed")
	}

	storagePath := cfg.StoragePath
	if abs, err := filepath.Abs(storagePath); err == nil {
		storagePath = abs
	}
	files, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure storage failed")
	}

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	defer func() { _ = countries.Close() }()

	projects := storyboard.NewRegistry(storyboard.RegistryOptions{
		Provider:    provider,
		Logger:      logger.With().Str("component", "storyboard").Logger(),
		Base:        ctx,
		Files:       files,
		SampleRate:  cfg.AudioSampleRate,
		FanOutLimit: cfg.FanOutLimit,
		Jobs: jobs.Options{
			PollInterval:     cfg.VideoPollInterval,
			PollTimeout:      cfg.VideoPollTimeout,
			MaxPolls:         cfg.VideoMaxPolls,
			ProgressInterval: cfg.ProgressInterval,
			ProgressMessages: profile.ProgressMessages,
		},
	})

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Provider: provider,
		Projects: projects,
		Keys:     keys,
		Resolver: resolver,
		Catalog:  catalog,
	}
	routerOpts := httpapi.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMin:    cfg.RateLimitPerMin,
	}
	if countries != nil {
		routerOpts.Countries = countries
	}
	router := httpapi.NewRouter(app, routerOpts)

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().
		Str("addr", server.Addr()).
		Str("provider", cfg.Provider).
		Str("storage", storagePath).
		Msg("api: listening")
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: http server failed")
	}
	logger.Info().Msg("api: stopped")
}
