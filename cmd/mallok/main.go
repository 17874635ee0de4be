package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/api"
	"github.com/snarg/mallok/internal/audio"
	"github.com/snarg/mallok/internal/auth"
	"github.com/snarg/mallok/internal/cleanup"
	"github.com/snarg/mallok/internal/config"
	"github.com/snarg/mallok/internal/correct"
	"github.com/snarg/mallok/internal/database"
	"github.com/snarg/mallok/internal/dictionary"
	"github.com/snarg/mallok/internal/events"
	"github.com/snarg/mallok/internal/intake"
	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/pipeline"
	"github.com/snarg/mallok/internal/storage"
	"github.com/snarg/mallok/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL")
	flag.StringVar(&overrides.SpoolDir, "spool-dir", "", "directory for uploaded audio")
	flag.Parse()

	if *showVersion {
		fmt.Println("mallok", version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("mallok starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := config.ParseAuthTokens(cfg.AuthTokens)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid AUTH_TOKENS")
	}
	authProvider := auth.NewStaticTokens(tokens)
	if authProvider.Len() == 0 {
		log.Warn().Msg("AUTH_TOKENS is empty, every /api request will be rejected")
	}

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolOptions{MaxConns: cfg.DBMaxConns}, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	dict, err := dictionary.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load correction dictionaries")
	}

	spool, err := storage.NewSpool(cfg.SpoolDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create spool directory")
	}

	// Speech-to-text
	sttLog := log.With().Str("component", "transcribe").Logger()
	var provider transcribe.Provider
	switch cfg.STT.Provider {
	case "whisper":
		provider = transcribe.NewWhisperClient(cfg.STT.WhisperURL, cfg.STT.Model, cfg.STT.Timeout)
	default:
		provider = transcribe.NewOpenAIProvider(cfg.STT.OpenAIKey, cfg.STT.OpenAIBaseURL, cfg.STT.Model)
	}
	segmenter := audio.NewSegmenter(audio.SegmenterConfig{
		FFmpegPath:  cfg.Segment.FFmpegPath,
		FFprobePath: cfg.Segment.FFprobePath,
		MaxBytes:    cfg.STT.MaxBytes,
		Window:      cfg.Segment.Window,
		Overlap:     cfg.Segment.Overlap,
		Bitrate:     cfg.Segment.Bitrate,
	}, sttLog)
	transcriber := transcribe.NewOrchestrator(segmenter, provider, sttLog)

	// Correction
	llmLog := log.With().Str("component", "correct").Logger()
	var engine correct.Engine
	switch cfg.LLM.Provider {
	case "anthropic":
		engine = correct.NewAnthropicEngine(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.MaxTokens)
	case "openai":
		engine = correct.NewOpenAIEngine("openai", cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.MaxTokens)
	default:
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = correct.GeminiBaseURL
		}
		engine = correct.NewOpenAIEngine("gemini", cfg.LLM.APIKey, baseURL, cfg.LLM.MaxTokens)
	}
	models := correct.NewModelCache(engine, correct.ModelCacheOptions{
		Priority: cfg.LLM.ModelPriority,
		Fixed:    cfg.LLM.Model,
		TTL:      cfg.LLM.ModelCacheTTL,
		Log:      llmLog,
	})
	corrector := correct.NewCorrector(engine, models, dict, correct.Options{
		CorrectionTimeout: cfg.Correction.Timeout,
		SummaryTimeout:    cfg.Correction.SummaryTimeout,
		Retry: correct.RetryPolicy{
			MaxAttempts: cfg.Correction.MaxAttempts,
			Base:        cfg.Correction.BackoffBase,
			Jitter:      cfg.Correction.BackoffJitter,
		},
		Log: llmLog,
	})

	// Status events: in-process bus for SSE, MQTT when configured
	bus := events.NewBus(1024)
	sinks := []events.Sink{bus}
	var mqttPub *events.MQTTPublisher
	if cfg.MQTT.Enabled() {
		mqttPub, err = events.ConnectMQTT(events.MQTTOptions{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Log:         log.With().Str("component", "mqtt").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mqttPub.Close()
		sinks = append(sinks, mqttPub)
	}

	// Pipeline
	opts := pipeline.ControllerOptions{
		Transcriber: transcriber,
		Corrector:   corrector,
		Store:       db,
		Publisher:   events.Fanout(sinks...),
		Engine:      provider.Name() + "+" + engine.Name(),
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		JobTimeout:  cfg.TaskTimeout,
		Log:         log.With().Str("component", "pipeline").Logger(),
	}
	archive, err := storage.NewArchive(cfg.S3, log.With().Str("component", "archive").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audio archive")
	}
	if archive != nil {
		opts.Archiver = archive
	}
	controller := pipeline.NewController(opts)
	controller.Start()

	prometheus.MustRegister(metrics.NewCollector(db.Pool, controller.Pool(), controller.Status()))

	// Watch-folder intake
	var watcher *intake.Watcher
	if cfg.Inbox.Enabled() {
		watcher = intake.NewWatcher(intake.Options{
			Dir:       cfg.Inbox.Dir,
			User:      cfg.Inbox.User,
			Submitter: controller,
			Spool:     spool,
			Log:       log.With().Str("component", "intake").Logger(),
		})
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start inbox watcher")
		}
	}

	sweeper, err := cleanup.NewSweeper(cfg.Cleanup.Schedule, cfg.Cleanup.MaxAge, spool, controller.Status(),
		log.With().Str("component", "cleanup").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure cleanup")
	}
	sweeper.Start()

	// HTTP Server
	health := api.HealthOptions{
		DB:            db,
		Queue:         controller,
		STTConfigured: cfg.STT.OpenAIKey != "" || cfg.STT.WhisperURL != "",
		LLMConfigured: cfg.LLM.APIKey != "",
		Version:       version,
		StartTime:     startTime,
	}
	if mqttPub != nil {
		health.MQTT = mqttPub
	}
	if watcher != nil {
		health.Watcher = watcher
	}
	srv := api.NewServer(api.ServerOptions{
		Config:     cfg,
		Auth:       authProvider,
		Tasks:      controller,
		Records:    db,
		Spool:      spool,
		Summarizer: corrector,
		Dictionary: dict,
		Events:     bus,
		Health:     health,
		Log:        log.With().Str("component", "http").Logger(),
	})

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// A second signal kills the process while queued tasks drain
	stop()

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if watcher != nil {
		watcher.Stop()
	}
	sweeper.Stop()
	controller.Stop()

	log.Info().Msg("mallok stopped")
}
