package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"estatehub/gateway/internal/api"
	"estatehub/gateway/internal/cache"
	"estatehub/gateway/internal/config"
	"estatehub/gateway/internal/db"
	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/logging"
	"estatehub/gateway/internal/services"
	"estatehub/gateway/internal/storage"
	"estatehub/gateway/internal/stream"
	"estatehub/gateway/internal/tasks"
	"estatehub/gateway/internal/upstream"
)

const shutdownTimeout = 15 * time.Second

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped with error", zap.Error(err))
	}
	logger.Info("gateway gracefully stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	apiMode, bgMode, imgMode := false, false, false
	switch cfg.RunMode {
	case "api":
		apiMode = true
	case "bg":
		bgMode = true
	case "img":
		imgMode = true
	case "all":
		apiMode, bgMode, imgMode = true, true, true
	default:
		return fmt.Errorf("invalid run mode: %s", cfg.RunMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoDb, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDbName, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Disconnect(mongoDb, logger) }()
	if err := db.EnsureIndexes(ctx, mongoDb, logger); err != nil {
		return err
	}

	redisClient, err := cache.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close(redisClient, logger) }()

	configSvc := services.NewConfigService(mongoDb, redisClient, logger)
	if err := configSvc.Load(ctx); err != nil {
		// Environment defaults still apply.
		logger.Error("failed to load runtime config", zap.Error(err))
	}

	s3Storage, err := storage.NewS3Storage(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 storage: %w", err)
	}

	upstreamClient := upstream.NewClient(upstream.Options{
		Tuning:         configSvc,
		BaseURL:        cfg.UpstreamBaseURL,
		Timeout:        cfg.UpstreamTimeout,
		PageSize:       cfg.FeedPageSize,
		NearbyRadiusKM: cfg.NearbyRadiusKM,
	})

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	enqueuer := tasks.NewEnqueuer(taskClient, logger)

	hub := stream.NewHub(redisClient, logger)

	snapshotSvc := services.NewSnapshotService(mongoDb, logger)
	locationSvc := services.NewLocationService(mongoDb)
	feedStore := cache.NewFeedStore(redisClient, cfg.FeedStateTTL, cfg.FeedLockTTL, logger)
	feedSvc := services.NewFeedService(feed.NewAggregator(upstreamClient, feedStore, logger), locationSvc, logger)
	conversationSvc := services.NewConversationService(upstreamClient, snapshotSvc, hub, enqueuer, logger)
	submissionSvc := services.NewSubmissionService(upstreamClient, s3Storage, snapshotSvc, logger)
	mediaSvc := services.NewMediaService(s3Storage, enqueuer, logger)

	svc := api.Services{
		Config:        configSvc,
		Feed:          feedSvc,
		Conversations: conversationSvc,
		Submissions:   submissionSvc,
		Media:         mediaSvc,
		Locations:     locationSvc,
		Snapshots:     snapshotSvc,
		Stream:        hub,
	}

	shutdownChan := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-shutdownChan:
			logger.Info("shutdown requested via service API")
			cancel()
		}
		return nil
	})

	g.Go(func() error { return configSvc.SubscribeToChanges(gctx) })

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(svc, shutdownChan, logger),
	}
	serve(g, gctx, serviceSrv, "service API", logger)

	if apiMode {
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error { return hub.SubscribeToRedis(gctx) })

		mainSrv := &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(gctx, cfg, svc, logger),
		}
		serve(g, gctx, mainSrv, "main API", logger)
	}

	if bgMode || imgMode {
		processor := tasks.NewTaskProcessor(cfg, conversationSvc, configSvc, s3Storage, logger)
		taskSrv, mux := tasks.SetupServer(redisClient, processor, imgMode, bgMode, logger)
		if taskSrv != nil {
			runTaskServer(g, gctx, taskSrv, mux, logger)
		}
	}

	logger.Info("gateway started", zap.String("mode", cfg.RunMode))
	return g.Wait()
}

// serve runs srv until ctx is done, then shuts it down.
func serve(g *errgroup.Group, ctx context.Context, srv *http.Server, name string, logger *zap.Logger) {
	g.Go(func() error {
		logger.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.String("server", name), zap.Error(err))
		}
		logger.Info("server stopped", zap.String("server", name))
		return nil
	})
}

func runTaskServer(g *errgroup.Group, ctx context.Context, srv *asynq.Server, mux *asynq.ServeMux, logger *zap.Logger) {
	g.Go(func() error {
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("task server: %w", err)
		}
		<-ctx.Done()
		srv.Shutdown()
		logger.Info("task server stopped")
		return nil
	})
}
