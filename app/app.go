package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	adapterhttp "signage-service/ddd/adapter/http"
	appsvc "signage-service/ddd/application/app"
	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/service"
	"signage-service/ddd/infrastructure/catalog"
	"signage-service/ddd/infrastructure/database"
	"signage-service/ddd/infrastructure/database/dao"
	"signage-service/ddd/infrastructure/executor"
	"signage-service/ddd/infrastructure/notify"
	"signage-service/ddd/infrastructure/queue"
	"signage-service/ddd/infrastructure/storage"
	"signage-service/internal/resource"
	"signage-service/pkg/config"
	"signage-service/pkg/kafka"
	"signage-service/pkg/logger"
	"signage-service/pkg/observability"
	"signage-service/pkg/registry"
	"signage-service/pkg/task"
)

const appName = "signage-service"

// Run boots the service and blocks until shutdown.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.SetGlobalConfig(cfg)
	logger.SetGlobalLogger(logger.NewLogger(cfg))
	gin.SetMode(cfg.Server.Mode)

	observability.StartProfiling(appName, cfg.Profiling)
	resource.MustInit(cfg)
	defer resource.Close()

	if err := os.MkdirAll(cfg.Media.Root, 0o755); err != nil {
		return fmt.Errorf("prepare media root: %w", err)
	}
	lay := layout.Layout{Root: cfg.Media.Root}

	// Infrastructure.
	transcodeQueue := queue.NewTranscodeQueue(cfg.Encoder.MaxJobs, cfg.Encoder.QueueCapacity)
	defer transcodeQueue.Close()
	runner := executor.NewFFmpegRunner(cfg.Encoder.Timeout)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	jobDAO := dao.NewPublishJobDAO(db)

	var kafkaClient *kafka.Client
	if resource.DefaultKafkaResource().Opened() {
		kafkaClient = kafka.DefaultClient()
		if err := kafkaClient.EnsureTopic(cfg.Kafka.Topics.ManifestEvents, 1, 1); err != nil {
			logger.Warnf("manifest event topic setup failed: %v", err)
		}
	}

	// Domain services.
	prober := service.NewProbeService(runner, cfg.Encoder.FFprobePath)
	videoSvc := service.NewVideoService(lay, prober, runner, transcodeQueue, cfg.Encoder)
	imageSvc := service.NewImageService(lay, cfg.Image)
	hlsSvc := service.NewHLSService(lay, runner, transcodeQueue, cfg.Encoder, cfg.HLS)

	builder := catalog.NewBuilder(lay, cfg.Media, cfg.Image, cfg.Encoder.Heights)
	store := catalog.NewStore(lay)
	versions := catalog.NewVersionSource(lay)
	hub := notify.NewHub(cfg.Notify.HeartbeatInterval)
	kafkaMirror := notify.NewKafkaMirror(kafkaClient, cfg.Kafka.Topics.ManifestEvents)
	redisMirror := catalog.NewRedisMirror(resource.DefaultRedisResource().Client(), cfg.Redis.VersionKey)
	minioStorage := storage.NewMinioStorage(resource.DefaultMinioResource().Client(), resource.DefaultMinioResource().BucketName())

	publishApp := appsvc.NewPublishApp(
		lay, cfg.Media, cfg.Encoder,
		videoSvc, imageSvc, hlsSvc,
		builder, store, versions,
		hub, kafkaMirror, redisMirror, minioStorage, jobDAO,
	)
	if err := publishApp.RefreshCatalogs(context.Background()); err != nil {
		logger.Warnf("catalog refresh on boot failed: %v", err)
	} else if v := store.Version(); v > 0 {
		logger.Infof("catalogs restored at version %d", v)
	}
	for _, r := range publishApp.Ladder() {
		logger.Infof("rendition tier %s: %dx%d @ %d bps", r.Name(), r.Width, r.Height, r.Bitrate)
	}

	// HTTP surface.
	router := adapterhttp.NewRouter(
		adapterhttp.NewManifestController(store, hub, publishApp),
		adapterhttp.NewMediaController(lay),
		adapterhttp.NewPublishController(publishApp),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	task.Register(task.FuncTask{
		TaskName: "http_server",
		StartFn: func(ctx context.Context) error {
			go func() {
				logger.Infof("http server listening on %s", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("http server exited: %v", err)
				}
			}()
			return nil
		},
		StopFn: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	})

	if cfg.ServiceRegistry.Enabled {
		reg, err := registry.NewServiceRegistry(cfg.ServiceRegistry, addr)
		if err != nil {
			logger.Warnf("service registry unavailable: %v", err)
		} else {
			if err := reg.Register(); err != nil {
				logger.Warnf("service registration failed: %v", err)
			}
			defer func() { _ = reg.Deregister() }()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := task.StartAll(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutdown signal received")

	task.StopAll()
	return nil
}
