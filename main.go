package main

import (
	"PinguinTube/config"
	"PinguinTube/controllers"
	"PinguinTube/interfaces"
	"PinguinTube/logger"
	"PinguinTube/middlewares"
	"PinguinTube/repositories"
	"PinguinTube/repositories/impl"
	"PinguinTube/repositories/memory"
	"PinguinTube/routes"
	"PinguinTube/services"
	"PinguinTube/store"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type repositorySet struct {
	parents    repositories.ParentRepository
	children   repositories.ChildRepository
	commands   repositories.CommandRepository
	screenTime repositories.ScreenTimeRepository
	sessions   repositories.SessionRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "pinguintube")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories
	repos, err := initRepositories(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to init storage", zap.Error(err))
	}

	kv, err := initKV(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to init redis", zap.Error(err))
	}

	sink, err := initNotifier(ctx, cfg, repos.parents, zlog)
	if err != nil {
		zlog.Fatal("failed to init notifications", zap.Error(err))
	}
	notifier := services.NewAsyncNotifier(sink, 256, zlog.Named("notifier"))
	defer notifier.Close()

	// Initialize services
	familyService := services.NewFamilyService(repos.parents, repos.children)
	commandService := services.NewCommandService(repos.commands, familyService, repos.children, notifier, zlog.Named("commands"))
	screenTimeService := services.NewScreenTimeService(repos.screenTime, repos.children, familyService, notifier, zlog.Named("screen_time"), cfg.Location)
	deviceAuthService := services.NewDeviceAuthService(repos.children, repos.sessions, familyService, kv, zlog.Named("device_auth"), cfg.SessionSecret, cfg.SessionTTL, cfg.QRTokenTTL)

	// Set services in controllers
	controllers.SetLogger(zlog)
	controllers.SetCommandService(commandService)
	controllers.SetScreenTimeService(screenTimeService)
	controllers.SetDeviceAuthService(deviceAuthService)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middlewares.Recovery(zlog), middlewares.RequestLogger(zlog.Named("http")))

	routes.RegisterRoutes(r, routes.Options{
		JWTSecret:        cfg.JWTSecret,
		SessionValidator: deviceAuthService,
		KV:               kv,
		DeviceRateLimit:  cfg.DeviceRateLimit,
		Logger:           zlog,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server started", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

func initRepositories(cfg *config.Config, zlog *zap.Logger) (repositorySet, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		zlog.Warn("using in-memory storage, data is lost on restart")
		st := memory.NewStore()
		return repositorySet{
			parents:    st.Parents(),
			children:   st.Children(),
			commands:   st.Commands(),
			screenTime: st.ScreenTime(),
			sessions:   st.Sessions(),
		}, nil
	}

	db, err := config.InitDatabase(cfg, zlog)
	if err != nil {
		return repositorySet{}, err
	}
	return repositorySet{
		parents:    impl.NewParentRepository(db),
		children:   impl.NewChildRepository(db),
		commands:   impl.NewCommandRepository(db),
		screenTime: impl.NewScreenTimeRepository(db),
		sessions:   impl.NewSessionRepository(db),
	}, nil
}

func initKV(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (store.KVStore, error) {
	client, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		zlog.Warn("REDIS_URL not set, session cache and rate limits are per-process")
		return store.NewMemoryKVStore(), nil
	}
	return store.NewRedisKVStore(client), nil
}

func initNotifier(ctx context.Context, cfg *config.Config, parents repositories.ParentRepository, zlog *zap.Logger) (interfaces.Notifier, error) {
	client, err := config.InitFirebase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		zlog.Warn("FIREBASE_CREDENTIALS_PATH not set, notifications are only logged")
		return &services.LogNotifier{Logger: zlog.Named("notifications")}, nil
	}
	return services.NewFCMNotifier(client, parents, zlog.Named("fcm")), nil
}
