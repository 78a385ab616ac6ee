package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"incapacity-claims/common/database"
	"incapacity-claims/common/logger"
	"incapacity-claims/common/mqtt"
	commonredis "incapacity-claims/common/redis"
	"incapacity-claims/internal/audit"
	"incapacity-claims/internal/auth"
	"incapacity-claims/internal/blobstore"
	"incapacity-claims/internal/catalog"
	"incapacity-claims/internal/config"
	"incapacity-claims/internal/events"
	httpapi "incapacity-claims/internal/http"
	"incapacity-claims/internal/notify"
	"incapacity-claims/internal/repository"
	"incapacity-claims/internal/service"
	"incapacity-claims/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "incapacity-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs sessions and the event stream; without it both fall back to memory.
	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	redisErr := commonredis.Available(ctx, redisClient, 3*time.Second)
	redisOK := redisErr == nil
	if !redisOK {
		log.Warn("Redis unavailable, sessions and events stay in process",
			zap.String("addr", cfg.Redis.Addr), zap.Error(redisErr))
	}

	var (
		db           *sql.DB
		claims       repository.ClaimsRepository
		requirements repository.RequirementsRepository
		catalogRepo  repository.CatalogRepository
		users        repository.UsersRepository
		auditRepo    repository.AuditRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for incapacity-api")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		claims = repository.NewPostgresClaimsRepository(db, log)
		requirements = repository.NewPostgresRequirementsRepository(db)
		catalogRepo = repository.NewPostgresCatalogRepository(db)
		users = repository.NewPostgresUsersRepository(db)
		auditRepo = repository.NewPostgresAuditRepository(db)
	} else {
		ref := repository.NewMemoryReferenceRepo()
		seedDevReference(ctx, ref, log)
		claims = repository.NewMemoryClaimsRepo()
		requirements = ref
		catalogRepo = ref
		users = ref
		auditRepo = repository.NewMemoryAuditRepo()
	}
	cached := catalog.NewCachedCatalog(catalogRepo, requirements, cfg.Catalog.TTL)

	var blobs blobstore.BlobStore
	switch cfg.Blob.Driver {
	case "memory":
		blobs = blobstore.NewMemoryBlobStore()
		log.Warn("Using in-memory document store; uploads are lost on restart")
	default:
		blobs = blobstore.NewHTTPBlobStore(cfg.Blob.BaseURL, cfg.Blob.Token, cfg.Blob.UploadTimeout, log)
	}
	precondition := blobstore.NewPrecondition(blobs, cfg.Blob.ProbeTimeout, log)

	dispatcher := notify.NewDispatcher(newNotifier(cfg, log), notify.DispatcherConfig{
		Retries:     cfg.Notify.Retries,
		RatePerSec:  cfg.Notify.RatePerSec,
		Burst:       cfg.Notify.Burst,
		SendTimeout: cfg.Notify.Timeout,
	}, log)

	handlers := []events.Handler{
		audit.NewRecorder(auditRepo, log),
		notify.NewRouter(dispatcher, users, cached, claims, log),
	}
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT.Broker); err == nil {
			mqttClient = c
			handlers = append(handlers, events.NewMQTTMirror(c, cfg.MQTT.TopicPrefix))
			log.Info("MQTT status mirror enabled", zap.String("broker", cfg.MQTT.Broker.Broker))
		} else {
			log.Warn("MQTT enabled but connection failed, mirror disabled", zap.Error(err))
		}
	}

	local := events.NewLocalEmitter(log, handlers...)
	var emitter events.Emitter = local
	if cfg.Events.Driver == "stream" && redisOK {
		emitter = events.NewStreamEmitter(redisClient, cfg.Events.Stream, local, log)
		consumer := events.NewStreamConsumer(redisClient, cfg.Events.Stream, cfg.Events.Group, cfg.Events.Consumer, log, handlers...)
		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("Event consumer stopped", zap.Error(err))
			}
		}()
		log.Info("Claim events published to Redis stream", zap.String("stream", cfg.Events.Stream))
	}

	svc := service.NewClaimService(service.ClaimServiceDeps{
		Claims:         claims,
		Requirements:   cached,
		Catalog:        cached,
		Users:          users,
		Blobs:          blobs,
		Storage:        precondition,
		Emitter:        emitter,
		UploadMaxBytes: cfg.Blob.UploadMaxBytes,
		UploadTimeout:  cfg.Blob.UploadTimeout,
	}, log)

	var kv store.KV = store.NewMemoryKV()
	if redisOK {
		kv = store.NewRedisKV(redisClient)
	}
	resolver := auth.NewResolver(auth.NewSessionAuthenticator(kv, cfg.Auth.SessionTTL), cfg.Auth.TrustHeaders)

	router := httpapi.NewRouter(cfg.HTTP.BasePath, log)
	h := httpapi.NewClaimsHandler(svc, resolver, cfg.Blob.UploadMaxBytes, log)
	router.RegisterClaimRoutes(h)
	router.RegisterAdminClaimRoutes(h)
	router.RegisterHealthRoutes(precondition)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	local.Wait()
	dispatcher.Wait()

	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = commonredis.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
}

func newNotifier(cfg *config.Config, log *zap.Logger) notify.Notifier {
	switch cfg.Notify.Driver {
	case "relay":
		if cfg.Notify.RelayURL != "" {
			return notify.NewMailRelayNotifier(cfg.Notify.RelayURL, cfg.Notify.RelayToken, cfg.Notify.From, cfg.Notify.Timeout)
		}
		log.Warn("NOTIFY_DRIVER=relay without NOTIFY_RELAY_URL, notifications are only logged")
	case "smtp":
		return notify.NewSMTPNotifier(cfg.Notify.SMTPAddr, cfg.Notify.SMTPUser, cfg.Notify.SMTPPassword, cfg.Notify.From)
	}
	return notify.NewLogNotifier(log)
}
