package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pitabwire/util"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/salavathhari/devcollab/apps/hub/config"
	"github.com/salavathhari/devcollab/apps/hub/service/business"
	"github.com/salavathhari/devcollab/apps/hub/service/events"
	"github.com/salavathhari/devcollab/apps/hub/service/handlers"
	"github.com/salavathhari/devcollab/apps/hub/service/repository"
	"github.com/salavathhari/devcollab/internal/auth"
	"github.com/salavathhari/devcollab/internal/health"
)

const gracefulShutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()
	log := util.Log(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		log.WithError(err).Fatal("could not process configs")
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURI), &gorm.Config{})
	if err != nil {
		log.WithError(err).Fatal("could not open database")
	}
	if err = repository.Migrate(db); err != nil {
		log.WithError(err).Fatal("could not run migrations")
	}

	repos := business.Repositories{
		Projects:      repository.NewProjectRepository(db),
		Users:         repository.NewUserRepository(db),
		Messages:      repository.NewMessageRepository(db),
		Tasks:         repository.NewTaskRepository(db),
		PullRequests:  repository.NewPullRequestRepository(db),
		Comments:      repository.NewReviewCommentRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Activity:      repository.NewActivityRepository(db),
	}

	presenceStore, rateStore, redisClient := setupStores(ctx, &cfg)
	presence := business.NewPresenceTracker(presenceStore, cfg.PresenceLivenessWindow)
	limiter := business.NewRateLimiter(rateStore, cfg.RateLimitWindow, cfg.RateLimitMaxEvents)

	var backbone *events.Backbone
	if cfg.BackboneEnabled {
		backbone, err = events.NewBackbone(ctx, cfg.BackboneTopicURI, cfg.BackboneSubscriptionURI)
		if err != nil {
			log.WithError(err).Fatal("could not open broadcast backbone")
		}
	}

	var publisher business.BroadcastPublisher
	if backbone != nil {
		publisher = events.NewGuardedPublisher(backbone)
	}
	hub := business.NewHub(&cfg, repos, presence, limiter, publisher)

	probes := health.NewRegistry()
	probes.Add(health.NewDatabaseChecker(db))
	if redisClient != nil {
		probes.Add(health.NewRedisChecker(redisClient))
	}

	backboneCtx, cancelBackbone := context.WithCancel(ctx)
	defer cancelBackbone()
	if backbone != nil {
		go func() {
			if rerr := backbone.Run(backboneCtx, hub.DeliverLocal); rerr != nil {
				log.WithError(rerr).Error("backbone receive loop stopped")
			}
		}()
	}

	verifier := auth.NewVerifier(cfg.TokenSecret, cfg.TokenClockLeeway)

	app := fiber.New(fiber.Config{
		AppName:               cfg.ServiceName,
		DisableStartupMessage: true,
	})
	handlers.New(&cfg, hub, verifier, repos, probes).Register(app)

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("hub listening")
		if lerr := app.Listen(":" + cfg.HTTPPort); lerr != nil {
			log.WithError(lerr).Fatal("server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer cancel()

	if serr := app.ShutdownWithContext(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("http shutdown incomplete")
	}
	if serr := hub.Stop(shutdownCtx); serr != nil {
		log.WithError(serr).Warn("hub shutdown incomplete")
	}
	cancelBackbone()
	if backbone != nil {
		if serr := backbone.Close(shutdownCtx); serr != nil {
			log.WithError(serr).Warn("backbone close failed")
		}
	}
	log.Info("hub stopped")
}

// setupStores picks process-local or Redis-backed stores for shared mutable
// state depending on configuration.
func setupStores(ctx context.Context, cfg *config.HubConfig) (business.KeyedStore[business.PresenceRecord], business.KeyedStore[business.RateWindow], *redis.Client) {
	if cfg.RedisURI == "" {
		return business.NewMemoryStore[business.PresenceRecord](), business.NewMemoryStore[business.RateWindow](), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURI)
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("invalid redis URI")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		util.Log(ctx).WithError(err).Fatal("could not reach redis")
	}
	return business.NewRedisStore[business.PresenceRecord](client, cfg.ServiceName),
		business.NewRedisStore[business.RateWindow](client, cfg.ServiceName),
		client
}
