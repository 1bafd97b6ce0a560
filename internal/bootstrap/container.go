package bootstrap

import (
	"context"
	"time"

	"fitness-billing-be/internal/config"
	"fitness-billing-be/internal/controller"
	"fitness-billing-be/internal/pkg/logger"
	"fitness-billing-be/internal/pkg/serverutils"
	"fitness-billing-be/internal/repository/unitofwork"
	"fitness-billing-be/internal/service"
	billingEvents "fitness-billing-be/pkg/billing/events"
	"fitness-billing-be/pkg/billing/lifecycle"
	"fitness-billing-be/pkg/dedup"
	"fitness-billing-be/pkg/events"
	pktNats "fitness-billing-be/pkg/nats"
	"fitness-billing-be/pkg/phone"
	"fitness-billing-be/pkg/webhook"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"gorm.io/gorm"
)

const bootModule = "BOOTSTRAP"

type Container struct {
	// Controllers
	WebhookController      controller.IWebhookController
	SubscriptionController controller.ISubscriptionController

	// Middleware
	AuthMiddleware    fiber.Handler
	RequireSubscribed fiber.Handler
	Logger            logger.ILogger

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Event Bus: NATS when reachable, in-process gochannel always
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	channelBus := events.NewChannelBus(pubSub, events.DefaultTopic)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var primary events.Publisher
	var natsSub events.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, pktNats.BreakerSettings{
			OnStateChange: func(name string, from, to gobreaker.State) {
				sysLogger.Warn(bootModule, "NATS circuit breaker changed state", map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		})
		if err != nil {
			sysLogger.Warn(bootModule, "Failed to connect to NATS Publisher, using in-process bus", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			primary = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, "", "billing-event-log")
		if err != nil {
			sysLogger.Warn(bootModule, "Failed to connect to NATS Subscriber", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			natsSub = sub
			c.closers = append(c.closers, sub.Close)
		}
	}
	var publisher *billingEvents.BusPublisher
	if primary != nil {
		publisher = billingEvents.NewBusPublisher(primary, channelBus, sysLogger)
	} else {
		publisher = billingEvents.NewBusPublisher(channelBus, nil, sysLogger)
	}

	// 3. Redis replay filter
	var dedupCache dedup.Cache = dedup.Disabled{}
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn(bootModule, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{
				"error": err.Error(),
			})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb := redis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn(bootModule, "Failed to connect to Redis, dedup relies on the database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
		dedupCache = dedup.NewRedisCache(rdb, cfg.Billing.DedupTTL)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Services
	manager := lifecycle.NewManager(sysLogger)
	verifier := webhook.NewVerifier(cfg.Billing.WebhookSecret, cfg.Billing.AllowUnsignedWebhooks && !cfg.IsProduction())
	phones := phone.NewFormatter(cfg.Billing.PhoneCountryCode)

	webhookService := service.NewWebhookService(uowFactory, manager, verifier, phones, dedupCache, publisher, sysLogger)
	subscriptionService := service.NewSubscriptionService(uowFactory, manager, publisher, sysLogger)

	var subscribers []events.Subscriber
	if natsSub != nil {
		subscribers = append(subscribers, natsSub)
	}
	subscribers = append(subscribers, channelBus)
	c.ConsumerService = service.NewConsumerService(sysLogger, subscribers...)

	// 5. Controllers & Middleware
	c.WebhookController = controller.NewWebhookController(webhookService)
	c.SubscriptionController = controller.NewSubscriptionController(subscriptionService)
	c.AuthMiddleware = serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret)
	c.RequireSubscribed = serverutils.RequireActiveSubscription(subscriptionService)

	return c
}

// Close releases bus and cache connections and flushes the logger.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
