package main

import (
	"context"
	"strings"
	"time"

	"aniflixx/engage/internal/actor"
	"aniflixx/engage/internal/counters"
	"aniflixx/engage/internal/feed"
	"aniflixx/engage/internal/handlers"
	"aniflixx/engage/internal/metrics"
	"aniflixx/engage/internal/presence"
	"aniflixx/engage/internal/websocket"
	"aniflixx/engage/pkg/config"
	"aniflixx/engage/pkg/kafka"
	"aniflixx/engage/pkg/logging"
	"aniflixx/engage/pkg/monitoring"
	"aniflixx/engage/pkg/redis"
	"aniflixx/engage/pkg/server"
	"aniflixx/engage/pkg/version"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("tallyman")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Tallyman (Engagement Core)")

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("tallyman", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("tallyman", version.Version, version.GitCommit)

	// Create custom metrics
	serviceMetrics := &metrics.Metrics{
		CommandsTotal:     metricsCollector.NewCounter("entity_commands_total", "Entity commands processed", []string{"kind", "operation", "status"}),
		CommandDuration:   metricsCollector.NewHistogram("entity_command_duration_seconds", "Entity command latency", []string{"kind", "operation"}, nil),
		ActorsActive:      metricsCollector.NewGauge("entity_actors_active", "Live entity actors", []string{"kind"}),
		ViewersActive:     metricsCollector.NewGauge("stream_viewers_active", "Live viewers per stream", []string{"stream_id"}),
		FeedBuilds:        metricsCollector.NewCounter("feed_builds_total", "Feed pages built", []string{"status"}),
		FeedBuildDuration: metricsCollector.NewHistogram("feed_build_duration_seconds", "Feed page build latency", []string{}, nil),
		HubConnections:    metricsCollector.NewGauge("websocket_hub_connections_active", "Active WebSocket hub connections", []string{}),
		HubMessages:       metricsCollector.NewCounter("websocket_hub_messages_total", "WebSocket hub messages", []string{"type", "direction"}),
	}

	// Create Kafka metrics
	serviceMetrics.KafkaMessages, serviceMetrics.KafkaDuration, serviceMetrics.KafkaLag = metricsCollector.CreateKafkaMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot store: Redis when configured, in-memory otherwise
	var store actor.Store
	var redisClient goredis.UniversalClient
	redisAddrs := config.GetEnv("REDIS_ADDRS", "")
	if redisAddrs != "" {
		client, err := redis.NewUniversalClient(ctx, redis.Config{
			Mode:       redis.Mode(config.GetEnv("REDIS_MODE", string(redis.ModeSingle))),
			Addrs:      strings.Split(redisAddrs, ","),
			MasterName: config.GetEnv("REDIS_MASTER_NAME", ""),
			Username:   config.GetEnv("REDIS_USERNAME", ""),
			Password:   config.GetEnv("REDIS_PASSWORD", ""),
			DB:         config.GetEnvInt("REDIS_DB", 0),
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		redisClient = client
		store = actor.NewRedisStore(client, "tallyman", logger)
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(client))
	} else {
		logger.Warn("REDIS_ADDRS not set, snapshots are in-memory only")
		store = actor.NewMemoryStore()
	}

	// Core services
	countersSvc := counters.NewService(store, logger)

	livenessWindow := config.GetEnvDuration("PRESENCE_LIVENESS_WINDOW", presence.DefaultLivenessWindow)
	presenceSvc := presence.NewService(store, livenessWindow, logger)

	feedCfg := feed.DefaultBuilderConfig()
	feedCfg.Score = feed.ScoreConfigFromEnv()
	feedCfg.SpacingWindow = config.GetEnvInt("FEED_SPACING_WINDOW", feed.DefaultSpacingWindow)
	feedCfg.CacheTTL = config.GetEnvDuration("FEED_CACHE_TTL", feed.DefaultCacheTTL)
	feedBuilder := feed.NewBuilder(feedCfg)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Periodic gauge refresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				serviceMetrics.ActorsActive.WithLabelValues(counters.Kind).Set(float64(countersSvc.Actors()))
				serviceMetrics.ActorsActive.WithLabelValues(presence.Kind).Set(float64(presenceSvc.Actors()))
				serviceMetrics.HubConnections.WithLabelValues().Set(float64(hub.ClientCount()))
			}
		}
	}()

	// Relay snapshot changes from other replicas to local subscribers
	if redisClient != nil {
		rs := store.(*actor.RedisStore)
		relay := handlers.NewStateChangeRelay(hub, rs.Origin())
		pubsub := redis.NewTypedPubSub[actor.StateChange](redisClient)
		go func() {
			err := pubsub.Subscribe(ctx, rs.Channel(), relay)
			if err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("State change subscription ended")
			}
		}()
	}

	// Initialize handlers
	tallymanHandlers := handlers.NewTallymanHandlers(countersSvc, presenceSvc, feedBuilder, hub, serviceMetrics, logger)

	// Setup Kafka consumer for engagement events
	if brokersEnv := config.GetEnv("KAFKA_BROKERS", ""); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		groupID := config.GetEnv("KAFKA_GROUP_ID", "tallyman-group")
		clientID := config.GetEnv("KAFKA_CLIENT_ID", "tallyman")
		topic := config.GetEnv("KAFKA_ENGAGEMENT_TOPIC", "engagement_events")

		consumer, err := kafka.NewConsumer(brokers, groupID, clientID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Kafka consumer")
		}
		defer consumer.Close()

		consumer.AddHandler(topic, tallymanHandlers.HandleEngagementEvent)

		healthChecker.AddCheck("kafka", monitoring.KafkaConsumerHealthCheck(consumer.GetClient()))
		healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
			"KAFKA_BROKERS":          brokersEnv,
			"KAFKA_ENGAGEMENT_TOPIC": topic,
		}))

		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Kafka consumer error")
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, engagement event ingestion disabled")
	}

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "tallyman", healthChecker, metricsCollector)

	// Counter routes
	router.POST("/entities/:id/counters/:field/increment", tallymanHandlers.HandleIncrementCounter)
	router.POST("/entities/:id/counters/:field/decrement", tallymanHandlers.HandleDecrementCounter)
	router.GET("/entities/:id/counters", tallymanHandlers.HandleGetCounters)

	// Presence routes
	router.POST("/streams/:id/presence/register", tallymanHandlers.HandleRegisterViewer)
	router.POST("/streams/:id/presence/heartbeat", tallymanHandlers.HandleHeartbeat)
	router.POST("/streams/:id/presence/deregister", tallymanHandlers.HandleDeregisterViewer)
	router.GET("/streams/:id/presence", tallymanHandlers.HandleGetPresence)

	// Feed routes
	router.POST("/feed", tallymanHandlers.HandleBuildFeed)

	// WebSocket routes
	router.GET("/ws/entities", tallymanHandlers.HandleWebSocketEntities)

	router.NoRoute(tallymanHandlers.HandleNotFound)

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("tallyman", "18020")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
