package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/api/handlers"
	"github.com/bebo-assistant/backend/internal/cache/redis"
	"github.com/bebo-assistant/backend/internal/classifier"
	"github.com/bebo-assistant/backend/internal/fallback"
	"github.com/bebo-assistant/backend/internal/llm"
	"github.com/bebo-assistant/backend/internal/memory"
	"github.com/bebo-assistant/backend/internal/metrics"
	"github.com/bebo-assistant/backend/internal/orchestrator"
	"github.com/bebo-assistant/backend/internal/prompts"
	"github.com/bebo-assistant/backend/internal/rag"
	"github.com/bebo-assistant/backend/internal/scheduler"
	"github.com/bebo-assistant/backend/internal/search/web"
	"github.com/bebo-assistant/backend/internal/storage/sqlite"
	"github.com/bebo-assistant/backend/internal/vector/milvus"
	"github.com/bebo-assistant/backend/pkg/config"
	appLogger "github.com/bebo-assistant/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting assistant API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	llmOpts := llm.Options{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		FallbackModel:  cfg.LLM.FallbackModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSec:     cfg.LLM.TimeoutSec,
	}
	if redisClient != nil {
		llmOpts.Cache = redisClient
		llmOpts.CacheTTL = time.Duration(cfg.Redis.TTLSec) * time.Second
	}
	llmClient := llm.NewClient(llmOpts)

	restaurantIndex := newCollection(cfg.Milvus, cfg.Milvus.RestaurantCollection)
	defer restaurantIndex.Close()
	hotelIndex := newCollection(cfg.Milvus, cfg.Milvus.HotelCollection)
	defer hotelIndex.Close()
	deliveryIndex := newCollection(cfg.Milvus, cfg.Milvus.DeliveryCollection)
	defer deliveryIndex.Close()
	ordersIndex := newCollection(cfg.Milvus, cfg.Milvus.OrdersCollection)
	defer ordersIndex.Close()
	chatHistoryIndex := newCollection(cfg.Milvus, cfg.Milvus.ChatHistoryCollection)
	defer chatHistoryIndex.Close()

	memoryStore := memory.NewStore(chatHistoryIndex, llmClient, cfg.Milvus.VectorDim)

	templates := prompts.New(cfg.Assistant.Name, cfg.Assistant.SiteURL)

	restaurantDomain := rag.NewRestaurant(rag.Deps{
		Index:     restaurantIndex,
		Embedder:  llmClient,
		Generator: llmClient,
		Recorder:  memoryStore,
	}, templates)
	hotelDomain := rag.NewHotel(rag.Deps{
		Index:     hotelIndex,
		Embedder:  llmClient,
		Generator: llmClient,
		Recorder:  memoryStore,
	}, templates)
	deliveryDomain := rag.NewDelivery(rag.Deps{
		Index:     deliveryIndex,
		Embedder:  llmClient,
		Generator: llmClient,
	}, templates)
	ordersDomain := rag.NewOrders(rag.Deps{
		Index:     ordersIndex,
		Embedder:  llmClient,
		Generator: llmClient,
	}, templates)

	contextClassifier := classifier.New(llmClient)

	var webLookup fallback.WebLookup
	if cfg.Search.Enabled {
		webLookup = web.NewClient(llmClient, cfg.Search.SerpAPIKey, cfg.Search.MaxResults, cfg.Search.TimeoutSec)
	} else {
		webLookup = web.Disabled{}
	}
	resolver := fallback.NewResolver(webLookup, llmClient, memoryStore, templates, cfg.Assistant.MemoryReuseScore)

	orchOpts := orchestrator.Options{
		Classifier: contextClassifier,
		Fallback:   resolver,
		Templates:  templates,
		RequestLog: sqliteClient,
		Threshold:  cfg.Assistant.ConfidenceThreshold,
	}
	if redisClient != nil {
		orchOpts.Cache = redisClient
		orchOpts.CacheTTL = time.Duration(cfg.Redis.TTLSec) * time.Second
	}
	orch := orchestrator.New(orchOpts)
	orch.RegisterDomain("restaurant", restaurantDomain)
	orch.RegisterDomain("accommodation", hotelDomain)
	orch.RegisterDomain("delivery", deliveryDomain)
	orch.RegisterDomain("order", ordersDomain)

	var refreshScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		refreshScheduler = scheduler.New(time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute)
		refreshScheduler.Register(restaurantDomain)
		refreshScheduler.Register(hotelDomain)
		refreshScheduler.Register(deliveryDomain)
		refreshScheduler.Register(ordersDomain)
		refreshScheduler.Start()
		defer refreshScheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	queryHandler := handlers.NewQueryHandler(orch, memoryStore)
	analyticsHandler := handlers.NewAnalyticsHandler(sqliteClient)
	wsHandler := handlers.NewWebSocketHandler(orch)

	api := app.Group("/api/v1")

	api.Post("/chatbot-query", queryHandler.HandleQuery)
	api.Get("/memory/history", queryHandler.GetHistory)
	api.Get("/memory/popular", queryHandler.GetPopularQuestions)
	api.Get("/analytics/recent", analyticsHandler.GetRecentRequests)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func newCollection(cfg config.MilvusConfig, name string) *milvus.Client {
	client, err := milvus.NewClient(cfg.Endpoint, cfg.APIKey, name, cfg.VectorDim)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client",
			zap.String("collection", name),
			zap.Error(err),
		)
	}

	if err := client.EnsureCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to ensure collection",
			zap.String("collection", name),
			zap.Error(err),
		)
	}

	return client
}
