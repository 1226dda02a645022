package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"vibelink/backend/internal/api/handler"
	"vibelink/backend/internal/billing"
	"vibelink/backend/internal/config"
	"vibelink/backend/internal/localization"
	"vibelink/backend/internal/matchhub"
	"vibelink/backend/internal/models"
	"vibelink/backend/internal/moderation"
	"vibelink/backend/internal/presence"
	"vibelink/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції (Створення таблиць)
	err = db.AutoMigrate(
		&models.User{},
		&models.CallSession{},
		&models.CoinTransaction{},
		&models.Report{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting VibeLink Backend...")

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET не встановлено!")
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	loc, err := localization.NewLocalizer(cfg.LocalesPath)
	if err != nil {
		log.Fatalf("Failed to load localization: %v", err)
	}

	// 2. Ядро matchmaking: presence -> hub -> coordinator -> matcher
	registry := presence.NewRegistry(cfg.PresenceStaleAfter)
	billingSvc := billing.NewService(s, cfg.GenderFilterPrice, cfg.PremiumPeriod)
	moderationSvc := moderation.NewService(s)

	hub := matchhub.NewManager(s, registry, billingSvc, loc)
	coordinator := matchhub.NewCoordinator(hub, s, registry, cfg.ConnectTimeout)
	matcher := matchhub.NewMatcher(registry, coordinator, s, cfg.MatchSweepInterval, cfg.MatchTimeout)
	hub.AttachServices(matcher, coordinator)

	// Сесії та черга пошуку, що пережили рестарт, закриваються:
	// сокети все одно втрачено.
	coordinator.RecoverActiveSessions()
	matcher.ResetWaitingPool()

	// 3. Запуск основних Goroutines
	go hub.Run()         // Головний диспетчер
	go coordinator.Run() // Сесійний координатор
	go matcher.Run()     // Сервіс пошуку

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(hub, s, billingSvc, moderationSvc, cfg)

	r.GET("/healthz", h.Healthz)
	r.GET("/anonid", h.GetAnonID)            // Отримання JWT для AnonID
	r.POST("/profile", h.UpdateProfile)      // Стать/мова/інтереси
	r.GET("/ws", h.ServeWebSocket)           // WebSocket Upgrade
	r.POST("/billing/webhook", h.BillingWebhook)
	r.POST("/report", h.FileReport)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
