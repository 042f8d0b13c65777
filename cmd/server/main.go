package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"aegis-system/config"
	"aegis-system/internal/assignment"
	"aegis-system/internal/database"
	"aegis-system/internal/database/models"
	"aegis-system/internal/ledger"
	"aegis-system/internal/logistics"
	"aegis-system/internal/metrics"
	"aegis-system/internal/server/handlers"
	"aegis-system/internal/server/middleware"
	"aegis-system/internal/store"
	"aegis-system/internal/store/gormstore"
	"aegis-system/internal/store/memory"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()

	st := openStore(cfg, log)
	cache := config.NewRedisClient(cfg.Redis)

	led := ledger.New(st, log)
	logisticsSvc := logistics.NewService(st, led, log)
	assignmentSvc := assignment.NewService(st, led, log)
	aggregator := metrics.New(st, cache, log)

	tokenTTL, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		tokenTTL = 24 * time.Hour
	}
	secret := []byte(cfg.Auth.JWTSecret)

	authHandler := handlers.NewAuthHandler(st, secret, tokenTTL)
	assetHandler := handlers.NewAssetHandler(logisticsSvc, led, aggregator)
	purchaseHandler := handlers.NewPurchaseHandler(logisticsSvc, aggregator)
	transferHandler := handlers.NewTransferHandler(logisticsSvc, aggregator)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentSvc, aggregator)
	expenditureHandler := handlers.NewExpenditureHandler(logisticsSvc, aggregator)
	baseHandler := handlers.NewBaseHandler(logisticsSvc)
	dashboardHandler := handlers.NewDashboardHandler(aggregator)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimit("100-M"))

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := st.Ping(c.Request.Context()); err != nil {
			status = "degraded"
		}
		c.JSON(200, gin.H{"status": status})
	})

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.JWTAuth(secret))
		{
			bases := protected.Group("/bases")
			{
				bases.POST("", baseHandler.Create)
				bases.GET("", baseHandler.List)
				bases.GET("/:id", baseHandler.Get)
			}

			assets := protected.Group("/assets")
			{
				assets.POST("", assetHandler.Create)
				assets.GET("", assetHandler.List)
				assets.GET("/:id", assetHandler.Get)
				assets.GET("/:id/history", assetHandler.History)
				assets.PUT("/:id", assetHandler.Update)
				assets.DELETE("/:id", assetHandler.Retire)
			}

			purchases := protected.Group("/purchases")
			{
				purchases.POST("", purchaseHandler.Create)
				purchases.GET("", purchaseHandler.List)
				purchases.GET("/:id", purchaseHandler.Get)
				purchases.PUT("/:id", purchaseHandler.Update)
				purchases.PUT("/:id/status", purchaseHandler.UpdateStatus)
				purchases.POST("/:id/deploy", purchaseHandler.Deploy)
				purchases.DELETE("/:id", purchaseHandler.Delete)
			}

			transfers := protected.Group("/transfers")
			{
				transfers.POST("", transferHandler.Create)
				transfers.GET("", transferHandler.List)
				transfers.GET("/:id", transferHandler.Get)
				transfers.PUT("/:id/status", transferHandler.UpdateStatus)
				transfers.POST("/:id/complete", transferHandler.Complete)
				transfers.POST("/:id/reject", transferHandler.Reject)
				transfers.DELETE("/:id", transferHandler.Delete)
			}

			assignments := protected.Group("/assignments")
			{
				assignments.POST("", assignmentHandler.Create)
				assignments.GET("", assignmentHandler.List)
				assignments.GET("/:id", assignmentHandler.Get)
				assignments.POST("/:id/return", assignmentHandler.Return)
				assignments.PUT("/:id/status", assignmentHandler.UpdateStatus)
				assignments.DELETE("/:id", assignmentHandler.Delete)
			}

			expenditures := protected.Group("/expenditures")
			{
				expenditures.POST("", expenditureHandler.Create)
				expenditures.GET("", expenditureHandler.List)
				expenditures.GET("/:id", expenditureHandler.Get)
				expenditures.DELETE("/:id", expenditureHandler.Delete)
			}

			protected.GET("/dashboard/metrics", dashboardHandler.Get)
		}
	}

	log.WithField("port", cfg.Port).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// openStore connects to Postgres when configured, and falls back to the
// in-memory store when the database is absent or unreachable, mirroring
// field deployments that run without a database.
func openStore(cfg config.Config, log *logrus.Logger) store.Store {
	if cfg.DB.Host != "" {
		db, err := database.NewConnection(cfg.DB.DSN())
		if err == nil {
			if err := database.Migrate(db); err != nil {
				log.WithError(err).Fatal("database migration failed")
			}
			log.Info("connected to postgres")
			return gormstore.New(db)
		}
		log.WithError(err).Warn("postgres unreachable, using fallback storage")
	} else {
		log.Warn("no database configured, using fallback storage")
	}

	mem := memory.New()
	seed(mem, log)
	return mem
}

// seed gives the in-memory store a usable starting state: two bases and an
// admin account (admin / admin1234).
func seed(st store.Store, log *logrus.Logger) {
	ctx := context.Background()

	alpha := &models.Base{ID: "base-alpha", Code: "ALPHA", Name: "Base Alpha", Location: "Northern Region", IsActive: true}
	bravo := &models.Base{ID: "base-bravo", Code: "BRAVO", Name: "Base Bravo", Location: "Southern Region", IsActive: true}
	if err := st.Bases().Create(ctx, alpha); err != nil {
		return
	}
	_ = st.Bases().Create(ctx, bravo)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin1234"), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	_ = st.Users().Create(ctx, &models.User{
		ID:       "user-admin",
		Username: "admin",
		Email:    "admin@aegis.local",
		Password: string(hash),
		Role:     "admin",
		IsActive: true,
	})

	_ = st.Assets().Create(ctx, &models.Asset{
		ID:             "asset-rifle-alpha",
		Name:           "M4 Carbine",
		Category:       models.CategoryWeapons,
		BaseID:         alpha.ID,
		QuantityOnHand: 120,
		UnitValue:      decimal.NewFromInt(1200),
		ReorderLevel:   20,
		IsActive:       true,
	})
	_ = st.Assets().Create(ctx, &models.Asset{
		ID:             "asset-radio-bravo",
		Name:           "AN/PRC-152",
		Category:       models.CategoryCommunication,
		BaseID:         bravo.ID,
		QuantityOnHand: 45,
		UnitValue:      decimal.NewFromInt(6800),
		ReorderLevel:   10,
		IsActive:       true,
	})

	log.Info("seeded fallback storage with demo data")
}
