package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "posbackend/api/swagger" // swagger docs
	"posbackend/internal/auth"
	"posbackend/internal/config"
	"posbackend/internal/database"
	"posbackend/internal/handler"
	"posbackend/internal/middleware"
	"posbackend/internal/reportstore"
	"posbackend/internal/repository"
	"posbackend/internal/service"
	"posbackend/internal/validation"
	"posbackend/internal/websocket"
	"posbackend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const tokenPruneInterval = time.Hour

// @title           POS Backend API
// @version         1.0
// @description     Point-of-sale backend: catalog, sales, invoices and sales reporting.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format, cfg.IsProduction())
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.Fatalf("Database connection failed: %v", err)
	}
	logrus.WithField("driver", cfg.Database.Driver).Info("Connected to database")

	store, err := reportstore.New(cfg)
	if err != nil {
		logrus.Fatalf("Report store setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	userService := service.NewUserService(userRepo, refreshTokenRepo, txManager, tokens)
	productService := service.NewProductService(productRepo, auditRepo, txManager, wsHub)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txManager)
	saleService := service.NewSaleService(saleRepo, productRepo, customerRepo, invoiceRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, saleRepo, productRepo, customerRepo, auditRepo, txManager, wsHub)
	reportService := service.NewReportService(reportRepo, store)
	exportService := service.NewExportService(saleRepo, invoiceRepo, productRepo)
	auditService := service.NewAuditService(auditRepo)

	if cfg.SeedAdmin.Password != "" {
		if err := userService.EnsureAdmin(ctx, cfg.SeedAdmin.Username, cfg.SeedAdmin.Email, cfg.SeedAdmin.Password); err != nil {
			logrus.Fatalf("Seeding admin failed: %v", err)
		}
	}
	go pruneRefreshTokens(ctx, userService)

	if err := validation.RegisterGinValidators(); err != nil {
		logrus.Fatalf("Registering validators failed: %v", err)
	}

	authLimiter := middleware.PerMinute(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	go authLimiter.RunCleanup(time.Minute, ctx.Done())

	cookies := middleware.CookieOptions{
		Secure:     cfg.Server.CookieSecure,
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, tokens, cookies, authLimiter.Middleware())
	productHandler := handler.NewProductHandler(productService, exportService)
	customerHandler := handler.NewCustomerHandler(customerService)
	saleHandler := handler.NewSaleHandler(saleService, exportService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, exportService)
	reportHandler := handler.NewReportHandler(reportService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens, cfg.CORS.AllowOrigins)
	})

	// API Routing
	api := router.Group("")
	userHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api, tokens)
	customerHandler.RegisterRoutes(api, tokens)
	saleHandler.RegisterRoutes(api, tokens)
	invoiceHandler.RegisterRoutes(api, tokens)
	reportHandler.RegisterRoutes(api, tokens)
	auditHandler.RegisterRoutes(api, tokens)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logrus.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func pruneRefreshTokens(ctx context.Context, users service.UserService) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.PruneRefreshTokens(ctx)
			if err != nil {
				logrus.WithError(err).Warn("Pruning refresh tokens failed")
				continue
			}
			if n > 0 {
				logrus.WithField("deleted", n).Info("Pruned expired refresh tokens")
			}
		}
	}
}
