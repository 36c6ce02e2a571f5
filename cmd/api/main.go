package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/cache"
	"github.com/GTDGit/elit_catalog/internal/config"
	"github.com/GTDGit/elit_catalog/internal/debounce"
	"github.com/GTDGit/elit_catalog/internal/handler"
	"github.com/GTDGit/elit_catalog/internal/middleware"
	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/sse"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/internal/worker"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// main is the application entrypoint for the ELIT catalog service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting elit catalog")
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	// 3. Connect to Redis (optional)
	var credStore *cache.CredentialStore
	if cfg.Redis.Host != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")

		credStore = cache.NewCredentialStore(redisClient, cfg.Credential.Secret, cfg.Credential.TTL)
	} else {
		log.Info().Msg("REDIS_HOST not set, credential caching disabled")
	}

	// 4. Initialize ELIT client and catalog services
	elitClient := elit.NewClient(elit.Config{
		BaseURL: cfg.Elit.BaseURL,
		Timeout: cfg.Elit.Timeout,
	})
	aggregator := service.NewCatalogAggregator(elitClient, cfg.Catalog.PagePause)
	categoryLoader := service.NewCategoryLoader(elitClient)

	hub := sse.NewHub()
	session := service.NewSession(aggregator, categoryLoader, sse.NewHubPresenter(hub), cfg.Catalog.DefaultPageSize)

	// 5. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Restore credentials and start the initial load
	var cachedCreds worker.CredentialCache
	if credStore != nil {
		cachedCreds = credStore
	}
	go func() {
		if _, err := worker.NewStartupLoader(session, cachedCreds, configuredCredentials(cfg), cfg.Catalog.InitialRetryDelay).Run(ctx); err != nil {
			log.Error().Err(err).Msg("initial catalog load failed")
		}
	}()

	// 7. Initialize handlers
	filterDebounce := debounce.New(cfg.Catalog.FilterDebounce)
	defer filterDebounce.Stop()

	var saver handler.CredentialSaver
	if credStore != nil {
		saver = credStore
	}
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(session, hub),
		Auth:    handler.NewAuthHandler(session, saver),
		Catalog: handler.NewCatalogHandler(ctx, session, filterDebounce),
		SSE:     handler.NewSSEHandler(hub, session),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()
	loginLimiter := middleware.NewLoginRateLimiter(12*time.Second, 5)
	go loginLimiter.Cleanup(ctx.Done())

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, loginLimiter)

	// 10. Start workers
	go worker.NewReloadWorker(session, cfg.Worker.ReloadInterval).Start(ctx)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers and in-flight loads
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// configuredCredentials returns the default account from ELIT_USER_ID and
// ELIT_TOKEN, or empty credentials when they are unset or invalid.
func configuredCredentials(cfg *config.Config) elit.Credentials {
	if cfg.Elit.UserID == "" || cfg.Elit.Token == "" {
		return elit.Credentials{}
	}
	userID, err := elit.ParseUserID(cfg.Elit.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("invalid ELIT_USER_ID")
		return elit.Credentials{}
	}
	return elit.Credentials{UserID: userID, Token: cfg.Elit.Token}
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	SSE     *handler.SSEHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, loginLimiter *middleware.LoginRateLimiter) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.POST("/v1/auth/login", loginLimiter.Handle(), handlers.Auth.Login)

	// SSE authenticates through the token query parameter
	router.GET("/v1/catalog/events", handlers.SSE.Stream)

	catalog := router.Group("/v1/catalog")
	catalog.Use(jwtMiddleware.Handle())
	{
		catalog.GET("", handlers.Catalog.GetCatalog)
		catalog.GET("/products", handlers.Catalog.GetProducts)
		catalog.GET("/products/:id", handlers.Catalog.GetProduct)
		catalog.PUT("/filters", handlers.Catalog.UpdateFilters)
		catalog.DELETE("/filters", handlers.Catalog.ClearFilters)
		catalog.POST("/page", handlers.Catalog.ChangePage)
		catalog.GET("/facets", handlers.Catalog.GetFacets)
		catalog.GET("/suggestions", handlers.Catalog.GetSuggestions)
		catalog.POST("/reload", handlers.Catalog.Reload)
		catalog.POST("/category", handlers.Catalog.LoadCategory)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
