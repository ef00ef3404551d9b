//	@title			GrantGate API
//	@version		1.0
//	@description	OAuth2/OIDC/UMA authorization grant and token lifecycle engine

//	@license.name	MIT

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the token value.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-grantgate/grantgate/internal/cache"
	"github.com/go-grantgate/grantgate/internal/config"
	"github.com/go-grantgate/grantgate/internal/handlers"
	"github.com/go-grantgate/grantgate/internal/metrics"
	"github.com/go-grantgate/grantgate/internal/middleware"
	"github.com/go-grantgate/grantgate/internal/models"
	"github.com/go-grantgate/grantgate/internal/registry"
	"github.com/go-grantgate/grantgate/internal/services"
	"github.com/go-grantgate/grantgate/internal/store"
	"github.com/go-grantgate/grantgate/internal/version"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/go-grantgate/grantgate/docs" // swagger docs
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("OAuth2/OIDC/UMA authorization grant engine")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the authorization server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()

	// Initialize store
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize metrics
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Initialize the hot-token lookup cache
	tokenCache := setupTokenCache(cfg)

	// Initialize registry and services
	grantRegistry := registry.New(db, tokenCache, cfg.TokenCacheTTL)
	auditService := services.NewAuditService(db, cfg.AuditEnabled, cfg.AuditBufferSize)
	grantService := services.NewGrantService(cfg, db, grantRegistry, prometheusMetrics, auditService)
	umaService := services.NewUmaService(cfg, db, grantRegistry, prometheusMetrics, auditService)
	clientService := services.NewClientService(cfg, db, auditService)
	sweeper := services.NewSweeper(cfg, db, prometheusMetrics, auditService)

	// Initialize handlers
	authorizeHandler := handlers.NewAuthorizeHandler(grantService, clientService)
	tokenHandler := handlers.NewTokenHandler(grantService, umaService, clientService)
	introspectHandler := handlers.NewIntrospectHandler(grantService)
	revokeHandler := handlers.NewRevokeHandler(grantService, clientService)
	permissionHandler := handlers.NewPermissionHandler(umaService)
	registerHandler := handlers.NewRegisterHandler(clientService)
	healthHandler := handlers.NewHealthHandler(db, tokenCache)

	// Setup Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Metrics middleware first so it observes every route
	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", healthHandler.Health)

	if cfg.MetricsEnabled {
		log.Printf("Prometheus metrics enabled at /metrics")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	tokenLimiter := setupRateLimiting(cfg)

	oauth := r.Group("/oauth")
	{
		oauth.POST("/authorize", authorizeHandler.Authorize)
		oauth.POST("/token", tokenLimiter, tokenHandler.Token)
		oauth.POST("/introspect", introspectHandler.Introspect)
		oauth.POST("/revoke", revokeHandler.Revoke)
	}

	uma := r.Group("/uma")
	{
		uma.POST("/permission", permissionHandler.RegisterPermission)
		uma.POST("/resource", permissionHandler.RegisterResource)
	}

	r.POST("/connect/register", registerHandler.Register)

	// Swagger documentation (development only)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Println("Swagger UI enabled at: http://localhost:8080/swagger/index.html")
	}

	// Start background jobs
	sweeper.Start()

	log.Printf("GrantGate starting on %s", cfg.ServerAddr)
	log.Printf("Issuer: %s", cfg.BaseURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	m.AddShutdownJob(func() error {
		sweeper.Stop()
		return nil
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := auditService.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down audit service: %v", err)
			return err
		}
		return nil
	})

	if tokenCache != nil {
		m.AddShutdownJob(func() error {
			if err := tokenCache.Close(); err != nil {
				log.Printf("Error closing token cache: %v", err)
				return err
			}
			log.Println("Token cache closed")
			return nil
		})
	}

	// Audit retention job (runs daily)
	if cfg.AuditEnabled && cfg.AuditRetention > 0 {
		m.AddRunningJob(func(ctx context.Context) error {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()

			cleanup := func() {
				if deleted, err := auditService.CleanupOldLogs(cfg.AuditRetention); err != nil {
					log.Printf("Failed to cleanup old audit logs: %v", err)
				} else if deleted > 0 {
					log.Printf("Cleaned up %d old audit logs", deleted)
				}
			}

			cleanup()
			for {
				select {
				case <-ticker.C:
					cleanup()
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	// Gauge update job
	if cfg.MetricsEnabled {
		m.AddRunningJob(func(ctx context.Context) error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()

			updateGaugeMetrics(ctx, db, prometheusMetrics)
			for {
				select {
				case <-ticker.C:
					updateGaugeMetrics(ctx, db, prometheusMetrics)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	<-m.Done()
}

// setupTokenCache selects the hot-token cache backend.
func setupTokenCache(cfg *config.Config) cache.Cache[models.Token] {
	switch cfg.CacheDriver {
	case config.CacheDriverRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c, err := cache.NewRueidisCache[models.Token](
			ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "grantgate:")
		if err != nil {
			log.Fatalf("Failed to initialize redis token cache: %v", err)
		}
		log.Printf("Token cache: redis (addr=%s, db=%d, ttl=%s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.TokenCacheTTL)
		return c
	default:
		log.Printf("Token cache: memory (single instance only, ttl=%s)", cfg.TokenCacheTTL)
		return cache.NewMemoryCache[models.Token]()
	}
}

// setupRateLimiting configures the token endpoint rate limiter.
func setupRateLimiting(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	log.Printf("Rate limiting enabled (store: %s, %d req/min)",
		cfg.RateLimitStore, cfg.RateLimitPerMinute)

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		StoreType:         middleware.RateLimitStoreType(cfg.RateLimitStore),
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		RedisDB:           cfg.RedisDB,
		CleanupInterval:   5 * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	return limiter
}

// updateGaugeMetrics refreshes the active-entity gauges from store counts.
func updateGaugeMetrics(ctx context.Context, db *store.Store, m metrics.Recorder) {
	for _, tt := range []models.TokenType{
		models.TokenTypeAccessToken,
		models.TokenTypeRefreshToken,
		models.TokenTypeAuthorizationCode,
	} {
		count, err := db.CountActiveTokensByType(ctx, tt)
		if err != nil {
			m.RecordDatabaseQueryError("count_tokens")
			continue
		}
		m.SetActiveTokensCount(string(tt), int(count))
	}

	tickets, err := db.CountIssuedTickets(ctx)
	if err != nil {
		m.RecordDatabaseQueryError("count_tickets")
		return
	}
	m.SetActiveTicketsCount(int(tickets))
}
