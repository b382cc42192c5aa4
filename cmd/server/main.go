package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cookieguard/cookieguard/docs"
	"github.com/cookieguard/cookieguard/internal/adapters"
	"github.com/cookieguard/cookieguard/internal/cache"
	"github.com/cookieguard/cookieguard/internal/database"
	"github.com/cookieguard/cookieguard/internal/engine"
	"github.com/cookieguard/cookieguard/internal/errors"
	"github.com/cookieguard/cookieguard/internal/monitoring"
	"github.com/cookieguard/cookieguard/internal/ratelimit"
	"github.com/cookieguard/cookieguard/internal/resilience"
	"github.com/cookieguard/cookieguard/internal/service"
	"github.com/cookieguard/cookieguard/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	githubToken := os.Getenv("GITHUB_TOKEN")
	jwtSecret := getEnvOrDefault("JWT_SECRET", "change-me-in-production")
	policyPath := os.Getenv("POLICY_FILE")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	port := getEnvOrDefault("PORT", "8080")

	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	auth := database.NewAuthService(repo, jwtSecret)

	policy := engine.DefaultPolicy()
	if policyPath != "" {
		loaded, err := engine.LoadPolicyFile(policyPath)
		if err != nil {
			slog.Warn("Failed to load policy file, using defaults", "path", policyPath, "error", err)
		} else {
			policy = loaded
			slog.Info("Loaded policy overrides", "path", policyPath)
		}
	}
	eng := engine.New(policy)

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	provider := adapters.NewGitHubProvider(githubToken, appLogger, appMetrics)
	svc := service.NewService(repo, provider, eng, appLogger, appMetrics)

	redisClient, err := ratelimit.NewRedisClient(redisAddr, redisPassword, 0)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting degrades to in-memory", "error", err)
	}
	defer redisClient.Close()
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(limiter.IPRateLimitMiddleware())

	repCache := cache.NewCache(5 * time.Minute)
	r.Use(repCache.Middleware("/api/v1/reputation"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{getEnvOrDefault("CORS_ORIGIN", "*")}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		redisStatus := "ok"
		if err := redisClient.HealthCheck(c.Request.Context()); err != nil {
			redisStatus = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"timestamp":        time.Now().Format(time.RFC3339),
			"version":          "1.0.0",
			"redis":            redisStatus,
			"database_pool":    db.GetPoolStats(),
			"circuit_breakers": resilience.GetCircuitBreakerStats(),
			"rate_limiter":     limiter.GetStats(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, repCache.Stats())
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	v1.POST("/claims", limiter.ClaimantRateLimitMiddleware(), func(c *gin.Context) {
		var req service.RegisterClaimRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}
		c.Set("claimant_id", req.ClaimantID)

		decision, err := svc.RegisterClaim(c.Request.Context(), req)
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}

		status := http.StatusCreated
		if !decision.Accepted {
			status = http.StatusConflict
		}
		if decision.Accepted {
			repCache.Clear()
		}
		c.JSON(status, decision)
	})

	v1.POST("/claims/:id/evaluate", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		eval, err := svc.EvaluateClaim(ctx, c.Param("id"))
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, eval)
	})

	v1.GET("/reputation/:claimant", func(c *gin.Context) {
		claimant := c.Param("claimant")
		handle := c.DefaultQuery("handle", claimant)

		rep, err := svc.Reputation(c.Request.Context(), claimant, handle)
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	v1.POST("/claims/:id/nudge", func(c *gin.Context) {
		plan, message, err := svc.ScheduleNudge(c.Request.Context(), c.Param("id"), c.Query("timezone"))
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"plan":    plan,
			"message": message,
		})
	})

	v1.POST("/claims/:id/complete", func(c *gin.Context) {
		claim, err := svc.CompleteClaim(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, claim)
	})

	v1.PUT("/repositories", func(c *gin.Context) {
		var repoRecord types.RepositoryRecord
		if err := c.ShouldBindJSON(&repoRecord); err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}
		if err := repo.UpsertRepository(repoRecord); err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, repoRecord)
	})

	v1.PUT("/repositories/:id/issues", func(c *gin.Context) {
		var issue types.IssueRecord
		if err := c.ShouldBindJSON(&issue); err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}
		if err := repo.UpsertIssue(c.Param("id"), issue); err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, issue)
	})

	// Maintainer token exchange. The handle must appear in the
	// repository's maintainer list.
	v1.POST("/auth/token", func(c *gin.Context) {
		var req struct {
			Handle       string `json:"handle" binding:"required"`
			RepositoryID string `json:"repository_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.NewValidationError(err.Error()))
			return
		}

		ok, err := auth.IsRepositoryMaintainer(req.Handle, req.RepositoryID)
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "handle is not a maintainer of this repository"})
			return
		}

		token, err := auth.GenerateMaintainerToken(req.Handle, req.RepositoryID)
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_in_hours": 24})
	})

	admin := v1.Group("", maintainerAuth(auth))

	admin.POST("/claims/:id/release", func(c *gin.Context) {
		var req struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&req)

		claim, err := svc.ReleaseClaim(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			respondError(c, errors.ToAppError(err))
			return
		}
		c.JSON(http.StatusOK, claim)
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	errors.SafeClose(redisClient, "redis client")

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// maintainerAuth guards admin routes with a maintainer JWT
func maintainerAuth(auth *database.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 8 || header[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		handle, err := auth.ValidateMaintainerToken(header[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid maintainer token"})
			return
		}

		c.Set("maintainer_handle", handle)
		c.Next()
	}
}

// respondError logs and renders an application error
func respondError(c *gin.Context, appErr *errors.AppError) {
	appErr.RequestID = monitoring.RequestID(c)
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, appErr)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
