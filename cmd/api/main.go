// cmd/api/main.go
// Main entry point for the recommendation and audience service
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhonaldomaster/gshop-recsys/internal/audiences"
	"github.com/rhonaldomaster/gshop-recsys/internal/auth"
	"github.com/rhonaldomaster/gshop-recsys/internal/catalog"
	"github.com/rhonaldomaster/gshop-recsys/internal/common/database"
	"github.com/rhonaldomaster/gshop-recsys/internal/config"
	"github.com/rhonaldomaster/gshop-recsys/internal/events"
	"github.com/rhonaldomaster/gshop-recsys/internal/recs"
)

var startTime = time.Now()

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting GShop Recommendation Service")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.EnableTrendingCache && cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without trending cache", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Trending cache disabled, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	sqlxDB := sqlx.NewDb(db, "postgres")

	// 6. Initialize auth middleware
	log.Println("\n🔐 Step 6: Initializing authentication...")
	authMiddleware := auth.NewMiddleware(auth.NewValidator(cfg.JWTSecret))
	log.Println("✅ Service-token authentication initialized")

	// 7. Initialize catalog client
	log.Println("\n📦 Step 7: Initializing catalog client...")
	catalogClient := catalog.NewHTTPClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)
	log.Printf("✅ Catalog client pointed at %s", cfg.CatalogBaseURL)

	// 8. Initialize event tracking
	log.Println("\n📊 Step 8: Initializing event tracking...")
	eventStore := events.NewPostgresEventStore(sqlxDB)
	preferenceStore := events.NewPostgresPreferenceStore(sqlxDB)
	eventsService := events.NewService(eventStore, preferenceStore, events.DefaultConfig(), cfg.MaxBulkInteractions)
	eventsHandler := events.NewHandler(eventsService)
	log.Println("✅ Event tracking initialized")

	// 9. Initialize recommendation engine
	log.Println("\n🎯 Step 9: Initializing recommendation engine...")
	recsConfig := recs.DefaultConfig()
	recsConfig.DefaultLimit = cfg.DefaultRecommendationLimit
	recsConfig.PopularityWindowDays = cfg.PopularityWindowDays
	recsConfig.SimilarUserLimit = cfg.SimilarUserLimit

	engine := recs.NewEngine(eventStore, preferenceStore, catalogClient, recsConfig)
	resultStore := recs.NewPostgresResultStore(sqlxDB)
	trendingCache := recs.NewTrendingCache(redisClient, cfg.TrendingCacheTTL)
	recsService := recs.NewService(engine, resultStore, eventsService, trendingCache, recsConfig)
	recsHandler := recs.NewHandler(recsService)
	log.Println("✅ Recommendation engine initialized")

	// 10. Initialize audience builder
	log.Println("\n👥 Step 10: Initializing audience builder...")
	audienceStore := audiences.NewPostgresStore(sqlxDB)
	audiencesService := audiences.NewService(audienceStore, eventStore)
	audiencesHandler := audiences.NewHandler(audiencesService)
	log.Println("✅ Audience builder initialized")

	// 11. Setup routes
	log.Println("\n🛣️  Step 11: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api", apiInfo).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	events.RegisterRoutes(router, eventsHandler, authMiddleware)
	log.Println("   ✅ Tracking routes registered")

	recs.RegisterRoutes(router, recsHandler, authMiddleware)
	log.Println("   ✅ Recommendation routes registered")

	audiences.RegisterRoutes(router, audiencesHandler, authMiddleware)
	log.Println("   ✅ Audience routes registered")

	router.Use(loggingMiddleware)

	// 12. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// loggingMiddleware logs every request with its duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// apiInfo returns API information
func apiInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{
		"name": "GShop Recommendation & Audience API",
		"version": "1.0.0",
		"status": "running",
		"endpoints": {
			"health": "GET /health",
			"metrics": "GET /metrics",
			"tracking": {
				"track": "POST /api/v1/interactions",
				"trackBulk": "POST /api/v1/interactions/bulk",
				"interactions": "GET /api/v1/users/{userId}/interactions",
				"preferences": "GET /api/v1/users/{userId}/preferences",
				"updatePreference": "PUT /api/v1/users/{userId}/preferences"
			},
			"recommendations": {
				"generate": "POST /api/v1/recommendations/generate",
				"realtime": "POST /api/v1/recommendations/realtime",
				"trending": "GET /api/v1/recommendations/trending",
				"history": "GET /api/v1/users/{userId}/recommendations/history",
				"stats": "GET /api/v1/recommendations/stats",
				"feedback": "POST /api/v1/recommendations/{id}/feedback"
			},
			"audiences": {
				"create": "POST /api/v1/audiences",
				"list": "GET /api/v1/audiences?sellerId=",
				"get": "GET /api/v1/audiences/{id}",
				"update": "PUT /api/v1/audiences/{id}",
				"delete": "DELETE /api/v1/audiences/{id}",
				"rebuild": "POST /api/v1/audiences/{id}/rebuild",
				"members": "GET /api/v1/audiences/{id}/members",
				"addMember": "POST /api/v1/audiences/{id}/members",
				"removeMember": "DELETE /api/v1/audiences/{id}/members/{userId}"
			}
		}
	}`))
}

// runMigrations creates the tables the core owns
func runMigrations(db *sql.DB) error {
	log.Println("   - Creating/updating tables...")

	migrations := []string{
		// Append-only interaction log
		`CREATE TABLE IF NOT EXISTS interaction_events (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			category_id VARCHAR(64),
			brand VARCHAR(128),
			price DOUBLE PRECISION,
			session_id VARCHAR(128),
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Accumulated affinity scores
		`CREATE TABLE IF NOT EXISTS user_preferences (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			dimension VARCHAR(32) NOT NULL,
			value VARCHAR(128) NOT NULL,
			strength DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, dimension, value)
		)`,

		// Recommendation audit trail
		`CREATE TABLE IF NOT EXISTS recommendation_results (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			product_id VARCHAR(64) NOT NULL,
			algorithm VARCHAR(32) NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			was_shown BOOLEAN NOT NULL DEFAULT FALSE,
			was_clicked BOOLEAN NOT NULL DEFAULT FALSE,
			was_purchased BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Cohorts
		`CREATE TABLE IF NOT EXISTS audiences (
			id UUID PRIMARY KEY,
			seller_id VARCHAR(64) NOT NULL,
			name VARCHAR(100) NOT NULL,
			type VARCHAR(32) NOT NULL,
			rules JSONB NOT NULL DEFAULT '{}',
			size INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audience_members (
			audience_id UUID NOT NULL REFERENCES audiences(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			metadata JSONB,
			added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (audience_id, user_id)
		)`,

		// Indexes for the hot query paths
		`CREATE INDEX IF NOT EXISTS idx_events_user_time ON interaction_events(user_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_time ON interaction_events(type, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_product ON interaction_events(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_preferences_user ON user_preferences(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_user_time ON recommendation_results(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audiences_seller ON audiences(seller_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
