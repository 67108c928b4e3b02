package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/tofuledger/backend/src/config"
	"github.com/username/tofuledger/backend/src/database"
	"github.com/username/tofuledger/backend/src/handlers"
	"github.com/username/tofuledger/backend/src/line"
	"github.com/username/tofuledger/backend/src/logger"
	"github.com/username/tofuledger/backend/src/security"
	"github.com/username/tofuledger/backend/src/services"
	"github.com/username/tofuledger/backend/src/store"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":      true,
			config.Cfg.DashboardBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Tofu Ledger backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	db := database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(db, config.Cfg.DatabasePath)
	defer db.Close()

	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	dataStore := store.NewSQLiteStore(db)
	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.DashboardTokenExpiry)
	lineClient := line.NewClient(config.Cfg.LineChannelSecret, config.Cfg.LineChannelAccessToken, config.Cfg.LineAPIBaseURL)

	reportService := services.NewReportService(dataStore, summaryCache, config.Cfg.UnknownExpenseBaseline)
	conversationService := services.NewConversationService(dataStore, lineClient, reportService, authService, config.Cfg.DashboardBaseURL)
	reminderService := services.NewReminderService(dataStore, lineClient, config.Cfg.DashboardBaseURL)

	webhookHandler := handlers.NewWebhookHandler(lineClient, conversationService)
	reportHandler := handlers.NewReportHandler(dataStore, reportService)
	cronHandler := handlers.NewCronHandler(reminderService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Tofu Ledger Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/health", handlers.HandleHealth)
			r.Post("/webhook", webhookHandler.HandleWebhook)
		})

		// Scheduled triggers
		r.Group(func(r chi.Router) {
			r.Use(handlers.CronAuthMiddleware(config.Cfg.CronSecret))
			r.Get("/cron/monthly-reminder", cronHandler.HandleMonthlyReminder)
		})

		// Dashboard routes (require a dashboard token)
		r.Group(func(r chi.Router) {
			r.Use(handlers.DashboardAuthMiddleware(authService))

			r.Get("/report/summary", reportHandler.HandleGetSummary)
			r.Get("/report/export", reportHandler.HandleExportCSV)
			r.Get("/records", reportHandler.HandleListRecords)
			r.Post("/records", reportHandler.HandleCreateRecord)
			r.Put("/records/{id}", reportHandler.HandleUpdateRecord)
			r.Delete("/records/{id}", reportHandler.HandleDeleteRecord)
		})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
