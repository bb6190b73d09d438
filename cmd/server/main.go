package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/dayoung-p/maumlog/internal/ai"
	"github.com/dayoung-p/maumlog/internal/config"
	"github.com/dayoung-p/maumlog/internal/database"
	"github.com/dayoung-p/maumlog/internal/handlers"
	"github.com/dayoung-p/maumlog/internal/jobs"
	"github.com/dayoung-p/maumlog/internal/repository"
	cronjobs "github.com/dayoung-p/maumlog/internal/scheduler"
	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/dayoung-p/maumlog/pkg/logger"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	credRepo := repository.NewCredentialRepository(db)
	recordRepo := repository.NewUserRecordRepository(db)

	// --- Services ---
	recordService := services.NewRecordService(recordRepo)
	authService := services.NewAuthService(credRepo, recordService)
	goalService := services.NewGoalService(recordService)

	var replier ai.Replier = ai.DisabledReplier{}
	if cfg.AI.Enabled() {
		llm, err := ai.NewLLMReplier(context.Background(), cfg.AI)
		if err != nil {
			log.Fatalf("Reply model initialization error: %v", err)
		}
		replier = llm
	} else {
		logger.Log.Warn("No reply model configured, chat turns will use the fallback message")
	}

	chatService := services.NewChatService(recordService, goalService, replier)
	registry := services.NewContextRegistry()

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(authService, recordService, chatService, registry, cfg)
	chatHandler := handlers.NewChatHandler(recordService, chatService, registry)
	goalHandler := handlers.NewGoalHandler(recordService, goalService)
	analyticsHandler := handlers.NewAnalyticsHandler(recordService, chatService, registry)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/users/register", userHandler.RegisterHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginHandler).Methods("POST")
	router.HandleFunc("/emotions", chatHandler.EmotionsHandler).Methods("GET")

	// Protected user routes
	protectedUserRoutes := router.PathPrefix("/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/me", userHandler.MeHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/me/profile", userHandler.UpdateProfileHandler).Methods("PUT")
	protectedUserRoutes.HandleFunc("/logout", userHandler.LogoutHandler).Methods("POST")

	// Chat routes
	protectedChatRoutes := router.PathPrefix("/chat").Subrouter()
	protectedChatRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedChatRoutes.HandleFunc("/emotion", chatHandler.SelectEmotionHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/message", chatHandler.MessageHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/save", chatHandler.SaveHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/close", chatHandler.CloseHandler).Methods("POST")
	protectedChatRoutes.HandleFunc("/sessions", chatHandler.ListSessionsHandler).Methods("GET")
	protectedChatRoutes.HandleFunc("/sessions/{id}", chatHandler.GetSessionHandler).Methods("GET")
	protectedChatRoutes.HandleFunc("/sessions/{id}", chatHandler.DeleteSessionHandler).Methods("DELETE")
	protectedChatRoutes.HandleFunc("/sessions/{id}/resume", chatHandler.ResumeSessionHandler).Methods("POST")

	// Goal routes
	protectedGoalRoutes := router.PathPrefix("/goals").Subrouter()
	protectedGoalRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedGoalRoutes.HandleFunc("", goalHandler.GetGoalsHandler).Methods("GET")
	protectedGoalRoutes.HandleFunc("/active", goalHandler.SetGoalHandler).Methods("PUT")

	// Analytics routes
	protectedAnalyticsRoutes := router.PathPrefix("/analytics").Subrouter()
	protectedAnalyticsRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedAnalyticsRoutes.HandleFunc("/frequency", analyticsHandler.FrequencyHandler).Methods("GET")
	protectedAnalyticsRoutes.HandleFunc("/weekly", analyticsHandler.WeeklyHandler).Methods("GET")
	protectedAnalyticsRoutes.HandleFunc("/monthly", analyticsHandler.MonthlyHandler).Methods("GET")
	protectedAnalyticsRoutes.HandleFunc("/timeofday", analyticsHandler.TimeOfDayHandler).Methods("GET")
	protectedAnalyticsRoutes.HandleFunc("/summary", analyticsHandler.SummaryHandler).Methods("GET")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Background goal-deadline scan
	scanner := jobs.NewGoalDeadlineScanner(goalService)
	cronjobs.StartGoalCronJobs(scanner)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // adjust to frontend origin
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
