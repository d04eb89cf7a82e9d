package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/pratik7mo/AI-TaskManagement/internal/ai"
	"github.com/pratik7mo/AI-TaskManagement/internal/auth"
	"github.com/pratik7mo/AI-TaskManagement/internal/chat"
	"github.com/pratik7mo/AI-TaskManagement/internal/config"
	"github.com/pratik7mo/AI-TaskManagement/internal/db"
	"github.com/pratik7mo/AI-TaskManagement/internal/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect DB:", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal("❌ Failed to migrate DB:", err)
	}
	log.Printf("✅ Connected to %s", database.Driver)

	store := tasks.NewStore(database)
	agent := ai.New(ai.Options{
		APIKey:  cfg.AgentAPIKey,
		BaseURL: cfg.AgentBaseURL,
		Model:   cfg.AgentModel,
		Timeout: cfg.AgentTimeout,
	})

	hub := chat.NewHub()
	chatHandler := chat.NewHandler(store, agent, hub)
	taskHandler := tasks.NewHandler(store, hub)
	authHandler := auth.NewHandler(database, cfg.SecretKey)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthCheck)
	mux.HandleFunc("GET /{$}", healthCheck)

	mux.HandleFunc("GET /ws/chat", chatHandler.HandleWS)
	mux.HandleFunc("POST /api/chat", chatHandler.HandleChat)

	taskHandler.Register(mux)
	authHandler.Register(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(withLogging(mux))

	log.Printf("🚀 API server is running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"message": "AI Task Management API is running",
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
