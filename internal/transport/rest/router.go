package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"meetsync/internal/cache"
	"meetsync/internal/service"
	"meetsync/internal/transport/rest/handler"
	"meetsync/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	MeetingService *service.MeetingService
	SessionCache   cache.SessionCache
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	meetingHandler := handler.NewMeetingHandler(c.MeetingService)
	wsHandler := ws.NewHandler(c.WSHub, c.MeetingService, c.SessionCache)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// Meeting routes
	r.HandleFunc("/meetings", meetingHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/meetings/end", meetingHandler.End).Methods("POST", "OPTIONS")
	r.HandleFunc("/meetings/{id}", meetingHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket route
	r.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
