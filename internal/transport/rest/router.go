package rest

import (
	"net/http"

	"ecocards/internal/service"
	"ecocards/internal/transport/rest/handler"
	"ecocards/internal/transport/rest/middleware"
	"ecocards/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	CardService    *service.CardService
	PlayerService  *service.PlayerService
	BattleService  *service.BattleService
	WSHandler      *ws.Handler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService, c.Logger)
	cardHandler := handler.NewCardHandler(c.CardService, c.Logger)
	playerHandler := handler.NewPlayerHandler(c.PlayerService, c.Logger)
	battleHandler := handler.NewBattleHandler(c.BattleService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/cards", cardHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/cards/{name}", cardHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket route (token in query param or bearer header)
	v1.HandleFunc("/ws/battle/{roomId}", c.WSHandler.BattleWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/me", playerHandler.Me).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/me/cards", cardHandler.Mine).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/me/battles", playerHandler.Battles).Methods("GET", "OPTIONS")
	playerRoutes.HandleFunc("/battles", battleHandler.Create).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/battles/{roomId}", battleHandler.Get).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowed []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := "*"
			if len(allowed) > 0 {
				// Access-Control-Allow-Origin takes a single origin
				origin = ""
				for _, o := range allowed {
					if o == r.Header.Get("Origin") {
						origin = o
						break
					}
				}
			}
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
