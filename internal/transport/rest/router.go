package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"cuestionarios/internal/service"
	"cuestionarios/internal/transport/rest/handler"
	"cuestionarios/internal/transport/rest/middleware"
	"cuestionarios/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	RecordsService *service.RecordsService
	SessionService *service.SessionService
	WSHub          *ws.Hub
	ServiceToken   string
	CORSOrigins    []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	// Profile field paths arrive escaped and are unescaped by the handler.
	r.UseEncodedPath()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	recordsHandler := handler.NewRecordsHandler(c.RecordsService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService, c.ServiceToken)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Questionnaire backend. Literal paths go before /{id}/.
	api := r.PathPrefix("/api/cuestionarios").Subrouter()
	callerAPI := api.NewRoute().Subrouter()
	callerAPI.Use(authMW.RequireCaller)
	callerAPI.HandleFunc("/", recordsHandler.ListQuestionnaires).Methods("GET", "OPTIONS")
	callerAPI.HandleFunc("/respuestas/", recordsHandler.ListAnswers).Methods("GET", "OPTIONS")
	callerAPI.HandleFunc("/respuestas/", recordsHandler.SaveAnswer).Methods("POST", "OPTIONS")
	callerAPI.HandleFunc("/finalizar-cuestionario/", recordsHandler.GetFinalization).Methods("GET", "OPTIONS")
	callerAPI.HandleFunc("/finalizar-cuestionario/", recordsHandler.Finalize).Methods("POST", "OPTIONS")
	callerAPI.HandleFunc("/profile-fields/user/{uid:[0-9]+}/value/{path}/", recordsHandler.GetProfileFieldValue).Methods("GET", "OPTIONS")
	callerAPI.HandleFunc("/{id:[0-9]+}/", recordsHandler.GetQuestionnaire).Methods("GET", "OPTIONS")

	staffAPI := api.NewRoute().Subrouter()
	staffAPI.Use(authMW.RequireStaff)
	staffAPI.HandleFunc("/profile-fields/user/{uid:[0-9]+}/value/{path}/", recordsHandler.SetProfileFieldValue).Methods("PUT", "OPTIONS")
	staffAPI.HandleFunc("/{id:[0-9]+}/", recordsHandler.PutQuestionnaire).Methods("PUT", "OPTIONS")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	if c.WSHub != nil {
		wsHandler := ws.NewHandler(c.WSHub, c.SessionService, authMW)
		v1.HandleFunc("/ws/sessions/{id}", wsHandler.SessionWS).Methods("GET")
	}

	// Staff routes
	staffRoutes := v1.NewRoute().Subrouter()
	staffRoutes.Use(authMW.RequireStaff)
	staffRoutes.HandleFunc("/users/{usuario:[0-9]+}/token", authHandler.IssueUserToken).Methods("POST", "OPTIONS")

	// Session routes (staff or the candidate who owns the session)
	sessionRoutes := v1.PathPrefix("/sessions").Subrouter()
	sessionRoutes.Use(authMW.RequireCaller)
	sessionRoutes.HandleFunc("", sessionHandler.Open).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}", sessionHandler.Close).Methods("DELETE", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/answers/{pregunta:[0-9]+}", sessionHandler.SubmitAnswer).Methods("PUT", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/answers/{pregunta:[0-9]+}/retry", sessionHandler.Retry).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/sections/current", sessionHandler.CurrentSection).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/sections/next", sessionHandler.NextSection).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/sections/prev", sessionHandler.PrevSection).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/sections/{index:[0-9]+}", sessionHandler.GoToSection).Methods("POST", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/progress", sessionHandler.Progress).Methods("GET", "OPTIONS")
	sessionRoutes.HandleFunc("/{id}/finalize", sessionHandler.Finalize).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(origins []string) mux.MiddlewareFunc {
	allowedOrigins := strings.Join(origins, ", ")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
