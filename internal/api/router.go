package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/m-a-n-a-v/vettr/backend/internal/api/handlers"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

// Routes bundles everything the router mounts.
// Metrics and Stream are optional.
type Routes struct {
	Stocks  *handlers.StockHandler
	Scores  *handlers.ScoreHandler
	Metrics http.Handler
	Stream  http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods("GET")
	}
	if routes.Stream != nil {
		r.Handle("/ws/scores", routes.Stream).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Stock analytics
	api.HandleFunc("/stocks/{id}/flags", routes.Stocks.GetFlags).Methods("GET")
	api.HandleFunc("/stocks/{id}/score", routes.Stocks.GetScore).Methods("GET")
	api.HandleFunc("/stocks/{id}/trend/score", routes.Stocks.GetScoreTrend).Methods("GET")
	api.HandleFunc("/stocks/{id}/trend/flags", routes.Stocks.GetFlagTrend).Methods("GET")

	// Score cache and sync
	api.HandleFunc("/scores/cache/{id}", routes.Scores.InvalidateOne).Methods("DELETE")
	api.HandleFunc("/scores/cache", routes.Scores.InvalidateAll).Methods("DELETE")
	api.HandleFunc("/sync/scores", routes.Scores.Sync).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "vettr-api",
	})
}

// statusRecorder captures the response code for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
