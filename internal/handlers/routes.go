package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Brownie44l1/cropdoc/internal/metrics"
)

// Routes wires every endpoint behind CORS, request logging and metrics.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Page)
	mux.HandleFunc("/health", enableCORS(h.Health))
	mux.HandleFunc("/predict", enableCORS(h.Predict))
	mux.HandleFunc("/predict/image", enableCORS(h.PredictFromImage))
	mux.HandleFunc("/chat", enableCORS(h.Chat))
	mux.HandleFunc("/library", enableCORS(h.Library))
	mux.HandleFunc("/history", enableCORS(h.History))
	mux.Handle("/metrics", h.metrics.Handler())

	return h.metrics.Middleware(logRequests(h.log, mux))
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &metrics.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"elapsed", time.Since(start))
	})
}
