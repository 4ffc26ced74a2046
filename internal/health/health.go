package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"ovpnscale/internal/logs"
	"ovpnscale/internal/models"
)

// RegisterRoutes — базовый liveness.
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
}

// RegisterRoutesWithDB — liveness + readiness (проверка БД).
func RegisterRoutesWithDB(r *mux.Router, db *gorm.DB) {
	RegisterRoutes(r)
	r.HandleFunc("/readyz", readiness(db)).Methods(http.MethodGet)
}

func readiness(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			models.WriteProblem(w, http.StatusServiceUnavailable, "Not Ready", "db not configured", nil)
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			models.WriteProblem(w, http.StatusServiceUnavailable, "Not Ready", "db handle error", nil)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			logs.Component("health").WithError(err).Warn("readiness: db ping failed")
			models.WriteProblem(w, http.StatusServiceUnavailable, "Not Ready", "db unreachable", nil)
			return
		}
		models.WriteText(w, http.StatusOK, "ok\n")
	}
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	models.WriteText(w, http.StatusOK, "ok\n")
}
