// Package handlers agrupa os handlers HTTP das operações protegidas e de saúde.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger é satisfeito pelos CounterStores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OperationHandler responde pelas operações protegidas. Geração de fatura e
// checkout ficam com colaboradores externos; aqui só confirmamos o recebimento.
func OperationHandler(operation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"operation": operation,
			"status":    "accepted",
		})
	}
}

// HealthHandler verifica o CounterStore com timeout curto.
func HealthHandler(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
