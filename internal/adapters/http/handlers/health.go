package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const healthCheckTimeout = 5 * time.Second

// BrokerChecker reports the partition count of a topic; any successful answer
// means the broker is reachable.
type BrokerChecker interface {
	PartitionCount(ctx context.Context, topic string) (int, error)
}

type HealthHandler struct {
	db     *pgxpool.Pool
	broker BrokerChecker
	topic  string
}

func NewHealthHandler(db *pgxpool.Pool, broker BrokerChecker, topic string) *HealthHandler {
	return &HealthHandler{db: db, broker: broker, topic: topic}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Handle reports liveness: 200 when storage and broker are both reachable,
// 503 otherwise.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{Status: "ok", Services: make(map[string]string)}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			response.Services["storage"] = "unreachable: " + err.Error()
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Services["storage"] = "ok"
		}
	}

	if h.broker != nil {
		if _, err := h.broker.PartitionCount(ctx, h.topic); err != nil {
			response.Services["broker"] = "unreachable: " + err.Error()
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Services["broker"] = "ok"
		}
	}

	respondJSON(w, response, status)
}
