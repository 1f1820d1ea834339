package dto

import "github.com/conjugo/conjugo/internal/domain/models"

// GenerateRequest is the body of POST /problems/generate.
type GenerateRequest struct {
	Count       int                           `json:"count"`
	Constraints *models.GenerationConstraints `json:"constraints,omitempty"`
}

// GenerateResponse acknowledges an accepted generation batch.
type GenerateResponse struct {
	RequestID string `json:"request_id"`
	Count     int    `json:"count"`
	Status    string `json:"status"`
}

// CacheStatsResponse maps cache name to its statistics snapshot.
type CacheStatsResponse map[string]any

// CleanResponse reports how many rows an administrative clean removed.
type CleanResponse struct {
	Deleted int64 `json:"deleted"`
}
