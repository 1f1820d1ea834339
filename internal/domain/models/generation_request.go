package models

import (
	"time"
)

// RequestStatus is the lifecycle state of a GenerationRequest.
type RequestStatus string

const (
	// RequestStatusPending is assigned at creation, before any worker picked a message.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusProcessing means at least one worker started on the request.
	RequestStatusProcessing RequestStatus = "processing"
	// RequestStatusCompleted means every entity was generated successfully.
	RequestStatusCompleted RequestStatus = "completed"
	// RequestStatusPartial means some entities generated, some failed.
	RequestStatusPartial RequestStatus = "partial"
	// RequestStatusFailed means every entity failed.
	RequestStatusFailed RequestStatus = "failed"
	// RequestStatusExpired is assigned by the sweeper to stale non-terminal requests.
	RequestStatusExpired RequestStatus = "expired"
)

// Terminal reports whether the status is final.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusPartial, RequestStatusFailed, RequestStatusExpired:
		return true
	}
	return false
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusProcessing, RequestStatusCompleted,
		RequestStatusPartial, RequestStatusFailed, RequestStatusExpired:
		return true
	}
	return false
}

// GenerationConstraints narrow what the worker may generate for a request.
// Empty fields mean no constraint.
type GenerationConstraints struct {
	Tenses             []Tense  `json:"tenses,omitempty"`
	VerbInfinitives    []string `json:"verb_infinitives,omitempty"`
	TopicTags          []string `json:"topic_tags,omitempty"`
	TargetLanguageCode string   `json:"target_language_code,omitempty"`
	RequireNegation    *bool    `json:"require_negation,omitempty"`
}

// GenerationRequest tracks one client-initiated batch of N generation tasks.
// Counters are updated by atomic storage read-modify-writes; the request is
// finalized when generated + failed = requested.
type GenerationRequest struct {
	ID             string                 `json:"id"`
	EntityType     string                 `json:"entity_type"`
	Status         RequestStatus          `json:"status"`
	RequestedCount int                    `json:"requested_count"`
	GeneratedCount int                    `json:"generated_count"`
	FailedCount    int                    `json:"failed_count"`
	RequestedAt    time.Time              `json:"requested_at"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Constraints    *GenerationConstraints `json:"constraints,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`

	// Problems generated for this request, loaded on status polling.
	Problems []*Problem `json:"problems,omitempty"`
}

// Accounted reports whether every requested entity has an outcome.
func (r *GenerationRequest) Accounted() bool {
	return r.GeneratedCount+r.FailedCount >= r.RequestedCount
}

// TerminalStatus derives the terminal state from the counters: completed when
// nothing failed, failed when nothing generated, partial otherwise.
func (r *GenerationRequest) TerminalStatus() RequestStatus {
	switch {
	case r.FailedCount == 0:
		return RequestStatusCompleted
	case r.GeneratedCount == 0:
		return RequestStatusFailed
	default:
		return RequestStatusPartial
	}
}

func NewGenerationRequest(id, entityType string, count int, constraints *GenerationConstraints, metadata map[string]any) *GenerationRequest {
	return &GenerationRequest{
		ID:             id,
		EntityType:     entityType,
		Status:         RequestStatusPending,
		RequestedCount: count,
		Constraints:    constraints,
		Metadata:       metadata,
		RequestedAt:    time.Now().UTC(),
	}
}

// GenerationMessage is the broker message body. One message produces one
// problem; a request for N problems publishes N messages keyed by the request
// id so they land on the same partition. MessageID is the worker-side
// idempotency key for redeliveries.
type GenerationMessage struct {
	MessageID           string                 `json:"message_id"`
	GenerationRequestID string                 `json:"generation_request_id"`
	Count               int                    `json:"count"`
	Constraints         *GenerationConstraints `json:"constraints,omitempty"`
}
