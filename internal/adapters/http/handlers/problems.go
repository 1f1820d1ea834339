package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/application/services"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// MaxGenerateCount caps one generation batch.
const MaxGenerateCount = 10

type ProblemHandler struct {
	selector  *services.Selector
	tracker   ports.RequestTracker
	requests  ports.GenerationRequestRepository
	publisher ports.Publisher
	idGen     ports.IDGenerator
}

func NewProblemHandler(selector *services.Selector, tracker ports.RequestTracker, requests ports.GenerationRequestRepository, publisher ports.Publisher, idGen ports.IDGenerator) *ProblemHandler {
	return &ProblemHandler{
		selector:  selector,
		tracker:   tracker,
		requests:  requests,
		publisher: publisher,
		idGen:     idGen,
	}
}

// Random handles GET /problems/random.
func (h *ProblemHandler) Random(w http.ResponseWriter, r *http.Request) {
	filter := ports.ProblemFilter{
		ProblemType:        models.ProblemType(r.URL.Query().Get("problem_type")),
		GrammaticalFocus:   r.URL.Query().Get("grammatical_focus"),
		TensesUsed:         parseListQuery(r, "tenses_used"),
		TopicTags:          parseListQuery(r, "topic_tags"),
		TargetLanguageCode: r.URL.Query().Get("target_language_code"),
	}

	problem, err := h.selector.Random(r.Context(), filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, problem, http.StatusOK)
}

// Get handles GET /problems/{id}.
func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	problem, err := h.selector.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, problem, http.StatusOK)
}

// Generate handles POST /problems/generate. It creates the tracking record,
// publishes one message per requested problem, and acknowledges with 202; the
// client polls the request for the outcome.
func (h *ProblemHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[dto.GenerateRequest](r, w)
	if !ok {
		return
	}
	if req.Count < 1 || req.Count > MaxGenerateCount {
		respondError(w, dto.CodeValidationError, "count must be between 1 and 10", http.StatusBadRequest)
		return
	}

	request, err := h.tracker.Create(r.Context(), "problem", req.Count, req.Constraints, map[string]any{"source": "api"})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	for i := 0; i < req.Count; i++ {
		msg := models.GenerationMessage{
			MessageID:           h.idGen.GenerateMessageID(),
			GenerationRequestID: request.ID,
			Count:               1,
			Constraints:         req.Constraints,
		}
		if err := h.publisher.Publish(r.Context(), msg); err != nil {
			if i == 0 {
				// Nothing was enqueued, so there is nothing to track: roll the
				// record back entirely rather than leaving a failed batch that
				// never existed.
				if delErr := h.requests.Delete(r.Context(), request.ID); delErr != nil {
					log.Printf("failed to roll back request %s: %v", request.ID, delErr)
				}
			} else {
				// Slots never enqueued can never be generated; record them as
				// failed so the request still reaches a terminal state.
				for j := i; j < req.Count; j++ {
					if recErr := h.tracker.RecordFailed(r.Context(), request.ID); recErr != nil {
						log.Printf("failed to record unpublished slot on %s: %v", request.ID, recErr)
					}
				}
			}
			respondDomainError(w, err)
			return
		}
	}

	respondJSON(w, dto.GenerateResponse{
		RequestID: request.ID,
		Count:     req.Count,
		Status:    string(models.RequestStatusPending),
	}, http.StatusAccepted)
}
