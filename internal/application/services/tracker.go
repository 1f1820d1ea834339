// Package services holds the application-level orchestration between the
// HTTP surface, the broker, and storage.
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// MinExpiryHorizon is the floor for the sweeper's staleness horizon; a lower
// configured value would expire requests that are still legitimately running.
const MinExpiryHorizon = 30 * time.Minute

// Tracker owns the GenerationRequest lifecycle. Worker counter updates go
// through atomic storage increments, so concurrent workers on the same
// request cannot lose updates; the worker whose increment completes the
// accounting finalizes the request.
type Tracker struct {
	requests ports.GenerationRequestRepository
	problems ports.ProblemRepository
	idGen    ports.IDGenerator
	horizon  time.Duration
}

func NewTracker(requests ports.GenerationRequestRepository, problems ports.ProblemRepository, idGen ports.IDGenerator, horizon time.Duration) *Tracker {
	if horizon < MinExpiryHorizon {
		horizon = MinExpiryHorizon
	}
	return &Tracker{
		requests: requests,
		problems: problems,
		idGen:    idGen,
		horizon:  horizon,
	}
}

func (t *Tracker) Create(ctx context.Context, entityType string, count int, constraints *models.GenerationConstraints, metadata map[string]any) (*models.GenerationRequest, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1", domain.ErrInvalidInput)
	}

	request := models.NewGenerationRequest(t.idGen.GenerateRequestID(), entityType, count, constraints, metadata)
	if err := t.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	return request, nil
}

func (t *Tracker) MarkProcessing(ctx context.Context, requestID string) error {
	return t.requests.MarkProcessing(ctx, requestID, time.Now().UTC())
}

// RecordGenerated bumps the success counter and finalizes the request when
// this was the last outstanding entity.
func (t *Tracker) RecordGenerated(ctx context.Context, requestID string) error {
	counts, err := t.requests.IncrementGenerated(ctx, requestID)
	if err != nil {
		return err
	}
	return t.finalizeIfDone(ctx, requestID, counts)
}

// RecordFailed bumps the failure counter and finalizes the request when this
// was the last outstanding entity.
func (t *Tracker) RecordFailed(ctx context.Context, requestID string) error {
	counts, err := t.requests.IncrementFailed(ctx, requestID)
	if err != nil {
		return err
	}
	return t.finalizeIfDone(ctx, requestID, counts)
}

func (t *Tracker) finalizeIfDone(ctx context.Context, requestID string, counts ports.RequestCounts) error {
	snapshot := models.GenerationRequest{
		RequestedCount: counts.Requested,
		GeneratedCount: counts.Generated,
		FailedCount:    counts.Failed,
	}
	if !snapshot.Accounted() {
		return nil
	}

	status := snapshot.TerminalStatus()
	if err := t.requests.Finalize(ctx, requestID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to finalize request %s: %w", requestID, err)
	}
	log.Printf("generation request %s finalized as %s (%d generated, %d failed of %d)",
		requestID, status, counts.Generated, counts.Failed, counts.Requested)
	return nil
}

// Get loads the request together with the problems it produced so far.
func (t *Tracker) Get(ctx context.Context, requestID string) (*models.GenerationRequest, error) {
	request, err := t.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	problems, err := t.problems.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load problems for request %s: %w", requestID, err)
	}
	request.Problems = problems
	return request, nil
}

func (t *Tracker) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	return t.requests.List(ctx, filter)
}

// ExpireStale transitions pending/processing requests older than the horizon
// to expired. Called periodically by the sweeper.
func (t *Tracker) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-t.horizon)
	expired, err := t.requests.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		metrics.RequestsExpiredTotal.Add(float64(expired))
		log.Printf("expired %d stale generation requests (horizon %s)", expired, t.horizon)
	}
	return expired, nil
}
