package services

import (
	"context"
	"log"
	"time"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// Selector serves problems from the pool with the staleness-weighted random
// pick. The serve stamp is written after the response is already decided, so
// a slow or failed stamp never delays or fails the read path.
type Selector struct {
	problems             ports.ProblemRepository
	virtualStalenessDays float64
}

func NewSelector(problems ports.ProblemRepository, virtualStalenessDays float64) *Selector {
	if virtualStalenessDays <= 0 {
		virtualStalenessDays = 3
	}
	return &Selector{
		problems:             problems,
		virtualStalenessDays: virtualStalenessDays,
	}
}

// Random picks one problem matching the filter. The caller gets the problem
// immediately; the last_served_at stamp happens in the background.
func (s *Selector) Random(ctx context.Context, filter ports.ProblemFilter) (*models.Problem, error) {
	problem, err := s.problems.SelectRandom(ctx, filter, s.virtualStalenessDays)
	if err != nil {
		return nil, err
	}

	metrics.ProblemsServedTotal.Inc()

	go func(id string) {
		stampCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.problems.StampServed(stampCtx, id, time.Now().UTC()); err != nil {
			log.Printf("failed to stamp problem %s as served: %v", id, err)
		}
	}(problem.ID)

	return problem, nil
}

// Get loads one problem by id.
func (s *Selector) Get(ctx context.Context, id string) (*models.Problem, error) {
	return s.problems.GetByID(ctx, id)
}
