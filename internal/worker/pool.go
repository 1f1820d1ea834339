package worker

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/generation"
	"github.com/conjugo/conjugo/internal/ports"
)

// Pool runs a fixed set of workers over consumers from one factory. All
// consumers join the same group, so the broker assigns each partition to at
// most one worker.
type Pool struct {
	factory      ports.ConsumerFactory
	tracker      ports.RequestTracker
	verbs        ports.VerbRepository
	verbCache    *cache.VerbCache
	conjugations *cache.ConjugationCache
	sentences    ports.SentenceRepository
	problems     ports.ProblemRepository
	packager     *generation.Packager

	size    int
	timeout time.Duration

	mu        sync.Mutex
	consumers []ports.Consumer
	wg        sync.WaitGroup
}

type PoolConfig struct {
	// Size is the number of workers; 0 disables the pool.
	Size int
	// MessageTimeout bounds one message's handling, LLM calls included.
	MessageTimeout time.Duration
}

func NewPool(cfg PoolConfig, factory ports.ConsumerFactory, tracker ports.RequestTracker,
	verbs ports.VerbRepository, verbCache *cache.VerbCache, conjugations *cache.ConjugationCache,
	sentences ports.SentenceRepository, problems ports.ProblemRepository,
	packager *generation.Packager) *Pool {

	timeout := cfg.MessageTimeout
	if timeout <= 0 {
		timeout = DefaultMessageTimeout
	}
	return &Pool{
		factory:      factory,
		tracker:      tracker,
		verbs:        verbs,
		verbCache:    verbCache,
		conjugations: conjugations,
		sentences:    sentences,
		problems:     problems,
		packager:     packager,
		size:         cfg.Size,
		timeout:      timeout,
	}
}

// Start launches the workers. Each gets its own consumer and rand source;
// the dedup set is shared so a redelivered message is recognized no matter
// which worker picks it up.
func (p *Pool) Start(ctx context.Context) error {
	if p.size <= 0 {
		log.Println("worker pool disabled (size 0)")
		return nil
	}

	dedup := newDedupSet()
	for i := 0; i < p.size; i++ {
		consumer, err := p.factory.NewConsumer()
		if err != nil {
			p.closeConsumers()
			return fmt.Errorf("failed to open consumer for worker %d: %w", i, err)
		}
		if consumer == nil {
			p.closeConsumers()
			return errNoConsumer
		}
		p.mu.Lock()
		p.consumers = append(p.consumers, consumer)
		p.mu.Unlock()

		w := &Worker{
			id:           i,
			consumer:     consumer,
			tracker:      p.tracker,
			verbs:        p.verbs,
			verbCache:    p.verbCache,
			conjugations: p.conjugations,
			sentences:    p.sentences,
			problems:     p.problems,
			packager:     p.packager,
			dedup:        dedup,
			timeout:      p.timeout,
			rng:          rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))),
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}

	log.Printf("worker pool started with %d workers", p.size)
	return nil
}

// Stop waits for in-flight messages to finish, then closes the consumers so
// the group rebalances promptly. Cancel the context passed to Start first.
func (p *Pool) Stop() {
	p.wg.Wait()
	p.closeConsumers()
}

func (p *Pool) closeConsumers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, consumer := range p.consumers {
		if err := consumer.Close(); err != nil {
			log.Printf("failed to close consumer: %v", err)
		}
	}
	p.consumers = nil
}
