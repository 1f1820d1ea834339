// Package worker consumes generation messages from the broker and turns each
// one into a stored problem. Workers are plain consumer-group members: adding
// more (up to the topic's partition count) adds throughput.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/generation"
	"github.com/conjugo/conjugo/internal/ports"
)

// DefaultMessageTimeout bounds the handling of one generation message,
// including all four LLM calls.
const DefaultMessageTimeout = 60 * time.Second

// dedupSet remembers message ids already handled by this process. Redelivery
// happens when a worker crashes between side-effects and the offset commit;
// the set keeps the retry from double-counting within one process lifetime.
type dedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newDedupSet() *dedupSet {
	return &dedupSet{seen: make(map[string]struct{})}
}

// markSeen records the id and reports whether it was already present.
func (d *dedupSet) markSeen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

// forget drops an id so a redelivered copy is handled again.
func (d *dedupSet) forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Worker is one consumer-group member processing generation messages.
type Worker struct {
	id           int
	consumer     ports.Consumer
	tracker      ports.RequestTracker
	verbs        ports.VerbRepository
	verbCache    *cache.VerbCache
	conjugations *cache.ConjugationCache
	sentences    ports.SentenceRepository
	problems     ports.ProblemRepository
	packager     *generation.Packager
	dedup        *dedupSet
	timeout      time.Duration
	rng          *rand.Rand
}

// Run fetches and handles messages until ctx is cancelled. The offset is
// committed only after the message's side-effects are durable, so a crash
// mid-message redelivers it.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("worker %d started", w.id)
	defer log.Printf("worker %d stopped", w.id)

	for {
		msg, err := w.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("worker %d: fetch failed: %v", w.id, err)
			continue
		}

		if !w.handle(msg) {
			continue
		}

		// Genuine failures are recorded on the request and re-handling them
		// would not succeed any better, so they commit like successes. Only
		// an interrupted message leaves its offset for redelivery.
		commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := w.consumer.Commit(commitCtx, msg); err != nil {
			log.Printf("worker %d: commit failed: %v", w.id, err)
		}
		cancel()
	}
}

// handle processes one message under its own timeout, detached from the run
// context: a shutdown arriving mid-message must not turn in-flight work into
// a spurious failure. It reports whether the offset should be committed.
func (w *Worker) handle(msg ports.BrokerMessage) bool {
	started := time.Now()
	defer func() {
		metrics.WorkerMessageDuration.Observe(time.Since(started).Seconds())
	}()

	var gm models.GenerationMessage
	if err := json.Unmarshal(msg.Value, &gm); err != nil {
		log.Printf("worker %d: dropping malformed message at %s[%d]@%d: %v",
			w.id, msg.Topic, msg.Partition, msg.Offset, err)
		metrics.WorkerMessagesTotal.WithLabelValues("failed").Inc()
		return true
	}

	if w.dedup.markSeen(gm.MessageID) {
		log.Printf("worker %d: skipping duplicate message %s", w.id, gm.MessageID)
		metrics.WorkerMessagesTotal.WithLabelValues("duplicate").Inc()
		return true
	}

	msgCtx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.tracker.MarkProcessing(msgCtx, gm.GenerationRequestID); err != nil {
		log.Printf("worker %d: failed to mark request %s processing: %v", w.id, gm.GenerationRequestID, err)
	}

	if err := w.generateProblem(msgCtx, gm); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted, not failed: leave the offset uncommitted so the
			// broker redelivers the message, and forget the id so the
			// redelivery is not mistaken for a duplicate.
			log.Printf("worker %d: message %s interrupted: %v", w.id, gm.MessageID, err)
			w.dedup.forget(gm.MessageID)
			return false
		}
		log.Printf("worker %d: message %s failed: %v", w.id, gm.MessageID, err)
		metrics.WorkerMessagesTotal.WithLabelValues("failed").Inc()
		if err := w.tracker.RecordFailed(msgCtx, gm.GenerationRequestID); err != nil {
			log.Printf("worker %d: failed to record failure on %s: %v", w.id, gm.GenerationRequestID, err)
		}
		return true
	}

	metrics.WorkerMessagesTotal.WithLabelValues("generated").Inc()
	if err := w.tracker.RecordGenerated(msgCtx, gm.GenerationRequestID); err != nil {
		log.Printf("worker %d: failed to record success on %s: %v", w.id, gm.GenerationRequestID, err)
	}
	return true
}

func (w *Worker) generateProblem(ctx context.Context, gm models.GenerationMessage) error {
	verb, err := w.pickVerb(ctx, gm.Constraints)
	if err != nil {
		return fmt.Errorf("verb selection: %w", err)
	}

	params := w.pickParams(verb, gm.Constraints)
	errorTypes := generation.SelectErrorTypes(verb, params, w.rng)
	conj := w.lookupConjugation(ctx, verb, params.Tense)

	result, err := w.packager.Package(ctx, verb, params, conj, errorTypes, gm.GenerationRequestID, w.rng)
	if err != nil {
		return err
	}

	for _, sentence := range result.Sentences {
		if err := w.sentences.Create(ctx, sentence); err != nil {
			return fmt.Errorf("persisting sentence %s: %w", sentence.ID, err)
		}
	}
	if err := w.problems.Create(ctx, result.Problem); err != nil {
		return fmt.Errorf("persisting problem %s: %w", result.Problem.ID, err)
	}

	if err := w.verbs.TouchLastUsed(ctx, verb.ID, time.Now().UTC()); err != nil {
		log.Printf("worker %d: failed to touch verb %s: %v", w.id, verb.ID, err)
	}
	return nil
}

// pickVerb selects the verb for one problem. Pinned infinitives resolve
// through the verb cache; everything else is a filtered random draw from
// storage.
func (w *Worker) pickVerb(ctx context.Context, constraints *models.GenerationConstraints) (*models.Verb, error) {
	if constraints != nil && len(constraints.VerbInfinitives) > 0 {
		infinitive := constraints.VerbInfinitives[w.rng.Intn(len(constraints.VerbInfinitives))]
		return w.verbCache.LookupByInfinitive(ctx, infinitive)
	}

	filter := ports.VerbFilter{ExcludeTest: true}
	if constraints != nil {
		filter.TopicTags = constraints.TopicTags
		filter.TargetLanguageCode = constraints.TargetLanguageCode
	}
	return w.verbs.GetRandom(ctx, filter)
}

// lookupConjugation fetches the stored table for the required tense through
// the cache. Verbs without a stored table still generate; the prompt just
// goes out without the reference forms.
func (w *Worker) lookupConjugation(ctx context.Context, verb *models.Verb, tense models.Tense) *models.Conjugation {
	conjugations, err := w.conjugations.Lookup(ctx, verb.Infinitive, verb.Auxiliary)
	if err != nil {
		log.Printf("worker %d: conjugation lookup for %s failed: %v", w.id, verb.Infinitive, err)
		return nil
	}
	for _, c := range conjugations {
		if c.Tense == tense && c.Reflexive == verb.Reflexive {
			return c
		}
	}
	return nil
}

// pickParams draws the grammatical parameters for one problem, respecting
// both the verb's capabilities and the request's constraints.
func (w *Worker) pickParams(verb *models.Verb, constraints *models.GenerationConstraints) models.SentenceParams {
	tenses := models.AllTenses
	if constraints != nil && len(constraints.Tenses) > 0 {
		tenses = constraints.Tenses
	}

	params := models.SentenceParams{
		Pronoun:        models.AllPronouns[w.rng.Intn(len(models.AllPronouns))],
		Tense:          tenses[w.rng.Intn(len(tenses))],
		DirectObject:   models.ObjectNone,
		IndirectObject: models.ObjectNone,
		Negation:       models.NegationNone,
	}

	objects := []models.ObjectCategory{models.ObjectMasculine, models.ObjectFeminine, models.ObjectPlural}
	if verb.CanHaveCOD && w.rng.Intn(2) == 0 {
		params.DirectObject = objects[w.rng.Intn(len(objects))]
	}
	if verb.CanHaveCOI && w.rng.Intn(2) == 0 {
		params.IndirectObject = objects[w.rng.Intn(len(objects))]
	}

	if constraints != nil && constraints.RequireNegation != nil && *constraints.RequireNegation {
		// Skip index 0, which is NegationNone.
		params.Negation = models.AllNegations[1+w.rng.Intn(len(models.AllNegations)-1)]
	} else if w.rng.Intn(3) == 0 {
		params.Negation = models.AllNegations[w.rng.Intn(len(models.AllNegations))]
	}

	return params
}

var errNoConsumer = errors.New("consumer factory returned no consumer")
