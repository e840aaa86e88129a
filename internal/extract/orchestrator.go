package extract

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/gradienthealth/studyselect/internal/config"
	"github.com/gradienthealth/studyselect/internal/model"
)

// Result attaches the two resolved extraction records to a candidate pair.
// Records are shared: pairs referencing the same study observe the same
// *ExtractionRecord.
type Result struct {
	Pair model.CandidatePair
	CT   *model.ExtractionRecord
	PET  *model.ExtractionRecord
}

type memoKey struct {
	studyUID string
	role     model.Role
}

// memoEntry is first-writer-wins: the first goroutine to claim a key does
// the work; later claimants wait on done and read the shared record.
type memoEntry struct {
	done chan struct{}
	rec  *model.ExtractionRecord
}

// Orchestrator issues bounded-concurrency extraction requests against the
// inference service, one per distinct (study_uid, role). Every failure is
// isolated to its key: a terminal Error record is produced and siblings
// proceed. Only context cancellation aborts the whole phase.
type Orchestrator struct {
	client    Client
	store     *Store
	ctPrompt  string
	petPrompt string
	retries   int
	sem       *semaphore.Weighted
	log       zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	memo map[memoKey]*memoEntry
}

// NewOrchestrator wires the client, artifact store and prompts. The
// semaphore bounds in-flight requests to the service, not CPU parallelism.
func NewOrchestrator(client Client, store *Store, cfg config.LLM, ctPrompt, petPrompt string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:    client,
		store:     store,
		ctPrompt:  ctPrompt,
		petPrompt: petPrompt,
		retries:   cfg.Retries,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		log:       log,
		sleep:     sleepCtx,
		memo:      make(map[memoKey]*memoEntry),
	}
}

// Run extracts every distinct (study_uid, role) referenced by pairs and
// re-associates the records onto the pairs by key, preserving the pairing
// engine's emission order regardless of completion order.
func (o *Orchestrator) Run(ctx context.Context, pairs []model.CandidatePair) ([]Result, error) {
	var wg sync.WaitGroup
	for _, p := range pairs {
		for _, req := range []struct {
			uid    string
			role   model.Role
			report string
		}{
			{p.CTStudyUID, model.RoleCT, p.CTReport},
			{p.PETStudyUID, model.RolePET, p.PETReport},
		} {
			req := req
			wg.Add(1)
			go func() {
				defer wg.Done()
				o.resolve(ctx, req.uid, req.role, req.report)
			}()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(pairs))
	errors := 0
	for _, p := range pairs {
		ct := o.lookup(p.CTStudyUID, model.RoleCT)
		pet := o.lookup(p.PETStudyUID, model.RolePET)
		if ct.Status == model.ExtractionError || pet.Status == model.ExtractionError {
			errors++
		}
		results = append(results, Result{Pair: p, CT: ct, PET: pet})
	}

	o.log.Info().
		Int("pairs", len(pairs)).
		Int("studies_extracted", len(o.memo)).
		Int("pairs_with_errors", errors).
		Msg("extraction complete")
	return results, nil
}

// resolve returns the record for a key, claiming it and doing the work if
// no other goroutine has. Duplicate keys await the first claimant's result
// rather than issuing a second request.
func (o *Orchestrator) resolve(ctx context.Context, studyUID string, role model.Role, report string) *model.ExtractionRecord {
	key := memoKey{studyUID, role}

	o.mu.Lock()
	if e, ok := o.memo[key]; ok {
		o.mu.Unlock()
		<-e.done
		return e.rec
	}
	e := &memoEntry{done: make(chan struct{})}
	o.memo[key] = e
	o.mu.Unlock()

	e.rec = o.extractOne(ctx, studyUID, role, report)
	close(e.done)
	return e.rec
}

func (o *Orchestrator) lookup(studyUID string, role model.Role) *model.ExtractionRecord {
	o.mu.Lock()
	e := o.memo[memoKey{studyUID, role}]
	o.mu.Unlock()
	<-e.done
	return e.rec
}

// extractOne produces the terminal record for one key: artifact reuse,
// else a retried service call, validated and persisted before return.
func (o *Orchestrator) extractOne(ctx context.Context, studyUID string, role model.Role, report string) *model.ExtractionRecord {
	if rec := o.store.Load(studyUID, role); rec != nil {
		o.log.Debug().Str("study_uid", studyUID).Str("role", string(role)).Msg("reusing persisted extraction")
		return rec
	}

	rec := &model.ExtractionRecord{StudyUID: studyUID, Role: role}

	prompt := o.ctPrompt
	if role == model.RolePET {
		prompt = o.petPrompt
	}

	r := &retrier{maxAttempts: o.retries, sleep: o.sleep}
	err := r.do(ctx, func(ctx context.Context) error {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		raw, err := o.client.Complete(ctx, prompt, report)
		o.sem.Release(1)
		if err != nil {
			return err
		}

		ct, pet, err := decodeFields(role, raw)
		if err != nil {
			return err
		}
		rec.CT, rec.PET, rec.RawResponse = ct, pet, raw
		return nil
	})

	if err != nil {
		rec.Status = model.ExtractionError
		rec.ErrorDetail = err.Error()
		rec.CT, rec.PET = nil, nil
		o.log.Warn().Str("study_uid", studyUID).Str("role", string(role)).Err(err).Msg("extraction failed")
	} else {
		rec.Status = model.ExtractionSuccess
	}

	if serr := o.store.Save(rec); serr != nil {
		o.log.Error().Str("study_uid", studyUID).Str("role", string(role)).Err(serr).Msg("persist extraction artifact failed")
	}
	return rec
}
