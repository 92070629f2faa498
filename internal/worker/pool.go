// Package worker runs generation jobs in the background.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"chat-style-studio/internal/model"
	"chat-style-studio/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrQueueFull = errors.New("worker: queue is full")
	ErrStopped   = errors.New("worker: pool is stopped")
)

const jobTimeout = 2 * time.Minute

type Job struct {
	ID           string
	CollectionID string
	Kind         model.GenerationKind
	Locale       string
}

// Generator is the slice of the style service the pool needs.
type Generator interface {
	Run(ctx context.Context, kind model.GenerationKind, collectionID, locale string) (service.Generation, error)
	PublishFailure(collectionID string, kind model.GenerationKind, jobID string, err error)
}

type Pool struct {
	gen     Generator
	logger  zerolog.Logger
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
}

func NewPool(gen Generator, queueSize int, logger zerolog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{gen: gen, logger: logger, jobs: make(chan Job, queueSize), ctx: ctx, cancel: cancel}
}

func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to drain. Jobs still running
// when ctx expires are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Submit queues a job without blocking and returns it with its assigned ID.
func (p *Pool) Submit(job Job) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return job, ErrStopped
	}
	select {
	case p.jobs <- job:
		p.logger.Debug().Str("job", job.ID).Str("kind", string(job.Kind)).Str("collection", job.CollectionID).Msg("job queued")
		return job, nil
	default:
		p.logger.Warn().Str("job", job.ID).Str("collection", job.CollectionID).Msg("worker: dropping job, queue full")
		return job, ErrQueueFull
	}
}

func (p *Pool) process(job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	gen, err := p.gen.Run(ctx, job.Kind, job.CollectionID, job.Locale)
	if err != nil {
		p.logger.Warn().Err(err).Str("job", job.ID).Str("kind", string(job.Kind)).Str("collection", job.CollectionID).Msg("job failed")
		p.gen.PublishFailure(job.CollectionID, job.Kind, job.ID, err)
		return
	}
	p.logger.Info().
		Str("job", job.ID).
		Str("generation", gen.Ref.ID).
		Dur("took", time.Since(start)).
		Msg("job done")
}
