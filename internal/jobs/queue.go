package jobs

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

type Executor func(ctx context.Context, job *TranslationJob) (Result, error)

// Queue runs inbox jobs on a fixed number of workers. Jobs live in memory
// only; terminal jobs are pruned oldest first once maxJobs is exceeded.
type Queue struct {
	workerCount int
	maxJobs     int

	mu         sync.RWMutex
	jobs       map[string]*TranslationJob
	dedupe     map[string]string
	started    bool
	pendingIDs chan string
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type QueueOption func(*Queue)

// WithMaxJobs bounds how many jobs are remembered.
func WithMaxJobs(n int) QueueOption {
	return func(q *Queue) {
		q.maxJobs = n
	}
}

func NewQueue(workerCount int, opts ...QueueOption) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		jobs:        make(map[string]*TranslationJob),
		dedupe:      make(map[string]string),
		pendingIDs:  make(chan string, 1024),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a job unless a pending or running job has the same dedupe
// key, in which case that job is returned with created == false.
func (q *Queue) Enqueue(req EnqueueRequest) (job *TranslationJob, created bool) {
	now := time.Now()

	q.mu.Lock()
	if id, ok := q.dedupe[req.DedupeKey]; ok {
		if existing, exists := q.jobs[id]; exists {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.dedupe, req.DedupeKey)
	}

	id := uuid.NewString()
	newJob := &TranslationJob{
		ID:        id,
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newJob.Payload.TargetLanguages = slices.Clone(req.Payload.TargetLanguages)

	q.jobs[id] = newJob
	if req.DedupeKey != "" {
		q.dedupe[req.DedupeKey] = id
	}
	started := q.started
	snapshot := cloneJob(newJob)
	q.mu.Unlock()

	log.Debug("Enqueued job %s for %s", id, req.Payload.InputPath)
	if started {
		q.enqueuePendingID(id)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns all jobs, newest first.
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Counts returns the number of jobs per status.
func (q *Queue) Counts() map[Status]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make(map[Status]int)
	for _, job := range q.jobs {
		ret[job.Status]++
	}
	return ret
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]*TranslationJob, 0)
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	q.mu.Unlock()

	for _, job := range pending {
		q.enqueuePendingID(job.ID)
	}

	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels running jobs and waits for the workers to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			result, err := exec(q.ctx, job)
			if err != nil {
				log.Error("Job %s failed: %v", id, err)
				q.finish(id, StatusFailed, result, err)
				continue
			}
			if result.Skipped {
				q.finish(id, StatusSkipped, result, nil)
				continue
			}
			q.finish(id, StatusSuccess, result, nil)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() {
			select {
			case q.pendingIDs <- id:
			case <-q.ctx.Done():
			}
		}()
	}
}

func (q *Queue) markRunning(id string) (*TranslationJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	return cloneJob(job), true
}

func (q *Queue) finish(id string, status Status, result Result, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = ""
	if err != nil {
		job.Error = err.Error()
	}
	job.OutputFiles = slices.Clone(result.OutputFiles)
	job.UpdatedAt = time.Now()
	q.releaseDedupeLocked(job)
	if pruned := q.pruneTerminalJobsLocked(); len(pruned) > 0 {
		log.Debug("Pruned %d finished jobs", len(pruned))
	}
}

func (q *Queue) releaseDedupeLocked(job *TranslationJob) {
	if job == nil || job.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[job.DedupeKey]; ok && id == job.ID {
		delete(q.dedupe, job.DedupeKey)
	}
}

func (q *Queue) pruneTerminalJobsLocked() []string {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.jobs)-q.maxJobs, len(terminal))
	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		q.releaseDedupeLocked(q.jobs[id])
		delete(q.jobs, id)
		pruned = append(pruned, id)
	}
	return pruned
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	tmp.Payload.TargetLanguages = slices.Clone(job.Payload.TargetLanguages)
	tmp.OutputFiles = slices.Clone(job.OutputFiles)
	return &tmp
}
