package jobs

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// FIFO is an unbounded, concurrency-safe first-in first-out job queue.
// Producers never block and jobs are never dropped; the consumer polls with
// TryDequeue. Enqueue order is preserved.
type FIFO struct {
	name   string
	logger *zap.Logger

	mu   sync.Mutex
	jobs []Job
}

// NewFIFO builds an empty queue.
func NewFIFO(name string, logger *zap.Logger) *FIFO {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FIFO{name: name, logger: logger}
}

// Enqueue appends a job to the tail of the queue.
func (q *FIFO) Enqueue(job Job) {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	q.logger.Sugar().Debugw("job enqueued", "queue", q.name, "job_id", job.ID, "type", job.Type, "depth", depth)
}

// TryDequeue pops the head of the queue. It returns false when the queue is
// empty; it never blocks.
func (q *FIFO) TryDequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	// Shift rather than re-slice so consumed entries are released.
	copy(q.jobs, q.jobs[1:])
	q.jobs[len(q.jobs)-1] = Job{}
	q.jobs = q.jobs[:len(q.jobs)-1]
	return job, true
}

// Len reports the current queue depth.
func (q *FIFO) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
