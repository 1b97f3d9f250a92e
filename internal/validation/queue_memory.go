package validation

import "context"

// ChannelQueue is the in-process queue for tests and single-node deployments
// without Redis.
type ChannelQueue struct {
	jobs chan Job
}

func NewChannelQueue(buffer int) *ChannelQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelQueue{jobs: make(chan Job, buffer)}
}

func (q *ChannelQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChannelQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Len reports the number of queued jobs, for tests and metrics.
func (q *ChannelQueue) Len() int { return len(q.jobs) }
