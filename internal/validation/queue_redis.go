package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue moves validation jobs through a Redis list. LPUSH on submit,
// BRPOP in the worker; jobs survive a worker restart as long as Redis does.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "regportal:validation:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal validation job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue validation job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job arrives or ctx is cancelled. The short BRPOP
// timeout keeps the loop responsive to cancellation.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		result, err := q.client.BRPop(ctx, 2*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if ctx.Err() != nil {
					return Job{}, ctx.Err()
				}
				continue
			}
			return Job{}, fmt.Errorf("dequeue validation job: %w", err)
		}
		// BRPop returns [key, value].
		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return Job{}, fmt.Errorf("unmarshal validation job: %w", err)
		}
		return job, nil
	}
}
