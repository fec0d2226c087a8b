package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"content-optimizer/internal/domain"
)

// RedisOptimizeQueue реализует очередь задач на базе Redis lists.
type RedisOptimizeQueue struct {
	client *redis.Client
	key    string
}

// NewRedisOptimizeQueue создаёт очередь по указанному ключу.
func NewRedisOptimizeQueue(client *redis.Client, key string) *RedisOptimizeQueue {
	return &RedisOptimizeQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisOptimizeQueue) Enqueue(ctx context.Context, job domain.OptimizeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisOptimizeQueue) Pop(ctx context.Context) (domain.OptimizeJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.OptimizeJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.OptimizeJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.OptimizeJob{}, err
		}
		if len(res) != 2 {
			return domain.OptimizeJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.OptimizeJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.OptimizeJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
