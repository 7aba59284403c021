package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skinny-studio-backend/internal/models"
)

const pollQueueKey = "queue:generation-poll"

// Queue is the Redis-backed poll-job queue shared by the generation
// endpoint (producer) and the worker pool (consumer).
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) Enqueue(ctx context.Context, job models.PollJob) error {
	job.EnqueuedAt = time.Now()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode poll job: %w", err)
	}
	return q.redis.LPush(ctx, pollQueueKey, data).Err()
}

// Dequeue blocks up to timeout for the next job. A zero job and false means
// the wait timed out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (models.PollJob, bool, error) {
	result, err := q.redis.BLPop(ctx, timeout, pollQueueKey).Result()
	if err != nil {
		if err == redis.Nil {
			return models.PollJob{}, false, nil
		}
		return models.PollJob{}, false, err
	}
	if len(result) < 2 {
		return models.PollJob{}, false, nil
	}

	var job models.PollJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return models.PollJob{}, false, fmt.Errorf("failed to parse poll job: %w", err)
	}
	return job, true, nil
}
