package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"skinny-studio-backend/internal/models"
	"skinny-studio-backend/internal/repository"
	"skinny-studio-backend/internal/services"
)

const (
	pollInterval = 3 * time.Second
	pollDeadline = 10 * time.Minute
)

// Pool polls pending Replicate predictions to completion. The generation
// endpoint returns a pending id immediately; a worker here drives the job
// row to its terminal state and pushes the result over the user's
// WebSocket channel.
type Pool struct {
	queue       *Queue
	redis       *redis.Client
	replicate   *services.ReplicateClient
	genRepo     *repository.GenerationRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(queue *Queue, redisClient *redis.Client, replicate *services.ReplicateClient, genRepo *repository.GenerationRepo, workerCount int) *Pool {
	return &Pool{
		queue:       queue,
		redis:       redisClient,
		replicate:   replicate,
		genRepo:     genRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d poll worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		job, ok, err := p.queue.Dequeue(ctx, 30*time.Second)
		if err != nil {
			log.Printf("Worker %d: dequeue failed: %v", id, err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		// One worker per generation
		lockKey := fmt.Sprintf("poll_lock:%s", job.GenerationID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", pollDeadline).Result()
		if err != nil || !locked {
			continue
		}

		log.Printf("Worker %d: polling generation %s (prediction %s)", id, job.GenerationID, job.PredictionID)
		p.pollToCompletion(ctx, job)
		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) pollToCompletion(ctx context.Context, job models.PollJob) {
	deadline := time.Now().Add(pollDeadline)

	for {
		if time.Now().After(deadline) {
			p.finish(ctx, job, models.GenerationUpdate{
				GenerationID: job.GenerationID,
				Status:       models.GenerationFailed,
				Error:        "generation timed out",
			})
			return
		}

		pred, err := p.replicate.GetPrediction(ctx, job.PredictionID)
		if err != nil {
			log.Printf("poll of prediction %s failed: %v", job.PredictionID, err)
			time.Sleep(pollInterval)
			continue
		}

		if !pred.Terminal() {
			time.Sleep(pollInterval)
			continue
		}

		update := models.GenerationUpdate{GenerationID: job.GenerationID}
		if pred.Status == "succeeded" && len(pred.OutputURLs()) > 0 {
			update.Status = models.GenerationSucceeded
			update.OutputURLs = pred.OutputURLs()
		} else {
			update.Status = models.GenerationFailed
			update.Error = "generation failed on the provider"
			if pred.Error != nil && *pred.Error != "" {
				update.Error = *pred.Error
			}
		}

		p.finish(ctx, job, update)
		return
	}
}

func (p *Pool) finish(ctx context.Context, job models.PollJob, update models.GenerationUpdate) {
	var err error
	if update.Status == models.GenerationSucceeded {
		err = p.genRepo.MarkSucceeded(ctx, job.GenerationID, update.OutputURLs)
	} else {
		err = p.genRepo.MarkFailed(ctx, job.GenerationID, update.Error)
	}
	if err != nil {
		log.Printf("failed to update generation %s: %v", job.GenerationID, err)
	}

	msg, err := json.Marshal(models.WSMessage{Type: "generation_update", Payload: update})
	if err != nil {
		return
	}
	channel := "user_updates:" + job.UserID.String()
	if err := p.redis.Publish(ctx, channel, msg).Err(); err != nil {
		log.Printf("failed to publish update for generation %s: %v", job.GenerationID, err)
	}
}
