package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tigermeter/config"
	claimRepo "tigermeter/database/repository/claim"
	pendingRepo "tigermeter/database/repository/pending"
	"tigermeter/models"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeExpiredSweep = "claims:sweep"

// sweepInterval is how often a sweep task is enqueued. Expiry is a
// read-time predicate everywhere in the API, so the sweep only trims
// dead rows; nothing depends on it running.
const sweepInterval = 15 * time.Minute

// processedRetention keeps decided pending-device rows around long
// enough for admins to audit recent approvals.
const processedRetention = 7 * 24 * time.Hour

// InitSweepWorker runs the async sweep worker and its enqueuer in background.
func InitSweepWorker(claims claimRepo.ClaimRepository, pendings pendingRepo.PendingDeviceRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpiredSweep, handleSweepTask(claims, pendings))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Periodically enqueue sweep tasks.
	go enqueueSweeps(redisOpts)

	// Start async worker with retry logic
	go func() {
		log.Println("[SweepWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// enqueueSweeps submits a sweep task every sweepInterval.
func enqueueSweeps(redisOpts asynq.RedisClientOpt) {
	client := asynq.NewClient(redisOpts)
	defer client.Close()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		payload, err := json.Marshal(models.SweepPayload{RequestedAt: time.Now().UnixMilli()})
		if err != nil {
			log.Printf("[SweepWorker] Failed to marshal sweep payload: %v", err)
			continue
		}
		if _, err := client.Enqueue(asynq.NewTask(TypeExpiredSweep, payload)); err != nil {
			log.Printf("[SweepWorker] Failed to enqueue sweep task: %v", err)
		}
	}
}

func handleSweepTask(claims claimRepo.ClaimRepository, pendings pendingRepo.PendingDeviceRepository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.SweepPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[SweepHandler] Invalid payload: %v", err)
			return err
		}

		now := time.Now()
		removedClaims, err := claims.DeleteExpired(now)
		if err != nil {
			log.Printf("[SweepHandler] Failed to sweep expired claims: %v", err)
			return err
		}

		removedPendings, err := pendings.DeleteProcessed(now.Add(-processedRetention))
		if err != nil {
			log.Printf("[SweepHandler] Failed to sweep processed pending devices: %v", err)
			return err
		}

		if removedClaims > 0 || removedPendings > 0 {
			log.Printf("[SweepHandler] Swept %d expired claims, %d processed pending devices", removedClaims, removedPendings)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SweepWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
