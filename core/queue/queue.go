// Package queue wires asynq to the shared Redis.
package queue

import (
	"context"
	"fmt"
	"os"

	"orgsync-api/core/config"
	"orgsync-api/core/constants"
	"orgsync-api/core/logger"

	"github.com/hibiken/asynq"
)

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client enqueues tasks on the calendar sync queue. Tasks are never retried.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(redisOpt(cfg))}
}

// Enqueue applies the queue defaults before opts, so callers can override them.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	defaults := []asynq.Option{
		asynq.Queue(constants.QueueCalendarSync),
		asynq.MaxRetry(0),
		asynq.Timeout(constants.SyncTaskTimeout),
	}
	info, err := c.client.EnqueueContext(ctx, task, append(defaults, opts...)...)
	if err != nil {
		logger.Error("Queue:Enqueue:Error", "error", err, "type", task.Type())
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	logger.Info("Queue:Enqueue:Success", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return info, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// NewServer builds the worker that consumes the calendar sync queue.
func NewServer(cfg config.RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = constants.WorkerConcurrency
	}
	return asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{constants.QueueCalendarSync: 1},
		Logger:      asynqLogger{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Queue:Task:Error", "type", task.Type(), "error", err)
		}),
	})
}

// asynqLogger routes asynq's own logging through the application logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug("Queue:Asynq", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info("Queue:Asynq", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn("Queue:Asynq", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error("Queue:Asynq", "msg", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) {
	logger.Error("Queue:Asynq:Fatal", "msg", fmt.Sprint(args...))
	os.Exit(1)
}
