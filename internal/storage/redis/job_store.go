// Package redis stores crawl job metadata in Redis so job status survives
// restarts and can be shared between API replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
	"github.com/JakeFAU/sitesearch-crawler/internal/storage/memory"
)

const defaultPrefix = "crawl:job:"

// Config locates the Redis server.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	// TTL expires job records; zero keeps them forever.
	TTL time.Duration
}

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// JobStore implements crawler.JobStore on Redis string keys holding JSON.
type JobStore struct {
	client client
	prefix string
	ttl    time.Duration
}

// New connects a JobStore to Redis.
func New(cfg Config) (*JobStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	return newJobStore(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg), nil
}

func newJobStore(c client, cfg Config) *JobStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &JobStore{client: c, prefix: prefix, ttl: cfg.TTL}
}

// Ping checks the connection.
func (s *JobStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *JobStore) Close() error {
	return s.client.Close()
}

// CreateJob stores a new job; an existing ID is an error.
func (s *JobStore) CreateJob(ctx context.Context, job crawler.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.prefix+job.ID, payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", crawler.ErrJobExists, job.ID)
	}
	return nil
}

// UpdateJobStatus rewrites the job record with the new status.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status crawler.JobStatus,
	errText string,
	summary *crawler.RunSummary,
) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	memory.ApplyStatus(&job, status, errText, summary, time.Now().UTC())
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+jobID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return nil
}

// GetJob reads the job record.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (crawler.Job, error) {
	val, err := s.client.Get(ctx, s.prefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return crawler.Job{}, crawler.ErrJobNotFound
		}
		return crawler.Job{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	var job crawler.Job
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return crawler.Job{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return job, nil
}
