// Package jobqueue provides a River-based job queue that records
// finished recommendation runs to Postgres out-of-band, so the API
// response never waits on history writes.
//
// For worker counts and retry tuning, see queue_config.go.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/crateguide/crateguide/pkg/models"
)

// HistoryRecordArgs carries one finished recommendation run to the
// worker.
type HistoryRecordArgs struct {
	ConversationID  string                  `json:"conversation_id"`
	UserID          string                  `json:"user_id"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// Kind returns the job kind for River.
func (HistoryRecordArgs) Kind() string {
	return "history_record"
}

// HistoryRecordWorker writes recommendation runs into the
// recommendation_history table.
type HistoryRecordWorker struct {
	river.WorkerDefaults[HistoryRecordArgs]
	pool *pgxpool.Pool
}

// Work persists one history entry. Failures are retried by River per
// the queue's retry policy.
func (w *HistoryRecordWorker) Work(ctx context.Context, job *river.Job[HistoryRecordArgs]) error {
	args := job.Args

	payload, err := json.Marshal(args.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}

	_, err = w.pool.Exec(ctx, `
		INSERT INTO recommendation_history (conversation_id, user_id, recommendations)
		VALUES ($1, $2, $3)`,
		args.ConversationID, args.UserID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history for conversation %s: %w", args.ConversationID, err)
	}

	log.Debug().
		Str("conversation_id", args.ConversationID).
		Int("recommendations", len(args.Recommendations)).
		Msg("Recommendation history recorded")

	return nil
}

// JobQueue manages the River client and its worker pool.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates the queue on its own pgx connection pool.
func NewJobQueue(databaseURL string) (*JobQueue, error) {
	config := GetQueueConfig()

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &HistoryRecordWorker{pool: pool})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the job queue workers.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and closes the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// Record enqueues a history-record job. It satisfies the recommendation
// pipeline's Recorder contract; the caller treats failures as
// best-effort.
func (jq *JobQueue) Record(ctx context.Context, conversationID, userID string, recs []models.Recommendation) error {
	args := HistoryRecordArgs{
		ConversationID:  conversationID,
		UserID:          userID,
		Recommendations: recs,
	}

	_, err := jq.client.Insert(ctx, args, nil)
	if err != nil {
		return fmt.Errorf("failed to queue history record job: %w", err)
	}

	return nil
}
