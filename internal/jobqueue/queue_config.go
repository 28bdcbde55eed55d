/*
Package jobqueue configuration - tunable parameters for the River job
queue.

History writes are small inserts, so the defaults favor few workers
and a short retry horizon: an entry that cannot be written within a day
is not worth recording anymore.
*/
package jobqueue

import (
	"os"
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers processing jobs.
	MaxWorkers int

	// MaxRetries is the maximum retry attempts per job.
	MaxRetries int

	// JobTimeout is the maximum time a single job can run.
	JobTimeout time.Duration

	// RetryPolicy controls retry timing.
	RetryPolicy RetryPolicy
}

// RetryPolicy defines how failed jobs are retried.
type RetryPolicy struct {
	InitialInterval time.Duration // wait before the first retry
	MaxInterval     time.Duration // cap on the wait between retries
	Multiplier      float64       // backoff factor
	MaxElapsedTime  time.Duration // total time after which retries stop
}

// DefaultQueueConfig returns the default configuration.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 4,
		MaxRetries: 10,
		JobTimeout: 30 * time.Second,
		RetryPolicy: RetryPolicy{
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Minute,
			Multiplier:      2.0,
			MaxElapsedTime:  24 * time.Hour,
		},
	}
}

// DevelopmentQueueConfig returns a configuration that fails fast for
// local runs.
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 2
	config.MaxRetries = 3
	config.RetryPolicy.MaxElapsedTime = 10 * time.Minute
	config.JobTimeout = 10 * time.Second
	return config
}

// GetQueueConfig returns the configuration for the current environment.
func GetQueueConfig() *QueueConfig {
	if os.Getenv("CRATEGUIDE_ENV") == "development" {
		return DevelopmentQueueConfig()
	}
	return DefaultQueueConfig()
}

// RiverQueueConfig converts our config to River's queue configuration
// format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
