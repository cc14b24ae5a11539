package ports

import "context"

// Job is one unit of work submitted to a named stream. Payload is the
// job-specific body (e.g. a sync action); AttemptsMade is incremented by
// the broker on each redelivery.
type Job struct {
	ID           string
	Payload      []byte
	AttemptsMade int
}

// JobHandler processes one Job. Returning an error causes the broker to
// redeliver the job (subject to backoff and MaxAttempts) rather than ack it.
type JobHandler func(ctx context.Context, job Job) error

// ProcessOptions configures a worker pool registered against a stream.
type ProcessOptions struct {
	Concurrency int
	MaxAttempts int
}

// JobQueue is the durable, at-least-once delivery broker port (C2). It is
// modeled directly on go-micro's events.Stream Publish/Consume pair, since
// that is the interface the teacher's NATS JetStream adapter already
// implements.
type JobQueue interface {
	// Submit enqueues payload onto streamName. Called after the originating
	// transaction commits (outbox fan-out) — never before.
	Submit(ctx context.Context, streamName string, payload []byte) error

	// ProcessJobs registers a worker pool consuming streamName. It blocks
	// until ctx is cancelled.
	ProcessJobs(ctx context.Context, streamName string, handler JobHandler, opts ProcessOptions) error
}
