package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eminence/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PushOutboxKey is the Redis list the push sender consumes.
const PushOutboxKey = "push:outbox"

// MulticastLimit is the most tokens one push job addresses.
const MulticastLimit = 500

// Push job kinds.
const (
	PushKindLike   = "like"
	PushKindReply  = "reply"
	PushKindDigest = "daily_digest"
)

// ErrQueueEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("push queue empty")

// PushJob is one message for the external push sender.
type PushJob struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	UserID    string            `json:"userId,omitempty"`
	Tokens    []string          `json:"tokens"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PushQueue is a FIFO of push jobs on a Redis list.
type PushQueue struct {
	rdb *redis.Client
	key string
}

// NewPushQueue creates a queue on PushOutboxKey. A nil client makes every
// enqueue a no-op.
func NewPushQueue(rdb *redis.Client) *PushQueue {
	return &PushQueue{rdb: rdb, key: PushOutboxKey}
}

// Enqueue appends a job, filling in its ID and timestamp.
func (q *PushQueue) Enqueue(ctx context.Context, job PushJob) error {
	if q == nil || q.rdb == nil {
		return nil
	}
	if len(job.Tokens) == 0 {
		return nil
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal push job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("enqueue push job: %w", err)
	}
	observability.PushJobsEnqueued.WithLabelValues(job.Kind).Inc()
	return nil
}

// EnqueueMulticast splits tokens into jobs of at most MulticastLimit and
// returns how many jobs were written.
func (q *PushQueue) EnqueueMulticast(ctx context.Context, job PushJob) (int, error) {
	if q == nil || q.rdb == nil {
		return 0, nil
	}
	written := 0
	for _, chunk := range ChunkTokens(job.Tokens, MulticastLimit) {
		part := job
		part.ID = ""
		part.Tokens = chunk
		if err := q.Enqueue(ctx, part); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Dequeue pops the oldest job, waiting up to timeout.
func (q *PushQueue) Dequeue(ctx context.Context, timeout time.Duration) (PushJob, error) {
	if q == nil || q.rdb == nil {
		return PushJob{}, ErrQueueEmpty
	}
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return PushJob{}, ErrQueueEmpty
	}
	if err != nil {
		return PushJob{}, err
	}
	var job PushJob
	// BRPOP answers [key, value]
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return PushJob{}, fmt.Errorf("decode push job: %w", err)
	}
	return job, nil
}

// Len returns the number of queued jobs.
func (q *PushQueue) Len(ctx context.Context) (int64, error) {
	if q == nil || q.rdb == nil {
		return 0, nil
	}
	return q.rdb.LLen(ctx, q.key).Result()
}

// ChunkTokens splits tokens into consecutive slices of at most size.
func ChunkTokens(tokens []string, size int) [][]string {
	if size <= 0 {
		size = MulticastLimit
	}
	var out [][]string
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		out = append(out, tokens[start:end])
	}
	return out
}
