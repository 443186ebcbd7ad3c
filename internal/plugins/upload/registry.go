package upload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siddesa/portal/internal/apperror"
)

// DefaultJobTTL is how long an untouched job is kept.
const DefaultJobTTL = 30 * time.Minute

// Registry holds in-flight jobs in memory, keyed by ID.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewRegistry creates an empty registry. A zero ttl uses DefaultJobTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &Registry{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

// NewID returns a fresh job ID.
func (r *Registry) NewID() string {
	return uuid.NewString()
}

// Add stores j.
func (r *Registry) Add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

// Get returns the job with id owned by userID. Jobs of other users are
// reported as not found.
func (r *Registry) Get(userID uint64, id string) (*Job, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok || j.Owner.UserID != userID {
		return nil, apperror.NewNotFound("upload not found")
	}
	return j, nil
}

// Remove deletes the job with id and stops its work.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	delete(r.jobs, id)
	r.mu.Unlock()
	if ok {
		j.stop()
	}
}

// Len returns the number of jobs held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Sweep drops jobs idle for longer than the TTL and returns how many were
// removed. Jobs with a submission in flight are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Job
	for id, j := range r.jobs {
		if j.idleSince(cutoff) {
			expired = append(expired, j)
			delete(r.jobs, id)
		}
	}
	r.mu.Unlock()

	for _, j := range expired {
		j.stop()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Debug("expired upload jobs removed", slog.Int("count", n))
			}
		}
	}
}
