package upload

import (
	"context"
	"sync"
	"time"

	"github.com/siddesa/portal/internal/plugins/auth"
)

// Job is one upload from file selection to the owning record. It lives in
// the Registry until its success is shown, it is cancelled or it expires.
type Job struct {
	ID      string
	Kind    Kind
	Owner   auth.Identity
	tracker *Tracker

	mu                 sync.Mutex
	original           File
	compressionEnabled bool
	compressed         *Compressed
	compressDone       chan struct{}
	stopCompress       context.CancelFunc
	notice             string
	warning            string
	details            Details
	result             *Result
	recordID           uint64
	submitting         bool
	cancel             context.CancelFunc
	updatedAt          time.Time

	// compressionRequested is the user's toggle. It stays true for files
	// the compressor skips, such as videos.
	compressionRequested bool
}

func newJob(id string, kind Kind, owner auth.Identity, f File, compression bool, now time.Time) *Job {
	return &Job{
		ID:                 id,
		Kind:               kind,
		Owner:              owner,
		tracker:            NewTracker(),
		original:           f,
		compressionEnabled: compression,
		updatedAt:          now,
	}
}

// Tracker returns the step machine of the job.
func (j *Job) Tracker() *Tracker {
	return j.tracker
}

func (j *Job) touch() {
	j.mu.Lock()
	j.updatedAt = time.Now()
	j.mu.Unlock()
}

// file returns what the transport should send: the compression output
// when there is one, else the original.
func (j *Job) file() File {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.compressed != nil {
		return j.compressed.File
	}
	return j.original
}

func (j *Job) setCompressed(c Compressed) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.compressed = &c
	if c.FellBack {
		j.notice = "Kompresi gagal, file asli akan digunakan."
	}
}

// waitCompression blocks until a running compression finishes or ctx is
// done.
func (j *Job) waitCompression(ctx context.Context) error {
	j.mu.Lock()
	done := j.compressDone
	j.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finishSubmit clears the submission flag once the pipeline returns.
func (j *Job) finishSubmit() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.submitting = false
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
	j.updatedAt = time.Now()
}

// stop cancels any compression or submission in flight.
func (j *Job) stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopCompress != nil {
		j.stopCompress()
	}
	if j.cancel != nil {
		j.cancel()
	}
}

// idleSince reports whether the job has not changed since cutoff and has
// nothing in flight.
func (j *Job) idleSince(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.submitting && j.updatedAt.Before(cutoff)
}

// Status builds the polling view.
func (j *Job) Status() *Status {
	st := j.tracker.State()

	j.mu.Lock()
	defer j.mu.Unlock()

	name, extra := j.details.PreviewContext(j.Kind)
	s := &Status{
		ID:                 j.ID,
		Kind:               j.Kind,
		Step:               st.Step,
		Progress:           st.Progress,
		Error:              st.Err,
		FileName:           j.original.Name,
		FileSize:           j.original.Size(),
		MIME:               j.original.MIME,
		CompressionEnabled: j.compressionEnabled,
		Notice:             j.notice,
		Warning:            j.warning,
		RecordID:           j.recordID,
		Submitting:         j.submitting,
		UpdatedAt:          j.updatedAt,
	}
	if name != "" || j.Kind == KindLogo || j.Kind == KindStruktur {
		s.Preview = Preview(name, j.Kind, extra)
	}
	if j.compressed != nil {
		s.Compression = j.compressed.Report()
	}
	if j.result != nil {
		r := *j.result
		s.Result = &r
	}
	return s
}
