package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/metrics"
	"github.com/siddesa/portal/internal/plugins/audit"
	"github.com/siddesa/portal/internal/plugins/auth"
)

// Size thresholds for uploads sent without compression.
const (
	DefaultHardLimit = 5 << 20
	DefaultWarnSize  = 2 << 20
)

// Outcome labels recorded in metrics.
const (
	outcomeSuccess        = "success"
	outcomeTransportError = "transport_error"
	outcomeRecordError    = "record_error"
	outcomeRejected       = "rejected"
	outcomeCancelled      = "cancelled"
)

// TooLargeError rejects a file above the hard ceiling, sent with the
// compression toggle off, before any network call.
type TooLargeError struct {
	Size  int64
	Limit int64
	Video bool
}

// Error implements the error interface.
func (e *TooLargeError) Error() string {
	if e.Video {
		return fmt.Sprintf("Video is too large (%s). With compression turned off the limit is %s; turn compression on to send the video as is, or choose a smaller file.",
			FormatFileSize(e.Size), FormatFileSize(e.Limit))
	}
	return fmt.Sprintf("File is too large (%s). Files sent without compression must be at most %s; enable compression or choose a smaller file.",
		FormatFileSize(e.Size), FormatFileSize(e.Limit))
}

// CheckSize applies the hard ceiling to a file sent with the compression
// toggle off. With the toggle on, every size is accepted.
func CheckSize(f File, compression bool, limit int64) error {
	if compression || f.Size() <= limit {
		return nil
	}
	return &TooLargeError{Size: f.Size(), Limit: limit, Video: f.IsVideo()}
}

// ActivityLogger records upload outcomes.
type ActivityLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

// Config holds the pipeline settings.
type Config struct {
	// APIBaseURL is prefixed to the upload endpoints.
	APIBaseURL string

	// HardLimit is the largest file accepted with compression disabled.
	HardLimit int64

	// WarnSize raises a warning for uncompressed files above it.
	WarnSize int64
}

// Selection is a newly chosen file.
type Selection struct {
	Kind        Kind
	Name        string
	Data        []byte
	Compression bool

	// Options overrides the compressor defaults. May be nil.
	Options *CompressOptions
}

// Service runs uploads for signed-in users.
type Service interface {
	// Select sniffs the file, checks the kind against the user's role and
	// starts compression in the background when enabled.
	Select(ctx context.Context, id *auth.Identity, sel Selection) (*Status, error)

	// Status returns the polling view of a job.
	Status(id *auth.Identity, jobID string) (*Status, error)

	// Submit validates d, applies the size ceiling and starts the transfer
	// and record call in the background. The request context only
	// contributes values; DELETE cancels.
	Submit(ctx context.Context, id *auth.Identity, token, jobID string, d Details) (*Status, error)

	// Run is Submit that waits for the pipeline to finish.
	Run(ctx context.Context, id *auth.Identity, token, jobID string, d Details) (*Status, error)

	// Retry moves a failed job back to idle. A file that already reached
	// the API is not sent again.
	Retry(id *auth.Identity, jobID string) (*Status, error)

	// Cancel stops work in flight and discards the job.
	Cancel(id *auth.Identity, jobID string) error

	// Finish discards a job that reached success.
	Finish(id *auth.Identity, jobID string) error
}

type service struct {
	cfg        Config
	registry   *Registry
	compressor *Compressor
	transport  *Transport
	submitter  RecordSubmitter
	activity   ActivityLogger
}

// NewService creates the upload service.
func NewService(cfg Config, registry *Registry, compressor *Compressor, transport *Transport, submitter RecordSubmitter, activity ActivityLogger) Service {
	if cfg.HardLimit <= 0 {
		cfg.HardLimit = DefaultHardLimit
	}
	if cfg.WarnSize <= 0 {
		cfg.WarnSize = DefaultWarnSize
	}
	if activity == nil {
		activity = audit.Discard{}
	}
	return &service{
		cfg:        cfg,
		registry:   registry,
		compressor: compressor,
		transport:  transport,
		submitter:  submitter,
		activity:   activity,
	}
}

// Select registers a job for the chosen file.
func (s *service) Select(ctx context.Context, id *auth.Identity, sel Selection) (*Status, error) {
	if id == nil {
		return nil, apperror.NewUnauthorized("sign in to upload files")
	}
	if !sel.Kind.AllowedFor(id) {
		return nil, apperror.NewForbidden("Anda tidak memiliki akses untuk jenis unggahan ini.")
	}
	if len(sel.Data) == 0 {
		return nil, apperror.NewBadRequest("Pilih file terlebih dahulu.")
	}

	f := NewFile(sel.Name, sel.Data)
	if sel.Kind == KindLogo && !IsLogoFormat(sel.Data) {
		return nil, apperror.NewValidation("Logo harus berformat PNG atau SVG.")
	}
	if !f.IsImage() && !f.IsVideo() {
		return nil, apperror.NewValidation(fmt.Sprintf("Tipe file %s tidak didukung.", f.MIME))
	}

	// Videos and formats the compressor cannot decode are always sent as is.
	compression := sel.Compression && f.Compressible()

	j := newJob(s.registry.NewID(), sel.Kind, *id, f, compression, s.registry.now())
	j.compressionRequested = sel.Compression
	j.tracker.Subscribe(metricsObserver)
	j.tracker.Subscribe(logObserver(j.ID))
	j.tracker.Subscribe(func(Transition) { j.touch() })

	if !sel.Compression && f.Size() > s.cfg.WarnSize {
		j.warning = fmt.Sprintf("File berukuran %s tanpa kompresi; unggahan mungkin lambat.", FormatFileSize(f.Size()))
	}
	if sel.Compression && !compression && f.IsVideo() {
		j.notice = "Video tidak dikompresi."
	}

	s.registry.Add(j)

	if compression {
		s.startCompression(ctx, j, sel.Options)
	}
	return j.Status(), nil
}

// startCompression runs the compressor in its own goroutine. The job goes
// compressing -> idle whether compression succeeded or fell back.
func (s *service) startCompression(ctx context.Context, j *Job, opts *CompressOptions) {
	cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	j.mu.Lock()
	j.compressDone = done
	j.stopCompress = cancel
	j.mu.Unlock()

	_ = j.tracker.StartCompressing()

	go func() {
		defer close(done)
		defer cancel()

		res := s.compressor.Compress(cctx, j.original, opts)
		if res.Err != nil {
			slog.Warn("compression failed, using original",
				slog.String("job", j.ID),
				slog.String("file", j.original.Name),
				slog.Any("error", res.Err),
			)
		}
		metrics.RecordCompression(res.Savings, res.FellBack)
		j.setCompressed(res)
		_ = j.tracker.FinishCompressing()
	}()
}

// Status returns the polling view of a job.
func (s *service) Status(id *auth.Identity, jobID string) (*Status, error) {
	j, err := s.job(id, jobID)
	if err != nil {
		return nil, err
	}
	return j.Status(), nil
}

func (s *service) job(id *auth.Identity, jobID string) (*Job, error) {
	if id == nil {
		return nil, apperror.NewUnauthorized("sign in to upload files")
	}
	return s.registry.Get(id.UserID, jobID)
}

// Submit starts the pipeline in the background.
func (s *service) Submit(ctx context.Context, id *auth.Identity, token, jobID string, d Details) (*Status, error) {
	j, pctx, err := s.begin(ctx, id, jobID, d)
	if err != nil {
		return nil, err
	}
	go func() {
		_ = s.process(pctx, j, token)
	}()
	return j.Status(), nil
}

// Run executes the pipeline and returns the final status. A pipeline
// failure is returned together with the status.
func (s *service) Run(ctx context.Context, id *auth.Identity, token, jobID string, d Details) (*Status, error) {
	j, pctx, err := s.begin(ctx, id, jobID, d)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, j.stop)
	defer stop()

	err = s.process(pctx, j, token)
	return j.Status(), err
}

// begin validates a submission and marks the job as submitting.
func (s *service) begin(ctx context.Context, id *auth.Identity, jobID string, d Details) (*Job, context.Context, error) {
	j, err := s.job(id, jobID)
	if err != nil {
		return nil, nil, err
	}

	d = d.trimmed()
	if err := validateDetails(j.Kind, d); err != nil {
		return nil, nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.submitting {
		return nil, nil, apperror.NewConflict("Unggahan sedang diproses.")
	}
	switch j.tracker.State().Step {
	case StepSuccess:
		return nil, nil, apperror.NewConflict("Unggahan ini sudah selesai.")
	case StepError:
		return nil, nil, apperror.NewConflict("Coba ulang unggahan terlebih dahulu.")
	}

	if j.result == nil {
		if err := CheckSize(j.original, j.compressionRequested, s.cfg.HardLimit); err != nil {
			metrics.RecordUpload(string(j.Kind), outcomeRejected)
			ae := apperror.NewPayloadTooLarge(err.Error())
			ae.Internal = err
			return nil, nil, ae
		}
	}

	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j.details = d
	j.submitting = true
	j.cancel = cancel
	return j, pctx, nil
}

// process runs transport and record call for j. Failures land in the
// tracker; the returned error is for synchronous callers.
func (s *service) process(ctx context.Context, j *Job, token string) error {
	defer j.finishSubmit()

	if err := j.waitCompression(ctx); err != nil {
		metrics.RecordUpload(string(j.Kind), outcomeCancelled)
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	j.mu.Lock()
	d := j.details
	prev := j.result
	j.mu.Unlock()
	f := j.file()

	if err := j.tracker.StartUploading(); err != nil {
		return err
	}

	var res *Result
	if prev != nil {
		res = prev
		j.tracker.SetProgress(100)
	} else {
		r, err := s.transport.Upload(ctx, f, Endpoint(s.cfg.APIBaseURL, j.Kind), token, j.tracker.SetProgress, NamingFields(j.Kind, d))
		if err != nil {
			msg := UserMessage(err)
			_ = j.tracker.Fail(msg)

			outcome := outcomeTransportError
			if errors.Is(err, ErrCancelled) {
				outcome = outcomeCancelled
			}
			metrics.RecordUpload(string(j.Kind), outcome)
			metrics.RecordError("upload.transport", outcome)
			slog.Warn("upload transport failed",
				slog.String("job", j.ID),
				slog.String("kind", string(j.Kind)),
				slog.Any("error", err),
			)
			s.logActivity(ctx, j, audit.ActionUploadFailed, f, nil, map[string]any{"error": msg})
			return err
		}
		res = r

		j.mu.Lock()
		j.result = r
		j.mu.Unlock()
	}

	if err := j.tracker.StartProcessing(); err != nil {
		return err
	}

	recordID, err := s.submitter.Submit(ctx, Submission{
		Kind:    j.Kind,
		Token:   token,
		Details: d,
		Result:  *res,
		File:    f,
	})
	if err != nil {
		msg := recordMessage(err)
		_ = j.tracker.Fail(msg)

		metrics.RecordUpload(string(j.Kind), outcomeRecordError)
		metrics.RecordError("upload.record", string(j.Kind))
		slog.Warn("file uploaded but record not saved",
			slog.String("job", j.ID),
			slog.String("kind", string(j.Kind)),
			slog.String("url", res.URL),
			slog.Any("error", err),
		)
		s.logActivity(ctx, j, audit.ActionUploadOrphaned, f, res, map[string]any{"error": msg})
		return err
	}

	j.mu.Lock()
	j.recordID = recordID
	j.mu.Unlock()
	_ = j.tracker.Succeed()

	metrics.RecordUpload(string(j.Kind), outcomeSuccess)
	slog.Info("upload completed",
		slog.String("job", j.ID),
		slog.String("kind", string(j.Kind)),
		slog.String("url", res.URL),
		slog.Uint64("record_id", recordID),
	)
	s.logActivity(ctx, j, audit.ActionUploadSucceeded, f, res, nil)
	return nil
}

// Endpoint returns the upload URL for kind k under the API at baseURL.
func Endpoint(baseURL string, k Kind) string {
	path := EndpointUpload
	if k.NamingAware() {
		path = EndpointUploadWithNaming
	}
	return strings.TrimRight(baseURL, "/") + path
}

// logActivity writes an activity entry. Failures are logged and dropped.
func (s *service) logActivity(ctx context.Context, j *Job, action string, f File, res *Result, extra map[string]any) {
	owner := j.Owner
	entry := audit.EntryFor(&owner, action)
	entry.Kind = string(j.Kind)
	entry.Subject = f.Name
	entry.Details = map[string]any{"size": f.Size(), "mime": f.MIME}
	if res != nil {
		entry.Details["url"] = res.URL
		if res.Filename != "" {
			entry.Details["filename"] = res.Filename
		}
	}
	for k, v := range extra {
		entry.Details[k] = v
	}
	if err := s.activity.Log(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("failed to record upload activity", slog.String("job", j.ID), slog.Any("error", err))
	}
}

// recordMessage is the user text for a failed record call. The file is
// already stored, so the message says so.
func recordMessage(err error) string {
	var ae *apperror.AppError
	var api *apiclient.APIError
	detail := "terjadi kesalahan"
	switch {
	case errors.As(err, &ae):
		detail = ae.Message
	case errors.As(err, &api):
		detail = api.Message
	}
	return "File sudah terunggah, tetapi data gagal disimpan: " + detail
}

// Retry resets a failed job.
func (s *service) Retry(id *auth.Identity, jobID string) (*Status, error) {
	j, err := s.job(id, jobID)
	if err != nil {
		return nil, err
	}
	if err := j.tracker.Retry(); err != nil {
		return nil, apperror.NewConflict("Hanya unggahan yang gagal yang dapat diulang.")
	}
	return j.Status(), nil
}

// Cancel stops and discards a job.
func (s *service) Cancel(id *auth.Identity, jobID string) error {
	j, err := s.job(id, jobID)
	if err != nil {
		return err
	}
	s.registry.Remove(j.ID)
	return nil
}

// Finish removes a succeeded job from the registry.
func (s *service) Finish(id *auth.Identity, jobID string) error {
	j, err := s.job(id, jobID)
	if err != nil {
		return err
	}
	if j.tracker.State().Step != StepSuccess {
		return apperror.NewConflict("Unggahan belum selesai.")
	}
	s.registry.Remove(j.ID)
	return nil
}

// metricsObserver records the time spent in each step.
func metricsObserver(t Transition) {
	if t.From != t.To {
		metrics.RecordStep(string(t.From), t.Elapsed)
	}
}

// logObserver logs step changes at debug level.
func logObserver(jobID string) Observer {
	return func(t Transition) {
		if t.From == t.To {
			return
		}
		slog.Debug("upload step",
			slog.String("job", jobID),
			slog.String("from", string(t.From)),
			slog.String("to", string(t.To)),
			slog.Int("progress", t.Progress),
			slog.String("error", t.Err),
		)
	}
}
