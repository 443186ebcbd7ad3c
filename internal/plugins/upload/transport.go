package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"time"
)

// Upload endpoints on the village API.
const (
	EndpointUpload           = "/api/v1/admin/upload"
	EndpointUploadWithNaming = "/api/v1/admin/upload-with-naming"
)

// DefaultTimeout is the per-attempt ceiling.
const DefaultTimeout = 60 * time.Second

// Transport failures. All of them are retryable by the user.
var (
	ErrNetwork       = errors.New("network error")
	ErrCancelled     = errors.New("upload was cancelled")
	ErrTimeout       = errors.New("upload timed out")
	ErrParseResponse = errors.New("failed to parse upload response")
	ErrNoToken       = errors.New("bearer token is required")
)

// StatusError is a non-200 answer from the upload endpoint.
type StatusError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return e.Message
}

// UserMessage maps a pipeline error to the text shown next to the retry
// button.
func UserMessage(err error) string {
	var se *StatusError
	var tl *TooLargeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "Upload was cancelled"
	case errors.Is(err, ErrTimeout):
		return "Upload timed out. Please try again."
	case errors.Is(err, ErrNetwork):
		return "Network error occurred during upload. Please check your connection and try again."
	case errors.Is(err, ErrParseResponse):
		return "Failed to parse upload response"
	case errors.Is(err, ErrNoToken):
		return "Your session has expired. Please sign in again."
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &tl):
		return tl.Error()
	default:
		return "Upload failed. Please try again."
	}
}

// ProgressFunc receives upload progress as a whole percentage.
type ProgressFunc func(percent int)

// Transport posts files to the upload endpoint as multipart forms.
type Transport struct {
	client  *http.Client
	timeout time.Duration
}

// NewTransport creates a transport. A nil client uses a fresh http.Client;
// a zero timeout uses DefaultTimeout. The timeout is per attempt.
func NewTransport(client *http.Client, timeout time.Duration) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{client: client, timeout: timeout}
}

// Upload sends f as the "file" field plus fields to endpoint with a bearer
// token. onProgress (may be nil) sees non-decreasing values from 0 to 100.
// Only HTTP 200 is success. There is no retry here.
func (t *Transport) Upload(ctx context.Context, f File, endpoint, token string, onProgress ProgressFunc, fields map[string]string) (*Result, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNoToken
	}

	body, contentType, total, err := multipartBody(f, fields)
	if err != nil {
		return nil, fmt.Errorf("building upload body: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	pr := &progressReader{r: body, total: total, report: onProgress}
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	pr.emit(0)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classify(ctx, attemptCtx, err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return nil, &StatusError{Status: resp.StatusCode, Message: eb.Error}
		}
		return nil, &StatusError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Upload failed with status %d", resp.StatusCode),
		}
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil || res.URL == "" {
		return nil, ErrParseResponse
	}
	pr.emit(100)
	return &res, nil
}

// classify maps a client error onto the transport sentinels. parent is the
// caller's context, attempt the one carrying the timeout.
func classify(parent, attempt context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) || errors.Is(parent.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// multipartBody lays out the form with the file last so only the file
// bytes are streamed from memory; the total length is known up front.
func multipartBody(f File, fields map[string]string) (io.Reader, string, int64, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, "", 0, err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(f.Name)))
	mime := f.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	h.Set("Content-Type", mime)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, "", 0, err
	}
	headLen := head.Len()

	if err := mw.Close(); err != nil {
		return nil, "", 0, err
	}
	all := head.Bytes()
	prefix, trailer := all[:headLen], all[headLen:]

	total := int64(len(prefix) + len(f.Data) + len(trailer))
	body := io.MultiReader(bytes.NewReader(prefix), bytes.NewReader(f.Data), bytes.NewReader(trailer))
	return body, mw.FormDataContentType(), total, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports round(read/total*100) as the client consumes the
// body. Values only ever increase.
type progressReader struct {
	r      io.Reader
	total  int64
	report ProgressFunc

	mu   sync.Mutex
	read int64
	last int
	sent bool
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		pct := 100
		if p.total > 0 {
			pct = int((p.read*100 + p.total/2) / p.total)
		}
		p.mu.Unlock()
		p.emit(pct)
	}
	return n, err
}

func (p *progressReader) emit(pct int) {
	if p.report == nil {
		return
	}
	pct = min(max(pct, 0), 100)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent && pct <= p.last {
		return
	}
	p.last, p.sent = pct, true
	p.report(pct)
}
