package httpclient

import (
	"fmt"
	"net/http"
	"sync"
)

// StatusError attaches the HTTP status of a failed exchange to an error.
type StatusError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the recorded HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }

// StatusRecorder remembers the most recent HTTP error status seen by the
// transports it wraps. It is safe for concurrent use.
type StatusRecorder struct {
	mu   sync.Mutex
	code int
}

// Wrap returns a RoundTripper that records 4xx/5xx statuses into r.
func (r *StatusRecorder) Wrap(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &recordingTransport{base: base, rec: r}
}

// Status returns the last recorded error status, or 0.
func (r *StatusRecorder) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

// WrapError returns err as a *StatusError when an error status was recorded.
func (r *StatusRecorder) WrapError(err error) error {
	if err == nil {
		return nil
	}
	if code := r.Status(); code != 0 {
		return &StatusError{Code: code, Err: err}
	}
	return err
}

func (r *StatusRecorder) record(code int) {
	r.mu.Lock()
	r.code = code
	r.mu.Unlock()
}

type recordingTransport struct {
	base http.RoundTripper
	rec  *StatusRecorder
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode >= 400 {
		t.rec.record(resp.StatusCode)
	}
	return resp, err
}
