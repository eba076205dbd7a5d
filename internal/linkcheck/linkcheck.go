// Package linkcheck probes bookmark URLs for link rot across a bounded
// worker pool.
package linkcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConcurrency bounds the number of simultaneous probes.
	DefaultConcurrency = 15
	// DefaultTimeout is the per-probe timeout.
	DefaultTimeout = 10 * time.Second

	maxRedirects = 10
)

// Some websites return a 403 if we are honest about being a Go program,
// which makes the report inaccurate, so we present ourselves as a real
// browser. This is trivially detectable by an attentive server; the
// intent is not to get into a web-scraping war with anyone.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_4) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/83.0.4103.97 Safari/537.36"

var errRedirectLoop = errors.New("stopped after 10 redirects")

// Candidate identifies one bookmark whose URL should be probed.
type Candidate struct {
	ID   string
	Name string
	URL  string
}

// Result is the outcome of probing a single candidate: exactly one of
// success (HTTP 200), HTTP failure (any other status), or a classified
// transport failure (no status at all).
type Result struct {
	ID   string
	Name string
	URL  string

	StatusCode int    // 0 if the probe never got an HTTP status
	Reason     string // status reason text, when StatusCode is set

	// ErrorDescription classifies a transport failure, e.g. "Timed out".
	ErrorDescription string
}

// Successful reports whether the probe came back with HTTP 200.
func (r Result) Successful() bool {
	return r.StatusCode == 200
}

// String renders the result as a one-line report entry.
func (r Result) String() string {
	switch {
	case r.Successful():
		return fmt.Sprintf("[ OK ] [200] %s (%s)", r.Name, r.URL)
	case r.StatusCode != 0:
		return fmt.Sprintf("[FAIL] [%d] %s (%s)", r.StatusCode, r.Name, r.URL)
	default:
		return fmt.Sprintf("[FAIL] [ERR] %s: %s (%s)", r.ErrorDescription, r.Name, r.URL)
	}
}

// Callback receives each probe result on the calling goroutine, in
// completion order. completed counts all probes finished so far,
// including ones whose callback was suppressed.
type Callback func(completed, total int, result Result)

// Scanner checks batches of bookmark URLs concurrently.
type Scanner struct {
	client      *http.Client
	concurrency int
}

// NewScanner creates a Scanner with the default client (header-only
// requests, redirect following, fixed timeout) and concurrency ceiling.
func NewScanner() *Scanner {
	return &Scanner{
		client: &http.Client{
			Timeout:       DefaultTimeout,
			CheckRedirect: checkRedirect,
		},
		concurrency: DefaultConcurrency,
	}
}

// NewScannerWith creates a Scanner with a custom client and concurrency,
// for tests and callers with special transport needs. A client without
// its own redirect policy gets the default loop-limiting one.
func NewScannerWith(client *http.Client, concurrency int) *Scanner {
	if concurrency < 1 {
		concurrency = 1
	}
	if client.CheckRedirect == nil {
		client.CheckRedirect = checkRedirect
	}
	return &Scanner{client: client, concurrency: concurrency}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errRedirectLoop
	}
	return nil
}

type outcome struct {
	result   Result
	panicked error
}

// Scan probes every candidate and reports each completed probe through
// callback. It blocks until the whole batch completes or ctx is
// cancelled; cancellation stops waiting and abandons in-flight probes.
//
// Probe failures are always captured and classified into the Result,
// never returned as errors. Only an unanticipated failure inside a
// worker (a panic escaping the classification logic) is returned, and
// only after the batch has finished; it is never silently dropped nor
// raised mid-batch. If onlyFailures is set, callbacks for successful
// probes are suppressed, but the completed count still advances.
func (s *Scanner) Scan(ctx context.Context, candidates []Candidate,
	callback Callback, onlyFailures bool) error {

	if len(candidates) == 0 {
		return nil
	}

	// Suppress noisy HTTP client logging (protocol errors, unsolicited
	// responses, etc.)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	total := len(candidates)
	jobs := make(chan Candidate, total)
	results := make(chan outcome, total)

	for _, c := range candidates {
		jobs <- c
	}
	close(jobs)

	workers := s.concurrency
	if workers > total {
		workers = total
	}
	for w := 0; w < workers; w++ {
		go func() {
			for c := range jobs {
				results <- s.probe(ctx, c)
			}
		}()
	}

	// All aggregation happens here, on the calling goroutine.
	var deferred error
	completed := 0
	for completed < total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-results:
			completed++
			if out.panicked != nil {
				if deferred == nil {
					deferred = out.panicked
				}
				continue
			}
			if onlyFailures && out.result.Successful() {
				continue
			}
			if callback != nil {
				callback(completed, total, out.result)
			}
		}
	}
	return deferred
}

// probe checks a single candidate's URL. Anything escaping the
// classification logic is captured rather than crashing the worker.
func (s *Scanner) probe(ctx context.Context, c Candidate) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out.panicked = fmt.Errorf("probe of %s panicked: %v", c.URL, r)
		}
	}()

	result := Result{ID: c.ID, Name: c.Name, URL: c.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		result.ErrorDescription = err.Error()
		return outcome{result: result}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		result.ErrorDescription = classifyError(err)
		return outcome{result: result}
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Reason = http.StatusText(resp.StatusCode)
	return outcome{result: result}
}

// classifyError sorts a transport error into one of the anticipated
// failure categories.
func classifyError(err error) string {
	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	switch {
	case errors.As(err, &certErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostnameErr):
		return "Invalid SSL certificate"
	case errors.Is(err, errRedirectLoop):
		return "Redirect loop"
	case errors.Is(err, context.DeadlineExceeded), os.IsTimeout(err):
		return "Timed out"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "certificate"), strings.Contains(lower, "x509"):
		return "Invalid SSL certificate"
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"):
		return "Timed out"
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "network is unreachable"):
		return "Connection error"
	default:
		return err.Error()
	}
}
