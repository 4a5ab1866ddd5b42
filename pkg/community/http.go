package community

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/httputil"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/observability"
)

// DetectPath is the detection endpoint, relative to the service base URL.
const DetectPath = "/history/analyze/communities"

// HTTPDetector calls a remote detection service.
type HTTPDetector struct {
	base     string
	http     *http.Client
	attempts int
	delay    time.Duration
}

// HTTPOption configures an HTTPDetector.
type HTTPOption func(*HTTPDetector)

// WithRetry retries transport failures and 429/5xx responses up to attempts
// times in total, waiting delay before the first retry and doubling it after.
func WithRetry(attempts int, delay time.Duration) HTTPOption {
	return func(d *HTTPDetector) {
		d.attempts = attempts
		d.delay = delay
	}
}

// NewHTTPDetector returns a detector for the service at baseURL. A nil client
// uses a client without a timeout; the caller's context bounds the call.
// Without WithRetry each detection makes a single request.
func NewHTTPDetector(baseURL string, client *http.Client, opts ...HTTPOption) (*HTTPDetector, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{}
	}
	d := &HTTPDetector{base: strings.TrimRight(baseURL, "/"), http: client, attempts: 1}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect posts g to the service. Transport failures are NETWORK_ERROR;
// non-2xx statuses and undecodable bodies are DETECTION_FAILED. A decoded
// response may still be incomplete, see Response.Complete.
func (d *HTTPDetector) Detect(ctx context.Context, g *network.Graph, algorithm string) (*Response, error) {
	body, err := network.MarshalGraph(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "encode graph")
	}
	u := d.base + DetectPath + "?algorithm=" + url.QueryEscape(algorithm)

	var out *Response
	err = httputil.Retry(ctx, d.attempts, d.delay, func() error {
		resp, err := d.post(ctx, u, body)
		out = resp
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// post makes one detection request. Transient failures come back wrapped in
// httputil.RetryableError.
func (d *HTTPDetector) post(ctx context.Context, u string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := d.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		netErr := errors.Wrap(errors.ErrCodeNetwork, err, "detect communities at %s", d.base)
		if ctx.Err() != nil {
			return nil, netErr
		}
		return nil, &httputil.RetryableError{Err: netErr}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.New(errors.ErrCodeDetectionFailed, "detection service returned status %d", resp.StatusCode)
		if httputil.RetryableStatus(resp.StatusCode) {
			return nil, &httputil.RetryableError{Err: err}
		}
		return nil, err
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, errors.Wrap(errors.ErrCodeDetectionFailed, err, "decode detection response")
	}
	return &out, nil
}
