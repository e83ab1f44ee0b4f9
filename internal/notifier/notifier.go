// Package notifier delivers metadata updates to the main application.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/model"
)

// UpdateMetaPath is the callback endpoint on the main application.
const UpdateMetaPath = "/api/photos/update_meta"

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Webhook-Secret"

// Defaults for the callback transport and retry policy.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 2
	DefaultBackoff     = 1500 * time.Millisecond
)

// StatusNetworkError is reported when the last attempt did not get a response.
const StatusNetworkError = http.StatusBadGateway

const maxBodySize = 64 << 10

// Doer sends an HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the outcome of the final callback attempt.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// OK reports whether the callback was accepted.
func (r Result) OK() bool {
	return r.StatusCode > 0 && r.StatusCode < http.StatusBadRequest
}

// Policy controls how failed callbacks are retried.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns two attempts separated by a fixed 1.5s wait.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Sleep:       sleep,
	}
}

// Notifier posts metadata updates to the main application.
type Notifier struct {
	endpoint string
	secret   string
	client   Doer
	policy   Policy
}

// New creates a Notifier for the application at baseURL.
// A nil client defaults to an http.Client with DefaultTimeout.
func New(baseURL, secret string, client Doer, policy Policy) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Sleep == nil {
		policy.Sleep = sleep
	}

	return &Notifier{
		endpoint: strings.TrimSuffix(baseURL, "/") + UpdateMetaPath,
		secret:   secret,
		client:   client,
		policy:   policy,
	}
}

// Notify sends update and returns the result of the last attempt.
// An attempt fails on a transport error or a status of 400 or above;
// failures are retried according to the policy.
func (n *Notifier) Notify(ctx context.Context, update model.MetadataUpdate) Result {
	payload, err := json.Marshal(update)
	if err != nil {
		return Result{StatusCode: http.StatusInternalServerError, Body: fmt.Sprintf("marshal payload: %v", err)}
	}

	var res Result
	for attempt := 1; attempt <= n.policy.MaxAttempts; attempt++ {
		res = n.post(ctx, payload)
		if res.OK() {
			return res
		}

		zlog.Logger.Warn().
			Int("attempt", attempt).
			Int("status", res.StatusCode).
			Str("key", update.S3KeyOriginal).
			Msg("callback attempt failed")

		if attempt == n.policy.MaxAttempts {
			break
		}

		if err := n.policy.Sleep(ctx, n.policy.Backoff); err != nil {
			break
		}
	}

	return res
}

func (n *Notifier) post(ctx context.Context, payload []byte) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{StatusCode: StatusNetworkError, Body: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, n.secret)

	resp, err := n.client.Do(req)
	if err != nil {
		return Result{StatusCode: StatusNetworkError, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		zlog.Logger.Debug().Err(err).Msg("failed to read callback response body")
	}

	return Result{StatusCode: resp.StatusCode, Body: string(body)}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
