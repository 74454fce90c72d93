package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	framequeue "github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/domain/dedupe"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/internal/domain/types"
)

const (
	defaultHTTPTimeout  = 10 * time.Second
	defaultSendAttempts = 3
	retryBackoff        = 50 * time.Millisecond
	maxErrorBody        = 4 << 10
)

// Sink receives replayed frames. Implementations report a full pipeline with an
// error wrapping queue.ErrQueueFull.
type Sink interface {
	Send(ctx context.Context, frame *types.Frame) error
}

// Submitter is the in-process frame source, satisfied by the service.
type Submitter interface {
	Submit(ctx context.Context, frame skeleton.FramePair) (uint64, error)
}

// ServiceSink hands frames straight to a Submitter.
type ServiceSink struct {
	sub Submitter
}

// NewServiceSink wraps sub.
func NewServiceSink(sub Submitter) *ServiceSink {
	return &ServiceSink{sub: sub}
}

// Send converts frame and submits it. A frame the service already accepted
// counts as sent.
func (s *ServiceSink) Send(ctx context.Context, frame *types.Frame) error {
	fp, err := frame.ToFramePair()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	if _, err := s.sub.Submit(ctx, fp); err != nil && !errors.Is(err, dedupe.ErrDuplicate) {
		return err
	}
	return nil
}

// HTTPSink posts frames to a running service's POST /frames endpoint.
type HTTPSink struct {
	url      string
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewHTTPSink creates a sink for the service at baseURL. A nil client gets a
// client with a 10s timeout.
func NewHTTPSink(baseURL string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSink{
		url:      strings.TrimRight(baseURL, "/") + "/frames",
		client:   client,
		attempts: defaultSendAttempts,
		backoff:  retryBackoff,
	}
}

// Send posts frame as JSON. 202 is success, and so is 200, which the service
// answers for a frame id it already accepted. 429 maps to queue.ErrQueueFull.
// A request that fails without a response is sent again, so frames should carry
// an id for the service to recognize the redelivery.
func (s *HTTPSink) Send(ctx context.Context, frame *types.Frame) error {
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame %d: %w", frame.Number, err)
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, s.backoff); err != nil {
				return err
			}
		}
		resp, err := s.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		return s.result(resp, frame)
	}
	return fmt.Errorf("post frame %d after %d attempts: %w", frame.Number, s.attempts, lastErr)
}

func (s *HTTPSink) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.client.Do(req)
}

func (s *HTTPSink) result(resp *http.Response, frame *types.Frame) error {
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("post frame %d: %w", frame.Number, framequeue.ErrQueueFull)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: frame %d: status %d: %s", ErrRejected, frame.Number, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
