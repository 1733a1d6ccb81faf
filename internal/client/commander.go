// Package client holds the consumer-side pieces: a resilience wrapper for
// outbound commands and a fail-open overlay subscriber. Both keep their
// state per instance so concurrent sessions never interfere.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/pkg/types"
)

// Health is the coarse signal surfaced to the director. The show stays
// playable regardless; this only drives an indicator.
type Health int

const (
	Healthy Health = iota
	Degraded
	Offline
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	default:
		return "OFFLINE"
	}
}

const offlineThreshold = 3

type CommanderOptions struct {
	// MaxAttempts bounds the total tries per command (default 3).
	MaxAttempts int
	// InitialBackoff is the first retry delay, doubling per retry. With
	// the defaults the waits between the three attempts are 1s then 2s.
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Commander issues arm/clear commands with bounded retry. Only TRANSIENT
// failures retry; everything else surfaces immediately.
type Commander struct {
	baseURL     string
	http        *http.Client
	log         *zap.Logger
	maxAttempts int
	initial     time.Duration

	mu       sync.Mutex
	failures int
}

func NewCommander(baseURL string, log *zap.Logger, opts CommanderOptions) *Commander {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Commander{
		baseURL:     baseURL,
		http:        opts.HTTPClient,
		log:         log,
		maxAttempts: opts.MaxAttempts,
		initial:     opts.InitialBackoff,
	}
}

// Health maps the consecutive-failure counter to the 3-level signal:
// 0 HEALTHY, 1-2 DEGRADED, >=3 OFFLINE.
func (c *Commander) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.failures == 0:
		return Healthy
	case c.failures < offlineThreshold:
		return Degraded
	default:
		return Offline
	}
}

func (c *Commander) recordSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

func (c *Commander) recordFailure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

func (c *Commander) ArmTile(ctx context.Context, gameID string, req types.ArmRequest) (types.ArmResponse, error) {
	var res types.ArmResponse
	url := fmt.Sprintf("%s/games/%s/moves/arm", c.baseURL, gameID)
	if err := c.post(ctx, url, req, &res); err != nil {
		return types.ArmResponse{}, err
	}
	return res, nil
}

func (c *Commander) ClearArmory(ctx context.Context, gameID string, req types.ClearRequest) (types.ClearResponse, error) {
	var res types.ClearResponse
	url := fmt.Sprintf("%s/games/%s/moves/clear", c.baseURL, gameID)
	if err := c.post(ctx, url, req, &res); err != nil {
		return types.ClearResponse{}, err
	}
	return res, nil
}

func (c *Commander) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return moves.Wrap(moves.CodePermanent, "encode request", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.initial * 8

	attempts := 0
	op := func() error {
		attempts++
		err := c.doOnce(ctx, url, payload, out)
		if err != nil && !moves.Transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx))
	if err != nil {
		c.recordFailure()
		c.log.Warn("command failed",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.String("code", string(moves.CodeOf(err))),
			zap.Error(err),
		)
		return err
	}

	c.recordSuccess()
	return nil
}

func (c *Commander) doOnce(ctx context.Context, url string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return moves.Wrap(moves.CodePermanent, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Network-level failure: unreachable or deadline exceeded.
		return moves.Wrap(moves.CodeTransient, "command transport", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return moves.Wrap(moves.CodePermanent, "decode response", err)
		}
		return nil
	}

	var fail types.ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &fail)

	code := moves.Code(fail.Code)
	switch resp.StatusCode {
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
		code = moves.CodeTransient
	default:
		if code == "" {
			code = moves.CodePermanent
		}
	}

	msg := fail.Error
	if msg == "" {
		msg = resp.Status
	}
	return moves.Errorf(code, "%s", msg)
}
