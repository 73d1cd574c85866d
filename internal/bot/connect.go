package bot

import (
	"context"
	mathrand "math/rand/v2"
	"time"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

type retryPolicy struct {
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	jitterMax   time.Duration
}

func loadRetryPolicy() retryPolicy {
	return retryPolicy{
		retries:     env.GetEnvIntOrDefault("WHATSAPP_STARTUP_RECONNECT_RETRIES", 5),
		baseBackoff: env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RECONNECT_BACKOFF_BASE", 2*time.Second),
		maxBackoff:  env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RECONNECT_BACKOFF_MAX", 30*time.Second),
		jitterMax:   env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RECONNECT_JITTER_MAX", 500*time.Millisecond),
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(mathrand.Int64N(int64(max) + 1))
}

// connectWithRetry calls connect until it succeeds, backing off exponentially
// with jitter between attempts.
func connectWithRetry(ctx context.Context, connect func() error, p retryPolicy) error {
	if p.retries < 1 {
		p.retries = 1
	}
	if p.baseBackoff <= 0 {
		p.baseBackoff = 2 * time.Second
	}
	if p.maxBackoff <= 0 {
		p.maxBackoff = 30 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if lastErr = connect(); lastErr == nil {
			return nil
		}
		if attempt == p.retries {
			break
		}

		backoff := p.baseBackoff * time.Duration(1<<(attempt-1))
		if backoff > p.maxBackoff {
			backoff = p.maxBackoff
		}
		log.Bot().WithError(lastErr).WithField("attempt", attempt).Warn("Connect failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter(p.jitterMax)):
		}
	}
	return lastErr
}
