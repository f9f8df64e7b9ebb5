package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/civicseva/civic-complaints/internal/config"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const readRetryDelay = 150 * time.Millisecond

// CallPolicy bounds calls to the complaint store. Reads are retried a bounded
// number of times; writes get a deadline only and are never repeated.
type CallPolicy struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReadAttempts uint
	logger       *zap.Logger
}

// NewCallPolicy builds a policy from collaborator settings.
func NewCallPolicy(cfg config.CollaboratorConfig, logger *zap.Logger) CallPolicy {
	attempts := cfg.ReadAttempts
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return CallPolicy{
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		ReadAttempts: uint(attempts),
		logger:       logger,
	}
}

// Read runs fn under the read deadline, retrying transient failures.
// Not-found and domain errors are returned on the first attempt.
func (p CallPolicy) Read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return retry.Do(
		func() error {
			callCtx, cancel := withTimeout(ctx, p.ReadTimeout)
			defer cancel()
			return fn(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts()),
		retry.Delay(readRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("store read retry", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

// Write runs fn once under the write deadline.
func (p CallPolicy) Write(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := withTimeout(ctx, p.WriteTimeout)
	defer cancel()
	return fn(callCtx)
}

func (p CallPolicy) attempts() uint {
	if p.ReadAttempts == 0 {
		return 1
	}
	return p.ReadAttempts
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsNoRows(err) {
		return false
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable()
	}
	return true
}
