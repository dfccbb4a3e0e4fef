package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration, applied to idempotent reads only
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second
)

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

// readWithRetry runs an idempotent read, retrying transient driver errors
// with exponential backoff.
func readWithRetry[T any](ctx context.Context, logger *zap.Logger, op string, read func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitForRetry(ctx, attempt); err != nil {
				return result, err
			}
			logger.Warn("retrying read",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
			)
		}

		result, lastErr = read(ctx)
		if lastErr == nil {
			return result, nil
		}
		if !isRetryableError(lastErr) {
			break
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		logger.Error("read timeout", zap.String("op", op))
		return result, ErrOperationTimeout
	}
	return result, fmt.Errorf("%s failed: %w", op, lastErr)
}

// watchQuery backs a feed with a change stream. The stream is opened before
// the first query so no change between the two is lost; every event then
// re-runs the query and publishes the fresh snapshot.
func watchQuery[T any](
	feed *Feed[T],
	logger *zap.Logger,
	open func(ctx context.Context) (*mongo.ChangeStream, error),
	query func(ctx context.Context) (T, error),
) error {
	ctx := feed.Context()

	stream, err := open(ctx)
	if err != nil {
		feed.Close()
		return fmt.Errorf("open change stream: %w", err)
	}

	snapshot, err := query(ctx)
	if err != nil {
		_ = stream.Close(context.Background())
		feed.Close()
		return err
	}
	feed.Publish(snapshot)

	go func() {
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			snapshot, err := query(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("live query failed", zap.Error(err))
					feed.Fail(err)
				}
				return
			}
			feed.Publish(snapshot)
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			logger.Error("change stream failed", zap.Error(err))
			feed.Fail(err)
		}
	}()

	return nil
}
