package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

const (
	defaultMinBackoff = 1 * time.Second
	defaultMaxBackoff = 5 * time.Second
)

type RunFunc func() error
type RunValueFunc[T any] func() (T, error)
type CheckFunc func(tries int, err error) bool
type checkFuncWithPrevious func(tries int, err error, shouldRetry bool) bool

// Retry repeatedly invokes a run function until it succeeds, the configured
// checks decide the error is not worth another attempt, or the context is
// cancelled.
type Retry[T any] struct {
	ctx     context.Context
	run     RunValueFunc[T]
	check   CheckFunc
	backoff *backoff.Backoff
}

func New(run RunFunc) *Retry[any] {
	return NewWithValue(func() (any, error) {
		return nil, run()
	})
}

func NewWithValue[T any](run RunValueFunc[T]) *Retry[T] {
	return &Retry[T]{
		ctx: context.Background(),
		run: run,
		check: func(_ int, _ error) bool {
			return true
		},
		backoff: &backoff.Backoff{Min: defaultMinBackoff, Max: defaultMaxBackoff},
	}
}

func (r *Retry[T]) wrapCheck(newCheck checkFuncWithPrevious) *Retry[T] {
	originalCheck := r.check
	return r.WithCheck(func(tries int, err error) bool {
		shouldRetry := false
		if originalCheck != nil {
			shouldRetry = originalCheck(tries, err)
		}

		return newCheck(tries, err, shouldRetry)
	})
}

func (r *Retry[T]) WithCheck(check CheckFunc) *Retry[T] {
	r.check = check
	return r
}

// WithContext stops retrying once ctx is cancelled. Cancellation is
// observed between attempts, never mid-attempt.
func (r *Retry[T]) WithContext(ctx context.Context) *Retry[T] {
	r.ctx = ctx
	return r
}

func (r *Retry[T]) WithMaxTries(max int) *Retry[T] {
	return r.wrapCheck(func(tries int, err error, shouldRetry bool) bool {
		if tries >= max {
			return false
		}

		return shouldRetry
	})
}

func (r *Retry[T]) WithBackoff(min, max time.Duration) *Retry[T] {
	r.backoff = &backoff.Backoff{Min: min, Max: max}
	return r
}

func (r *Retry[T]) WithLogrus(log *logrus.Entry) *Retry[T] {
	return r.wrapCheck(func(tries int, err error, shouldRetry bool) bool {
		if shouldRetry {
			log.WithError(err).Warningln("Retrying...")
		}

		return shouldRetry
	})
}

func (r *Retry[T]) Run() error {
	_, err := r.RunValue()
	return err
}

func (r *Retry[T]) RunValue() (T, error) {
	var err error
	var tries int
	var value T
	for {
		tries++
		value, err = r.run()
		if err == nil || !r.check(tries, err) {
			break
		}

		select {
		case <-r.ctx.Done():
			return value, r.ctx.Err()
		case <-time.After(r.backoff.Duration()):
		}
	}

	return value, err
}
