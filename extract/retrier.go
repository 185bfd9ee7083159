package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/archkit/unpack/archive"
	"gitlab.com/archkit/unpack/retry"
)

const (
	attemptMinBackoff = 10 * time.Millisecond
	attemptMaxBackoff = 100 * time.Millisecond
)

var (
	// ErrNoMoreCredentials is returned by a CredentialSource that has run
	// out of candidates.
	ErrNoMoreCredentials = errors.New("no more credentials")

	// ErrExhaustedAttempts is returned when every candidate credential was
	// rejected by the archive.
	ErrExhaustedAttempts = errors.New("exhausted credential attempts")
)

// CredentialSource supplies candidate credentials for repeated extraction
// attempts: an interactive prompt, a vault lookup, a fixed list. Next
// returns ErrNoMoreCredentials once the source is exhausted.
type CredentialSource interface {
	Next(ctx context.Context) (string, error)
}

// Credentials is a CredentialSource over a fixed candidate list, consumed
// front to back.
type Credentials []string

func (c *Credentials) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(*c) == 0 {
		return "", ErrNoMoreCredentials
	}

	next := (*c)[0]
	*c = (*c)[1:]
	return next, nil
}

// ExtractWithRetry runs extraction passes until one completes, requesting
// a fresh candidate from the credential source whenever a pass reports the
// archive rejected the current one. Non-encrypted archives get a single
// pass and the source is never consulted.
//
// Failed attempts leave no partial output for the entries they processed,
// so each retry re-processes the archive cleanly. On success the report of
// the winning pass is returned; when the source runs dry the last rejected
// report is returned together with ErrExhaustedAttempts.
func (e *Extractor) ExtractWithRetry(ctx context.Context, r archive.Reader, src CredentialSource) (*Report, error) {
	if !archive.Encrypted(r) {
		return e.Extract(ctx, r)
	}

	var last *Report

	run := func() (*Report, error) {
		password, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreCredentials) {
				return last, ErrExhaustedAttempts
			}
			return last, err
		}

		attempt := *e
		attempt.password = password

		report, err := attempt.Extract(ctx, r)
		if err != nil {
			return last, err
		}
		last = report

		if report.CredentialRejected() {
			return report, fmt.Errorf("credential rejected: %w", archive.ErrWrongPassword)
		}

		return report, nil
	}

	report, err := retry.NewWithValue(run).
		WithContext(ctx).
		WithCheck(func(_ int, err error) bool {
			return errors.Is(err, archive.ErrWrongPassword)
		}).
		WithBackoff(attemptMinBackoff, attemptMaxBackoff).
		WithLogrus(e.log).
		RunValue()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if report == nil {
			report = &Report{}
		}
		report.Status = Cancelled
		return report, nil
	}

	return report, err
}
