package extract

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"gitlab.com/archkit/unpack/archive"
)

// Outcome classifies the result of processing one entry.
type Outcome string

const (
	Extracted Outcome = "extracted"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

// Result is the recorded outcome for a single entry.
type Result struct {
	Name         string
	Outcome      Outcome
	Reason       string // set for Skipped
	Err          error  // set for Failed
	BytesWritten int64
}

// Status is the overall outcome of one extraction pass.
type Status string

const (
	Completed Status = "completed"
	Aborted   Status = "aborted"
	Cancelled Status = "cancelled"
)

// Report aggregates the outcome of one extraction pass: one Result per
// processed entry, in processing order, plus the overall status. A single
// entry's failure never aborts the pass; whole-archive conditions are
// carried in Reason with status Aborted.
type Report struct {
	Status  Status
	Reason  error // abort reason when Status == Aborted
	Results []Result
}

// Count returns the number of results with the given outcome.
func (r *Report) Count(outcome Outcome) int {
	var n int
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Err aggregates every per-entry failure, or nil if none occurred.
func (r *Report) Err() error {
	var merr *multierror.Error
	for _, res := range r.Results {
		if res.Outcome == Failed {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}

	return merr.ErrorOrNil()
}

// CredentialRejected reports whether the pass indicates the archive-level
// credential is wrong: the pass aborted on a password failure, the first
// processed entry failed password verification, or most failures did.
func (r *Report) CredentialRejected() bool {
	if r.Status == Aborted {
		return errors.Is(r.Reason, archive.ErrWrongPassword)
	}

	if len(r.Results) > 0 {
		first := r.Results[0]
		if first.Outcome == Failed && errors.Is(first.Err, archive.ErrWrongPassword) {
			return true
		}
	}

	var failures, rejected int
	for _, res := range r.Results {
		if res.Outcome != Failed {
			continue
		}
		failures++
		if errors.Is(res.Err, archive.ErrWrongPassword) {
			rejected++
		}
	}

	return failures > 0 && rejected*2 > failures
}
