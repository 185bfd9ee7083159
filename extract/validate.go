package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"gitlab.com/archkit/unpack/archive"
)

// ValidationReport is the outcome of a whole-archive consistency check. An
// invalid archive is a normal, expected outcome, not an error.
type ValidationReport struct {
	Valid   bool
	Defects []error
}

// Err aggregates the detected defects, or nil for a valid archive.
func (r *ValidationReport) Err() error {
	var merr *multierror.Error
	for _, defect := range r.Defects {
		merr = multierror.Append(merr, defect)
	}

	return merr.ErrorOrNil()
}

func (r *ValidationReport) defect(err error) {
	r.Valid = false
	r.Defects = append(r.Defects, err)
}

// Validate decodes every plain file entry to a throwaway writer, verifying
// the stored checksums and declared sizes against the actual content.
// Encrypted entries cannot be decoded without a credential, so only their
// structural metadata is covered. Nothing is written to disk.
func Validate(ctx context.Context, r archive.Reader) *ValidationReport {
	report := &ValidationReport{Valid: true}

	for _, e := range r.Entries() {
		if err := ctx.Err(); err != nil {
			report.defect(err)
			break
		}

		if e.IsDir || e.Encrypted {
			continue
		}

		if err := checkEntry(r, e); err != nil {
			report.defect(fmt.Errorf("%s: %w", e.Name, err))
		}
	}

	return report
}

func checkEntry(r archive.Reader, e *archive.Entry) error {
	rc, err := r.Open(e, "")
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return err
	}

	if e.UncompressedSize > 0 && uint64(n) != e.UncompressedSize {
		return fmt.Errorf("declared size %d, decoded %d", e.UncompressedSize, n)
	}

	return nil
}
