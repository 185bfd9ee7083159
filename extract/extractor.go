package extract

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gitlab.com/archkit/unpack/archive"
)

// DefaultChunkSize is the copy buffer size used when none is configured.
// The chunk size is a throughput tunable, not a correctness parameter.
const DefaultChunkSize = 128 * 1024

const partialSuffix = ".partial"

// Extractor drives a single extraction pass over an archive: validate the
// structure, inspect encryption, then stream every file entry to the
// destination directory. Per-entry failures are isolated; one bad entry
// never aborts the pass.
//
// An Extractor is configured once and may be reused across archives; it is
// not safe for concurrent use.
type Extractor struct {
	dir       string
	password  string
	chunkSize int
	sink      Sink
	errLog    ErrorLogger
	log       *logrus.Entry
}

// Option configures an Extractor.
type Option func(e *Extractor)

// WithPassword sets the credential used to open encrypted entries during
// the pass. The credential is held for the pass only, never persisted.
func WithPassword(password string) Option {
	return func(e *Extractor) {
		e.password = password
	}
}

// WithChunkSize sets the copy buffer size.
func WithChunkSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithSink sets the per-entry progress event sink.
func WithSink(s Sink) Option {
	return func(e *Extractor) {
		e.sink = s
	}
}

// WithErrorLogger sets the collaborator receiving structured error records.
func WithErrorLogger(l ErrorLogger) Option {
	return func(e *Extractor) {
		e.errLog = l
	}
}

// WithLogger sets the logger used for engine diagnostics and as the
// default sink/error-logger backend.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Extractor) {
		e.log = log
	}
}

// New returns an Extractor writing into the destination directory dir,
// which is created if absent.
func New(dir string, opts ...Option) *Extractor {
	e := &Extractor{
		dir:       dir,
		chunkSize: DefaultChunkSize,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.sink == nil {
		e.sink = newLogSink(e.log)
	}
	if e.errLog == nil {
		e.errLog = newLogErrorLogger(e.log)
	}

	return e
}

// Extract performs one pass over the archive.
//
// Whole-archive conditions (failed validation, encrypted content with no
// credential) abort before anything is written and surface as the report's
// status. Cancellation is observed between entries, never mid-copy, so an
// entry is either fully written or absent. The returned error is non-nil
// only when the destination itself cannot be prepared.
func (e *Extractor) Extract(ctx context.Context, r archive.Reader) (*Report, error) {
	report := &Report{}

	if v := Validate(ctx, r); !v.Valid {
		if ctx.Err() != nil {
			report.Status = Cancelled
			return report, nil
		}
		return e.abort(report, fmt.Errorf("%w: %s", archive.ErrInvalidArchive, v.Err())), nil
	}

	if archive.Encrypted(r) && e.password == "" {
		return e.abort(report, archive.ErrPasswordRequired), nil
	}

	if err := os.MkdirAll(e.dir, 0o777); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	for _, entry := range r.Entries() {
		if ctx.Err() != nil {
			report.Status = Cancelled
			return report, nil
		}

		res := e.extractEntry(r, entry)
		report.Results = append(report.Results, res)

		e.sink.Event(EntryEvent{Name: entry.Name, Outcome: res.Outcome, BytesWritten: res.BytesWritten})
		if res.Err != nil {
			e.errLog.Error(newErrorRecord(entry.Name, res.Err))
			e.log.WithError(res.Err).Warningln("Entry failed:", entry.Name)
		}
	}

	report.Status = Completed
	return report, nil
}

func (e *Extractor) abort(report *Report, reason error) *Report {
	report.Status = Aborted
	report.Reason = reason
	e.errLog.Error(newErrorRecord("", reason))
	return report
}

func (e *Extractor) extractEntry(r archive.Reader, entry *archive.Entry) Result {
	res := Result{Name: entry.Name}

	dest, err := sanitizePath(e.dir, entry.Name)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		return res
	}

	if entry.IsDir {
		if err := os.MkdirAll(dest, 0o777); err != nil {
			res.Outcome = Failed
			res.Err = err
			return res
		}
		res.Outcome = Extracted
		return res
	}

	// Symlinks, pipes, sockets and devices are not materialized; a
	// symlink target in particular would bypass the traversal defense.
	if entry.Mode&fs.ModeType != 0 {
		res.Outcome = Skipped
		res.Reason = fmt.Sprintf("unsupported file type %s", entry.Mode.Type())
		return res
	}

	res.BytesWritten, err = e.writeEntry(r, entry, dest)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		return res
	}

	res.Outcome = Extracted
	return res
}

// writeEntry streams the decoded entry to a temporary file and renames it
// into place only once the content has been fully read and verified. A
// failed or cancelled attempt therefore never leaves a partial file at the
// final path, and a later attempt can safely re-process the entry.
func (e *Extractor) writeEntry(r archive.Reader, entry *archive.Entry, dest string) (int64, error) {
	in, err := r.Open(entry, e.password)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o777); err != nil {
		return 0, err
	}

	perm := entry.Mode.Perm()
	if perm == 0 {
		perm = 0o666
	}

	tmp := dest + partialSuffix
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.CopyBuffer(out, in, make([]byte, e.chunkSize))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, err
	}

	// Replace any output left by a previous attempt.
	_ = os.Remove(dest)
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return n, err
	}

	return n, nil
}
