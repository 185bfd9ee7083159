package gzipformat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gzip "github.com/klauspost/pgzip"

	"gitlab.com/archkit/unpack/archive"
)

func init() {
	archive.Register(archive.Gzip, NewReader)
}

// reader exposes a gzip member as a single-entry archive. The container
// carries no sizes or checksum up front; the footer checksum is verified by
// the codec as the member is read.
type reader struct {
	name  string
	entry *archive.Entry
}

// NewReader opens a gzip container and reads its header.
func NewReader(name string) (archive.Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		if errors.Is(err, gzip.ErrHeader) {
			return nil, fmt.Errorf("%q: %w", name, archive.ErrInvalidArchive)
		}
		return nil, err
	}
	defer func() { _ = gz.Close() }()

	member := gz.Name
	if member == "" {
		member = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	return &reader{
		name:  name,
		entry: &archive.Entry{Name: member, Mode: 0o644},
	}, nil
}

func (r *reader) Entries() []*archive.Entry {
	return []*archive.Entry{r.entry}
}

func (r *reader) Open(e *archive.Entry, password string) (io.ReadCloser, error) {
	if e != r.entry {
		return nil, fmt.Errorf("%q: entry does not belong to this archive", e.Name)
	}

	f, err := os.Open(r.name)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &memberReader{f: f, gz: gz, name: e.Name}, nil
}

func (r *reader) Close() error {
	return nil
}

// memberReader surfaces the codec's footer checksum failure as a checksum
// mismatch in the engine's taxonomy.
type memberReader struct {
	f    *os.File
	gz   *gzip.Reader
	name string
}

func (m *memberReader) Read(p []byte) (int, error) {
	n, err := m.gz.Read(p)
	if err != nil && err != io.EOF && errors.Is(err, gzip.ErrChecksum) {
		err = fmt.Errorf("%q: %w", m.name, archive.ErrChecksum)
	}
	return n, err
}

func (m *memberReader) Close() error {
	gzErr := m.gz.Close()
	if err := m.f.Close(); err != nil {
		return err
	}
	return gzErr
}
