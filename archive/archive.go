package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned if a reader is requested for a
	// format that has not been registered.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrInvalidArchive is returned when a source cannot be parsed as an
	// archive of its format: malformed structural index, bad magic bytes
	// or a truncated container.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrPasswordRequired is returned when an encrypted entry is opened
	// without a credential.
	ErrPasswordRequired = errors.New("password required")

	// ErrWrongPassword is returned when decoded content fails its stored
	// checksum or the decryption layer rejects the credential. Archive
	// formats rarely signal a bad password directly; a stream that opens
	// cleanly is not proof the credential was right.
	ErrWrongPassword = errors.New("wrong password")

	// ErrChecksum is returned when a plain entry's decoded content does
	// not match its stored checksum.
	ErrChecksum = errors.New("checksum mismatch")
)

// Format type for specifying format.
type Format string

// Supported formats.
const (
	Zip  Format = "zip"
	Gzip Format = "gzip"
)

// File extensions used for format detection.
const (
	extensionZip  = ".zip"
	extensionGzip = ".gz"
)

var formats = make(map[Format]NewReaderFunc)

// NewReaderFunc is a function that can be registered (with Register()) and
// used to open an archive of its format (with NewReader()).
type NewReaderFunc func(name string) (Reader, error)

// Register registers a new format, overriding the reader for the format
// provided.
func Register(format Format, reader NewReaderFunc) (prev NewReaderFunc) {
	prev = formats[format]
	formats[format] = reader
	return prev
}

// NewReader opens the named archive with the reader registered for the
// specified format.
func NewReader(format Format, name string) (Reader, error) {
	fn := formats[format]
	if fn == nil {
		return nil, fmt.Errorf("%q format: %w", format, ErrUnsupportedFormat)
	}

	if _, err := os.Stat(name); err != nil {
		return nil, err
	}

	return fn(name)
}

// Detect returns the format implied by the archive filename's extension.
func Detect(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case extensionZip:
		return Zip, nil
	case extensionGzip:
		return Gzip, nil
	}

	return "", fmt.Errorf("%q: %w", name, ErrUnsupportedFormat)
}

// Open detects the named archive's format and opens it.
func Open(name string) (Reader, error) {
	format, err := Detect(name)
	if err != nil {
		return nil, err
	}

	return NewReader(format, name)
}
