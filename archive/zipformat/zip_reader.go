package zipformat

import (
	"errors"
	"fmt"
	"io"

	"github.com/yeka/zip"

	"gitlab.com/archkit/unpack/archive"
)

func init() {
	archive.Register(archive.Zip, NewReader)
}

// reader adapts a zip central directory to the archive.Reader contract.
type reader struct {
	zr      *zip.ReadCloser
	entries []*archive.Entry
	files   map[*archive.Entry]*zip.File
}

// NewReader opens a zip archive and reads its central directory.
func NewReader(name string) (archive.Reader, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%q: %w", name, archive.ErrInvalidArchive)
		}
		return nil, err
	}

	r := &reader{
		zr:      zr,
		entries: make([]*archive.Entry, 0, len(zr.File)),
		files:   make(map[*archive.Entry]*zip.File, len(zr.File)),
	}

	for _, f := range zr.File {
		e := &archive.Entry{
			Name:             f.Name,
			IsDir:            f.FileInfo().IsDir(),
			UncompressedSize: f.UncompressedSize64,
			CompressedSize:   f.CompressedSize64,
			Mode:             f.Mode(),
			CRC32:            f.CRC32,
			Encrypted:        f.IsEncrypted(),
		}

		r.entries = append(r.entries, e)
		r.files[e] = f
	}

	return r, nil
}

// Entries returns the central directory in physical order.
func (r *reader) Entries() []*archive.Entry {
	return r.entries
}

// Open returns the decoded content stream for a file entry, decrypting it
// when the entry is protected.
func (r *reader) Open(e *archive.Entry, password string) (io.ReadCloser, error) {
	f := r.files[e]
	if f == nil {
		return nil, fmt.Errorf("%q: entry does not belong to this archive", e.Name)
	}
	if e.IsDir {
		return nil, fmt.Errorf("%q: directory entry has no content", e.Name)
	}

	if e.Encrypted {
		if password == "" {
			return nil, fmt.Errorf("%q: %w", e.Name, archive.ErrPasswordRequired)
		}
		f.SetPassword(password)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, classify(e, err)
	}

	return &entryReader{rc: rc, entry: e}, nil
}

func (r *reader) Close() error {
	return r.zr.Close()
}

// entryReader translates the codec's decode failures into the engine's
// taxonomy. A wrong ZipCrypto password does not fail at open time; it
// produces garbage that only the end-of-stream checksum catches.
type entryReader struct {
	rc    io.ReadCloser
	entry *archive.Entry
}

func (r *entryReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		err = classify(r.entry, err)
	}
	return n, err
}

func (r *entryReader) Close() error {
	return r.rc.Close()
}

func classify(e *archive.Entry, err error) error {
	if e.Encrypted {
		// The format cannot distinguish a bad credential from corrupt
		// content: a checksum mismatch, a failed decryption or garbage
		// handed to the decompressor all mean the credential did not
		// produce verifiable plaintext.
		return fmt.Errorf("%q: %w (%v)", e.Name, archive.ErrWrongPassword, err)
	}

	if errors.Is(err, zip.ErrChecksum) {
		return fmt.Errorf("%q: %w", e.Name, archive.ErrChecksum)
	}

	return err
}
