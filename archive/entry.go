package archive

import (
	"io"
	"io/fs"
)

// Entry describes one member of an archive's structural index. Entries are
// discovered during enumeration and never mutated afterwards.
type Entry struct {
	// Name is the member's relative path as stored in the archive. It is
	// untrusted input and may contain traversal sequences; callers writing
	// to disk must sanitize it first.
	Name string

	// IsDir marks directory placeholder entries. Directory entries carry
	// no content and are never handed to a decrypting stream.
	IsDir bool

	UncompressedSize uint64
	CompressedSize   uint64

	// Mode carries the stored file mode where the format records one; a
	// zero mode means the format has no notion of modes.
	Mode fs.FileMode

	// CRC32 is the stored checksum of the uncompressed content, or zero
	// for formats that only record it in a trailer.
	CRC32 uint32

	// Encrypted reports whether opening the entry's content requires a
	// credential.
	Encrypted bool
}

// IsFile reports whether the entry is a regular member rather than a
// directory placeholder.
func (e *Entry) IsFile() bool {
	return !e.IsDir
}

// Reader provides access to an opened archive.
//
// The structural index is read once when the archive is opened and cached;
// Entries always returns the same cached index, in the order members are
// physically laid out. Re-enumerating from scratch means re-opening the
// archive.
type Reader interface {
	// Entries returns the archive's cached structural index.
	Entries() []*Entry

	// Open returns a decoded content stream for a file entry. For an
	// encrypted entry an empty password fails with ErrPasswordRequired
	// before any decoding is attempted. The returned stream verifies the
	// entry's stored checksum as it is consumed: a mismatch after a full
	// read surfaces as ErrWrongPassword for encrypted entries and
	// ErrChecksum for plain ones.
	Open(e *Entry, password string) (io.ReadCloser, error)

	Close() error
}

// Encrypted reports whether any entry of the archive requires a credential.
// This is a metadata-only check and never attempts decryption.
func Encrypted(r Reader) bool {
	for _, e := range r.Entries() {
		if e.Encrypted {
			return true
		}
	}

	return false
}
