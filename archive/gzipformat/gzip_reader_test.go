//go:build !integration

package gzipformat_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	gzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/archkit/unpack/archive"
	"gitlab.com/archkit/unpack/archive/gzipformat"
)

func writeGzip(t *testing.T, name, member, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := gzip.NewWriter(f)
	gz.Name = member
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return path
}

func TestNewReaderInvalidContainer(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bogus.gz")
	require.NoError(t, os.WriteFile(name, []byte("plain text, no gzip magic"), 0o666))

	_, err := gzipformat.NewReader(name)
	assert.ErrorIs(t, err, archive.ErrInvalidArchive)
}

func TestEntries(t *testing.T) {
	tests := map[string]struct {
		file     string
		member   string
		expected string
	}{
		"member name from header":   {file: "dump.gz", member: "notes.txt", expected: "notes.txt"},
		"member name from filename": {file: "report.gz", member: "", expected: "report"},
	}

	for tn, tc := range tests {
		t.Run(tn, func(t *testing.T) {
			name := writeGzip(t, tc.file, tc.member, "content")

			r, err := gzipformat.NewReader(name)
			require.NoError(t, err)
			defer r.Close()

			entries := r.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.expected, entries[0].Name)
			assert.True(t, entries[0].IsFile())
			assert.False(t, entries[0].Encrypted)
		})
	}
}

func TestOpenRoundTrip(t *testing.T) {
	name := writeGzip(t, "dump.gz", "notes.txt", "hello gzip member")

	r, err := gzipformat.NewReader(name)
	require.NoError(t, err)
	defer r.Close()

	rc, err := r.Open(r.Entries()[0], "")
	require.NoError(t, err)

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello gzip member", string(content))
}

func TestOpenCorruptedFooter(t *testing.T) {
	name := writeGzip(t, "dump.gz", "notes.txt", "hello gzip member")

	raw, err := os.ReadFile(name)
	require.NoError(t, err)

	// The last eight bytes are the CRC32 and size trailer; flipping a CRC
	// byte leaves the stream decodable but failing verification.
	raw[len(raw)-8] ^= 0xff
	require.NoError(t, os.WriteFile(name, raw, 0o666))

	r, err := gzipformat.NewReader(name)
	require.NoError(t, err)
	defer r.Close()

	rc, err := r.Open(r.Entries()[0], "")
	require.NoError(t, err)
	defer rc.Close()

	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, archive.ErrChecksum)
}
