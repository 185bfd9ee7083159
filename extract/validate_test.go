//go:build !integration

package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"

	"gitlab.com/archkit/unpack/archive"
	"gitlab.com/archkit/unpack/extract"
)

func TestValidate(t *testing.T) {
	name := writeZip(t, []testEntry{
		{name: "a.txt", content: "alpha"},
		{name: "dir/"},
		{name: "dir/b.txt", content: "beta"},
	})

	report := extract.Validate(context.Background(), openZip(t, name))

	assert.True(t, report.Valid)
	assert.Empty(t, report.Defects)
	assert.NoError(t, report.Err())
}

func TestValidateCorruptedEntry(t *testing.T) {
	name := writeCorruptedZip(t)

	report := extract.Validate(context.Background(), openZip(t, name))

	assert.False(t, report.Valid)
	require.Len(t, report.Defects, 1)
	assert.ErrorIs(t, report.Err(), archive.ErrChecksum)
}

func TestValidateSkipsEncryptedEntries(t *testing.T) {
	name := writeZip(t, []testEntry{
		{name: "plain.txt", content: "readable"},
		{name: "locked.bin", content: "secret", password: "hunter2", encryption: zip.AES256Encryption},
	})

	// Encrypted content cannot be decoded without a credential; validation
	// must still succeed on metadata alone.
	report := extract.Validate(context.Background(), openZip(t, name))

	assert.True(t, report.Valid)
}

func TestValidateCancelled(t *testing.T) {
	name := writeZip(t, []testEntry{{name: "a.txt", content: "alpha"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := extract.Validate(ctx, openZip(t, name))
	assert.False(t, report.Valid)
	assert.ErrorIs(t, report.Err(), context.Canceled)
}
