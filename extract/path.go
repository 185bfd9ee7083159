package extract

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrPathTraversal is returned when an entry name resolves outside the
// destination root.
var ErrPathTraversal = errors.New("entry path escapes destination")

// sanitizePath resolves an untrusted entry name against the destination
// root. Absolute names and any name that escapes the root once cleaned are
// rejected; archive members must never dictate writes outside the tree
// being extracted into.
func sanitizePath(root, name string) (string, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%q: %w", name, ErrPathTraversal)
	}

	return filepath.Join(root, name), nil
}
