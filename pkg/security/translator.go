// Package security implements the path translator and cross-platform
// security (ownership/ACL) bridge described in spec.md §4.1 and §4.2: the
// only place permitted to join a mount root with a guest-relative path, and
// the only place permitted to convert a FileSecurity value between Unix,
// Windows, and the portable name-based form.
package security

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/bahusvel/fsyncer/internal/errx"
)

var (
	// ErrPathNotAbsolute is returned when a guest path does not start
	// with "/" after normalization.
	ErrPathNotAbsolute = errors.New("security: guest path must be absolute")
	// ErrPathEscapesRoot guards against a normalized path climbing above
	// the mount root via "..".
	ErrPathEscapesRoot = errors.New("security: guest path escapes backing root")
)

// Translator maps guest-absolute paths ("/a/b") to backing-store paths
// ("<root>/a/b"). It is the only component permitted to produce backing
// paths; callers further out must route every path through it.
type Translator struct {
	root string
}

// NewTranslator constructs a Translator rooted at root, cleaned with
// filepath.Clean; root is not made absolute.
func NewTranslator(root string) *Translator {
	return &Translator{root: filepath.Clean(root)}
}

// Root returns the backing-store root directory.
func (t *Translator) Root() string { return t.root }

// ToBacking translates a guest-absolute path to its backing-store
// location. Paths are normalized (cleaned) before the absoluteness check,
// matching spec.md §4.2 ("reject paths not starting with / only after
// normalization").
func (t *Translator) ToBacking(guestPath string) (string, error) {
	// Clean always operates on an absolute path here (the leading "/" is
	// forced on), so it can never leave a leading ".." behind for an
	// escape check to catch; Join below is what actually confines the
	// result under t.root.
	clean := filepath.Clean("/" + strings.TrimPrefix(guestPath, "/"))
	if !strings.HasPrefix(clean, "/") {
		return "", errx.With(ErrPathNotAbsolute, ": %q", guestPath)
	}
	rel := strings.TrimPrefix(clean, "/")
	return filepath.Join(t.root, rel), nil
}

// ToGuest is the inverse of ToBacking, used when a backing-store walk
// (e.g. metadata hashing, journal replay reporting) needs to reconstruct
// the guest-visible path.
func (t *Translator) ToGuest(backingPath string) (string, error) {
	rel, err := filepath.Rel(t.root, backingPath)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errx.With(ErrPathEscapesRoot, ": %q", backingPath)
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + filepath.ToSlash(rel), nil
}
