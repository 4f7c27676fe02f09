package bilog

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TrashDirName is the hidden directory, under the backing root, where
// FileStore preserves inodes whose last link an unlink would otherwise
// sever (spec.md §4.6).
const TrashDirName = ".fsyncer-deleted"

// FileStore preserves and restores file bytes across an unlink/undo
// cycle by moving the inode into a hidden trash directory instead of
// deleting it outright, then re-linking it back in on undo.
type FileStore struct {
	root string
}

// NewFileStore constructs a FileStore rooted at the same backing
// directory the VFS adapter serves.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (fs *FileStore) trashDir() string { return filepath.Join(fs.root, TrashDirName) }

func (fs *FileStore) ensureDir() error {
	return os.MkdirAll(fs.trashDir(), 0o700)
}

// Preserve moves backingPath into the trash directory under a fresh
// random token, returning the token for a bilog record to reference.
func (fs *FileStore) Preserve(backingPath string) (string, error) {
	if err := fs.ensureDir(); err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := os.Rename(backingPath, fs.Path(token)); err != nil {
		return "", err
	}
	return token, nil
}

// Restore recreates backingPath as a hardlink to the preserved inode
// named by token, per spec.md §4.6's "undo rebuilds the original path
// as a hardlink to the preserved inode."
func (fs *FileStore) Restore(token, backingPath string) error {
	return os.Link(fs.Path(token), backingPath)
}

// Discard permanently removes a preserved entry. Callers are responsible
// for deciding when no live link or pending undo can reference it any
// longer; FileStore itself applies no retention policy.
func (fs *FileStore) Discard(token string) error {
	return os.Remove(fs.Path(token))
}

// Path returns the absolute backing-store path of a preserved token.
func (fs *FileStore) Path(token string) string {
	return filepath.Join(fs.trashDir(), token)
}
