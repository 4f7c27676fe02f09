package vfscall

// Call is implemented by every VFSCall variant. Tag identifies the
// concrete type for the wire/journal envelope.
type Call interface {
	Tag() Tag
	isCall()
}

// Mknod creates a device node, FIFO, or regular file without opening it.
// POSIX-only.
type Mknod struct {
	Path     string       `cbor:"path"`
	Mode     uint32       `cbor:"mode"`
	Rdev     uint64       `cbor:"rdev"`
	Security FileSecurity `cbor:"-"`
}

func (Mknod) Tag() Tag { return TagMknod }
func (Mknod) isCall()  {}

// Mkdir creates a directory.
type Mkdir struct {
	Path     string       `cbor:"path"`
	Mode     uint32       `cbor:"mode"`
	Security FileSecurity `cbor:"-"`
}

func (Mkdir) Tag() Tag { return TagMkdir }
func (Mkdir) isCall()  {}

// Unlink removes a non-directory directory entry.
type Unlink struct {
	Path string `cbor:"path"`
}

func (Unlink) Tag() Tag { return TagUnlink }
func (Unlink) isCall()  {}

// Rmdir removes an empty directory.
type Rmdir struct {
	Path string `cbor:"path"`
}

func (Rmdir) Tag() Tag { return TagRmdir }
func (Rmdir) isCall()  {}

// Symlink creates a symbolic link at To pointing to From.
type Symlink struct {
	From     string       `cbor:"from"`
	To       string       `cbor:"to"`
	Security FileSecurity `cbor:"-"`
}

func (Symlink) Tag() Tag { return TagSymlink }
func (Symlink) isCall()  {}

// Rename moves From to To. Flags carries platform rename flags
// (e.g. RENAME_NOREPLACE) as an opaque bitset.
type Rename struct {
	From  string `cbor:"from"`
	To    string `cbor:"to"`
	Flags uint32 `cbor:"flags"`
}

func (Rename) Tag() Tag { return TagRename }
func (Rename) isCall()  {}

// Link creates a hard link at To pointing to the same inode as From.
// POSIX-only.
type Link struct {
	From     string       `cbor:"from"`
	To       string       `cbor:"to"`
	Security FileSecurity `cbor:"-"`
}

func (Link) Tag() Tag { return TagLink }
func (Link) isCall()  {}

// Chmod changes permission bits (POSIX) or file attributes (Windows).
type Chmod struct {
	Path string `cbor:"path"`
	Mode uint32 `cbor:"mode"`
}

func (Chmod) Tag() Tag { return TagChmod }
func (Chmod) isCall()  {}

// Truncate sets a file's size, without requiring an open handle.
type Truncate struct {
	Path string `cbor:"path"`
	Size int64  `cbor:"size"`
}

func (Truncate) Tag() Tag { return TagTruncate }
func (Truncate) isCall()  {}

// Write carries a byte range write. Buf may be a borrowed slice on the
// send path (see NewWriteBorrowed) or an owned copy on the receive/journal
// path (see Own); both flatten through the same CBOR struct.
type Write struct {
	Path   string `cbor:"path"`
	Offset int64  `cbor:"offset"`
	Buf    []byte `cbor:"buf"`
	owned  bool
}

func (Write) Tag() Tag { return TagWrite }
func (Write) isCall()  {}

// NewWriteBorrowed wraps buf without copying. The caller must not mutate
// buf for the lifetime of the returned Write.
func NewWriteBorrowed(path string, offset int64, buf []byte) *Write {
	return &Write{Path: path, Offset: offset, Buf: buf, owned: false}
}

// Own returns a Write holding a private copy of w.Buf, safe to retain past
// the caller's buffer lifetime (journal append, cross-goroutine dispatch).
func (w *Write) Own() *Write {
	if w == nil {
		return nil
	}
	if w.owned {
		return w
	}
	buf := make([]byte, len(w.Buf))
	copy(buf, w.Buf)
	return &Write{Path: w.Path, Offset: w.Offset, Buf: buf, owned: true}
}

// IsOwned reports whether Buf is a private copy.
func (w *Write) IsOwned() bool { return w.owned }

// DiffWrite is a Windows-originated convenience variant carrying the same
// fields as Write; spec.md §9 leaves open whether a POSIX server should
// synthesize it for compression. This implementation does not synthesize
// it automatically — it is accepted and dispatched identically to Write.
type DiffWrite struct {
	Path   string `cbor:"path"`
	Offset int64  `cbor:"offset"`
	Buf    []byte `cbor:"buf"`
}

func (DiffWrite) Tag() Tag { return TagDiffWrite }
func (DiffWrite) isCall()  {}

// TruncatingWrite performs a Write followed by a Truncate to Length.
// POSIX-only convenience variant.
type TruncatingWrite struct {
	Write  Write `cbor:"write"`
	Length int64 `cbor:"length"`
}

func (TruncatingWrite) Tag() Tag { return TagTruncatingWrite }
func (TruncatingWrite) isCall()  {}

// Fallocate reserves or deallocates space. POSIX-only.
type Fallocate struct {
	Path   string `cbor:"path"`
	Mode   uint32 `cbor:"mode"`
	Offset int64  `cbor:"offset"`
	Length int64  `cbor:"length"`
}

func (Fallocate) Tag() Tag { return TagFallocate }
func (Fallocate) isCall()  {}

// Setxattr sets an extended attribute. POSIX-only.
type Setxattr struct {
	Path  string `cbor:"path"`
	Name  string `cbor:"name"`
	Value []byte `cbor:"value"`
	Flags uint32 `cbor:"flags"`
}

func (Setxattr) Tag() Tag { return TagSetxattr }
func (Setxattr) isCall()  {}

// Removexattr removes an extended attribute. POSIX-only.
type Removexattr struct {
	Path string `cbor:"path"`
	Name string `cbor:"name"`
}

func (Removexattr) Tag() Tag { return TagRemovexattr }
func (Removexattr) isCall()  {}

// Create opens (and if needed creates) a file, carrying the flags needed
// to replay the same open() semantics on the replica.
type Create struct {
	Path     string       `cbor:"path"`
	Mode     uint32       `cbor:"mode"`
	Flags    uint32       `cbor:"flags"`
	Security FileSecurity `cbor:"-"`
}

func (Create) Tag() Tag { return TagCreate }
func (Create) isCall()  {}

// Utimens sets the three-slot timestamp array (see Timespec3). POSIX
// adapters populate index 0 (creation) with a zero value, which dispatch
// ignores.
type Utimens struct {
	Path  string    `cbor:"path"`
	Times Timespec3 `cbor:"times"`
}

func (Utimens) Tag() Tag { return TagUtimens }
func (Utimens) isCall()  {}

// Fsync flushes a file (or, if IsDatasync, just its data) to stable
// storage.
type Fsync struct {
	Path       string `cbor:"path"`
	IsDatasync bool   `cbor:"is_datasync"`
}

func (Fsync) Tag() Tag { return TagFsync }
func (Fsync) isCall()  {}

// Security applies an ownership/ACL change independent of Chmod's
// permission-bit change.
type Security struct {
	Path     string       `cbor:"path"`
	Security FileSecurity `cbor:"-"`
}

func (Security) Tag() Tag { return TagSecurity }
func (Security) isCall()  {}

// AllocationSize sets the NTFS allocation size of a file. Windows-only.
type AllocationSize struct {
	Path string `cbor:"path"`
	Size int64  `cbor:"size"`
}

func (AllocationSize) Tag() Tag { return TagAllocationSize }
func (AllocationSize) isCall()  {}
