// Package bilog implements the bidirectional log (bilog) transformation
// described in spec.md §4.6: given a VFSCall and the filesystem state
// captured immediately before it was applied, produce a Record that can
// reproduce *or* reverse the operation against whatever the filesystem's
// current state happens to be.
//
// Simple, invertible operations (chmod, security/chown, utimens, write,
// xattr) are stored as the XOR of old and new state, so a second
// application toggles between them. Structural operations (mkdir/rmdir,
// create/unlink/symlink/link/mknod, rename) have no natural XOR and are
// instead stored as the pre-mutation state, with direction decided by a
// stat probe at replay time.
package bilog

import "github.com/bahusvel/fsyncer/pkg/vfscall"

// Tag identifies a Record's concrete type for its wire/journal envelope.
type Tag uint8

const (
	TagChmod Tag = iota
	TagSecurity
	TagUtimens
	TagWrite
	TagXattr
	TagDir
	TagFile
	TagRename
)

func (t Tag) String() string {
	switch t {
	case TagChmod:
		return "chmod"
	case TagSecurity:
		return "security"
	case TagUtimens:
		return "utimens"
	case TagWrite:
		return "write"
	case TagXattr:
		return "xattr"
	case TagDir:
		return "dir"
	case TagFile:
		return "file"
	case TagRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Record is implemented by every bilog record variant.
type Record interface {
	Path() string
	Tag() Tag
	isRecord()
}

// ChmodRecord stores mode_before XOR mode_after. Applying it against the
// current mode toggles between the two.
type ChmodRecord struct {
	At      string `cbor:"path"`
	ModeXOR uint32 `cbor:"mode_xor"`
}

func (r ChmodRecord) Path() string { return r.At }
func (ChmodRecord) Tag() Tag        { return TagChmod }
func (ChmodRecord) isRecord()       {}

// SecurityRecord stores the reversible form of an ownership/ACL change.
// When both the before and after security were vfscall.UnixSecurity, UID
// and GID carry the XOR (the fast, fully reversible path). Otherwise (a
// Windows SDDL change, or a cross-OS Portable value) there is no bitwise
// XOR that makes sense, so the full pre-mutation FileSecurity is stored
// verbatim in Before and Direct is set; replay simply reassigns it,
// which reverses but does not "redo" on a second application.
type SecurityRecord struct {
	At      string              `cbor:"path"`
	UIDXOR  uint32              `cbor:"uid_xor"`
	GIDXOR  uint32              `cbor:"gid_xor"`
	Direct  bool                `cbor:"direct"`
	Before  vfscall.FileSecurity `cbor:"-"`
}

func (r SecurityRecord) Path() string { return r.At }
func (SecurityRecord) Tag() Tag        { return TagSecurity }
func (SecurityRecord) isRecord()       {}

// UtimensRecord stores the XOR, field by field, of the before/after
// Timespec3 arrays.
type UtimensRecord struct {
	At       string             `cbor:"path"`
	TimesXOR vfscall.Timespec3 `cbor:"times_xor"`
}

func (r UtimensRecord) Path() string { return r.At }
func (UtimensRecord) Tag() Tag        { return TagUtimens }
func (UtimensRecord) isRecord()       {}

// WriteRecord stores a byte-range XOR diff (spec.md's log_write). SizeXOR
// is old_size XOR new_size, so truncations toggle correctly; Buf is the
// XOR of the old and new bytes spanning [Offset, Offset+len(Buf)), with
// the "old" side zero-padded when the write extended the file.
type WriteRecord struct {
	At      string `cbor:"path"`
	Offset  int64  `cbor:"offset"`
	SizeXOR int64  `cbor:"size_xor"`
	Buf     []byte `cbor:"buf"`
}

func (r WriteRecord) Path() string { return r.At }
func (WriteRecord) Tag() Tag        { return TagWrite }
func (WriteRecord) isRecord()       {}

// XattrRecord stores an XOR diff of a single extended attribute's
// before/after value (spec.md's log_xattr), the same reversible
// encoding captureWrite uses for file bytes: HasValue is old-has XOR
// new-has, SizeXOR is old-length XOR new-length, and Value is the
// XOR of the old and new byte strings (absent side treated as empty).
// Replay recovers whichever side isn't the current on-disk state by
// XORing again against it; see applyXattr in apply_unix.go.
type XattrRecord struct {
	At       string `cbor:"path"`
	Name     string `cbor:"name"`
	HasValue bool   `cbor:"has_value"`
	SizeXOR  int    `cbor:"size_xor"`
	Value    []byte `cbor:"value"`
}

func (r XattrRecord) Path() string { return r.At }
func (XattrRecord) Tag() Tag        { return TagXattr }
func (XattrRecord) isRecord()       {}

// DirRecord stores a directory's path and mode (spec.md's log_dir).
// Replay: if the directory exists, rmdir; otherwise mkdir(mode).
type DirRecord struct {
	At   string `cbor:"path"`
	Mode uint32 `cbor:"mode"`
}

func (r DirRecord) Path() string { return r.At }
func (DirRecord) Tag() Tag        { return TagDir }
func (DirRecord) isRecord()       {}

// FileKind discriminates what FileRecord.Before describes.
type FileKind uint8

const (
	FileKindAbsent FileKind = iota
	FileKindRegular
	FileKindSymlink
	FileKindHardlink
	FileKindNode
)

func (k FileKind) String() string {
	switch k {
	case FileKindAbsent:
		return "absent"
	case FileKindRegular:
		return "regular"
	case FileKindSymlink:
		return "symlink"
	case FileKindHardlink:
		return "hardlink"
	case FileKindNode:
		return "node"
	default:
		return "unknown"
	}
}

// FileRecord stores spec.md's log_file tagged union: enough to recreate
// (or remove) whatever existed at At before the mutation.
type FileRecord struct {
	At     string   `cbor:"path"`
	Kind   FileKind `cbor:"kind"`
	Mode   uint32   `cbor:"mode"`
	Rdev   uint64   `cbor:"rdev"`
	Target string   `cbor:"target"` // symlink target, or hardlink peer path
	// StoreToken names the FileStore trash entry holding a regular file's
	// preserved bytes, when an unlink moved it aside instead of deleting it.
	StoreToken string `cbor:"store_token,omitempty"`
}

func (r FileRecord) Path() string { return r.At }
func (FileRecord) Tag() Tag        { return TagFile }
func (FileRecord) isRecord()       {}

// RenameRecord stores a rename's endpoints. Replay picks direction by
// probing whether To currently exists (see Apply). FromExists — the state
// captured before the forward rename — is recorded but not consulted by
// replay.
type RenameRecord struct {
	From       string `cbor:"from"`
	To         string `cbor:"to"`
	FromExists bool   `cbor:"from_exists"`
}

func (r RenameRecord) Path() string { return r.To }
func (RenameRecord) Tag() Tag        { return TagRename }
func (RenameRecord) isRecord()       {}
