// Package vfscall defines the tagged union of mutating filesystem
// operations (VFSCall) that is the spine of fsyncer: every VFSCall can be
// constructed on one host, carried over the wire or into the journal, and
// replayed on another host or operating system without loss of fidelity.
package vfscall

// Tag discriminates the concrete VFSCall variant carried inside an Envelope.
// Values are stable across versions: the wire format is forward-compatible
// only if existing tags never change meaning.
type Tag uint8

const (
	TagMknod Tag = iota
	TagMkdir
	TagUnlink
	TagRmdir
	TagSymlink
	TagRename
	TagLink
	TagChmod
	TagTruncate
	TagWrite
	TagDiffWrite
	TagTruncatingWrite
	TagFallocate
	TagSetxattr
	TagRemovexattr
	TagCreate
	TagUtimens
	TagFsync
	TagSecurity
	TagAllocationSize
)

func (t Tag) String() string {
	switch t {
	case TagMknod:
		return "mknod"
	case TagMkdir:
		return "mkdir"
	case TagUnlink:
		return "unlink"
	case TagRmdir:
		return "rmdir"
	case TagSymlink:
		return "symlink"
	case TagRename:
		return "rename"
	case TagLink:
		return "link"
	case TagChmod:
		return "chmod"
	case TagTruncate:
		return "truncate"
	case TagWrite:
		return "write"
	case TagDiffWrite:
		return "diff_write"
	case TagTruncatingWrite:
		return "truncating_write"
	case TagFallocate:
		return "fallocate"
	case TagSetxattr:
		return "setxattr"
	case TagRemovexattr:
		return "removexattr"
	case TagCreate:
		return "create"
	case TagUtimens:
		return "utimens"
	case TagFsync:
		return "fsync"
	case TagSecurity:
		return "security"
	case TagAllocationSize:
		return "allocation_size"
	default:
		return "unknown"
	}
}
