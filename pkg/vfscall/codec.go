package vfscall

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MaxInlineMessage bounds a single framed message; larger writes require
// chunking at a higher layer (spec.md §4.1). 33 KiB matches the spec's
// default inline ceiling.
const MaxInlineMessage = 33 * 1024

// Envelope is the on-wire tagged union: Tag discriminates which of the
// pointer fields is populated. Exactly one non-nil field is expected per
// Tag value. This generalizes the teacher's flat VFSRequest (one struct,
// one OpCode switch over a handful of shared fields) to a true sum type
// capable of carrying each VFSCall variant's distinct field set.
type Envelope struct {
	Tag Tag `cbor:"tag"`

	Mknod           *Mknod           `cbor:"mknod,omitempty"`
	Mkdir           *Mkdir           `cbor:"mkdir,omitempty"`
	Unlink          *Unlink          `cbor:"unlink,omitempty"`
	Rmdir           *Rmdir           `cbor:"rmdir,omitempty"`
	Symlink         *Symlink         `cbor:"symlink,omitempty"`
	Rename          *Rename          `cbor:"rename,omitempty"`
	Link            *Link            `cbor:"link,omitempty"`
	Chmod           *Chmod           `cbor:"chmod,omitempty"`
	Truncate        *Truncate        `cbor:"truncate,omitempty"`
	Write           *Write           `cbor:"write,omitempty"`
	DiffWrite       *DiffWrite       `cbor:"diff_write,omitempty"`
	TruncatingWrite *TruncatingWrite `cbor:"truncating_write,omitempty"`
	Fallocate       *Fallocate       `cbor:"fallocate,omitempty"`
	Setxattr        *Setxattr        `cbor:"setxattr,omitempty"`
	Removexattr     *Removexattr     `cbor:"removexattr,omitempty"`
	Create          *Create          `cbor:"create,omitempty"`
	Utimens         *Utimens         `cbor:"utimens,omitempty"`
	Fsync           *Fsync           `cbor:"fsync,omitempty"`
	Security        *Security        `cbor:"security,omitempty"`
	AllocationSize  *AllocationSize  `cbor:"allocation_size,omitempty"`
}

// ToEnvelope wraps a concrete Call in an Envelope for marshaling.
func ToEnvelope(c Call) (Envelope, error) {
	env := Envelope{Tag: c.Tag()}
	switch v := c.(type) {
	case Mknod:
		env.Mknod = &v
	case *Mknod:
		env.Mknod = v
	case Mkdir:
		env.Mkdir = &v
	case *Mkdir:
		env.Mkdir = v
	case Unlink:
		env.Unlink = &v
	case *Unlink:
		env.Unlink = v
	case Rmdir:
		env.Rmdir = &v
	case *Rmdir:
		env.Rmdir = v
	case Symlink:
		env.Symlink = &v
	case *Symlink:
		env.Symlink = v
	case Rename:
		env.Rename = &v
	case *Rename:
		env.Rename = v
	case Link:
		env.Link = &v
	case *Link:
		env.Link = v
	case Chmod:
		env.Chmod = &v
	case *Chmod:
		env.Chmod = v
	case Truncate:
		env.Truncate = &v
	case *Truncate:
		env.Truncate = v
	case Write:
		env.Write = &v
	case *Write:
		env.Write = v
	case DiffWrite:
		env.DiffWrite = &v
	case *DiffWrite:
		env.DiffWrite = v
	case TruncatingWrite:
		env.TruncatingWrite = &v
	case *TruncatingWrite:
		env.TruncatingWrite = v
	case Fallocate:
		env.Fallocate = &v
	case *Fallocate:
		env.Fallocate = v
	case Setxattr:
		env.Setxattr = &v
	case *Setxattr:
		env.Setxattr = v
	case Removexattr:
		env.Removexattr = &v
	case *Removexattr:
		env.Removexattr = v
	case Create:
		env.Create = &v
	case *Create:
		env.Create = v
	case Utimens:
		env.Utimens = &v
	case *Utimens:
		env.Utimens = v
	case Fsync:
		env.Fsync = &v
	case *Fsync:
		env.Fsync = v
	case Security:
		env.Security = &v
	case *Security:
		env.Security = v
	case AllocationSize:
		env.AllocationSize = &v
	case *AllocationSize:
		env.AllocationSize = v
	default:
		return Envelope{}, fmt.Errorf("vfscall: unsupported call type %T", c)
	}
	return env, nil
}

// Call extracts the concrete VFSCall value named by e.Tag.
func (e Envelope) Call() (Call, error) {
	switch e.Tag {
	case TagMknod:
		if e.Mknod != nil {
			return *e.Mknod, nil
		}
	case TagMkdir:
		if e.Mkdir != nil {
			return *e.Mkdir, nil
		}
	case TagUnlink:
		if e.Unlink != nil {
			return *e.Unlink, nil
		}
	case TagRmdir:
		if e.Rmdir != nil {
			return *e.Rmdir, nil
		}
	case TagSymlink:
		if e.Symlink != nil {
			return *e.Symlink, nil
		}
	case TagRename:
		if e.Rename != nil {
			return *e.Rename, nil
		}
	case TagLink:
		if e.Link != nil {
			return *e.Link, nil
		}
	case TagChmod:
		if e.Chmod != nil {
			return *e.Chmod, nil
		}
	case TagTruncate:
		if e.Truncate != nil {
			return *e.Truncate, nil
		}
	case TagWrite:
		if e.Write != nil {
			return *e.Write, nil
		}
	case TagDiffWrite:
		if e.DiffWrite != nil {
			return *e.DiffWrite, nil
		}
	case TagTruncatingWrite:
		if e.TruncatingWrite != nil {
			return *e.TruncatingWrite, nil
		}
	case TagFallocate:
		if e.Fallocate != nil {
			return *e.Fallocate, nil
		}
	case TagSetxattr:
		if e.Setxattr != nil {
			return *e.Setxattr, nil
		}
	case TagRemovexattr:
		if e.Removexattr != nil {
			return *e.Removexattr, nil
		}
	case TagCreate:
		if e.Create != nil {
			return *e.Create, nil
		}
	case TagUtimens:
		if e.Utimens != nil {
			return *e.Utimens, nil
		}
	case TagFsync:
		if e.Fsync != nil {
			return *e.Fsync, nil
		}
	case TagSecurity:
		if e.Security != nil {
			return *e.Security, nil
		}
	case TagAllocationSize:
		if e.AllocationSize != nil {
			return *e.AllocationSize, nil
		}
	}
	return nil, fmt.Errorf("vfscall: envelope missing payload for tag %s", e.Tag)
}

// Encode serializes a Call to its CBOR envelope form.
func Encode(c Call) ([]byte, error) {
	env, err := ToEnvelope(c)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(env)
}

// Decode deserializes a Call from its CBOR envelope form.
func Decode(data []byte) (Call, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("vfscall: decode envelope: %w", err)
	}
	return env.Call()
}
