package bilog

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope is the CBOR wire/journal shape for a Record: one optional
// pointer field per variant, selected by Tag, mirroring
// pkg/vfscall.Envelope.
type Envelope struct {
	Tag Tag `cbor:"tag"`

	Chmod    *ChmodRecord    `cbor:"chmod,omitempty"`
	Security *securityWire   `cbor:"security,omitempty"`
	Utimens  *UtimensRecord  `cbor:"utimens,omitempty"`
	Write    *WriteRecord    `cbor:"write,omitempty"`
	Xattr    *XattrRecord    `cbor:"xattr,omitempty"`
	Dir      *DirRecord      `cbor:"dir,omitempty"`
	File     *FileRecord     `cbor:"file,omitempty"`
	Rename   *RenameRecord   `cbor:"rename,omitempty"`
}

// ToEnvelope lifts a concrete Record into its wire Envelope.
func ToEnvelope(r Record) (Envelope, error) {
	switch v := r.(type) {
	case ChmodRecord:
		return Envelope{Tag: TagChmod, Chmod: &v}, nil
	case SecurityRecord:
		w, err := encodeSecurityRecord(v)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Tag: TagSecurity, Security: w}, nil
	case UtimensRecord:
		return Envelope{Tag: TagUtimens, Utimens: &v}, nil
	case WriteRecord:
		return Envelope{Tag: TagWrite, Write: &v}, nil
	case XattrRecord:
		return Envelope{Tag: TagXattr, Xattr: &v}, nil
	case DirRecord:
		return Envelope{Tag: TagDir, Dir: &v}, nil
	case FileRecord:
		return Envelope{Tag: TagFile, File: &v}, nil
	case RenameRecord:
		return Envelope{Tag: TagRename, Rename: &v}, nil
	default:
		return Envelope{}, fmt.Errorf("bilog: unsupported record type %T", r)
	}
}

// Record extracts the concrete Record an Envelope carries.
func (e Envelope) Record() (Record, error) {
	switch e.Tag {
	case TagChmod:
		if e.Chmod == nil {
			break
		}
		return *e.Chmod, nil
	case TagSecurity:
		if e.Security == nil {
			break
		}
		return decodeSecurityRecord(e.Security)
	case TagUtimens:
		if e.Utimens == nil {
			break
		}
		return *e.Utimens, nil
	case TagWrite:
		if e.Write == nil {
			break
		}
		return *e.Write, nil
	case TagXattr:
		if e.Xattr == nil {
			break
		}
		return *e.Xattr, nil
	case TagDir:
		if e.Dir == nil {
			break
		}
		return *e.Dir, nil
	case TagFile:
		if e.File == nil {
			break
		}
		return *e.File, nil
	case TagRename:
		if e.Rename == nil {
			break
		}
		return *e.Rename, nil
	}
	return nil, fmt.Errorf("bilog: envelope missing payload for tag %s", e.Tag)
}

// Encode serializes a Record to CBOR bytes suitable for journal storage.
func Encode(r Record) ([]byte, error) {
	env, err := ToEnvelope(r)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(env)
}

// Decode parses CBOR bytes back into a Record.
func Decode(data []byte) (Record, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.Record()
}
