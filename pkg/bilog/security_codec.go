package bilog

import "github.com/bahusvel/fsyncer/pkg/vfscall"

// securityWire is SecurityRecord's CBOR wire shape: identical fields, but
// with Before re-typed as vfscall.SecurityEnvelope so the FileSecurity
// interface value (excluded from SecurityRecord's own default encoding)
// can round-trip.
type securityWire struct {
	At     string                     `cbor:"path"`
	UIDXOR uint32                     `cbor:"uid_xor"`
	GIDXOR uint32                     `cbor:"gid_xor"`
	Direct bool                       `cbor:"direct"`
	Before vfscall.SecurityEnvelope `cbor:"before,omitempty"`
}

func encodeSecurityRecord(r SecurityRecord) (*securityWire, error) {
	return &securityWire{
		At:     r.At,
		UIDXOR: r.UIDXOR,
		GIDXOR: r.GIDXOR,
		Direct: r.Direct,
		Before: vfscall.EncodeSecurity(r.Before),
	}, nil
}

func decodeSecurityRecord(w *securityWire) (SecurityRecord, error) {
	return SecurityRecord{
		At:     w.At,
		UIDXOR: w.UIDXOR,
		GIDXOR: w.GIDXOR,
		Direct: w.Direct,
		Before: vfscall.DecodeSecurity(w.Before),
	}, nil
}
