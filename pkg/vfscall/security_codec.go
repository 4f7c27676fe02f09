package vfscall

import "github.com/fxamacker/cbor/v2"

// The six variants carrying a FileSecurity field implement MarshalCBOR /
// UnmarshalCBOR by hand: FileSecurity is an interface, so it is excluded
// from the struct's automatic encoding (cbor:"-") and instead flattened
// through securityEnvelope, the same wire shape used standalone in
// security.go.

type mknodWire struct {
	Path     string           `cbor:"path"`
	Mode     uint32           `cbor:"mode"`
	Rdev     uint64           `cbor:"rdev"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Mknod) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(mknodWire{v.Path, v.Mode, v.Rdev, encodeSecurity(v.Security)})
}

func (v *Mknod) UnmarshalCBOR(data []byte) error {
	var w mknodWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.Path, v.Mode, v.Rdev = w.Path, w.Mode, w.Rdev
	v.Security = decodeSecurity(w.Security)
	return nil
}

type mkdirWire struct {
	Path     string           `cbor:"path"`
	Mode     uint32           `cbor:"mode"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Mkdir) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(mkdirWire{v.Path, v.Mode, encodeSecurity(v.Security)})
}

func (v *Mkdir) UnmarshalCBOR(data []byte) error {
	var w mkdirWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.Path, v.Mode = w.Path, w.Mode
	v.Security = decodeSecurity(w.Security)
	return nil
}

type symlinkWire struct {
	From     string           `cbor:"from"`
	To       string           `cbor:"to"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Symlink) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(symlinkWire{v.From, v.To, encodeSecurity(v.Security)})
}

func (v *Symlink) UnmarshalCBOR(data []byte) error {
	var w symlinkWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.From, v.To = w.From, w.To
	v.Security = decodeSecurity(w.Security)
	return nil
}

type linkWire struct {
	From     string           `cbor:"from"`
	To       string           `cbor:"to"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Link) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(linkWire{v.From, v.To, encodeSecurity(v.Security)})
}

func (v *Link) UnmarshalCBOR(data []byte) error {
	var w linkWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.From, v.To = w.From, w.To
	v.Security = decodeSecurity(w.Security)
	return nil
}

type createWire struct {
	Path     string           `cbor:"path"`
	Mode     uint32           `cbor:"mode"`
	Flags    uint32           `cbor:"flags"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Create) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(createWire{v.Path, v.Mode, v.Flags, encodeSecurity(v.Security)})
}

func (v *Create) UnmarshalCBOR(data []byte) error {
	var w createWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.Path, v.Mode, v.Flags = w.Path, w.Mode, w.Flags
	v.Security = decodeSecurity(w.Security)
	return nil
}

type securityOpWire struct {
	Path     string           `cbor:"path"`
	Security securityEnvelope `cbor:"security,omitempty"`
}

func (v Security) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(securityOpWire{v.Path, encodeSecurity(v.Security)})
}

func (v *Security) UnmarshalCBOR(data []byte) error {
	var w securityOpWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	v.Path = w.Path
	v.Security = decodeSecurity(w.Security)
	return nil
}
