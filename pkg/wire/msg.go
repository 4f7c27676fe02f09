// Package wire implements the replication fabric's outer wire protocol
// (spec.md §6): the FsyncerMsg tagged union, its CBOR envelope, and the
// length-prefixed framing every message travels in.
package wire

import (
	"fmt"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/fxamacker/cbor/v2"
)

// Mode identifies a replication client's delivery semantics
// (spec.md §4.3).
type Mode uint8

const (
	ModeAsync Mode = iota
	ModeSync
	ModeSemisync
	ModeFlushsync
	ModeControl
)

func (m Mode) String() string {
	switch m {
	case ModeAsync:
		return "async"
	case ModeSync:
		return "sync"
	case ModeSemisync:
		return "semisync"
	case ModeFlushsync:
		return "flushsync"
	case ModeControl:
		return "control"
	default:
		return "unknown"
	}
}

// CompressBit is a bitset of negotiated compressors (spec.md's InitMsg).
type CompressBit uint32

const (
	CompressStreamZSTD CompressBit = 1 << iota
	CompressStreamLZ4
	CompressRTDsscZSTD
	CompressRTDsscChunked
)

func (c CompressBit) Has(bit CompressBit) bool { return c&bit != 0 }

// InitMsg is the first message a client sends after connecting
// (spec.md §6).
type InitMsg struct {
	Mode       Mode        `cbor:"mode"`
	DstHash    uint64      `cbor:"dsthash"`
	Compress   CompressBit `cbor:"compress"`
	IOLimitBps uint64      `cbor:"iolimit_bps"`
}

// Tag discriminates FsyncerMsg's concrete type.
type Tag uint8

const (
	TagInit Tag = iota
	TagAsyncOp
	TagSyncOp
	TagAck
	TagCork
	TagAckCork
	TagUncork
	TagNOP
)

func (t Tag) String() string {
	switch t {
	case TagInit:
		return "init"
	case TagAsyncOp:
		return "async_op"
	case TagSyncOp:
		return "sync_op"
	case TagAck:
		return "ack"
	case TagCork:
		return "cork"
	case TagAckCork:
		return "ack_cork"
	case TagUncork:
		return "uncork"
	case TagNOP:
		return "nop"
	default:
		return "unknown"
	}
}

// Msg is implemented by every FsyncerMsg variant.
type Msg interface {
	Tag() Tag
	isMsg()
}

func (InitMsg) Tag() Tag { return TagInit }
func (InitMsg) isMsg()   {}

// AsyncOp carries a VFSCall replicated without waiting for an ack
// (spec.md §4.3 ASYNC mode).
type AsyncOp struct {
	Call vfscall.Call
}

func (AsyncOp) Tag() Tag { return TagAsyncOp }
func (AsyncOp) isMsg()   {}

// SyncOp carries a VFSCall tagged with the sender's opaque thread id, used
// by SEMISYNC and SYNC modes to match the eventual Ack.
type SyncOp struct {
	Call vfscall.Call
	Tid  uint64
}

func (SyncOp) Tag() Tag { return TagSyncOp }
func (SyncOp) isMsg()   {}

// Ack responds to a SyncOp with the dispatch return code (or 0 for a
// SEMISYNC receipt ack).
type Ack struct {
	Retcode int32  `cbor:"retcode"`
	Tid     uint64 `cbor:"tid"`
}

func (Ack) Tag() Tag { return TagAck }
func (Ack) isMsg()   {}

// Cork asks a client to drain in-flight operations and reply AckCork.
type Cork struct {
	Tid uint64 `cbor:"tid"`
}

func (Cork) Tag() Tag { return TagCork }
func (Cork) isMsg()   {}

// AckCork replies to Cork once the client has drained.
type AckCork struct {
	Tid uint64 `cbor:"tid"`
}

func (AckCork) Tag() Tag { return TagAckCork }
func (AckCork) isMsg()   {}

// Uncork releases a corked client.
type Uncork struct{}

func (Uncork) Tag() Tag { return TagUncork }
func (Uncork) isMsg()   {}

// NOP is a content-free message, used to flush stream compressors that
// buffer internally (spec.md §6 flush thread).
type NOP struct{}

func (NOP) Tag() Tag { return TagNOP }
func (NOP) isMsg()   {}

// Envelope is FsyncerMsg's CBOR wire shape: a tag plus one populated
// variant field, mirroring pkg/vfscall.Envelope. AsyncOp/SyncOp embed
// their VFSCall as pre-encoded bytes (via vfscall.Encode) rather than
// nesting vfscall's own envelope, so this package needs no custom
// Marshaler despite Call being an interface field.
type Envelope struct {
	Tag Tag `cbor:"tag"`

	Init    *InitMsg     `cbor:"init,omitempty"`
	AsyncOp *asyncOpWire `cbor:"async_op,omitempty"`
	SyncOp  *syncOpWire  `cbor:"sync_op,omitempty"`
	Ack     *Ack         `cbor:"ack,omitempty"`
	Cork    *Cork        `cbor:"cork,omitempty"`
	AckCork *AckCork     `cbor:"ack_cork,omitempty"`
	Uncork  *Uncork      `cbor:"uncork,omitempty"`
	NOP     *NOP         `cbor:"nop,omitempty"`
}

type asyncOpWire struct {
	CallData []byte `cbor:"call"`
}

type syncOpWire struct {
	CallData []byte `cbor:"call"`
	Tid      uint64 `cbor:"tid"`
}

// ToEnvelope lifts a concrete Msg into its wire Envelope.
func ToEnvelope(m Msg) (Envelope, error) {
	switch v := m.(type) {
	case InitMsg:
		return Envelope{Tag: TagInit, Init: &v}, nil
	case AsyncOp:
		data, err := vfscall.Encode(v.Call)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Tag: TagAsyncOp, AsyncOp: &asyncOpWire{CallData: data}}, nil
	case SyncOp:
		data, err := vfscall.Encode(v.Call)
		if err != nil {
			return Envelope{}, err
		}
		return Envelope{Tag: TagSyncOp, SyncOp: &syncOpWire{CallData: data, Tid: v.Tid}}, nil
	case Ack:
		return Envelope{Tag: TagAck, Ack: &v}, nil
	case Cork:
		return Envelope{Tag: TagCork, Cork: &v}, nil
	case AckCork:
		return Envelope{Tag: TagAckCork, AckCork: &v}, nil
	case Uncork:
		return Envelope{Tag: TagUncork, Uncork: &v}, nil
	case NOP:
		return Envelope{Tag: TagNOP, NOP: &v}, nil
	default:
		return Envelope{}, fmt.Errorf("wire: unsupported message type %T", m)
	}
}

// Msg extracts the concrete Msg an Envelope carries.
func (e Envelope) Msg() (Msg, error) {
	switch e.Tag {
	case TagInit:
		if e.Init != nil {
			return *e.Init, nil
		}
	case TagAsyncOp:
		if e.AsyncOp != nil {
			call, err := vfscall.Decode(e.AsyncOp.CallData)
			if err != nil {
				return nil, err
			}
			return AsyncOp{Call: call}, nil
		}
	case TagSyncOp:
		if e.SyncOp != nil {
			call, err := vfscall.Decode(e.SyncOp.CallData)
			if err != nil {
				return nil, err
			}
			return SyncOp{Call: call, Tid: e.SyncOp.Tid}, nil
		}
	case TagAck:
		if e.Ack != nil {
			return *e.Ack, nil
		}
	case TagCork:
		if e.Cork != nil {
			return *e.Cork, nil
		}
	case TagAckCork:
		if e.AckCork != nil {
			return *e.AckCork, nil
		}
	case TagUncork:
		if e.Uncork != nil {
			return *e.Uncork, nil
		}
	case TagNOP:
		if e.NOP != nil {
			return *e.NOP, nil
		}
	}
	return nil, fmt.Errorf("wire: envelope missing payload for tag %s", e.Tag)
}

// Encode serializes a Msg to CBOR bytes (without length-prefix framing;
// see WriteFrame).
func Encode(m Msg) ([]byte, error) {
	env, err := ToEnvelope(m)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(env)
}

// Decode parses CBOR bytes (without length-prefix framing) back into a
// Msg.
func Decode(data []byte) (Msg, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.Msg()
}
