package bilog

import (
	"testing"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, r Record) Record {
	t.Helper()
	data, err := Encode(r)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)
	return out
}

func TestRoundTripSimpleRecords(t *testing.T) {
	cases := []Record{
		ChmodRecord{At: "/a", ModeXOR: 0o22},
		UtimensRecord{At: "/a", TimesXOR: vfscall.Timespec3{{}, {Sec: 1}, {Sec: 2, Nsec: 3}}},
		WriteRecord{At: "/a", Offset: 10, SizeXOR: 5, Buf: []byte{1, 2, 3}},
		XattrRecord{At: "/a", Name: "user.x", HasValue: true, SizeXOR: 2, Value: []byte("v")},
		DirRecord{At: "/d", Mode: 0o755},
		FileRecord{At: "/f", Kind: FileKindSymlink, Target: "/target"},
		RenameRecord{From: "/a", To: "/b", FromExists: true},
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripSecurityRecordXOR(t *testing.T) {
	rec := SecurityRecord{At: "/a", UIDXOR: 7, GIDXOR: 9}
	got := roundTrip(t, rec)
	sec, ok := got.(SecurityRecord)
	require.True(t, ok)
	assert.Equal(t, uint32(7), sec.UIDXOR)
	assert.Equal(t, uint32(9), sec.GIDXOR)
	assert.False(t, sec.Direct)
	assert.Nil(t, sec.Before)
}

func TestRoundTripSecurityRecordDirect(t *testing.T) {
	rec := SecurityRecord{At: "/a", Direct: true, Before: vfscall.UnixSecurity{UID: 1000, GID: 1000}}
	got := roundTrip(t, rec)
	sec, ok := got.(SecurityRecord)
	require.True(t, ok)
	assert.True(t, sec.Direct)
	assert.Equal(t, vfscall.UnixSecurity{UID: 1000, GID: 1000}, sec.Before)
}

func TestDecodeRejectsEnvelopeMissingPayload(t *testing.T) {
	env := Envelope{Tag: TagDir}
	data, err := cbor.Marshal(env)
	require.NoError(t, err)
	_, err = Decode(data)
	assert.Error(t, err)
}
