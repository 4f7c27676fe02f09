package vfscall

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, c Call) Call {
	t.Helper()
	data, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	return got
}

func TestRoundTripSimpleVariants(t *testing.T) {
	cases := []Call{
		Unlink{Path: "/a"},
		Rmdir{Path: "/a/b"},
		Rename{From: "/a", To: "/b", Flags: 1},
		Chmod{Path: "/a", Mode: 0644},
		Truncate{Path: "/a", Size: 42},
		Fallocate{Path: "/a", Mode: 1, Offset: 10, Length: 20},
		Setxattr{Path: "/a", Name: "user.x", Value: []byte{1, 2, 3}, Flags: 0},
		Removexattr{Path: "/a", Name: "user.x"},
		Utimens{Path: "/a", Times: Timespec3{{1, 2}, {3, 4}, {5, 6}}},
		Fsync{Path: "/a", IsDatasync: true},
		AllocationSize{Path: "/a", Size: 1024},
		DiffWrite{Path: "/a", Offset: 0, Buf: []byte("hi")},
		TruncatingWrite{Write: Write{Path: "/a", Offset: 0, Buf: []byte("hi")}, Length: 2},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		require.Equal(t, c, got)
	}
}

func TestRoundTripSecurityVariants(t *testing.T) {
	mask := uint32(7)
	cases := []Call{
		Mknod{Path: "/dev/x", Mode: 0600, Rdev: 5, Security: UnixSecurity{UID: 1, GID: 2}},
		Mkdir{Path: "/d", Mode: 0755, Security: PortableSecurity{}},
		Symlink{From: "target", To: "/link", Security: UnixSecurity{UID: 3, GID: 4}},
		Link{From: "/a", To: "/b", Security: nil},
		Create{Path: "/f", Mode: 0644, Flags: 0x241, Security: WindowsSecurity{SDDL: "D:...", InfoMask: &mask}},
		Security{Path: "/f", Security: UnixSecurity{UID: 9, GID: 9}},
	}

	for _, c := range cases {
		got := roundTrip(t, c)
		require.Equal(t, c, got)
	}
}

func TestWriteBorrowedVsOwned(t *testing.T) {
	buf := []byte("hello")
	w := NewWriteBorrowed("/f", 0, buf)
	require.False(t, w.IsOwned())

	owned := w.Own()
	require.True(t, owned.IsOwned())
	buf[0] = 'H'
	require.Equal(t, byte('h'), owned.Buf[0], "owned copy must not observe mutation of the borrowed source")

	got := roundTrip(t, *owned)
	gotWrite, ok := got.(Write)
	require.True(t, ok)
	require.Equal(t, "/f", gotWrite.Path)
	require.Equal(t, []byte("hello"), gotWrite.Buf)
}

func TestDecodeRejectsEnvelopeMissingPayload(t *testing.T) {
	env := Envelope{Tag: TagMkdir} // Tag set, but no Mkdir payload attached.
	data, err := cbor.Marshal(env)
	require.NoError(t, err)
	_, err = Decode(data)
	require.Error(t, err)
}

func TestMaxInlineMessageBound(t *testing.T) {
	require.Equal(t, 33*1024, MaxInlineMessage)
}
