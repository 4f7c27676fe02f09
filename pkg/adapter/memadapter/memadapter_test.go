package memadapter

import (
	"testing"

	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/require"
)

func TestUnlinkMissingReturnsENOENT(t *testing.T) {
	a := New(adapter.NewEngine(nil, nil, nil))
	rc := a.Handle(vfscall.Unlink{Path: "/missing"})
	require.Equal(t, errENOENT, rc)
}

func TestRenameMovesEntry(t *testing.T) {
	a := New(adapter.NewEngine(nil, nil, nil))
	require.Equal(t, int32(0), a.Handle(vfscall.Create{Path: "/a", Mode: 0o644}))
	require.Equal(t, int32(0), a.Handle(vfscall.Rename{From: "/a", To: "/b"}))
	require.Equal(t, errENOENT, a.Handle(vfscall.Unlink{Path: "/a"}))
	require.Equal(t, int32(0), a.Handle(vfscall.Unlink{Path: "/b"}))
}

func TestWriteExtendsFile(t *testing.T) {
	a := New(adapter.NewEngine(nil, nil, nil))
	require.Equal(t, int32(0), a.Handle(vfscall.Create{Path: "/a", Mode: 0o644}))
	rc := a.Handle(vfscall.Write{Path: "/a", Offset: 10, Buf: []byte("xyz")})
	require.Equal(t, int32(3), rc)
}
