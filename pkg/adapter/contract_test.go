package adapter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bahusvel/fsyncer/pkg/adapter/memadapter"
	"github.com/bahusvel/fsyncer/pkg/bilog"
	"github.com/bahusvel/fsyncer/pkg/journal"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/require"
)

func TestEnginePreOpPostOpRoundTrip(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	a := memadapter.New(e)

	rc := a.Handle(vfscall.Mkdir{Path: "/a", Mode: 0o755})
	require.Equal(t, int32(0), rc)

	rc = a.Handle(vfscall.Create{Path: "/a/f", Mode: 0o644})
	require.Equal(t, int32(0), rc)

	rc = a.Handle(vfscall.Write{Path: "/a/f", Offset: 0, Buf: []byte("hi")})
	require.Equal(t, int32(2), rc)
}

func TestEngineShortCircuitsAfterShutdown(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	a := memadapter.New(e)

	e.Shutdown()
	rc := a.Handle(vfscall.Mkdir{Path: "/a", Mode: 0o755})
	require.Less(t, rc, int32(0))
}

func TestPostOpSkipsJournalOnFailure(t *testing.T) {
	store, err := journal.Create(filepath.Join(t.TempDir(), "journal.bin"), journal.BlockSize, journal.TypeBilog, false)
	require.NoError(t, err)
	defer store.Close()

	e := NewEngine(bilog.NewEngine(t.TempDir(), nil), store, nil)
	ref := e.PreOp(vfscall.Unlink{Path: "/missing"})
	rc := e.PostOp(ref, -2)
	require.Equal(t, int32(-2), rc)
	require.Equal(t, uint64(0), store.Header().Tail) // nothing was appended
}

func TestPreOpPostOpSerializesConcurrentCallers(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	a := memadapter.New(e)

	// Hold the engine as an in-flight operation does between PreOp and
	// PostOp; a concurrent caller must not get past its own PreOp until
	// this operation's PostOp runs.
	ref := e.PreOp(vfscall.Mkdir{Path: "/other", Mode: 0o755})
	done := make(chan int32, 1)
	go func() { done <- a.Handle(vfscall.Mkdir{Path: "/concurrent", Mode: 0o755}) }()

	select {
	case <-done:
		t.Fatal("concurrent caller completed while another operation held the engine")
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, int32(0), e.PostOp(ref, 0))
	require.Equal(t, int32(0), <-done)

	rc := a.Handle(vfscall.Mkdir{Path: "/concurrent", Mode: 0o755})
	require.Equal(t, int32(-17), rc) // EEXIST: the first Mkdir must have fully completed before this one ran
}
