package security

import (
	"testing"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatorToBacking(t *testing.T) {
	tr := NewTranslator("/srv/mirror")

	backing, err := tr.ToBacking("/a/b")
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror/a/b", backing)

	backing, err = tr.ToBacking("a/b")
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror/a/b", backing, "normalization must prepend / before the absoluteness check")
}

func TestTranslatorCleansTraversal(t *testing.T) {
	tr := NewTranslator("/srv/mirror")
	// filepath.Clean collapses ".." against the leading "/" before the
	// root join, so this resolves to /etc/passwd under the root rather
	// than escaping it.
	backing, err := tr.ToBacking("/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/srv/mirror/etc/passwd", backing)
}

func TestTranslatorRoundTrip(t *testing.T) {
	tr := NewTranslator("/srv/mirror")
	backing, err := tr.ToBacking("/a/b")
	require.NoError(t, err)
	guest, err := tr.ToGuest(backing)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", guest)
}

func TestBridgeSameOSPassthrough(t *testing.T) {
	b := NewBridge(nil)
	sec := vfscall.UnixSecurity{UID: 1, GID: 2}
	out, err := b.Normalize(sec, OSUnix, OSUnix)
	require.NoError(t, err)
	assert.Equal(t, sec, out)
}

func TestBridgeUnixToPortableRequiresCache(t *testing.T) {
	b := NewBridge(nil)
	sec := vfscall.UnixSecurity{UID: 1000, GID: 1000}
	_, err := b.Normalize(sec, OSUnix, OSWindows)
	require.ErrorIs(t, err, ErrTranslationRequired)
}

func TestBridgeUnixToPortableWithCache(t *testing.T) {
	accounts := NewAccountTable()
	accounts.PutUser(1000, "alice")
	accounts.PutGroup(1000, "staff")
	b := NewBridge(accounts)

	out, err := b.Normalize(vfscall.UnixSecurity{UID: 1000, GID: 1000}, OSUnix, OSWindows)
	require.NoError(t, err)
	portable, ok := out.(vfscall.PortableSecurity)
	require.True(t, ok)
	require.NotNil(t, portable.Owner)
	require.NotNil(t, portable.Group)
	assert.Equal(t, "alice", *portable.Owner)
	assert.Equal(t, "staff", *portable.Group)
}

func TestBridgeWindowsToPortable(t *testing.T) {
	b := NewBridge(nil)
	sddl := "O:" + EmbedName("alice") + "G:" + EmbedName("staff")
	out, err := b.Normalize(vfscall.WindowsSecurity{SDDL: sddl}, OSWindows, OSUnix)
	require.NoError(t, err)
	portable, ok := out.(vfscall.PortableSecurity)
	require.True(t, ok)
	require.NotNil(t, portable.Owner)
	require.NotNil(t, portable.Group)
	assert.Equal(t, "alice", *portable.Owner)
	assert.Equal(t, "staff", *portable.Group)
}

func TestBridgeWindowsToPortableRequiresEmbeddedName(t *testing.T) {
	b := NewBridge(nil)
	_, err := b.Normalize(vfscall.WindowsSecurity{SDDL: "O:S-1-5-21"}, OSWindows, OSUnix)
	require.ErrorIs(t, err, ErrTranslationRequired)
}

func TestEmbedNamePanicsOnDelimiter(t *testing.T) {
	assert.Panics(t, func() { EmbedName("a'b") })
}
