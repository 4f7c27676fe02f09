package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

// ErrTranslationRequired is returned when a VFSCall crosses an OS boundary
// and the adapter cannot translate its FileSecurity into the destination
// OS's native form (spec.md §4.1, §7).
var ErrTranslationRequired = errors.New("security: translation_required")

// nameDelim mirrors the original implementation's convention of embedding
// a portable account name inline in an SDDL string between single quotes,
// in place of an actual SID, so that a same-OS Windows hop never needs a
// lookup and a cross-OS hop can recover the name without a directory
// service round-trip.
const nameDelim = "'"

var embeddedNameRE = regexp.MustCompile(`'([^']*)'`)

// AccountTable caches uid/gid <-> portable-name lookups. Real account
// resolution (NSS, LookupAccountSid) is a platform concern left to the
// adapter; AccountTable only holds the associations recorded through
// PutUser and PutGroup, matching the teacher's shared-cache-behind-a-mutex pattern used
// for the client list in pkg/vfs/server.go.
type AccountTable struct {
	mu        sync.RWMutex
	uidToName map[uint32]string
	nameToUID map[string]uint32
	gidToName map[uint32]string
	nameToGID map[string]uint32
}

// NewAccountTable constructs an empty cache.
func NewAccountTable() *AccountTable {
	return &AccountTable{
		uidToName: make(map[uint32]string),
		nameToUID: make(map[string]uint32),
		gidToName: make(map[uint32]string),
		nameToGID: make(map[string]uint32),
	}
}

// PutUser records a uid <-> name association for future lookups.
func (a *AccountTable) PutUser(uid uint32, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uidToName[uid] = name
	a.nameToUID[name] = uid
}

// PutGroup records a gid <-> name association for future lookups.
func (a *AccountTable) PutGroup(gid uint32, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gidToName[gid] = name
	a.nameToGID[name] = gid
}

// UserName returns the cached name for uid, if any.
func (a *AccountTable) UserName(uid uint32) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	name, ok := a.uidToName[uid]
	return name, ok
}

// GroupName returns the cached name for gid, if any.
func (a *AccountTable) GroupName(gid uint32) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	name, ok := a.gidToName[gid]
	return name, ok
}

// UID returns the cached uid for name, if any.
func (a *AccountTable) UID(name string) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	uid, ok := a.nameToUID[name]
	return uid, ok
}

// GID returns the cached gid for name, if any.
func (a *AccountTable) GID(name string) (uint32, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	gid, ok := a.nameToGID[name]
	return gid, ok
}

// Bridge normalizes FileSecurity values across the Unix/Windows/Portable
// sum type per spec.md §4.1:
//
//   - Unix -> Windows: uid/gid -> Portable{owner, group} via the name table.
//   - Windows -> Unix: SDDL -> Portable, after SID -> account-name lookup.
//   - Same-OS hops pass through unchanged.
//
// When translation data is unavailable, Normalize returns
// ErrTranslationRequired; callers must fail the operation rather than
// substitute a default (spec.md §7).
type Bridge struct {
	accounts *AccountTable
}

// NewBridge constructs a Bridge backed by accounts. A nil table is
// replaced with a fresh empty one.
func NewBridge(accounts *AccountTable) *Bridge {
	if accounts == nil {
		accounts = NewAccountTable()
	}
	return &Bridge{accounts: accounts}
}

// OS identifies one end (source or destination) of a replication hop.
type OS uint8

const (
	OSUnix OS = iota
	OSWindows
)

// Normalize converts sec, produced on sourceOS, into the form needed on
// destOS. Same-OS hops are returned unchanged.
func (b *Bridge) Normalize(sec vfscall.FileSecurity, sourceOS, destOS OS) (vfscall.FileSecurity, error) {
	if sec == nil {
		return nil, nil
	}
	if sourceOS == destOS {
		return sec, nil
	}

	switch sourceOS {
	case OSUnix:
		u, ok := sec.(vfscall.UnixSecurity)
		if !ok {
			return nil, fmt.Errorf("%w: expected UnixSecurity on unix source, got %T", ErrTranslationRequired, sec)
		}
		return b.unixToPortable(u)
	case OSWindows:
		w, ok := sec.(vfscall.WindowsSecurity)
		if !ok {
			return nil, fmt.Errorf("%w: expected WindowsSecurity on windows source, got %T", ErrTranslationRequired, sec)
		}
		return b.windowsToPortable(w)
	default:
		return nil, ErrTranslationRequired
	}
}

func (b *Bridge) unixToPortable(u vfscall.UnixSecurity) (vfscall.PortableSecurity, error) {
	owner, ok := b.accounts.UserName(u.UID)
	if !ok {
		return vfscall.PortableSecurity{}, fmt.Errorf("%w: no name cached for uid %d", ErrTranslationRequired, u.UID)
	}
	group, ok := b.accounts.GroupName(u.GID)
	if !ok {
		return vfscall.PortableSecurity{}, fmt.Errorf("%w: no name cached for gid %d", ErrTranslationRequired, u.GID)
	}
	return vfscall.PortableSecurity{Owner: &owner, Group: &group}, nil
}

// windowsToPortable extracts the account name embedded in an SDDL string
// between single quotes (see nameDelim) rather than performing a real
// SID -> account lookup, mirroring the original implementation's chosen
// encoding trick for portability.
func (b *Bridge) windowsToPortable(w vfscall.WindowsSecurity) (vfscall.PortableSecurity, error) {
	matches := embeddedNameRE.FindAllStringSubmatch(w.SDDL, -1)
	if len(matches) == 0 {
		return vfscall.PortableSecurity{}, fmt.Errorf("%w: SDDL %q has no embedded name", ErrTranslationRequired, w.SDDL)
	}
	owner := matches[0][1]
	portable := vfscall.PortableSecurity{Owner: &owner}
	if len(matches) > 1 {
		group := matches[1][1]
		portable.Group = &group
	}
	return portable, nil
}

// EmbedName produces an SDDL fragment carrying name inline, following the
// '<name>' convention above. It panics if name itself contains the
// delimiter, matching the original implementation's stated behavior for
// that (considered-impossible) case.
func EmbedName(name string) string {
	if strings.Contains(name, nameDelim) {
		panic("security: account name contains SDDL delimiter")
	}
	return nameDelim + name + nameDelim
}
