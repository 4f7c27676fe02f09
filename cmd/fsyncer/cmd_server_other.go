//go:build !unix

package main

import (
	"errors"

	"github.com/bahusvel/fsyncer/pkg/adapter"
)

// mountAdapter has no Windows/Dokan implementation in this module: the
// Dokan adapter shim is named in spec.md §1 as an external collaborator,
// out of scope for this daemon's core.
func mountAdapter(mountPath, backingRoot string, engine *adapter.Engine) (func(), error) {
	return nil, errors.New("fsyncer: no VFS adapter available on this platform (Dokan binding out of scope)")
}
