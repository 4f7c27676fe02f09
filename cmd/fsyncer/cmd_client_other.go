//go:build !unix

package main

import (
	"errors"

	"github.com/bahusvel/fsyncer/pkg/replclient"
)

// newDispatcher has no Windows dispatcher in this module: pkg/replclient
// only ships PosixDispatcher; a Win32/NTSTATUS dispatcher is named only
// at its interface per spec.md §1's scope note on the dispatch layer.
func newDispatcher(backingPath string) (replclient.Dispatcher, error) {
	return nil, errors.New("fsyncer: no dispatcher available on this platform")
}
