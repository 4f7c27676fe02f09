//go:build unix

package main

import "github.com/bahusvel/fsyncer/pkg/replclient"

// newDispatcher builds the replclient.Dispatcher this platform's backing
// store uses. On POSIX that is PosixDispatcher (pkg/replclient/dispatch_unix.go).
func newDispatcher(backingPath string) (replclient.Dispatcher, error) {
	return replclient.NewPosixDispatcher(backingPath), nil
}
