//go:build !unix

package mdhash

import (
	"hash"
	"os"
)

// writePlatformFields is a stub on non-unix builds: a Windows-native
// implementation (per spec.md §4.7, {file attributes} instead of
// {uid, gid}) is not implemented by this module (see DESIGN.md's
// Windows-capture-and-apply scope note in pkg/bilog, which mdhash
// mirrors).
func writePlatformFields(h hash.Hash64, info os.FileInfo) {}
