//go:build unix

package main

import (
	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/adapter/fusebind"
)

// mountAdapter mounts mountPath via the FUSE adapter, mirroring the
// teacher's cmd/guest-fused/main.go Mount/Wait/Unmount lifecycle. The
// returned func unmounts; it does not block.
func mountAdapter(mountPath, backingRoot string, engine *adapter.Engine) (func(), error) {
	server, err := fusebind.Mount(mountPath, backingRoot, engine)
	if err != nil {
		return nil, err
	}
	return func() { server.Unmount() }, nil
}
