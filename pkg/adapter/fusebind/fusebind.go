//go:build unix

// Package fusebind is the FUSE-backed VFS adapter named in spec.md
// §4.8's "Adapters (FUSE/Dokan)" line, grounded on the teacher's
// cmd/guest-fused/main.go go-fuse wiring. Unlike the teacher's daemon,
// which forwarded every FUSE op across a vsock connection to a remote
// VFS server, this adapter performs the backing-store syscall locally
// (via pkg/replclient.PosixDispatcher, the same dispatcher a remote
// replica uses) and sandwiches every mutating call between
// pkg/adapter.Engine's PreOp and PostOp, so capture, journaling, and
// replication fan-out happen exactly once per operation, at the source.
package fusebind

import (
	"context"
	"syscall"
	"time"

	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/replclient"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Node is both the filesystem root (path "/") and every non-root entry;
// go-fuse only requires an InodeEmbedder implementing the NodeXxxer
// interfaces it needs, so one type plays both roles, unlike the
// teacher's separate VFSRoot/VFSNode pair.
type Node struct {
	fs.Inode
	engine *adapter.Engine
	disp   *replclient.PosixDispatcher
	path   string // guest-absolute path
}

var (
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
)

// Mount mounts backingRoot at mountPoint, driving every mutating FUSE
// callback through engine's PreOp/PostOp contract. It mirrors the
// teacher's fs.Mount invocation (AllowOther, DirectMountStrict, 1s
// attr/entry timeouts).
func Mount(mountPoint, backingRoot string, engine *adapter.Engine) (*fuse.Server, error) {
	root := &Node{engine: engine, disp: replclient.NewPosixDispatcher(backingRoot), path: "/"}
	attrTimeout := time.Second
	entryTimeout := time.Second
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther:        true,
			FsName:            "fsyncer",
			Name:              "fuse.fsyncer",
			DirectMountStrict: true,
		},
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
	}
	return fs.Mount(mountPoint, root, opts)
}

func join(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func (n *Node) child(path string) *Node {
	return &Node{engine: n.engine, disp: n.disp, path: path}
}

// handle drives call through the core contract and returns it mapped to
// a syscall.Errno, per spec.md §4.8.
func (n *Node) handle(call vfscall.Call) syscall.Errno {
	ref := n.engine.PreOp(call)
	if rc, ok := ref.ShortCircuit(); ok {
		return errnoOf(rc)
	}
	rc := n.disp.Dispatch(call)
	final := n.engine.PostOp(ref, rc)
	if final < 0 {
		return errnoOf(final)
	}
	return 0
}

func errnoOf(rc int32) syscall.Errno {
	if rc >= 0 {
		return 0
	}
	return syscall.Errno(-rc)
}

func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return statInto(n.disp.BackingPath(n.path), &out.Attr)
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := join(n.path, name)
	errno := statInto(n.disp.BackingPath(childPath), &out.Attr)
	if errno != 0 {
		return nil, errno
	}
	child := n.child(childPath)
	return n.NewInode(ctx, child, fs.StableAttr{Mode: out.Attr.Mode}), 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, errno := readDir(n.disp.BackingPath(n.path))
	if errno != 0 {
		return nil, errno
	}
	return fs.NewListDirStream(entries), 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	f, errno := openBacking(n.disp.BackingPath(n.path), int(flags))
	if errno != 0 {
		return nil, 0, errno
	}
	return &FileHandle{file: f, engine: n.engine, path: n.path}, 0, 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := join(n.path, name)
	if errno := n.handle(vfscall.Mkdir{Path: childPath, Mode: mode}); errno != 0 {
		return nil, errno
	}
	out.Attr.Mode = syscall.S_IFDIR | mode
	child := n.child(childPath)
	return n.NewInode(ctx, child, fs.StableAttr{Mode: out.Attr.Mode}), 0
}

func (n *Node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childPath := join(n.path, name)
	call := vfscall.Create{Path: childPath, Mode: mode, Flags: flags}
	if errno := n.handle(call); errno != 0 {
		return nil, nil, 0, errno
	}
	out.Attr.Mode = syscall.S_IFREG | mode
	child := n.child(childPath)
	f, errno := openBacking(n.disp.BackingPath(childPath), int(flags)|syscall.O_RDWR)
	if errno != 0 {
		return nil, nil, 0, errno
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: out.Attr.Mode}), &FileHandle{file: f, engine: n.engine, path: childPath}, 0, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.handle(vfscall.Unlink{Path: join(n.path, name)})
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.handle(vfscall.Rmdir{Path: join(n.path, name)})
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	destNode, ok := newParent.(*Node)
	if !ok {
		return syscall.EINVAL
	}
	return n.handle(vfscall.Rename{From: join(n.path, name), To: join(destNode.path, newName), Flags: flags})
}

func (n *Node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if mode, ok := in.GetMode(); ok {
		if errno := n.handle(vfscall.Chmod{Path: n.path, Mode: mode}); errno != 0 {
			return errno
		}
	}
	if size, ok := in.GetSize(); ok {
		if errno := n.handle(vfscall.Truncate{Path: n.path, Size: int64(size)}); errno != 0 {
			return errno
		}
	}
	return n.Getattr(ctx, fh, out)
}
