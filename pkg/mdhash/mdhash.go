// Package mdhash computes the deterministic backing-tree metadata hash
// used at replication handshake (spec.md §4.7) to verify a client's
// mount_path already agrees with the server's backing_root before any
// replicated operation is trusted. The algorithm generalizes the
// teacher's FNV-1a synthetic/namespaced inode hashing
// (pkg/vfs/server.go's namespacedInode/syntheticInode) from "one path"
// to "an entire sorted tree walk".
package mdhash

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
)

// Hash walks root and returns its deterministic metadata hash. Entries
// are visited in sorted-filename order at every directory level so the
// result does not depend on the underlying filesystem's directory
// iteration order.
func Hash(root string) (uint64, error) {
	h := fnv.New64a()
	if err := walkDir(root, "", h); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func walkDir(root, rel string, h hash.Hash64) error {
	dirPath := filepath.Join(root, rel)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return err
	}
	names := make([]string, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		byName[e.Name()] = e
	}
	sort.Strings(names)

	for _, name := range names {
		e := byName[name]
		childRel := filepath.Join(rel, name)
		info, err := e.Info()
		if err != nil {
			continue // a vanished entry mid-walk contributes nothing, matching bilog's capture "absent" convention
		}
		writeEntry(h, childRel, info)
		if e.IsDir() {
			if err := walkDir(root, childRel, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeEntry feeds one entry's fields into h in a fixed field order, so
// the same tree hashes identically on every platform that implements
// entryFields consistently. Per spec.md §4.7: {relative path, file
// type, permission bits / attributes, size (unless dir), mtime, and
// platform-specific ownership fields}.
func writeEntry(h hash.Hash64, relPath string, info os.FileInfo) {
	_, _ = h.Write([]byte(relPath))

	var typeByte byte
	switch {
	case info.IsDir():
		typeByte = 'd'
	case info.Mode()&os.ModeSymlink != 0:
		typeByte = 'l'
	default:
		typeByte = 'f'
	}
	_, _ = h.Write([]byte{typeByte})

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(info.Mode().Perm()))
	_, _ = h.Write(buf[:4])

	if !info.IsDir() {
		binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
		_, _ = h.Write(buf[:])
	}

	binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().Unix()))
	_, _ = h.Write(buf[:])

	writePlatformFields(h, info)
}
