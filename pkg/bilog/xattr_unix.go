//go:build unix

package bilog

import "golang.org/x/sys/unix"

func getXattr(path, name string) (value []byte, has bool, err error) {
	size, err := unix.Lgetxattr(path, name, nil)
	if err != nil {
		if err == unix.ENODATA {
			return nil, false, nil
		}
		return nil, false, err
	}
	if size == 0 {
		return []byte{}, true, nil
	}
	buf := make([]byte, size)
	n, err := unix.Lgetxattr(path, name, buf)
	if err != nil {
		return nil, false, err
	}
	return buf[:n], true, nil
}

func setXattr(path, name string, value []byte) error {
	return unix.Lsetxattr(path, name, value, 0)
}

func removeXattr(path, name string) error {
	err := unix.Lremovexattr(path, name)
	if err == unix.ENODATA {
		return nil
	}
	return err
}
