//go:build linux || darwin || freebsd || netbsd || openbsd

package source

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapHandle holds the resources needed to unmap a mapping later.
type mmapHandle struct {
	bytes []byte
}

// tryMmap memory-maps filename read-only, matching llreader.cpp's
// open()'s POSIX branch (fstat for length, mmap with PROT_READ|MAP_SHARED).
func tryMmap(filename string) (mmapHandle, bool) {
	f, err := os.Open(filename)
	if err != nil {
		return mmapHandle{}, false
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return mmapHandle{}, false
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return mmapHandle{}, false
	}
	return mmapHandle{bytes: data}, true
}

func unmap(h mmapHandle) {
	if h.bytes != nil {
		_ = unix.Munmap(h.bytes)
	}
}
