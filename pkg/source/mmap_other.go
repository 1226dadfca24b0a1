//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package source

// mmapHandle is empty on platforms without a wired mmap path (including
// Windows — explicitly a Non-goal per spec §1). Open always falls back
// to the buffered read path here.
type mmapHandle struct{}

func tryMmap(filename string) (mmapHandle, bool) { return mmapHandle{}, false }

func unmap(mmapHandle) {}
