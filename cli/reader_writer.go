package cli

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"safeloader"
)

// mmapReader is the OS-backed safeloader.ByteReader used by the
// command-line tool: files are memory-mapped rather than slurped, the
// way the teacher's boot image handling maps large images.
type mmapReader struct{}

// Reader is the process-lifetime ByteReader the cli package's commands
// use to satisfy safeloader's injected-I/O boundary.
var Reader safeloader.ByteReader = mmapReader{}

func (mmapReader) ReadFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, &safeloader.IoError{Op: "open", Path: name, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, &safeloader.IoError{Op: "stat", Path: name, Err: err}
	}
	if fi.Size() == 0 {
		return []byte{}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, &safeloader.IoError{Op: "mmap", Path: name, Err: err}
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

// osWriter is the OS-backed safeloader.ByteWriter used by the
// command-line tool.
type osWriter struct{}

// Writer is the process-lifetime ByteWriter the cli package's commands
// use to satisfy safeloader's injected-I/O boundary.
var Writer safeloader.ByteWriter = osWriter{}

func (osWriter) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(name, data, 0644); err != nil {
		return &safeloader.IoError{Op: "write", Path: name, Err: err}
	}
	return nil
}
