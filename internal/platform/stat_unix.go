//go:build !windows
// +build !windows

// Package platform adapts the os-specific file checks the cli package
// needs before accepting an input path or output directory.
package platform

import (
	"golang.org/x/sys/unix"
)

// IsRegularFile reports whether path names a regular file, per the
// -i flag's requirement (SPEC_FULL.md §8).
func IsRegularFile(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFREG, nil
}

// IsDir reports whether path names a directory, per the -d flag's
// requirement (SPEC_FULL.md §8).
func IsDir(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR, nil
}
