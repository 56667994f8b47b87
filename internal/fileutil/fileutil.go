package fileutil

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Space reports capacity for the filesystem holding a path.
type Space struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// FreeMB returns the space available to unprivileged users in megabytes.
func (s Space) FreeMB() uint64 {
	return s.FreeBytes / (1024 * 1024)
}

// DiskSpace stats the filesystem containing path.
func DiskSpace(path string) (Space, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Space{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(stat.Bsize)
	return Space{
		TotalBytes: stat.Blocks * bsize,
		FreeBytes:  stat.Bavail * bsize,
	}, nil
}

// FileExists reports whether path names a regular, readable file.
func FileExists(path string) bool {
	return CheckReadable(path) == nil
}

// CheckReadable returns an error explaining why path is not a regular,
// readable, non-empty file.
func CheckReadable(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("%s is not readable: %w", path, err)
	}
	return nil
}
