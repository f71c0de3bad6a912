//go:build linux || darwin

package vault

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// availableBytes returns the free space usable by this process on the
// filesystem holding path, falling back to its parent directory.
func availableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		if err := unix.Statfs(filepath.Dir(path), &stat); err != nil {
			return 0, fmt.Errorf("vault: failed to get disk stats: %w", err)
		}
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
