//go:build !linux && !darwin && !windows

package vault

import "errors"

func availableBytes(string) (uint64, error) {
	return 0, errors.New("vault: disk space check not supported on this platform")
}
