//go:build linux || darwin || freebsd || netbsd || openbsd

package secret

import "golang.org/x/sys/unix"

// allocate maps an anonymous region outside the Go heap. Locking and
// core-dump exclusion are best effort: an unprivileged process may exceed
// RLIMIT_MEMLOCK, and the secret is still wiped on Close either way.
func allocate(size int) ([]byte, func([]byte) error) {
	if size == 0 {
		return []byte{}, nil
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return make([]byte, size), nil
	}
	locked := unix.Mlock(data) == nil
	excludeFromCoreDump(data)
	return data, func(b []byte) error {
		if locked {
			_ = unix.Munlock(b)
		}
		return unix.Munmap(b)
	}
}
