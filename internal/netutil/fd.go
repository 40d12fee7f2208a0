// Package netutil extracts raw file descriptors from net.Conn/net.Listener
// so they can be registered with internal/reactor, which multiplexes on
// fds directly rather than through goroutine-per-connection blocking I/O.
package netutil

import (
	"fmt"
	"syscall"
)

// FD returns the underlying file descriptor of any net type implementing
// syscall.Conn (net.TCPConn, net.TCPListener, *os.File, ...).
func FD(c syscall.Conn) (int, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("netutil: syscall conn: %w", err)
	}
	var fd int
	var ctrlErr error
	err = raw.Control(func(f uintptr) {
		fd = int(f)
	})
	if err != nil {
		ctrlErr = err
	}
	if ctrlErr != nil {
		return 0, fmt.Errorf("netutil: control: %w", ctrlErr)
	}
	return fd, nil
}
