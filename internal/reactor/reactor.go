// Package reactor multiplexes the small set of file descriptors a session
// cares about — the control socket, the DATA and MOVER data/listen
// sockets, the tape handle, and any fds the archive worker registers —
// and dispatches to the handler whose readiness fired.
package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Mode is a bitmask of readiness conditions a handler cares about.
type Mode uint8

const (
	Read Mode = 1 << iota
	Write
	Exception
)

// Class partitions handlers so a caller can restrict one readiness scan to
// its own subset. The server's per-session poll loop scans ClassAll; no
// caller in this module restricts a scan to ClassModule.
type Class uint8

const (
	ClassConnection Class = iota
	ClassMover
	ClassModule
	ClassAll
)

func (c Class) matches(filter Class) bool {
	return filter == ClassAll || c == filter
}

// HandlerFunc is invoked when its fd becomes ready. It must not block.
type HandlerFunc func() error

type handlerEntry struct {
	cookie any
	fd     int
	mask   Mode
	class  Class
	fn     HandlerFunc
}

// Reactor is a single-threaded cooperative fd multiplexer. It is safe to
// call AddHandler/RemoveHandler from within a handler invoked by Select,
// but Select itself must only ever be called from one goroutine at a
// time (the reactor thread).
type Reactor struct {
	mu       sync.Mutex
	handlers map[int]*handlerEntry
}

// New returns an empty Reactor.
func New() *Reactor {
	return &Reactor{handlers: make(map[int]*handlerEntry)}
}

// AddHandler registers fn to run when fd becomes ready per mask. Fails if
// fd is already registered.
func (r *Reactor) AddHandler(cookie any, fd int, mask Mode, class Class, fn HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[fd]; exists {
		return fmt.Errorf("reactor: fd %d already registered", fd)
	}
	r.handlers[fd] = &handlerEntry{cookie: cookie, fd: fd, mask: mask, class: class, fn: fn}
	return nil
}

// RemoveHandler unregisters fd. Idempotent: removing an fd that isn't
// registered (e.g. a handler removing itself, then a stray second
// readiness event naming the same fd) is a no-op.
func (r *Reactor) RemoveHandler(fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, fd)
}

func (r *Reactor) snapshot(classMask Class) []*handlerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*handlerEntry, 0, len(r.handlers))
	for _, h := range r.handlers {
		if h.class.matches(classMask) {
			out = append(out, h)
		}
	}
	return out
}

// Select performs one readiness scan restricted to classMask. In blocking
// mode it waits until at least one registered fd becomes ready; in
// non-blocking mode it polls once and returns immediately. Returns the
// count of handlers that fired, 0 if non-blocking and nothing was ready,
// or a negative count is never produced — readiness errors are returned
// via err instead (peer close, EOF, or a handler's own I/O error cascades
// through the handler's own error path, per).
func (r *Reactor) Select(blocking bool, classMask Class) (int, error) {
	for {
		entries := r.snapshot(classMask)
		if len(entries) == 0 {
			if blocking {
				return 0, fmt.Errorf("reactor: no handlers registered for class scan")
			}
			return 0, nil
		}

		var readSet, writeSet, exceptSet unix.FdSet
		maxFD := 0
		for _, h := range entries {
			if h.mask&Read != 0 {
				fdSet(&readSet, h.fd)
			}
			if h.mask&Write != 0 {
				fdSet(&writeSet, h.fd)
			}
			if h.mask&Exception != 0 {
				fdSet(&exceptSet, h.fd)
			}
			if h.fd > maxFD {
				maxFD = h.fd
			}
		}

		var timeout *unix.Timeval
		if !blocking {
			timeout = &unix.Timeval{}
		}

		n, err := unix.Select(maxFD+1, &readSet, &writeSet, &exceptSet, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("reactor: select: %w", err)
		}
		if n == 0 {
			if blocking {
				continue
			}
			return 0, nil
		}

		fired := 0
		var firstErr error
		for _, h := range entries {
			ready := (h.mask&Read != 0 && fdIsSet(&readSet, h.fd)) ||
				(h.mask&Write != 0 && fdIsSet(&writeSet, h.fd)) ||
				(h.mask&Exception != 0 && fdIsSet(&exceptSet, h.fd))
			if !ready {
				continue
			}
			fired++
			if err := h.fn(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return fired, firstErr
	}
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
