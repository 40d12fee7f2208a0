package data

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"context"

	"github.com/araujobsd/ndmpd/internal/archive"
	"github.com/araujobsd/ndmpd/internal/catalog"
	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
	"github.com/araujobsd/ndmpd/internal/session"
	"github.com/araujobsd/ndmpd/internal/tape"
)

// fakeCatalog is an in-memory catalog.Store stub keyed by backup ID and
// path.
type fakeCatalog struct {
	entries map[string]catalog.Entry
}

func newFakeCatalog(entries ...catalog.Entry) *fakeCatalog {
	c := &fakeCatalog{entries: make(map[string]catalog.Entry)}
	for _, e := range entries {
		c.entries[e.BackupID+"\x00"+e.Path] = e
	}
	return c
}

func (c *fakeCatalog) Record(ctx context.Context, entries []catalog.Entry) error {
	for _, e := range entries {
		c.entries[e.BackupID+"\x00"+e.Path] = e
	}
	return nil
}

func (c *fakeCatalog) Lookup(ctx context.Context, backupID, path string) (catalog.Entry, bool, error) {
	e, ok := c.entries[backupID+"\x00"+path]
	return e, ok, nil
}

func (c *fakeCatalog) Close() error { return nil }

// fakeEngine records the params it ran with and blocks until release is
// closed, so tests can observe ACTIVE state before the worker finishes.
type fakeEngine struct {
	release chan struct{}
	err     error

	mu  sync.Mutex
	ran *archive.Params
}

func (f *fakeEngine) Run(p archive.Params) error {
	f.mu.Lock()
	f.ran = &p
	f.mu.Unlock()
	<-f.release
	return f.err
}

func newTestSession(t *testing.T) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	s := session.New(server, slog.Default())
	// drain anything the session writes (notify messages) so Send never
	// blocks against an unread pipe.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()
	return s, server
}

type fakeTape struct {
	closed bool
}

func (f *fakeTape) Read(p []byte) (int, error)  { return 0, nil }
func (f *fakeTape) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeTape) Close() error                { f.closed = true; return nil }
func (f *fakeTape) Seek(offset int64) error      { return nil }
func (f *fakeTape) Flush() error                 { return nil }

func TestStartBackupRejectsWrongState(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	code := h.StartBackup(s, &ndmp.StartBackupRequest{ButType: "tar"})
	if code != ndmp.ErrIllegalState {
		t.Fatalf("StartBackup on IDLE data = %v, want ErrIllegalState", code)
	}
}

func TestStartBackupRunsEngineAndHalts(t *testing.T) {
	s, _ := newTestSession(t)
	engine := &fakeEngine{release: make(chan struct{})}
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return engine },
	}), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartBackup(s, &ndmp.StartBackupRequest{ButType: "tar"})
	if code != ndmp.ErrNone {
		t.Fatalf("StartBackup = %v, want ErrNone", code)
	}

	s.Lock()
	if s.Data.State != ndmp.DataStateActive {
		t.Errorf("Data.State = %v, want ACTIVE", s.Data.State)
	}
	s.Unlock()

	close(engine.release)

	deadline := time.After(time.Second)
	for {
		s.Lock()
		state := s.Data.State
		s.Unlock()
		if state == ndmp.DataStateHalted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("archive worker never halted DATA")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestStartBackupUnsupportedButType(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	if code := h.StartBackup(s, &ndmp.StartBackupRequest{ButType: "nonesuch"}); code != ndmp.ErrIllegalArgs {
		t.Fatalf("StartBackup = %v, want ErrIllegalArgs", code)
	}

	s.Lock()
	if s.Data.State != ndmp.DataStateConnected {
		t.Errorf("Data.State = %v, want unchanged CONNECTED after rejected bu_type", s.Data.State)
	}
	s.Unlock()
}

func TestStartRecoverUnsupportedButType(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	if code := h.StartRecover(s, &ndmp.StartRecoverRequest{ButType: "nonesuch"}); code != ndmp.ErrIllegalArgs {
		t.Fatalf("StartRecover = %v, want ErrIllegalArgs", code)
	}

	s.Lock()
	if s.Data.State != ndmp.DataStateConnected {
		t.Errorf("Data.State = %v, want unchanged CONNECTED after rejected bu_type", s.Data.State)
	}
	s.Unlock()
}

func TestAttachLocalTapeNoopWithoutEnv(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), func(name string) (tape.Device, error) {
		t.Fatal("OpenTape should not be called without TAPE_DEVICE")
		return nil, nil
	}, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartBackup(s, &ndmp.StartBackupRequest{ButType: "tar"})
	_ = code
	s.Lock()
	if s.Mover.State != ndmp.MoverStateIdle {
		t.Errorf("Mover.State = %v, want IDLE", s.Mover.State)
	}
	s.Unlock()
}

func TestAttachLocalTapeOpensAndActivatesMover(t *testing.T) {
	s, _ := newTestSession(t)
	dev := &fakeTape{}
	opened := ""
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return &fakeEngine{release: closedChan()} },
	}), func(name string) (tape.Device, error) {
		opened = name
		return dev, nil
	}, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartBackup(s, &ndmp.StartBackupRequest{
		ButType: "tar",
		Env:     []ndmp.EnvVar{{Name: "TAPE_DEVICE", Value: "/dev/nst0"}},
	})
	if code != ndmp.ErrNone {
		t.Fatalf("StartBackup = %v, want ErrNone", code)
	}
	if opened != "/dev/nst0" {
		t.Fatalf("OpenTape called with %q, want /dev/nst0", opened)
	}

	s.Lock()
	if s.Mover.State != ndmp.MoverStateActive {
		t.Errorf("Mover.State = %v, want ACTIVE", s.Mover.State)
	}
	if s.Mover.Tape != dev {
		t.Errorf("Mover.Tape not set to opened device")
	}
	s.Unlock()
}

func TestAttachLocalTapeOpenFailureRejectsStartBackup(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), func(name string) (tape.Device, error) {
		return nil, errors.New("no such device")
	}, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartBackup(s, &ndmp.StartBackupRequest{
		ButType: "tar",
		Env:     []ndmp.EnvVar{{Name: "TAPE_DEVICE", Value: "/dev/nst0"}},
	})
	if code != ndmp.ErrNoDevice {
		t.Fatalf("StartBackup = %v, want ErrNoDevice", code)
	}

	s.Lock()
	if s.Data.State != ndmp.DataStateConnected {
		t.Errorf("Data.State = %v, want unchanged CONNECTED after rejected start", s.Data.State)
	}
	s.Unlock()
}

func TestAttachLocalTapeSkipsWhenMoverAlreadyActive(t *testing.T) {
	s, _ := newTestSession(t)
	calls := 0
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return &fakeEngine{release: closedChan()} },
	}), func(name string) (tape.Device, error) {
		calls++
		return &fakeTape{}, nil
	}, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Mover.State = ndmp.MoverStateActive
	s.Unlock()

	code := h.StartBackup(s, &ndmp.StartBackupRequest{
		ButType: "tar",
		Env:     []ndmp.EnvVar{{Name: "TAPE_DEVICE", Value: "/dev/nst0"}},
	})
	if code != ndmp.ErrNone {
		t.Fatalf("StartBackup = %v, want ErrNone", code)
	}
	if calls != 0 {
		t.Errorf("OpenTape called %d times, want 0 (MOVER already ACTIVE)", calls)
	}
}

func TestAbortRejectsIdle(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	if code := h.Abort(s); code != ndmp.ErrIllegalState {
		t.Fatalf("Abort on IDLE = %v, want ErrIllegalState", code)
	}
}

func TestAbortHaltsConnectedImmediately(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	if code := h.Abort(s); code != ndmp.ErrNone {
		t.Fatalf("Abort = %v, want ErrNone", code)
	}
	s.Lock()
	if s.Data.State != ndmp.DataStateHalted {
		t.Errorf("Data.State after Abort = %v, want HALTED", s.Data.State)
	}
	if s.Data.HaltReason != ndmp.DataHaltAborted {
		t.Errorf("HaltReason = %v, want DataHaltAborted", s.Data.HaltReason)
	}
	s.Unlock()

	if code := h.Stop(s); code != ndmp.ErrNone {
		t.Fatalf("Stop = %v, want ErrNone", code)
	}
	s.Lock()
	if s.Data.State != ndmp.DataStateIdle {
		t.Errorf("Data.State after Stop = %v, want IDLE", s.Data.State)
	}
	s.Unlock()
}

func TestAbortHaltsListenImmediately(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateListen
	s.Unlock()

	if code := h.Abort(s); code != ndmp.ErrNone {
		t.Fatalf("Abort = %v, want ErrNone", code)
	}
	s.Lock()
	if s.Data.State != ndmp.DataStateHalted {
		t.Errorf("Data.State after Abort = %v, want HALTED", s.Data.State)
	}
	s.Unlock()
}

func TestAbortActiveSetsFlagOnly(t *testing.T) {
	s, _ := newTestSession(t)
	engine := &fakeEngine{release: make(chan struct{})}
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return engine },
	}), nil, nil, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()
	if code := h.StartBackup(s, &ndmp.StartBackupRequest{ButType: "tar"}); code != ndmp.ErrNone {
		t.Fatalf("StartBackup = %v, want ErrNone", code)
	}

	if code := h.Abort(s); code != ndmp.ErrNone {
		t.Fatalf("Abort = %v, want ErrNone", code)
	}
	s.Lock()
	if s.Data.State != ndmp.DataStateActive {
		t.Errorf("Data.State after Abort on ACTIVE = %v, want still ACTIVE (worker halts asynchronously)", s.Data.State)
	}
	if !s.Data.AbortRequested {
		t.Error("AbortRequested not set")
	}
	s.Unlock()

	close(engine.release)
	deadline := time.After(time.Second)
	for {
		s.Lock()
		state := s.Data.State
		reason := s.Data.HaltReason
		s.Unlock()
		if state == ndmp.DataStateHalted {
			if reason != ndmp.DataHaltAborted {
				t.Fatalf("HaltReason = %v, want DataHaltAborted", reason)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("archive worker never halted DATA after abort")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestAbortHaltedIsNoop(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	s.Lock()
	s.Data.Halt(ndmp.DataHaltSuccessful)
	s.Unlock()

	if code := h.Abort(s); code != ndmp.ErrNone {
		t.Fatalf("Abort on HALTED = %v, want ErrNone", code)
	}
}

func TestStartRecoverValidatesNListAgainstCatalog(t *testing.T) {
	s, _ := newTestSession(t)
	cat := newFakeCatalog(catalog.Entry{BackupID: "bu-1", Path: "/etc/passwd"})
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return &fakeEngine{release: closedChan()} },
	}), nil, cat, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartRecover(s, &ndmp.StartRecoverRequest{
		ButType: "tar",
		Env:     []ndmp.EnvVar{{Name: "BACKUP_ID", Value: "bu-1"}},
		NList:   []ndmp.NameListEntry{{OriginalPath: "/etc/passwd"}},
	})
	if code != ndmp.ErrNone {
		t.Fatalf("StartRecover = %v, want ErrNone", code)
	}
}

func TestStartRecoverRejectsUnknownPathInCatalog(t *testing.T) {
	s, _ := newTestSession(t)
	cat := newFakeCatalog(catalog.Entry{BackupID: "bu-1", Path: "/etc/passwd"})
	h := New(archive.NewFactory(nil), nil, cat, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartRecover(s, &ndmp.StartRecoverRequest{
		ButType: "tar",
		Env:     []ndmp.EnvVar{{Name: "BACKUP_ID", Value: "bu-1"}},
		NList:   []ndmp.NameListEntry{{OriginalPath: "/nonexistent"}},
	})
	if code != ndmp.ErrFileNotFound {
		t.Fatalf("StartRecover = %v, want ErrFileNotFound", code)
	}
	s.Lock()
	if s.Data.State != ndmp.DataStateConnected {
		t.Errorf("Data.State = %v, want unchanged CONNECTED after rejected nlist entry", s.Data.State)
	}
	s.Unlock()
}

func TestStartRecoverSkipsCatalogWithoutBackupID(t *testing.T) {
	s, _ := newTestSession(t)
	cat := newFakeCatalog()
	h := New(archive.NewFactory(map[string]func() archive.Engine{
		"tar": func() archive.Engine { return &fakeEngine{release: closedChan()} },
	}), nil, cat, slog.Default())

	s.Lock()
	s.Data.State = ndmp.DataStateConnected
	s.Unlock()

	code := h.StartRecover(s, &ndmp.StartRecoverRequest{
		ButType: "tar",
		NList:   []ndmp.NameListEntry{{OriginalPath: "/whatever"}},
	})
	if code != ndmp.ErrNone {
		t.Fatalf("StartRecover = %v, want ErrNone (no BACKUP_ID, catalog check skipped)", code)
	}
}

func TestStopRejectsWrongState(t *testing.T) {
	s, _ := newTestSession(t)
	h := New(archive.NewFactory(nil), nil, nil, slog.Default())

	if code := h.Stop(s); code != ndmp.ErrIllegalState {
		t.Fatalf("Stop on IDLE data = %v, want ErrIllegalState", code)
	}
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
