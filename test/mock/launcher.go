// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"errors"
	"sync"

	"github.com/crucible-sci/crucible/process"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

var (
	ErrLauncher = errors.New("forced error in launcher")
)

type Launcher struct {
	LaunchFunc func(spec program.LaunchSpec, grant proto.ResourceGrant, dir string) (process.Handle, error)
}

func (l Launcher) Launch(spec program.LaunchSpec, grant proto.ResourceGrant, dir string) (process.Handle, error) {
	if l.LaunchFunc != nil {
		return l.LaunchFunc(spec, grant, dir)
	}
	return &Handle{}, nil
}

// Handle is a controllable process handle. Wait blocks on WaitChan if set,
// then returns WaitErr. Kill closes KilledChan (once) and returns KillErr.
type Handle struct {
	WaitChan   chan struct{} // Wait blocks until closed, if set
	WaitErr    error
	KillErr    error
	KilledChan chan struct{} // closed on first Kill, if set
	// --
	killed bool
	mux    sync.Mutex // guards killed
}

func (h *Handle) Wait() error {
	if h.WaitChan != nil {
		<-h.WaitChan
	}
	return h.WaitErr
}

func (h *Handle) Kill() error {
	h.mux.Lock()
	defer h.mux.Unlock()
	if h.KilledChan != nil && !h.killed {
		h.killed = true
		close(h.KilledChan)
	}
	return h.KillErr
}
