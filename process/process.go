// Copyright 2026, Crucible Sciences, Inc.

// Package process implements the runtime wrapper around one external
// program invocation. A Process owns exactly one execution unit and moves
// through the states PENDING -> RUNNING -> {COMPLETE, FAIL, TIMEOUT,
// CANCELLED} monotonically. No state is re-entered; resubmission creates a
// new Process bound to a (possibly derived) job spec.
package process

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

// RunningMarker is created in the working directory while the program runs
// and removed when it exits, so out-of-band observers can see which jobs
// are live without asking the dispatcher.
const RunningMarker = ".crucible_running"

// A Process runs one attempt of one job. It is created by the dispatcher
// when resources are available, consumes a read-only copy of the spec, and
// is discarded once terminal.
type Process struct {
	id       string
	spec     proto.JobSpec
	grant    proto.ResourceGrant
	try      uint
	adapter  program.Adapter
	launcher Launcher
	// --
	mux        *sync.Mutex
	state      byte
	handle     Handle
	cancelled  bool
	timedOut   bool
	exitCode   int64
	startedAt  time.Time
	finishedAt time.Time
	doneChan   chan struct{}
	logger     *log.Entry
}

// New creates a Process in STATE_PENDING. The spec is copied, so the
// process is immune to later mutation by the caller (copy-on-submit).
func New(id string, spec proto.JobSpec, grant proto.ResourceGrant, try uint, adapter program.Adapter, launcher Launcher) *Process {
	return &Process{
		id:       id,
		spec:     spec.Copy(),
		grant:    grant,
		try:      try,
		adapter:  adapter,
		launcher: launcher,
		// --
		mux:      &sync.Mutex{},
		state:    proto.STATE_PENDING,
		doneChan: make(chan struct{}),
		logger:   log.WithFields(log.Fields{"procId": id, "path": spec.Path, "try": try}),
	}
}

// Submit prepares the working directory through the program adapter,
// launches the execution unit, and returns immediately. The process is
// RUNNING on a nil return. On error the process is terminal in STATE_FAIL.
func (p *Process) Submit() error {
	if err := os.MkdirAll(p.spec.WorkDir, 0755); err != nil {
		p.fail(err)
		return err
	}

	spec, err := p.adapter.Prepare(p.spec.WorkDir, p.spec.Params)
	if err != nil {
		p.fail(err)
		return err
	}

	p.mux.Lock()
	if p.cancelled {
		// Cancel raced Submit; the terminal state is already set.
		p.mux.Unlock()
		return nil
	}

	handle, err := p.launcher.Launch(spec, p.grant, p.spec.WorkDir)
	if err != nil {
		p.mux.Unlock()
		p.fail(err)
		return err
	}
	p.handle = handle
	p.state = proto.STATE_RUNNING
	p.startedAt = time.Now()
	p.mux.Unlock()

	marker := filepath.Join(p.spec.WorkDir, RunningMarker)
	if f, err := os.Create(marker); err == nil {
		f.Close()
	}

	p.logger.WithFields(log.Fields{"cores": p.grant.Cores, "parallel": p.grant.Parallel()}).Info("process running")

	go p.reap(handle, marker)
	return nil
}

// reap waits for the execution unit to exit and sets the terminal state.
func (p *Process) reap(handle Handle, marker string) {
	var timer *time.Timer
	if limit := time.Duration(p.spec.Resources.TimeLimit) * time.Millisecond; limit > 0 {
		timer = time.AfterFunc(limit, func() {
			p.mux.Lock()
			if p.state == proto.STATE_RUNNING && !p.cancelled {
				p.timedOut = true
				handle.Kill()
			}
			p.mux.Unlock()
		})
	}

	waitErr := handle.Wait()
	if timer != nil {
		timer.Stop()
	}
	os.Remove(marker)

	p.mux.Lock()
	defer p.mux.Unlock()

	p.finishedAt = time.Now()
	switch {
	case p.cancelled:
		p.state = proto.STATE_CANCELLED
		p.exitCode = -1
	case p.timedOut:
		p.state = proto.STATE_TIMEOUT
		p.exitCode = -1
	case waitErr == nil:
		p.state = proto.STATE_COMPLETE
		p.exitCode = 0
	default:
		p.state = proto.STATE_FAIL
		p.exitCode = exitCode(waitErr)
	}
	p.logger.WithFields(log.Fields{"state": proto.StateName[p.state], "exit": p.exitCode}).Info("process done")
	close(p.doneChan)
}

// fail sets the terminal FAIL state for a process that never started.
func (p *Process) fail(err error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if proto.Terminal(p.state) {
		return
	}
	p.state = proto.STATE_FAIL
	p.exitCode = -1
	p.logger.Errorf("process failed before starting: %s", err)
	close(p.doneChan)
}

// Poll returns the current state without blocking.
func (p *Process) Poll() byte {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.state
}

// Wait blocks until the process reaches a terminal state or the timeout
// elapses. On timeout it returns errors.ErrTimedOut and leaves the
// execution unit running; cancellation is a separate, explicit action, so
// partially-completed external work is preserved for resumption. A
// non-positive timeout waits forever.
func (p *Process) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-p.doneChan
		return nil
	}
	select {
	case <-p.doneChan:
		return nil
	case <-time.After(timeout):
		return errors.ErrTimedOut
	}
}

// Done returns a channel closed when the process reaches a terminal state.
func (p *Process) Done() <-chan struct{} {
	return p.doneChan
}

// Cancel requests termination and blocks until the execution unit has
// confirmed exit. It is idempotent; cancelling a terminal process is a
// no-op.
func (p *Process) Cancel() error {
	p.mux.Lock()
	if proto.Terminal(p.state) {
		p.mux.Unlock()
		return nil
	}
	if p.cancelled {
		// another Cancel is already in flight; wait for it
		p.mux.Unlock()
		<-p.doneChan
		return nil
	}
	p.cancelled = true

	if p.state == proto.STATE_PENDING {
		// never launched; terminal immediately
		p.state = proto.STATE_CANCELLED
		p.exitCode = -1
		p.finishedAt = time.Now()
		close(p.doneChan)
		p.mux.Unlock()
		return nil
	}

	handle := p.handle
	p.mux.Unlock()

	p.logger.Info("cancelling process")
	if err := handle.Kill(); err != nil {
		p.logger.Errorf("problem killing execution unit: %s", err)
	}
	<-p.doneChan // CANCELLED is set once exit is confirmed, not on request
	return nil
}

// Accessors. All are safe while the process runs.

func (p *Process) Id() string                 { return p.id }
func (p *Process) Spec() proto.JobSpec        { return p.spec }
func (p *Process) Grant() proto.ResourceGrant { return p.grant }
func (p *Process) Try() uint                  { return p.try }

func (p *Process) ExitCode() int64 {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.exitCode
}

func (p *Process) StartedAt() time.Time {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.startedAt
}

func (p *Process) FinishedAt() time.Time {
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.finishedAt
}
