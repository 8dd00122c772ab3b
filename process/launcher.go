// Copyright 2026, Crucible Sciences, Inc.

package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

// Names of the files the launcher writes into the working directory. The
// program's own artifacts are in addition to these.
const (
	StdoutFile = "stdout.log"
	StderrFile = "stderr.log"
)

// A Handle is the running execution unit behind one process: a single OS
// process, or an MPI launcher managing N ranks. Wait blocks until exit and
// returns the error exec reported, if any. Kill terminates the unit; Wait
// still returns afterward.
type Handle interface {
	Wait() error
	Kill() error
}

// A Launcher starts the execution unit described by a launch spec under a
// resource grant. The core is agnostic to how parallel launches happen;
// LocalLauncher shells out to an mpirun-style command, but a site can
// provide its own Launcher for srun, jsrun, or anything else.
type Launcher interface {
	Launch(spec program.LaunchSpec, grant proto.ResourceGrant, dir string) (Handle, error)
}

// LocalLauncher launches programs as child processes on the local host.
// Parallel grants are wrapped with the MPI launch command.
type LocalLauncher struct {
	// MPIRun is the MPI launch command, e.g. "mpirun" or "mpiexec".
	// Used only for parallel grants.
	MPIRun string
}

var _ Launcher = LocalLauncher{}

func (l LocalLauncher) Launch(spec program.LaunchSpec, grant proto.ResourceGrant, dir string) (Handle, error) {
	path := spec.Path
	args := spec.Args
	if grant.Parallel() {
		mpirun := l.MPIRun
		if mpirun == "" {
			mpirun = "mpirun"
		}
		args = append([]string{"-n", fmt.Sprintf("%d", grant.Cores), path}, args...)
		path = mpirun
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	// Programs write their artifacts themselves; the launcher only captures
	// the streams so failed runs can be diagnosed later.
	stdout, err := os.Create(filepath.Join(dir, StdoutFile))
	if err != nil {
		return nil, err
	}
	stderr, err := os.Create(filepath.Join(dir, StderrFile))
	if err != nil {
		stdout.Close()
		return nil, err
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, err
	}
	return &localHandle{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

type localHandle struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File
}

func (h *localHandle) Wait() error {
	err := h.cmd.Wait()
	h.stdout.Close()
	h.stderr.Close()
	return err
}

func (h *localHandle) Kill() error {
	return h.cmd.Process.Kill()
}

// exitCode maps a Wait error to the program's exit code, or -1 when the
// program never reported one (killed, launch fault).
func exitCode(err error) int64 {
	if ee, ok := err.(*exec.ExitError); ok {
		return int64(ee.ExitCode())
	}
	return -1
}
