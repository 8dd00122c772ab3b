// Copyright 2026, Crucible Sciences, Inc.

// Package restart classifies terminal processes and derives successor jobs.
// External scientific programs fail for reasons that do not invalidate the
// compute already spent: numerical non-convergence, preemption, walltime
// limits. The policy decides whether a finished attempt is final or whether
// a derived job should be resubmitted to continue from the artifacts the
// attempt left behind. This is the platform's primary fault-tolerance
// mechanism.
package restart

import (
	"fmt"
	"path/filepath"
	"regexp"

	log "github.com/sirupsen/logrus"

	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

// An Evaluation describes one terminal attempt of a job: the spec that ran,
// how it ended, where its artifacts are, and which attempt it was (1-based;
// the first attempt is try 1).
type Evaluation struct {
	Spec     proto.JobSpec
	State    byte // terminal STATE_* const
	ExitCode int64
	WorkDir  string
	Try      uint
}

// A Policy classifies a terminal attempt into exactly one outcome class.
// For OUTCOME_RETRYABLE the returned outcome carries the successor spec;
// the successor keeps the original spec's Path so results stay attributed
// to the originating folder entry. The retry cap is enforced by the
// dispatcher, not the policy.
type Policy interface {
	Evaluate(e Evaluation) proto.Outcome
}

// A DeriveFunc builds the successor spec for a retryable attempt. How
// parameters are mutated from a checkpoint is program-specific, so
// derivation is pluggable; Derive is the default.
type DeriveFunc func(e Evaluation) *proto.JobSpec

type policy struct {
	registry program.Registry
	derive   DeriveFunc
	logger   *log.Entry
}

// NewPolicy creates the default policy. It combines the process exit state
// with the program adapter's artifact hint. A nil derive uses Derive.
func NewPolicy(registry program.Registry, derive DeriveFunc) Policy {
	if derive == nil {
		derive = Derive
	}
	return &policy{
		registry: registry,
		derive:   derive,
		logger:   log.WithFields(log.Fields{"package": "restart"}),
	}
}

func (p *policy) Evaluate(e Evaluation) proto.Outcome {
	hint := program.HINT_UNKNOWN
	if adapter, err := p.registry.Get(e.Spec.Program); err == nil {
		hint = adapter.ArtifactsIndicate(e.WorkDir)
	} else {
		p.logger.Errorf("cannot inspect artifacts for %s: %s", e.Spec.Path, err)
	}

	switch e.State {
	case proto.STATE_COMPLETE:
		switch hint {
		case program.HINT_RETRYABLE:
			// Exited zero but the run is not done, e.g. the program hit its
			// own internal step cap before converging. Continue it.
			return p.retryable(e, "program exited cleanly but artifacts indicate an unfinished run")
		case program.HINT_FATAL:
			return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: "program exited cleanly but artifacts indicate an unrecoverable failure"}
		}
		return proto.Outcome{Class: proto.OUTCOME_SUCCESS}

	case proto.STATE_FAIL:
		switch hint {
		case program.HINT_RETRYABLE:
			return p.retryable(e, fmt.Sprintf("program exited %d with a resumable checkpoint", e.ExitCode))
		case program.HINT_FATAL:
			return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: fmt.Sprintf("program exited %d, artifacts indicate an unrecoverable failure", e.ExitCode)}
		}
		return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: fmt.Sprintf("program exited %d with no resumable checkpoint", e.ExitCode)}

	case proto.STATE_TIMEOUT:
		if hint == program.HINT_RETRYABLE {
			return p.retryable(e, "walltime limit exceeded, resumable checkpoint present")
		}
		return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: "walltime limit exceeded with no resumable checkpoint"}

	case proto.STATE_CANCELLED:
		// Cancellation ends the lineage for this run; the preserved partial
		// work can be resumed by a later run, not this one.
		return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: "cancelled"}
	}

	return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: fmt.Sprintf("unexpected terminal state %s", proto.StateName[e.State])}
}

func (p *policy) retryable(e Evaluation, reason string) proto.Outcome {
	successor := p.derive(e)
	if successor == nil {
		return proto.Outcome{Class: proto.OUTCOME_FATAL, Reason: reason + " (no successor derived)"}
	}
	return proto.Outcome{
		Class:     proto.OUTCOME_RETRYABLE,
		Reason:    reason,
		Successor: successor,
	}
}

// ------------------------------------------------------------------------- //

var restartDir = regexp.MustCompile(`^restart_\d+$`)

// RestartParam is the parameter the default derivation sets on a successor:
// its value is the working directory of the attempt to resume from. Program
// adapters translate it into whatever continuation input their program
// expects.
const RestartParam = "restart"

// Derive is the default successor derivation. The successor keeps the
// original path and params, runs in a numbered restart_N directory under
// the lineage's base working directory so earlier attempts' artifacts are
// preserved, and points its restart param at the attempt just finished.
// Restart directories are numbered by how many restarts the lineage has
// had: the successor of try N runs in restart_N.
func Derive(e Evaluation) *proto.JobSpec {
	s := e.Spec.Copy()
	s.WorkDir = filepath.Join(baseWorkDir(e.Spec.WorkDir), fmt.Sprintf("restart_%d", e.Try))

	set := false
	for i, param := range s.Params {
		if param.Name == RestartParam {
			s.Params[i].Value = e.WorkDir
			set = true
			break
		}
	}
	if !set {
		s.Params = append(s.Params, proto.Param{Name: RestartParam, Value: e.WorkDir})
	}
	return &s
}

// baseWorkDir strips a restart_N component so chained restarts nest beside
// each other instead of under each other.
func baseWorkDir(dir string) string {
	if restartDir.MatchString(filepath.Base(dir)) {
		return filepath.Dir(dir)
	}
	return dir
}
