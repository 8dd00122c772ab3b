// Copyright 2026, Crucible Sciences, Inc.

package restart_test

import (
	"path/filepath"
	"testing"

	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
	"github.com/crucible-sci/crucible/restart"
	"github.com/crucible-sci/crucible/test/mock"
)

func evalWithHint(t *testing.T, state byte, hint program.OutcomeHint) restart.Evaluation {
	return restart.Evaluation{
		Spec: proto.JobSpec{
			Path:    "/scan/a",
			Program: "fakesim",
			WorkDir: "/data/scan/a",
			Params:  []proto.Param{{Name: "x", Value: 0.5}},
		},
		State:    state,
		ExitCode: exitFor(state),
		WorkDir:  "/data/scan/a",
		Try:      1,
	}
}

func exitFor(state byte) int64 {
	if state == proto.STATE_COMPLETE {
		return 0
	}
	return 1
}

func policyWithHint(hint program.OutcomeHint) restart.Policy {
	programs := program.NewRegistry()
	programs.Register("fakesim", mock.Adapter{
		ArtifactsIndicateFunc: func(dir string) program.OutcomeHint { return hint },
	})
	return restart.NewPolicy(programs, nil)
}

func TestEvaluateClassification(t *testing.T) {
	tests := []struct {
		state byte
		hint  program.OutcomeHint
		class byte
	}{
		{proto.STATE_COMPLETE, program.HINT_OK, proto.OUTCOME_SUCCESS},
		{proto.STATE_COMPLETE, program.HINT_UNKNOWN, proto.OUTCOME_SUCCESS},
		// Exited zero but not converged: continue, don't declare victory.
		{proto.STATE_COMPLETE, program.HINT_RETRYABLE, proto.OUTCOME_RETRYABLE},
		{proto.STATE_COMPLETE, program.HINT_FATAL, proto.OUTCOME_FATAL},
		{proto.STATE_FAIL, program.HINT_RETRYABLE, proto.OUTCOME_RETRYABLE},
		{proto.STATE_FAIL, program.HINT_FATAL, proto.OUTCOME_FATAL},
		{proto.STATE_FAIL, program.HINT_UNKNOWN, proto.OUTCOME_FATAL},
		{proto.STATE_TIMEOUT, program.HINT_RETRYABLE, proto.OUTCOME_RETRYABLE},
		{proto.STATE_TIMEOUT, program.HINT_UNKNOWN, proto.OUTCOME_FATAL},
		{proto.STATE_CANCELLED, program.HINT_RETRYABLE, proto.OUTCOME_FATAL},
		{proto.STATE_CANCELLED, program.HINT_OK, proto.OUTCOME_FATAL},
	}
	for _, test := range tests {
		p := policyWithHint(test.hint)
		outcome := p.Evaluate(evalWithHint(t, test.state, test.hint))
		if outcome.Class != test.class {
			t.Errorf("state %s hint %s: got %s, expected %s",
				proto.StateName[test.state], program.HintName[test.hint],
				proto.OutcomeName[outcome.Class], proto.OutcomeName[test.class])
		}
		if test.class == proto.OUTCOME_RETRYABLE && outcome.Successor == nil {
			t.Errorf("state %s: retryable outcome has no successor", proto.StateName[test.state])
		}
		if test.class != proto.OUTCOME_RETRYABLE && outcome.Successor != nil {
			t.Errorf("state %s: non-retryable outcome has a successor", proto.StateName[test.state])
		}
	}
}

func TestEvaluateUnregisteredProgramIsFatalOnFail(t *testing.T) {
	// No adapter means no artifact hint; a failed process with no hint is
	// fatal, not retryable.
	p := restart.NewPolicy(program.NewRegistry(), nil)
	outcome := p.Evaluate(evalWithHint(t, proto.STATE_FAIL, program.HINT_UNKNOWN))
	if outcome.Class != proto.OUTCOME_FATAL {
		t.Errorf("got %s, expected FATAL", proto.OutcomeName[outcome.Class])
	}
}

func TestDeriveFirstRestart(t *testing.T) {
	e := restart.Evaluation{
		Spec: proto.JobSpec{
			Path:    "/scan/a",
			Program: "fakesim",
			WorkDir: "/data/scan/a",
			Params:  []proto.Param{{Name: "x", Value: 0.5}},
		},
		State:   proto.STATE_FAIL,
		WorkDir: "/data/scan/a",
		Try:     1,
	}
	s := restart.Derive(e)
	if s == nil {
		t.Fatal("Derive returned nil")
	}
	if s.Path != "/scan/a" {
		t.Errorf("got path %s, expected /scan/a (lineage attribution)", s.Path)
	}
	want := filepath.Join("/data/scan/a", "restart_1")
	if s.WorkDir != want {
		t.Errorf("got workdir %s, expected %s", s.WorkDir, want)
	}
	restartFrom, ok := s.Param(restart.RestartParam)
	if !ok || restartFrom != "/data/scan/a" {
		t.Errorf("got restart param %v (set=%t), expected /data/scan/a", restartFrom, ok)
	}
	// Original params survive.
	if x, ok := s.Param("x"); !ok || x != 0.5 {
		t.Errorf("got param x = %v (set=%t), expected 0.5", x, ok)
	}
}

func TestDeriveChainedRestartsNestBesideEachOther(t *testing.T) {
	// The successor of a restarted attempt gets a sibling restart_N dir,
	// not a nested one, and its restart param is replaced in place.
	e := restart.Evaluation{
		Spec: proto.JobSpec{
			Path:    "/scan/a",
			Program: "fakesim",
			WorkDir: filepath.Join("/data/scan/a", "restart_1"),
			Params: []proto.Param{
				{Name: "x", Value: 0.5},
				{Name: restart.RestartParam, Value: "/data/scan/a"},
			},
		},
		State:   proto.STATE_FAIL,
		WorkDir: filepath.Join("/data/scan/a", "restart_1"),
		Try:     2,
	}
	s := restart.Derive(e)
	if s == nil {
		t.Fatal("Derive returned nil")
	}
	want := filepath.Join("/data/scan/a", "restart_2")
	if s.WorkDir != want {
		t.Errorf("got workdir %s, expected %s", s.WorkDir, want)
	}
	restartFrom, _ := s.Param(restart.RestartParam)
	if restartFrom != filepath.Join("/data/scan/a", "restart_1") {
		t.Errorf("got restart param %v, expected the previous attempt's dir", restartFrom)
	}
	// Still exactly one restart param.
	n := 0
	for _, p := range s.Params {
		if p.Name == restart.RestartParam {
			n++
		}
	}
	if n != 1 {
		t.Errorf("got %d restart params, expected 1", n)
	}
}

func TestDeriveDoesNotMutateOriginal(t *testing.T) {
	orig := proto.JobSpec{
		Path:    "/a",
		Program: "fakesim",
		WorkDir: "/data/a",
		Params:  []proto.Param{{Name: "x", Value: 0.5}},
	}
	restart.Derive(restart.Evaluation{Spec: orig, WorkDir: "/data/a", Try: 1})
	if len(orig.Params) != 1 {
		t.Errorf("original spec gained params, expected it untouched")
	}
	if orig.WorkDir != "/data/a" {
		t.Errorf("original workdir changed to %s", orig.WorkDir)
	}
}

func TestCustomDeriveFunc(t *testing.T) {
	programs := program.NewRegistry()
	programs.Register("fakesim", mock.Adapter{
		ArtifactsIndicateFunc: func(dir string) program.OutcomeHint { return program.HINT_RETRYABLE },
	})

	// A derivation that refuses makes the outcome fatal.
	p := restart.NewPolicy(programs, func(e restart.Evaluation) *proto.JobSpec { return nil })
	outcome := p.Evaluate(evalWithHint(t, proto.STATE_FAIL, program.HINT_RETRYABLE))
	if outcome.Class != proto.OUTCOME_FATAL {
		t.Errorf("got %s, expected FATAL when derivation returns nil", proto.OutcomeName[outcome.Class])
	}
}
