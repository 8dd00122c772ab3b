// Copyright 2026, Crucible Sciences, Inc.

// Package program defines the boundary between the execution core and the
// external simulation programs it drives. Crucible does not know how to
// write a VASP INCAR or parse a Quantum ESPRESSO output; a per-program
// Adapter owns that translation. This is "BYOP": bring your own programs.
// Adapters are selected through an explicit Registry, never by reflection.
package program

import (
	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

// A LaunchSpec is everything the process layer needs to start one
// invocation of an external program. For a parallel resource grant the
// process layer wraps Path/Args with the MPI launcher; the adapter must not
// do that itself.
type LaunchSpec struct {
	Path string   // program executable
	Args []string // arguments, in order
	Env  []string // extra environment, KEY=value; nil means inherit only
}

// OutcomeHint is an adapter's reading of the artifacts a finished program
// left in its working directory. The restart policy combines it with the
// exit status to classify the outcome.
type OutcomeHint byte

const (
	HINT_UNKNOWN   OutcomeHint = iota
	HINT_OK                    // artifacts indicate a completed, converged run
	HINT_RETRYABLE             // run stopped early but can be resumed (checkpoint present)
	HINT_FATAL                 // artifacts indicate an unrecoverable failure
)

var HintName = map[OutcomeHint]string{
	HINT_UNKNOWN:   "UNKNOWN",
	HINT_OK:        "OK",
	HINT_RETRYABLE: "RETRYABLE",
	HINT_FATAL:     "FATAL",
}

// An Adapter makes one external program runnable by the core. Prepare is
// called once per attempt, before submission: it writes whatever input
// files the program expects into dir and returns the launch spec.
// ArtifactsIndicate is called once per attempt, after the program exits:
// it inspects dir and reports what the artifacts say about the run. Both
// must be safe to call from concurrent attempts in different directories.
type Adapter interface {
	Prepare(dir string, params []proto.Param) (LaunchSpec, error)
	ArtifactsIndicate(dir string) OutcomeHint
}

// A Registry maps program type names to adapters. Registration is explicit:
// the app wires in every program it supports at startup.
type Registry interface {
	Register(programType string, a Adapter)
	Get(programType string) (Adapter, error)
	Types() []string
}

type registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry. It is not safe for
// concurrent registration; register everything before dispatching.
func NewRegistry() Registry {
	return &registry{
		adapters: map[string]Adapter{},
	}
}

func (r *registry) Register(programType string, a Adapter) {
	r.adapters[programType] = a
}

func (r *registry) Get(programType string) (Adapter, error) {
	a, ok := r.adapters[programType]
	if !ok {
		return nil, errors.ProgramNotRegistered{Program: programType}
	}
	return a, nil
}

func (r *registry) Types() []string {
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	return types
}
