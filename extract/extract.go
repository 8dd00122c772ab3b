// Copyright 2026, Crucible Sciences, Inc.

// Package extract turns the artifacts a finished program wrote into
// structured result records. Artifact formats are owned by the external
// programs, so extractors are registered per program type, mirroring the
// program adapter registry. Extraction is idempotent: re-extracting from
// unchanged artifacts yields an identical record.
package extract

import (
	"io/ioutil"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

// An Extractor parses one program's artifacts into a result record. It
// must be read-only with respect to the working directory and must fail
// with errors.IncompleteArtifacts when required output markers are absent.
type Extractor interface {
	Extract(spec proto.JobSpec, dir string) (proto.Result, error)
}

// A Registry maps program type names to extractors, with explicit
// registration like the program adapter registry.
type Registry interface {
	Register(programType string, x Extractor)
	Get(programType string) (Extractor, error)
}

type registry struct {
	extractors map[string]Extractor
}

func NewRegistry() Registry {
	return &registry{
		extractors: map[string]Extractor{},
	}
}

func (r *registry) Register(programType string, x Extractor) {
	r.extractors[programType] = x
}

func (r *registry) Get(programType string) (Extractor, error) {
	x, ok := r.extractors[programType]
	if !ok {
		return nil, errors.ProgramNotRegistered{Program: programType}
	}
	return x, nil
}

// ------------------------------------------------------------------------- //

// FakeSim extracts the key=value result block written by the fakesim
// test-helper program between its BEGIN RESULT / END RESULT markers.
type FakeSim struct{}

var _ Extractor = FakeSim{}

func (FakeSim) Extract(spec proto.JobSpec, dir string) (proto.Result, error) {
	result := proto.Result{
		Path:    spec.Path,
		Program: spec.Program,
	}

	data, err := ioutil.ReadFile(filepath.Join(dir, program.FakeSimOutFile))
	if err != nil {
		return result, errors.IncompleteArtifacts{Path: spec.Path, Missing: program.FakeSimOutFile}
	}

	lines := strings.Split(string(data), "\n")
	inBlock := false
	ended := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == program.FakeSimBegin:
			inBlock = true
		case line == program.FakeSimEnd:
			ended = true
			inBlock = false
		case inBlock && strings.Contains(line, "="):
			kv := strings.SplitN(line, "=", 2)
			result.Values = append(result.Values, proto.Param{
				Name:  strings.TrimSpace(kv[0]),
				Value: parseValue(strings.TrimSpace(kv[1])),
			})
		}
	}
	if !ended {
		return proto.Result{Path: spec.Path, Program: spec.Program},
			errors.IncompleteArtifacts{Path: spec.Path, Missing: program.FakeSimEnd + " marker"}
	}
	return result, nil
}

// parseValue narrows a textual value to int64, then float64, else string.
// The mapping is deterministic so repeated extraction yields identical
// records.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
