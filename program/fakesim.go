// Copyright 2026, Crucible Sciences, Inc.

package program

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/crucible-sci/crucible/proto"
)

// File names and markers of the fakesim test-helper program (dev/fakesim).
// The extractor and the helper program share these; real simulation codes
// own their formats and their adapters define their own.
const (
	FakeSimType     = "fakesim"
	FakeSimInFile   = "fakesim.in"
	FakeSimOutFile  = "fakesim.out"
	FakeSimCkptFile = "fakesim.ckpt"
	FakeSimBegin    = "BEGIN RESULT"
	FakeSimEnd      = "END RESULT"
)

// FakeSim is the adapter for the fakesim helper program: a trivial external
// program with a verifiable numeric output, used to validate scheduling and
// restart behavior without a real simulation code.
type FakeSim struct {
	Bin string // path to the fakesim executable
}

var _ Adapter = FakeSim{}

// Prepare writes the job params as key=value lines into fakesim.in and
// returns the launch spec. fakesim reads its input from the working
// directory, so the spec carries no directory argument.
func (a FakeSim) Prepare(dir string, params []proto.Param) (LaunchSpec, error) {
	lines := make([]string, 0, len(params))
	for _, p := range params {
		lines = append(lines, fmt.Sprintf("%s=%v", p.Name, p.Value))
	}
	data := []byte(strings.Join(lines, "\n") + "\n")
	if err := ioutil.WriteFile(filepath.Join(dir, FakeSimInFile), data, 0644); err != nil {
		return LaunchSpec{}, err
	}
	return LaunchSpec{
		Path: a.Bin,
		Args: []string{"--in", FakeSimInFile, "--out", FakeSimOutFile},
	}, nil
}

// ArtifactsIndicate reports OK when the output file carries the end marker,
// RETRYABLE when only a checkpoint exists, and UNKNOWN otherwise.
func (a FakeSim) ArtifactsIndicate(dir string) OutcomeHint {
	out, err := ioutil.ReadFile(filepath.Join(dir, FakeSimOutFile))
	if err == nil && strings.Contains(string(out), FakeSimEnd) {
		return HINT_OK
	}
	if _, err := os.Stat(filepath.Join(dir, FakeSimCkptFile)); err == nil {
		return HINT_RETRYABLE
	}
	return HINT_UNKNOWN
}
