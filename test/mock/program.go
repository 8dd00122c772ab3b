// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"errors"

	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
)

var (
	ErrAdapter = errors.New("forced error in program adapter")
)

type Adapter struct {
	PrepareFunc           func(dir string, params []proto.Param) (program.LaunchSpec, error)
	ArtifactsIndicateFunc func(dir string) program.OutcomeHint
}

func (a Adapter) Prepare(dir string, params []proto.Param) (program.LaunchSpec, error) {
	if a.PrepareFunc != nil {
		return a.PrepareFunc(dir, params)
	}
	return program.LaunchSpec{Path: "true"}, nil
}

func (a Adapter) ArtifactsIndicate(dir string) program.OutcomeHint {
	if a.ArtifactsIndicateFunc != nil {
		return a.ArtifactsIndicateFunc(dir)
	}
	return program.HINT_UNKNOWN
}
