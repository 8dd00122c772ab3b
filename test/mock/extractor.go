// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"errors"

	"github.com/crucible-sci/crucible/proto"
)

var (
	ErrExtractor = errors.New("forced error in extractor")
)

type Extractor struct {
	ExtractFunc func(spec proto.JobSpec, dir string) (proto.Result, error)
}

func (x Extractor) Extract(spec proto.JobSpec, dir string) (proto.Result, error) {
	if x.ExtractFunc != nil {
		return x.ExtractFunc(spec, dir)
	}
	return proto.Result{Path: spec.Path}, nil
}
