// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"github.com/crucible-sci/crucible/proto"
	"github.com/crucible-sci/crucible/restart"
)

type Policy struct {
	EvaluateFunc func(e restart.Evaluation) proto.Outcome
}

func (p Policy) Evaluate(e restart.Evaluation) proto.Outcome {
	if p.EvaluateFunc != nil {
		return p.EvaluateFunc(e)
	}
	return proto.Outcome{Class: proto.OUTCOME_SUCCESS}
}
