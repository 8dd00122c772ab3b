// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"errors"

	"github.com/crucible-sci/crucible/proto"
)

var (
	ErrDispatcher = errors.New("forced error in dispatcher")
)

type Dispatcher struct {
	RunFunc     func(jobs []proto.FolderJob) error
	StopFunc    func() error
	StatusFunc  func() proto.RunStatus
	ResultsFunc func() map[string]proto.Result
	DoneFunc    func() <-chan struct{}
	RunIdFunc   func() string
}

func (d Dispatcher) Run(jobs []proto.FolderJob) error {
	if d.RunFunc != nil {
		return d.RunFunc(jobs)
	}
	return nil
}

func (d Dispatcher) Stop() error {
	if d.StopFunc != nil {
		return d.StopFunc()
	}
	return nil
}

func (d Dispatcher) Status() proto.RunStatus {
	if d.StatusFunc != nil {
		return d.StatusFunc()
	}
	return proto.RunStatus{}
}

func (d Dispatcher) Results() map[string]proto.Result {
	if d.ResultsFunc != nil {
		return d.ResultsFunc()
	}
	return map[string]proto.Result{}
}

func (d Dispatcher) Done() <-chan struct{} {
	if d.DoneFunc != nil {
		return d.DoneFunc()
	}
	done := make(chan struct{})
	close(done)
	return done
}

func (d Dispatcher) RunId() string {
	if d.RunIdFunc != nil {
		return d.RunIdFunc()
	}
	return "run1"
}
