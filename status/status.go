// Copyright 2026, Crucible Sciences, Inc.

// Package status provides system-wide status over dispatch runs.
package status

import (
	"github.com/orcaman/concurrent-map"

	"github.com/crucible-sci/crucible/dispatch"
	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

// A Manager tracks dispatch runs and answers status queries for them. Runs
// are added when dispatch starts and removed when the caller no longer
// wants them reported; a finished run stays queryable until removed.
type Manager interface {
	Add(d dispatch.Dispatcher)
	Remove(runId string)
	Running() []proto.RunStatus
	Get(runId string) (proto.RunStatus, error)
	Results(runId string) (map[string]proto.Result, error)
	Stop(runId string) error
}

type manager struct {
	runs cmap.ConcurrentMap // runId => dispatch.Dispatcher
}

func NewManager() Manager {
	return &manager{
		runs: cmap.New(),
	}
}

func (m *manager) Add(d dispatch.Dispatcher) {
	m.runs.Set(d.RunId(), d)
}

func (m *manager) Remove(runId string) {
	m.runs.Remove(runId)
}

func (m *manager) Running() []proto.RunStatus {
	statuses := []proto.RunStatus{}
	for _, v := range m.runs.Items() {
		d, ok := v.(dispatch.Dispatcher)
		if !ok {
			continue // should be impossible
		}
		statuses = append(statuses, d.Status())
	}
	return statuses
}

func (m *manager) Get(runId string) (proto.RunStatus, error) {
	v, ok := m.runs.Get(runId)
	if !ok {
		return proto.RunStatus{}, errors.RunNotFound{RunId: runId}
	}
	d, ok := v.(dispatch.Dispatcher)
	if !ok {
		return proto.RunStatus{}, errors.RunNotFound{RunId: runId} // should be impossible
	}
	return d.Status(), nil
}

func (m *manager) Results(runId string) (map[string]proto.Result, error) {
	v, ok := m.runs.Get(runId)
	if !ok {
		return nil, errors.RunNotFound{RunId: runId}
	}
	d, ok := v.(dispatch.Dispatcher)
	if !ok {
		return nil, errors.RunNotFound{RunId: runId} // should be impossible
	}
	return d.Results(), nil
}

func (m *manager) Stop(runId string) error {
	v, ok := m.runs.Get(runId)
	if !ok {
		return errors.RunNotFound{RunId: runId}
	}
	d, ok := v.(dispatch.Dispatcher)
	if !ok {
		return errors.RunNotFound{RunId: runId} // should be impossible
	}
	return d.Stop()
}
