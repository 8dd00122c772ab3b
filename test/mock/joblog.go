// Copyright 2026, Crucible Sciences, Inc.

package mock

import (
	"errors"

	"github.com/crucible-sci/crucible/proto"
)

var (
	ErrLogStore = errors.New("forced error in try-log store")
)

type LogStore struct {
	CreateFunc  func(proto.TryLog) error
	GetFunc     func(runId, path string) ([]proto.TryLog, error)
	GetFullFunc func(runId string) ([]proto.TryLog, error)
}

func (s LogStore) Create(tl proto.TryLog) error {
	if s.CreateFunc != nil {
		return s.CreateFunc(tl)
	}
	return nil
}

func (s LogStore) Get(runId, path string) ([]proto.TryLog, error) {
	if s.GetFunc != nil {
		return s.GetFunc(runId, path)
	}
	return []proto.TryLog{}, nil
}

func (s LogStore) GetFull(runId string) ([]proto.TryLog, error) {
	if s.GetFullFunc != nil {
		return s.GetFullFunc(runId)
	}
	return []proto.TryLog{}, nil
}
