// Copyright 2026, Crucible Sciences, Inc.

package status_test

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
	"github.com/crucible-sci/crucible/status"
	"github.com/crucible-sci/crucible/test/mock"
)

func TestAddGetRemove(t *testing.T) {
	m := status.NewManager()
	d := mock.Dispatcher{
		RunIdFunc:  func() string { return "run1" },
		StatusFunc: func() proto.RunStatus { return proto.RunStatus{RunId: "run1", TotalSlots: 4} },
	}
	m.Add(d)

	got, err := m.Get("run1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalSlots != 4 {
		t.Errorf("got total slots %d, expected 4", got.TotalSlots)
	}

	m.Remove("run1")
	_, err = m.Get("run1")
	if err == nil {
		t.Fatal("expected an error, but did not get one")
	}
	if _, ok := err.(errors.RunNotFound); !ok {
		t.Errorf("got error type %T, expected errors.RunNotFound", err)
	}
}

func TestRunning(t *testing.T) {
	m := status.NewManager()
	if got := m.Running(); len(got) != 0 {
		t.Errorf("got %d statuses from an empty manager, expected 0", len(got))
	}

	m.Add(mock.Dispatcher{
		RunIdFunc:  func() string { return "run1" },
		StatusFunc: func() proto.RunStatus { return proto.RunStatus{RunId: "run1"} },
	})
	m.Add(mock.Dispatcher{
		RunIdFunc:  func() string { return "run2" },
		StatusFunc: func() proto.RunStatus { return proto.RunStatus{RunId: "run2"} },
	})

	got := m.Running()
	if len(got) != 2 {
		t.Fatalf("got %d statuses, expected 2", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s.RunId] = true
	}
	if !seen["run1"] || !seen["run2"] {
		t.Errorf("got runs %v, expected run1 and run2", seen)
	}
}

func TestResults(t *testing.T) {
	m := status.NewManager()
	want := map[string]proto.Result{
		"/a": {Path: "/a", Program: "fakesim"},
	}
	m.Add(mock.Dispatcher{
		RunIdFunc:   func() string { return "run1" },
		ResultsFunc: func() map[string]proto.Result { return want },
	})

	got, err := m.Results("run1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}

	if _, err := m.Results("nope"); err == nil {
		t.Error("expected an error for an unknown run")
	}
}

func TestStop(t *testing.T) {
	m := status.NewManager()
	stopped := false
	m.Add(mock.Dispatcher{
		RunIdFunc: func() string { return "run1" },
		StopFunc:  func() error { stopped = true; return nil },
	})

	if err := m.Stop("run1"); err != nil {
		t.Fatal(err)
	}
	if !stopped {
		t.Error("dispatcher not stopped")
	}

	err := m.Stop("nope")
	if err == nil {
		t.Fatal("expected an error, but did not get one")
	}
	if _, ok := err.(errors.RunNotFound); !ok {
		t.Errorf("got error type %T, expected errors.RunNotFound", err)
	}
}
