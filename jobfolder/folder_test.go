// Copyright 2026, Crucible Sciences, Inc.

package jobfolder

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

func spec(program string) proto.JobSpec {
	return proto.JobSpec{
		Program: program,
		WorkDir: "/tmp/" + program,
		Params: []proto.Param{
			{Name: "x", Value: 0.5},
			{Name: "n", Value: 20},
		},
		Resources: proto.ResourceRequest{Cores: 2},
		Retry:     3,
	}
}

func TestAddJobAndResolve(t *testing.T) {
	f := New()
	if err := f.AddJob("/scan/a", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}

	got, err := f.Job("/scan/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/scan/a" {
		t.Errorf("got Path %s, expected /scan/a", got.Path)
	}
	want := spec("fakesim")
	want.Path = "/scan/a"
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestAddJobCreatesIntermediateFolders(t *testing.T) {
	f := New()
	if err := f.AddJob("/a/b/c/job", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}

	e, err := f.Resolve("/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if e.IsJob() {
		t.Error("/a/b is a job, expected a sub-folder")
	}

	names, err := f.List("/a/b/c")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names, []string{"job"}); diff != nil {
		t.Error(diff)
	}
}

func TestAddJobDuplicatePath(t *testing.T) {
	f := New()
	if err := f.AddJob("/a", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}

	err := f.AddJob("/a", spec("other"), false)
	if err == nil {
		t.Fatal("expected an error, but did not get one")
	}
	if _, ok := err.(errors.DuplicatePath); !ok {
		t.Errorf("got error type %T, expected errors.DuplicatePath", err)
	}

	// overwrite = true replaces the entry
	if err := f.AddJob("/a", spec("other"), true); err != nil {
		t.Fatal(err)
	}
	got, err := f.Job("/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Program != "other" {
		t.Errorf("got program %s, expected other", got.Program)
	}
}

func TestResolveNotFound(t *testing.T) {
	f := New()
	_, err := f.Resolve("/nope")
	if err == nil {
		t.Fatal("expected an error, but did not get one")
	}
	if _, ok := err.(errors.NotFound); !ok {
		t.Errorf("got error type %T, expected errors.NotFound", err)
	}
}

func TestJobIsolatedFromCallerMutation(t *testing.T) {
	f := New()
	s := spec("fakesim")
	if err := f.AddJob("/a", s, false); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's spec after AddJob must not affect the folder.
	s.Params[0].Value = 99.0

	got, err := f.Job("/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Params[0].Value != 0.5 {
		t.Errorf("got param x = %v, expected 0.5", got.Params[0].Value)
	}

	// And mutating a returned spec must not affect the folder either.
	got.Params[1].Value = -1
	again, _ := f.Job("/a")
	if again.Params[1].Value != 20 {
		t.Errorf("got param n = %v, expected 20", again.Params[1].Value)
	}
}

func TestRemove(t *testing.T) {
	f := New()
	if err := f.AddJob("/a/b", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}
	if err := f.Remove("/a/b"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Job("/a/b"); err == nil {
		t.Error("job still resolvable after Remove")
	}
	if err := f.Remove("/a/b"); err == nil {
		t.Error("expected an error removing a missing entry")
	}
}

func TestMove(t *testing.T) {
	f := New()
	if err := f.AddJob("/a", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}
	if err := f.Move("/a", "/scan/a2"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Job("/a"); err == nil {
		t.Error("src still resolvable after Move")
	}
	got, err := f.Job("/scan/a2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Program != "fakesim" {
		t.Errorf("got program %s, expected fakesim", got.Program)
	}

	// dst occupied
	f.AddJob("/b", spec("other"), false)
	if err := f.Move("/b", "/scan/a2"); err == nil {
		t.Error("expected an error moving onto an occupied path")
	}
}

func TestMoveIntoOwnDescendant(t *testing.T) {
	f := New()
	if err := f.AddJob("/a/b/job1", spec("fakesim"), false); err != nil {
		t.Fatal(err)
	}

	if err := f.Move("/a", "/a/b"); err == nil {
		t.Fatal("expected an error moving a folder into its own descendant")
	}
	if err := f.Move("/a", "/a"); err == nil {
		t.Fatal("expected an error moving a folder onto itself")
	}

	// The subtree must be intact.
	jobs := f.Flatten()
	if len(jobs) != 1 || jobs[0].Path != "/a/b/job1" {
		t.Errorf("got jobs %+v, expected only /a/b/job1", jobs)
	}
}

func TestCursor(t *testing.T) {
	f := New()
	f.AddJob("/scan/low/a", spec("fakesim"), false)
	f.AddJob("/scan/low/b", spec("fakesim"), false)

	if err := f.Cd("/scan/low"); err != nil {
		t.Fatal(err)
	}
	if f.Cwd() != "/scan/low" {
		t.Errorf("got cwd %s, expected /scan/low", f.Cwd())
	}

	// Relative addressing resolves against the cursor.
	got, err := f.Job("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/scan/low/a" {
		t.Errorf("got Path %s, expected /scan/low/a", got.Path)
	}

	// ".." pops a segment.
	if err := f.Cd(".."); err != nil {
		t.Fatal(err)
	}
	if f.Cwd() != "/scan" {
		t.Errorf("got cwd %s, expected /scan", f.Cwd())
	}

	// Cd to a job is an error.
	if err := f.Cd("low/a"); err == nil {
		t.Error("expected an error cd'ing into a job")
	}
}

func TestFlattenOrderAndSnapshot(t *testing.T) {
	f := New()
	// Insertion order is deliberately scrambled; flatten order must be
	// lexicographic on path regardless.
	f.AddJob("/zeta", spec("fakesim"), false)
	f.AddJob("/scan/b", spec("fakesim"), false)
	f.AddJob("/alpha", spec("fakesim"), false)
	f.AddJob("/scan/a", spec("fakesim"), false)

	jobs := f.Flatten()
	paths := make([]string, len(jobs))
	for i, j := range jobs {
		paths[i] = j.Path
	}
	want := []string{"/alpha", "/scan/a", "/scan/b", "/zeta"}
	if diff := deep.Equal(paths, want); diff != nil {
		t.Error(diff)
	}
	for _, j := range jobs {
		if j.Spec.Path != j.Path {
			t.Errorf("spec.Path %s != folder path %s", j.Spec.Path, j.Path)
		}
	}

	// Flatten is a snapshot: later edits must not show up in it.
	f.Remove("/alpha")
	if len(jobs) != 4 {
		t.Errorf("snapshot shrank to %d jobs after Remove", len(jobs))
	}
}

func TestListSorted(t *testing.T) {
	f := New()
	f.AddJob("/scan/c", spec("fakesim"), false)
	f.AddJob("/scan/a", spec("fakesim"), false)
	f.AddFolder("/scan/b", false)

	names, err := f.List("/scan")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names, []string{"a", "b", "c"}); diff != nil {
		t.Error(diff)
	}
}
