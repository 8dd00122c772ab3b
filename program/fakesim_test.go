// Copyright 2026, Crucible Sciences, Inc.

package program

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

func testDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "program-test")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

func TestFakeSimPrepare(t *testing.T) {
	dir, cleanup := testDir(t)
	defer cleanup()

	a := FakeSim{Bin: "/opt/bin/fakesim"}
	ls, err := a.Prepare(dir, []proto.Param{
		{Name: "x", Value: 0.5},
		{Name: "n", Value: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ls.Path != "/opt/bin/fakesim" {
		t.Errorf("got path %s, expected /opt/bin/fakesim", ls.Path)
	}
	if diff := deep.Equal(ls.Args, []string{"--in", FakeSimInFile, "--out", FakeSimOutFile}); diff != nil {
		t.Error(diff)
	}

	// Params land in the input file in order.
	data, err := ioutil.ReadFile(filepath.Join(dir, FakeSimInFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "x=0.5\nn=10\n"
	if string(data) != want {
		t.Errorf("got input file %q, expected %q", string(data), want)
	}
}

func TestFakeSimArtifactsIndicate(t *testing.T) {
	dir, cleanup := testDir(t)
	defer cleanup()
	a := FakeSim{Bin: "fakesim"}

	// Nothing written yet.
	if got := a.ArtifactsIndicate(dir); got != HINT_UNKNOWN {
		t.Errorf("got hint %s, expected UNKNOWN", HintName[got])
	}

	// Checkpoint only: resumable.
	if err := ioutil.WriteFile(filepath.Join(dir, FakeSimCkptFile), []byte("5 1.9 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := a.ArtifactsIndicate(dir); got != HINT_RETRYABLE {
		t.Errorf("got hint %s, expected RETRYABLE", HintName[got])
	}

	// Output with the end marker wins over a leftover checkpoint.
	out := FakeSimBegin + "\nsum=2\n" + FakeSimEnd + "\n"
	if err := ioutil.WriteFile(filepath.Join(dir, FakeSimOutFile), []byte(out), 0644); err != nil {
		t.Fatal(err)
	}
	if got := a.ArtifactsIndicate(dir); got != HINT_OK {
		t.Errorf("got hint %s, expected OK", HintName[got])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("fakesim", FakeSim{Bin: "fakesim"})

	if _, err := r.Get("fakesim"); err != nil {
		t.Errorf("Get(fakesim) = %s, expected nil", err)
	}
	_, err := r.Get("quantumsim")
	if err == nil {
		t.Fatal("expected an error, but did not get one")
	}
	if _, ok := err.(errors.ProgramNotRegistered); !ok {
		t.Errorf("got error type %T, expected errors.ProgramNotRegistered", err)
	}
	if diff := deep.Equal(r.Types(), []string{"fakesim"}); diff != nil {
		t.Error(diff)
	}
}
