// Copyright 2026, Crucible Sciences, Inc.

package jobfolder

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	f := New()
	f.AddJob("/scan/low/a", spec("fakesim"), false)
	f.AddJob("/scan/low/b", spec("fakesim"), false)
	f.AddJob("/scan/high", spec("other"), false)
	f.AddFolder("/empty", false)

	var buf bytes.Buffer
	if err := f.Save(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}

	// The trees must be identical: same jobs at the same paths, same
	// params, and the empty sub-folder preserved.
	if diff := deep.Equal(loaded.Flatten(), f.Flatten()); diff != nil {
		t.Error(diff)
	}
	e, err := loaded.Resolve("/empty")
	if err != nil {
		t.Fatal(err)
	}
	if e.IsJob() {
		t.Error("/empty is a job, expected an empty sub-folder")
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "jobfolder-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	f := New()
	f.AddJob("/a", spec("fakesim"), false)

	file := filepath.Join(dir, "jobs.yaml")
	if err := f.SaveFile(file); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(loaded.Flatten(), f.Flatten()); diff != nil {
		t.Error(diff)
	}
}

func TestLoadHandWrittenYAML(t *testing.T) {
	// Folders are edited by hand as much as by code, so the on-disk form
	// has to stay human-writable.
	in := `
entries:
  scan:
    entries:
      a:
        job:
          program: fakesim
          workDir: /tmp/scan-a
          params:
            - name: x
              value: 0.5
          retry: 2
`
	f, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Job("/scan/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Program != "fakesim" {
		t.Errorf("got program %s, expected fakesim", got.Program)
	}
	if got.Retry != 2 {
		t.Errorf("got retry %d, expected 2", got.Retry)
	}
	x, ok := got.Param("x")
	if !ok || x != 0.5 {
		t.Errorf("got param x = %v (set=%t), expected 0.5", x, ok)
	}
}
