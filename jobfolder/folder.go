// Copyright 2026, Crucible Sciences, Inc.

// Package jobfolder provides the hierarchical job folder: a tree of job
// specs and nested sub-folders with path-style addressing, deterministic
// flattening, and lossless save/load. A folder is the unit of persistence
// for a computational campaign; it outlives the controlling process and is
// reloaded across restarts.
//
// A Folder is not safe for concurrent use. The dispatcher takes a snapshot
// via Flatten at the start of a run; folder edits made during a run do not
// affect the in-flight run.
package jobfolder

import (
	"sort"
	"strings"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

// An Entry is one node of the folder tree. Exactly one of Job and Folder is
// set; callers branch on which, there is no runtime type probing.
type Entry struct {
	Job    *proto.JobSpec
	Folder *Folder
}

// IsJob reports whether the entry holds a job spec.
func (e Entry) IsJob() bool {
	return e.Job != nil
}

// Folder is a dictionary-like container of job specs and sub-folders.
type Folder struct {
	entries map[string]Entry
	cursor  []string // current position for relative addressing, segments from root
}

// New creates an empty folder.
func New() *Folder {
	return &Folder{
		entries: map[string]Entry{},
	}
}

// AddJob adds a job spec at path, creating intermediate sub-folders as
// needed. It returns errors.DuplicatePath if the path is occupied and
// overwrite is false. The spec is copied; the caller's copy stays free to
// mutate.
func (f *Folder) AddJob(path string, spec proto.JobSpec, overwrite bool) error {
	c := spec.Copy()
	return f.add(path, Entry{Job: &c}, overwrite)
}

// AddFolder adds an empty sub-folder at path, creating intermediate
// sub-folders as needed. It returns errors.DuplicatePath if the path is
// occupied and overwrite is false.
func (f *Folder) AddFolder(path string, overwrite bool) (*Folder, error) {
	sub := New()
	if err := f.add(path, Entry{Folder: sub}, overwrite); err != nil {
		return nil, err
	}
	return sub, nil
}

func (f *Folder) add(path string, e Entry, overwrite bool) error {
	segs, err := f.abs(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return errors.DuplicatePath{Path: "/"}
	}
	parent := f
	for _, seg := range segs[:len(segs)-1] {
		next, ok := parent.entries[seg]
		if !ok {
			sub := New()
			parent.entries[seg] = Entry{Folder: sub}
			parent = sub
			continue
		}
		if !next.IsJob() {
			parent = next.Folder
			continue
		}
		// a job occupies an intermediate segment
		return errors.DuplicatePath{Path: join(segs)}
	}
	name := segs[len(segs)-1]
	if _, ok := parent.entries[name]; ok && !overwrite {
		return errors.DuplicatePath{Path: join(segs)}
	}
	parent.entries[name] = e
	return nil
}

// Resolve returns the entry at path, or errors.NotFound. A leading slash
// makes the path absolute; otherwise it is relative to the cursor.
func (f *Folder) Resolve(path string) (Entry, error) {
	segs, err := f.abs(path)
	if err != nil {
		return Entry{}, err
	}
	if len(segs) == 0 {
		return Entry{Folder: f}, nil
	}
	parent := f
	for i, seg := range segs {
		e, ok := parent.entries[seg]
		if !ok {
			return Entry{}, errors.NotFound{Path: join(segs)}
		}
		if i == len(segs)-1 {
			return e, nil
		}
		if e.IsJob() {
			return Entry{}, errors.NotFound{Path: join(segs)}
		}
		parent = e.Folder
	}
	return Entry{}, errors.NotFound{Path: join(segs)}
}

// Job resolves path and returns the job spec there, with Path set to the
// absolute folder path. It returns errors.NotFound if the entry is missing
// or is a sub-folder.
func (f *Folder) Job(path string) (proto.JobSpec, error) {
	segs, err := f.abs(path)
	if err != nil {
		return proto.JobSpec{}, err
	}
	e, err := f.Resolve(join(segs))
	if err != nil {
		return proto.JobSpec{}, err
	}
	if !e.IsJob() {
		return proto.JobSpec{}, errors.NotFound{Path: join(segs)}
	}
	spec := e.Job.Copy()
	spec.Path = join(segs)
	return spec, nil
}

// Remove deletes the entry at path, or returns errors.NotFound.
func (f *Folder) Remove(path string) error {
	segs, err := f.abs(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return errors.NotFound{Path: "/"}
	}
	parentEntry, err := f.Resolve(join(segs[:len(segs)-1]))
	if err != nil {
		return err
	}
	if parentEntry.IsJob() {
		return errors.NotFound{Path: join(segs)}
	}
	parent := parentEntry.Folder
	name := segs[len(segs)-1]
	if _, ok := parent.entries[name]; !ok {
		return errors.NotFound{Path: join(segs)}
	}
	delete(parent.entries, name)
	return nil
}

// Move relocates the entry at src to dst. It returns errors.NotFound if
// src does not exist and errors.DuplicatePath if dst is occupied or lies
// inside the subtree being moved (the tree stays acyclic).
func (f *Folder) Move(src, dst string) error {
	srcSegs, err := f.abs(src)
	if err != nil {
		return err
	}
	dstSegs, err := f.abs(dst)
	if err != nil {
		return err
	}
	if isPrefix(srcSegs, dstSegs) {
		return errors.DuplicatePath{Path: join(dstSegs)}
	}
	e, err := f.Resolve(join(srcSegs))
	if err != nil {
		return err
	}
	if err := f.add(join(dstSegs), e, false); err != nil {
		return err
	}
	return f.Remove(join(srcSegs))
}

// Cd moves the cursor used for relative addressing. The target must be an
// existing sub-folder.
func (f *Folder) Cd(path string) error {
	segs, err := f.abs(path)
	if err != nil {
		return err
	}
	e, err := f.Resolve(join(segs))
	if err != nil {
		return err
	}
	if e.IsJob() {
		return errors.NotFound{Path: join(segs)}
	}
	f.cursor = segs
	return nil
}

// Cwd returns the cursor's absolute path.
func (f *Folder) Cwd() string {
	return join(f.cursor)
}

// List returns the names of the entries directly under path, sorted.
func (f *Folder) List(path string) ([]string, error) {
	e, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	if e.IsJob() {
		return nil, errors.NotFound{Path: path}
	}
	names := make([]string, 0, len(e.Folder.entries))
	for name := range e.Folder.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Flatten returns every job in the tree as (absolute path, spec) pairs in
// lexicographic path order. This ordering is load-bearing: the dispatcher
// uses it as its deterministic submission tie-break. The returned specs are
// copies; the result is a snapshot, unaffected by later folder edits.
func (f *Folder) Flatten() []proto.FolderJob {
	var jobs []proto.FolderJob
	f.walk(nil, &jobs)
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Path < jobs[j].Path })
	return jobs
}

func (f *Folder) walk(prefix []string, jobs *[]proto.FolderJob) {
	for name, e := range f.entries {
		segs := append(append([]string{}, prefix...), name)
		if e.IsJob() {
			spec := e.Job.Copy()
			spec.Path = join(segs)
			*jobs = append(*jobs, proto.FolderJob{Path: spec.Path, Spec: spec})
		} else {
			e.Folder.walk(segs, jobs)
		}
	}
}

// ------------------------------------------------------------------------- //

// abs resolves path against the cursor and returns clean segments from the
// root. "." and empty segments are dropped; ".." pops a segment.
func (f *Folder) abs(path string) ([]string, error) {
	var segs []string
	if !strings.HasPrefix(path, "/") {
		segs = append(segs, f.cursor...)
	}
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return nil, errors.NotFound{Path: path}
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}
	return segs, nil
}

func join(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// isPrefix reports whether path b equals path a or lies under it.
func isPrefix(a, b []string) bool {
	if len(b) < len(a) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
