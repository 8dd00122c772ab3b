// Copyright 2026, Crucible Sciences, Inc.

package process

import (
	"fmt"

	"github.com/orcaman/concurrent-map"
)

// Repo is a small wrapper around a concurrent map that provides the ability
// to store and retrieve live Processes in a thread-safe way. The dispatcher
// keys processes by folder path; Status, Stop, and shutdown all read from
// the repo.
type Repo interface {
	Set(key string, p *Process)
	Remove(key string)
	Get(key string) *Process
	Items() (map[string]*Process, error)
	Count() int
}

type repo struct {
	c cmap.ConcurrentMap
}

func NewRepo() Repo {
	return &repo{
		c: cmap.New(),
	}
}

func (r *repo) Set(key string, p *Process) {
	r.c.Set(key, p)
}

func (r *repo) Remove(key string) {
	r.c.Remove(key)
}

func (r *repo) Get(key string) *Process {
	v, ok := r.c.Get(key)
	if !ok {
		return nil
	}
	p, _ := v.(*Process)
	return p
}

// Items returns a map of key => Process with all the live processes in the
// repo.
func (r *repo) Items() (map[string]*Process, error) {
	procs := map[string]*Process{} // key => process
	vals := r.c.Items()
	for key, val := range vals {
		p, ok := val.(*Process)
		if !ok {
			return procs, fmt.Errorf("invalid process in repo for key=%s", key) // should be impossible
		}
		procs[key] = p
	}
	return procs, nil
}

func (r *repo) Count() int {
	return r.c.Count()
}
