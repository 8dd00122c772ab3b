// Copyright 2026, Crucible Sciences, Inc.

package jobfolder

import (
	"io"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/crucible-sci/crucible/proto"
)

// node is the serialized form of one tree entry. A node with a job is a
// descriptor; a node without one is a sub-folder, empty or not. Job paths
// are not serialized, they are derived from the tree structure on load.
type node struct {
	Job     *proto.JobSpec   `yaml:"job,omitempty"`
	Entries map[string]*node `yaml:"entries,omitempty"`
}

// Save writes the folder tree as YAML. Save and Load round-trip the full
// tree losslessly: every spec's params and every sub-folder's structure
// survive a save/load cycle.
func (f *Folder) Save(w io.Writer) error {
	bytes, err := yaml.Marshal(f.toNode())
	if err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}

// Load reads a folder tree written by Save.
func Load(r io.Reader) (*Folder, error) {
	bytes, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var root node
	if err := yaml.Unmarshal(bytes, &root); err != nil {
		return nil, err
	}
	return root.toFolder(), nil
}

// SaveFile writes the folder to the named file, creating or truncating it.
func (f *Folder) SaveFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return f.Save(file)
}

// LoadFile reads a folder from the named file.
func LoadFile(filename string) (*Folder, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

func (f *Folder) toNode() *node {
	n := &node{}
	if len(f.entries) > 0 {
		n.Entries = make(map[string]*node, len(f.entries))
	}
	for name, e := range f.entries {
		if e.IsJob() {
			spec := e.Job.Copy()
			n.Entries[name] = &node{Job: &spec}
		} else {
			n.Entries[name] = e.Folder.toNode()
		}
	}
	return n
}

func (n *node) toFolder() *Folder {
	f := New()
	for name, child := range n.Entries {
		if child.Job != nil {
			spec := child.Job.Copy()
			f.entries[name] = Entry{Job: &spec}
		} else {
			f.entries[name] = Entry{Folder: child.toFolder()}
		}
	}
	return f
}
