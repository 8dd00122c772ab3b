// Copyright 2026, Crucible Sciences, Inc.

// Package proto provides core data structures and constants. To avoid an
// import cycle, this package must not have external dependencies because
// everything else depends on it.
package proto

import (
	"time"
)

const (
	STATE_UNKNOWN byte = iota

	// Normal states, in order
	STATE_PENDING  // accepted, not started
	STATE_RUNNING  // execution unit handed to the OS
	STATE_COMPLETE // program exited zero

	// Terminal error states, no order
	STATE_FAIL      // program exited non-zero or could not be started
	STATE_TIMEOUT   // descriptor time limit exceeded, execution unit reaped
	STATE_CANCELLED // cancelled by caller, exit confirmed
)

var StateName = map[byte]string{
	STATE_UNKNOWN:   "UNKNOWN",
	STATE_PENDING:   "PENDING",
	STATE_RUNNING:   "RUNNING",
	STATE_COMPLETE:  "COMPLETE",
	STATE_FAIL:      "FAIL",
	STATE_TIMEOUT:   "TIMEOUT",
	STATE_CANCELLED: "CANCELLED",
}

var StateValue = map[string]byte{
	"UNKNOWN":   STATE_UNKNOWN,
	"PENDING":   STATE_PENDING,
	"RUNNING":   STATE_RUNNING,
	"COMPLETE":  STATE_COMPLETE,
	"FAIL":      STATE_FAIL,
	"TIMEOUT":   STATE_TIMEOUT,
	"CANCELLED": STATE_CANCELLED,
}

// Terminal reports whether state is one of the four terminal states. A
// process in a terminal state never changes state again; resubmission
// creates a new process.
func Terminal(state byte) bool {
	switch state {
	case STATE_COMPLETE, STATE_FAIL, STATE_TIMEOUT, STATE_CANCELLED:
		return true
	}
	return false
}

// Outcome classes assigned by a restart policy to a terminal process.
const (
	OUTCOME_UNKNOWN   byte = iota
	OUTCOME_SUCCESS        // final, results extracted
	OUTCOME_RETRYABLE      // derive a successor and resubmit
	OUTCOME_FATAL          // final, no further submissions for this lineage
)

var OutcomeName = map[byte]string{
	OUTCOME_UNKNOWN:   "UNKNOWN",
	OUTCOME_SUCCESS:   "SUCCESS",
	OUTCOME_RETRYABLE: "RETRYABLE",
	OUTCOME_FATAL:     "FATAL",
}

// A Param is one named input parameter of a job. Params are kept as an
// ordered sequence, not a map, because external programs are sensitive to
// input ordering. Value is a scalar, a list, or a nested record, whatever
// the program adapter accepts.
type Param struct {
	Name  string      `json:"name" yaml:"name"`
	Value interface{} `json:"value" yaml:"value"`
}

// ResourceRequest is the resource ask of one job. All fields are optional;
// a zero Cores means a single execution slot. TimeLimit zero means no limit.
type ResourceRequest struct {
	Cores     uint `json:"cores,omitempty" yaml:"cores,omitempty"`
	Nodes     uint `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	TimeLimit uint `json:"timeLimit,omitempty" yaml:"timeLimit,omitempty"` // walltime limit (milliseconds)
}

// Slots returns the number of execution slots the request reserves.
func (r ResourceRequest) Slots() uint {
	if r.Cores == 0 {
		return 1
	}
	return r.Cores
}

// A ResourceGrant is the allocation actually given to a process by the
// dispatcher.
type ResourceGrant struct {
	Cores uint `json:"cores"`
	Nodes uint `json:"nodes,omitempty"`
}

// Parallel indicates the grant spans more than one rank, so the program
// must be started through the MPI launcher.
func (g ResourceGrant) Parallel() bool {
	return g.Cores > 1 || g.Nodes > 1
}

// JobSpec is the immutable specification of one computational task: which
// program to run, where, with what inputs, and what resources it needs.
// Specs are identified by Path, which must be unique within their folder.
// The dispatcher deep-copies a spec before handing it to a process, so a
// spec is never mutated by a run (copy-on-submit).
type JobSpec struct {
	Path      string          `json:"path" yaml:"-"`          // absolute folder path, set on flatten
	Program   string          `json:"program" yaml:"program"` // registered program adapter type
	WorkDir   string          `json:"workDir" yaml:"workDir"` // working directory for the run
	Params    []Param         `json:"params,omitempty" yaml:"params,omitempty"`
	Resources ResourceRequest `json:"resources,omitempty" yaml:"resources,omitempty"`
	Retry     uint            `json:"retry,omitempty" yaml:"retry,omitempty"`         // resubmit N times on retryable failure
	RetryWait uint            `json:"retryWait,omitempty" yaml:"retryWait,omitempty"` // wait (milliseconds) before resubmitting
}

// Copy returns a deep copy of the spec.
func (s JobSpec) Copy() JobSpec {
	c := s
	if s.Params != nil {
		c.Params = make([]Param, len(s.Params))
		for i, p := range s.Params {
			c.Params[i] = Param{Name: p.Name, Value: copyValue(p.Value)}
		}
	}
	return c
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []interface{}:
		c := make([]interface{}, len(x))
		for i, e := range x {
			c[i] = copyValue(e)
		}
		return c
	case map[string]interface{}:
		c := make(map[string]interface{}, len(x))
		for k, e := range x {
			c[k] = copyValue(e)
		}
		return c
	case map[interface{}]interface{}:
		// yaml.v2 unmarshals records to this type
		c := make(map[interface{}]interface{}, len(x))
		for k, e := range x {
			c[k] = copyValue(e)
		}
		return c
	}
	return v
}

// Param returns the value of the named parameter and whether it is set.
func (s JobSpec) Param(name string) (interface{}, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// A FolderJob is one (absolute path, spec) pair produced by flattening a
// job folder. The flatten order is lexicographic on path and is the
// dispatcher's deterministic submission tie-break.
type FolderJob struct {
	Path string  `json:"path"`
	Spec JobSpec `json:"spec"`
}

// Outcome is a restart policy's classification of one terminal process.
// Successor is set only for OUTCOME_RETRYABLE; it keeps the original
// spec's Path so results stay attributed to the originating folder entry.
type Outcome struct {
	Class     byte     `json:"class"` // OUTCOME_* const
	Reason    string   `json:"reason,omitempty"`
	Successor *JobSpec `json:"successor,omitempty"`
}

// TryLog is the record of one run attempt of one job. One TryLog is written
// per attempt, success or not, keyed by (RunId, Path, Try).
type TryLog struct {
	RunId      string `json:"runId"`
	Path       string `json:"path"`
	ProcId     string `json:"procId"`
	Program    string `json:"program"`
	Try        uint   `json:"try"`
	StartedAt  int64  `json:"startedAt"`  // UnixNano, 0 if never started
	FinishedAt int64  `json:"finishedAt"` // UnixNano, 0 if never started
	State      byte   `json:"state"`      // STATE_* const
	Exit       int64  `json:"exit"`       // program exit code
	Error      string `json:"error,omitempty"`
}

// Result is the structured record extracted from a finished job's
// artifacts. Extraction is idempotent: unchanged artifacts yield an
// identical Result.
type Result struct {
	Path    string  `json:"path"`    // originating folder entry
	Program string  `json:"program"` // adapter that produced the artifacts
	Values  []Param `json:"values"`  // extracted values, artifact order
}

// JobStatus is the live status of one job lineage during a dispatch run.
type JobStatus struct {
	Path      string `json:"path"`
	State     byte   `json:"state"`
	Tries     uint   `json:"tries"`
	Cores     uint   `json:"cores"`               // current reservation, 0 if not running
	Outcome   byte   `json:"outcome"`             // OUTCOME_* const once terminal
	Reason    string `json:"reason,omitempty"`    // outcome reason once terminal
	StartedAt int64  `json:"startedAt,omitempty"` // UnixNano of latest attempt
}

// RunStatus is the status of one dispatch run.
type RunStatus struct {
	RunId      string      `json:"runId"`
	TotalSlots uint        `json:"totalSlots"`
	FreeSlots  uint        `json:"freeSlots"`
	Jobs       []JobStatus `json:"jobs"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
	Done       bool        `json:"done"`
}
