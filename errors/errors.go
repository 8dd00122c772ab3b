// Copyright 2026, Crucible Sciences, Inc.

// Package errors provides errors reported to the user. All errors implement
// the error interface and return a terse message; the message is reported
// in context, so it does not repeat the operation that failed. The API maps
// these types to HTTP statuses, which is why they are distinct types and
// not fmt.Errorf values.
package errors

import (
	"errors"
	"fmt"
)

// ErrTimedOut is returned by Process.Wait when the timeout elapses before
// the process reaches a terminal state. The execution unit keeps running;
// cancellation is a separate, explicit action.
var ErrTimedOut = errors.New("wait timed out, process still live")

var _ error = DuplicatePath{}

// DuplicatePath is returned by folder Add when the path is already occupied
// and the overwrite flag is not set.
type DuplicatePath struct {
	Path string
}

func (e DuplicatePath) Error() string {
	return fmt.Sprintf("path %s already exists in folder", e.Path)
}

// --------------------------------------------------------------------------

var _ error = NotFound{}

// NotFound is returned by folder navigation when no entry exists at a path.
type NotFound struct {
	Path string
}

func (e NotFound) Error() string {
	return fmt.Sprintf("path %s not found in folder", e.Path)
}

// --------------------------------------------------------------------------

var _ error = UnschedulableRequest{}

// UnschedulableRequest is returned by the dispatcher, before any process is
// created, when a job's resource request can never fit the total budget.
type UnschedulableRequest struct {
	Path   string
	Cores  uint
	Budget uint
}

func (e UnschedulableRequest) Error() string {
	return fmt.Sprintf("job %s requests %d cores but the total budget is %d", e.Path, e.Cores, e.Budget)
}

// --------------------------------------------------------------------------

var _ error = IncompleteArtifacts{}

// IncompleteArtifacts is returned by a result extractor when required
// output markers are absent. For a SUCCESS-classified process this
// indicates a core/adapter contract violation, not a simulation failure,
// and it is logged distinctly.
type IncompleteArtifacts struct {
	Path    string // folder path of the job
	Missing string // the marker or file that was not found
}

func (e IncompleteArtifacts) Error() string {
	return fmt.Sprintf("artifacts for %s incomplete: missing %s", e.Path, e.Missing)
}

// --------------------------------------------------------------------------

var _ error = ProgramNotRegistered{}

// ProgramNotRegistered is returned when a job spec names a program type
// that has no registered adapter.
type ProgramNotRegistered struct {
	Program string
}

func (e ProgramNotRegistered) Error() string {
	return fmt.Sprintf("no adapter registered for program type %s", e.Program)
}

// --------------------------------------------------------------------------

var _ error = RunNotFound{}

// RunNotFound is returned by the API when no dispatch run has the given id.
type RunNotFound struct {
	RunId string
}

func (e RunNotFound) Error() string {
	return fmt.Sprintf("run %s not found", e.RunId)
}

// --------------------------------------------------------------------------

var _ error = DbError{}

// DbError represents a generic database error from the job log store. This
// struct is not superfluous, it lets callers distinguish a store fault from
// a job fault.
type DbError struct {
	err   error
	query string
}

func NewDbError(err error, query string) DbError {
	return DbError{err: err, query: query}
}

func (e DbError) Error() string {
	return fmt.Sprintf("database error: %s (%s)", e.err, e.query)
}
