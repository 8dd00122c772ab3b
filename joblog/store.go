// Copyright 2026, Crucible Sciences, Inc.

// Package joblog provides an interface for reading and writing try logs:
// one record per run attempt of one job. The dispatcher writes a try log
// after every attempt, so the full restart history of a lineage can be
// reconstructed after the fact.
package joblog

import (
	"sort"
	"sync"

	"github.com/crucible-sci/crucible/db"
	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/proto"
)

// A Store reads and writes try logs to/from a persistent datastore.
type Store interface {
	// Create saves a try log.
	Create(tl proto.TryLog) error

	// Get gets the try logs of one job lineage in a run, ordered by try.
	Get(runId, path string) ([]proto.TryLog, error)

	// GetFull gets all try logs of a run, ordered by path then try.
	GetFull(runId string) ([]proto.TryLog, error)
}

// ------------------------------------------------------------------------- //

// memoryStore keeps try logs in memory. Used in tests and when no database
// is configured.
type memoryStore struct {
	logs map[string][]proto.TryLog // runId => logs
	mux  *sync.Mutex
}

func NewMemoryStore() Store {
	return &memoryStore{
		logs: map[string][]proto.TryLog{},
		mux:  &sync.Mutex{},
	}
}

func (s *memoryStore) Create(tl proto.TryLog) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.logs[tl.RunId] = append(s.logs[tl.RunId], tl)
	return nil
}

func (s *memoryStore) Get(runId, path string) ([]proto.TryLog, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	var logs []proto.TryLog
	for _, tl := range s.logs[runId] {
		if tl.Path == path {
			logs = append(logs, tl)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Try < logs[j].Try })
	return logs, nil
}

func (s *memoryStore) GetFull(runId string) ([]proto.TryLog, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	logs := append([]proto.TryLog{}, s.logs[runId]...)
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Path != logs[j].Path {
			return logs[i].Path < logs[j].Path
		}
		return logs[i].Try < logs[j].Try
	})
	return logs, nil
}

// ------------------------------------------------------------------------- //

// sqlStore implements Store against MySQL.
type sqlStore struct {
	dbc db.Connector
}

func NewSQLStore(dbc db.Connector) Store {
	return &sqlStore{
		dbc: dbc,
	}
}

func (s *sqlStore) Create(tl proto.TryLog) error {
	conn, err := s.dbc.Connect() // connection is from a pool. do not close
	if err != nil {
		return err
	}

	q := "INSERT INTO try_log (run_id, path, proc_id, program, try, started_at, finished_at, state, " +
		"`exit`, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err = conn.Exec(q,
		&tl.RunId,
		&tl.Path,
		&tl.ProcId,
		&tl.Program,
		&tl.Try,
		&tl.StartedAt,
		&tl.FinishedAt,
		&tl.State,
		&tl.Exit,
		&tl.Error,
	)
	if err != nil {
		return errors.NewDbError(err, "try_log insert")
	}
	return nil
}

func (s *sqlStore) Get(runId, path string) ([]proto.TryLog, error) {
	q := "SELECT run_id, path, proc_id, program, try, started_at, finished_at, state, `exit`, error " +
		"FROM try_log WHERE run_id = ? AND path = ? ORDER BY try ASC"
	return s.query(q, runId, path)
}

func (s *sqlStore) GetFull(runId string) ([]proto.TryLog, error) {
	q := "SELECT run_id, path, proc_id, program, try, started_at, finished_at, state, `exit`, error " +
		"FROM try_log WHERE run_id = ? ORDER BY path ASC, try ASC"
	return s.query(q, runId)
}

func (s *sqlStore) query(q string, args ...interface{}) ([]proto.TryLog, error) {
	conn, err := s.dbc.Connect()
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(q, args...)
	if err != nil {
		return nil, errors.NewDbError(err, "try_log select")
	}
	defer rows.Close()

	var logs []proto.TryLog
	for rows.Next() {
		var tl proto.TryLog
		err := rows.Scan(
			&tl.RunId,
			&tl.Path,
			&tl.ProcId,
			&tl.Program,
			&tl.Try,
			&tl.StartedAt,
			&tl.FinishedAt,
			&tl.State,
			&tl.Exit,
			&tl.Error,
		)
		if err != nil {
			return nil, errors.NewDbError(err, "try_log scan")
		}
		logs = append(logs, tl)
	}
	return logs, nil
}
