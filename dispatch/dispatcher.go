// Copyright 2026, Crucible Sciences, Inc.

// Package dispatch schedules a batch of jobs onto a bounded budget of
// execution slots. Admission is greedy first-fit in folder order: when
// multiple jobs fit the free budget, the flattened folder order decides who
// goes first, so two runs over the same folder and budget submit in the
// same order. Completions free their reservation immediately and trigger
// the next admission attempt. Per-job failures never abort the batch; they
// are classified by the restart policy and recorded against the job's
// lineage while the rest of the run continues.
package dispatch

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/extract"
	"github.com/crucible-sci/crucible/id"
	"github.com/crucible-sci/crucible/joblog"
	"github.com/crucible-sci/crucible/process"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/proto"
	"github.com/crucible-sci/crucible/restart"
	"github.com/crucible-sci/crucible/retry"
)

const (
	// Time to wait for running jobs to stop before Stop gives up.
	defaultStopTimeout = 20 * time.Second

	// Number of times to attempt writing a try log to the store.
	tryLogTries = 3
	// Time to wait between attempts to write a try log.
	tryLogRetryWait = 500 * time.Millisecond

	procIdLen   = 8
	procIdTries = 100
)

// A Dispatcher runs one batch of jobs against one resource budget. A
// dispatcher is single-use: it is created, Run once, and discarded, the
// same way a folder flatten is a snapshot.
type Dispatcher interface {
	// Run dispatches the jobs and blocks until every job lineage is
	// terminal or Stop is called. A job whose resource request exceeds the
	// total budget, or whose program has no registered adapter, fails the
	// whole call up front, before any process is created.
	Run(jobs []proto.FolderJob) error

	// Stop cancels running processes and abandons pending jobs. It blocks
	// until Run has drained. It is idempotent.
	Stop() error

	// Status returns a snapshot of the run: per-lineage state, tries, and
	// reservations. It may be called from any goroutine, during or after
	// the run.
	Status() proto.RunStatus

	// Results returns the extracted result records of successful lineages,
	// keyed by folder path.
	Results() map[string]proto.Result

	// Done returns a channel closed when Run has returned.
	Done() <-chan struct{}

	RunId() string
}

// Config is everything a dispatcher needs. Budget, Programs, and Extractors
// are required; the rest default sensibly. The config is the explicit
// execution context of a run: nothing about how jobs launch is ambient or
// process-global.
type Config struct {
	Budget      uint             // total execution slots
	Programs    program.Registry // program adapters
	Extractors  extract.Registry // result extractors
	Policy      restart.Policy   // defaults to restart.NewPolicy(Programs, nil)
	Launcher    process.Launcher // defaults to process.LocalLauncher{}
	LogStore    joblog.Store     // defaults to joblog.NewMemoryStore()
	IdGen       id.Generator     // defaults to a fresh generator
	StopTimeout time.Duration    // defaults to 20s

	// Priority, if set, reorders the submission queue before the run
	// starts. This is the explicit override of the folder-order tie-break.
	Priority func([]proto.FolderJob) []proto.FolderJob
}

// lineage is the dispatcher's bookkeeping for one folder entry across all
// of its attempts.
type lineage struct {
	spec      proto.JobSpec // spec of the current/next attempt
	tries     uint          // attempts started
	state     byte          // last known process state
	outcome   byte          // OUTCOME_* once final, OUTCOME_UNKNOWN before
	reason    string
	startedAt int64 // UnixNano of latest attempt
}

type dispatcher struct {
	runId       string
	ledger      *Ledger
	programs    program.Registry
	extractors  extract.Registry
	policy      restart.Policy
	launcher    process.Launcher
	logStore    joblog.Store
	idGen       id.Generator
	priority    func([]proto.FolderJob) []proto.FolderJob
	stopTimeout time.Duration
	// --
	procRepo    process.Repo
	doneJobChan chan *process.Process
	requeueChan chan string
	stopChan    chan struct{}
	doneChan    chan struct{}
	stopMux     *sync.Mutex
	stopped     bool
	started     bool
	mux         *sync.Mutex // guards lineages, pending, results, times
	lineages    map[string]*lineage
	order       []string       // run order, fixed at Run
	orderIdx    map[string]int // path -> position in order
	pending     []string       // paths awaiting admission, kept in run order
	results     map[string]proto.Result
	startedAt   time.Time
	finishedAt  *time.Time
	logger      *log.Entry
}

// NewDispatcher creates a Dispatcher for one run.
func NewDispatcher(cfg Config) (Dispatcher, error) {
	if cfg.Budget == 0 {
		return nil, fmt.Errorf("dispatch: budget must be > 0")
	}
	if cfg.Programs == nil {
		return nil, fmt.Errorf("dispatch: program registry required")
	}
	if cfg.Extractors == nil {
		return nil, fmt.Errorf("dispatch: extractor registry required")
	}
	if cfg.Policy == nil {
		cfg.Policy = restart.NewPolicy(cfg.Programs, nil)
	}
	if cfg.Launcher == nil {
		cfg.Launcher = process.LocalLauncher{}
	}
	if cfg.LogStore == nil {
		cfg.LogStore = joblog.NewMemoryStore()
	}
	if cfg.IdGen == nil {
		cfg.IdGen = id.NewGenerator(procIdLen, procIdTries)
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	runId := xid.New().String()
	return &dispatcher{
		runId:       runId,
		ledger:      NewLedger(cfg.Budget),
		programs:    cfg.Programs,
		extractors:  cfg.Extractors,
		policy:      cfg.Policy,
		launcher:    cfg.Launcher,
		logStore:    cfg.LogStore,
		idGen:       cfg.IdGen,
		priority:    cfg.Priority,
		stopTimeout: cfg.StopTimeout,
		// --
		procRepo:    process.NewRepo(),
		doneJobChan: make(chan *process.Process),
		requeueChan: make(chan string),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		stopMux:     &sync.Mutex{},
		mux:         &sync.Mutex{},
		lineages:    map[string]*lineage{},
		orderIdx:    map[string]int{},
		results:     map[string]proto.Result{},
		logger:      log.WithFields(log.Fields{"runId": runId}),
	}, nil
}

func (d *dispatcher) RunId() string {
	return d.runId
}

func (d *dispatcher) Done() <-chan struct{} {
	return d.doneChan
}

func (d *dispatcher) Run(jobs []proto.FolderJob) error {
	d.mux.Lock()
	if d.started {
		d.mux.Unlock()
		return fmt.Errorf("dispatch: Run called twice; a dispatcher is single-use")
	}
	d.started = true
	d.startedAt = time.Now()
	d.mux.Unlock()

	// Registered before validation so a rejected batch still closes
	// doneChan and marks the run finished; Stop and Done must not hang on
	// a run that never admitted anything.
	defer func() {
		d.mux.Lock()
		now := time.Now()
		d.finishedAt = &now
		d.mux.Unlock()
		close(d.doneChan)
		d.logger.Info("dispatch run done")
	}()

	if d.priority != nil {
		jobs = d.priority(jobs)
	}

	// Up-front validation: reject the whole batch before any process is
	// created if a job can never be scheduled or has no adapter.
	for _, j := range jobs {
		if slots := j.Spec.Resources.Slots(); slots > d.ledger.Total() {
			return errors.UnschedulableRequest{Path: j.Path, Cores: slots, Budget: d.ledger.Total()}
		}
		if _, err := d.programs.Get(j.Spec.Program); err != nil {
			return err
		}
		if _, err := d.extractors.Get(j.Spec.Program); err != nil {
			return err
		}
	}

	d.logger.WithFields(log.Fields{"jobs": len(jobs), "budget": d.ledger.Total()}).Info("dispatch run started")

	d.mux.Lock()
	for _, j := range jobs {
		spec := j.Spec.Copy()
		spec.Path = j.Path
		d.lineages[j.Path] = &lineage{spec: spec, state: proto.STATE_PENDING}
		d.orderIdx[j.Path] = len(d.order)
		d.order = append(d.order, j.Path)
		d.pending = append(d.pending, j.Path)
	}
	d.mux.Unlock()

	d.admit()

	stopChan := d.stopChan
	for d.remaining() > 0 {
		select {
		case p := <-d.doneJobChan:
			d.reap(p)
			d.admit()
		case path := <-d.requeueChan:
			d.requeue(path)
			d.admit()
		case <-stopChan:
			d.abandonPending()
			stopChan = nil // closed, stop selecting it
		}
	}
	return nil
}

// Stop cancels all running processes and abandons everything else. The
// preserved working directories can be resumed by a later run.
func (d *dispatcher) Stop() error {
	d.stopMux.Lock()
	if d.stopped {
		d.stopMux.Unlock()
		return nil
	}
	d.stopped = true
	close(d.stopChan)
	d.stopMux.Unlock()

	d.mux.Lock()
	started := d.started
	d.mux.Unlock()
	if !started {
		return nil
	}

	d.logger.Info("stopping dispatch run and all processes")

	procs, err := d.procRepo.Items()
	if err != nil {
		return fmt.Errorf("problem retrieving processes from repo: %s", err)
	}

	// Cancel each process in its own goroutine in case some programs are
	// slow to die.
	var wg sync.WaitGroup
	for path, p := range procs {
		wg.Add(1)
		go func(path string, p *process.Process) {
			defer wg.Done()
			if err := p.Cancel(); err != nil {
				d.logger.Errorf("problem cancelling process (path = %s): %s", path, err)
			}
		}(path, p)
	}
	wg.Wait()

	select {
	case <-d.doneChan:
		return nil
	case <-time.After(d.stopTimeout):
		return fmt.Errorf("timeout waiting for dispatch run to drain after stop")
	}
}

func (d *dispatcher) Status() proto.RunStatus {
	d.mux.Lock()
	defer d.mux.Unlock()

	status := proto.RunStatus{
		RunId:      d.runId,
		TotalSlots: d.ledger.Total(),
		FreeSlots:  d.ledger.Free(),
		StartedAt:  d.startedAt,
		FinishedAt: d.finishedAt,
		Done:       d.finishedAt != nil,
	}
	for _, path := range d.order {
		lin := d.lineages[path]
		state := lin.state
		if p := d.procRepo.Get(path); p != nil {
			state = p.Poll()
		}
		status.Jobs = append(status.Jobs, proto.JobStatus{
			Path:      path,
			State:     state,
			Tries:     lin.tries,
			Cores:     d.ledger.Reserved(path),
			Outcome:   lin.outcome,
			Reason:    lin.reason,
			StartedAt: lin.startedAt,
		})
	}
	return status
}

func (d *dispatcher) Results() map[string]proto.Result {
	d.mux.Lock()
	defer d.mux.Unlock()
	results := make(map[string]proto.Result, len(d.results))
	for path, r := range d.results {
		results[path] = r
	}
	return results
}

// ------------------------------------------------------------------------- //

// remaining counts lineages that have not reached a final outcome.
func (d *dispatcher) remaining() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	n := 0
	for _, lin := range d.lineages {
		if lin.outcome == proto.OUTCOME_UNKNOWN {
			n++
		}
	}
	return n
}

// admit starts every pending job that fits the free budget, in order.
// First-fit: a large job at the head does not block a smaller job behind
// it when the smaller one fits.
func (d *dispatcher) admit() {
	d.stopMux.Lock()
	stopped := d.stopped
	d.stopMux.Unlock()
	if stopped {
		return
	}

	d.mux.Lock()
	defer d.mux.Unlock()

	var still []string
	for _, path := range d.pending {
		lin := d.lineages[path]
		slots := lin.spec.Resources.Slots()
		if !d.ledger.Reserve(path, slots) {
			still = append(still, path)
			continue
		}

		lin.tries++
		lin.state = proto.STATE_PENDING
		lin.startedAt = time.Now().UnixNano()

		procId, err := d.idGen.UID()
		if err != nil {
			procId = xid.New().String() // can't fail; collisions are no worse than reuse
		}

		// Registry lookups were validated up front and successors keep the
		// program type, so Get cannot fail here.
		adapter, _ := d.programs.Get(lin.spec.Program)
		grant := proto.ResourceGrant{Cores: slots, Nodes: lin.spec.Resources.Nodes}
		p := process.New(procId, lin.spec, grant, lin.tries, adapter, d.launcher)
		d.procRepo.Set(path, p)

		d.logger.WithFields(log.Fields{"path": path, "procId": procId, "try": lin.tries, "cores": slots}).Info("admitting job")

		go func(p *process.Process) {
			p.Submit() // on error the process is already terminal
			<-p.Done()
			d.doneJobChan <- p
		}(p)
	}
	d.pending = still
}

// reap handles one finished process: free the reservation, record the try,
// classify the outcome, and either finalize the lineage or queue a
// successor.
func (d *dispatcher) reap(p *process.Process) {
	path := p.Spec().Path
	d.ledger.Release(path)
	d.procRepo.Remove(path)

	state := p.Poll()
	outcome := d.policy.Evaluate(restart.Evaluation{
		Spec:     p.Spec(),
		State:    state,
		ExitCode: p.ExitCode(),
		WorkDir:  p.Spec().WorkDir,
		Try:      p.Try(),
	})

	d.mux.Lock()
	lin := d.lineages[path]
	lin.state = state
	d.mux.Unlock()

	d.writeTryLog(p, state, outcome)

	jLogger := d.logger.WithFields(log.Fields{
		"path":    path,
		"try":     p.Try(),
		"state":   proto.StateName[state],
		"outcome": proto.OutcomeName[outcome.Class],
	})

	switch outcome.Class {
	case proto.OUTCOME_SUCCESS:
		d.extractResult(p, jLogger)

	case proto.OUTCOME_RETRYABLE:
		d.mux.Lock()
		spec := lin.spec
		tries := lin.tries
		d.mux.Unlock()
		if tries-1 >= spec.Retry {
			// Cap exhausted: the retryable failure becomes fatal.
			jLogger.Errorf("job failed and retry cap reached: %s", outcome.Reason)
			d.finalize(path, proto.OUTCOME_FATAL,
				fmt.Sprintf("retry cap (%d) reached: %s", spec.Retry, outcome.Reason))
			return
		}
		successor := outcome.Successor.Copy()
		successor.Path = path // lineage attribution
		d.mux.Lock()
		lin.spec = successor
		d.mux.Unlock()
		jLogger.Infof("resubmitting job: %s", outcome.Reason)
		if wait := time.Duration(spec.RetryWait) * time.Millisecond; wait > 0 {
			time.AfterFunc(wait, func() {
				select {
				case d.requeueChan <- path:
				case <-d.doneChan:
					// run drained before the requeue landed (stopped)
				}
			})
		} else {
			d.requeue(path)
		}

	case proto.OUTCOME_FATAL:
		jLogger.Errorf("job failed fatally: %s", outcome.Reason)
		d.finalize(path, proto.OUTCOME_FATAL, outcome.Reason)

	default:
		jLogger.Errorf("policy returned unknown outcome class %d; treating as fatal", outcome.Class)
		d.finalize(path, proto.OUTCOME_FATAL, "unknown outcome class")
	}
}

// extractResult finalizes a successful lineage. A SUCCESS-classified
// process with incomplete artifacts is a core/adapter contract violation,
// logged distinctly from a legitimate simulation failure, and fatal to the
// lineage.
func (d *dispatcher) extractResult(p *process.Process, jLogger *log.Entry) {
	path := p.Spec().Path
	extractor, _ := d.extractors.Get(p.Spec().Program)
	result, err := extractor.Extract(p.Spec(), p.Spec().WorkDir)
	if err != nil {
		if _, ok := err.(errors.IncompleteArtifacts); ok {
			jLogger.Errorf("internal consistency fault: process classified SUCCESS but %s", err)
		} else {
			jLogger.Errorf("problem extracting results: %s", err)
		}
		d.finalize(path, proto.OUTCOME_FATAL, fmt.Sprintf("result extraction failed: %s", err))
		return
	}

	d.mux.Lock()
	d.results[path] = result
	d.mux.Unlock()
	jLogger.Info("job completed successfully")
	d.finalize(path, proto.OUTCOME_SUCCESS, "")
}

func (d *dispatcher) finalize(path string, outcome byte, reason string) {
	d.mux.Lock()
	defer d.mux.Unlock()
	lin := d.lineages[path]
	lin.outcome = outcome
	lin.reason = reason
}

// requeue puts a lineage back in the admission queue at its position in
// the run order, so the admission tie-break stays deterministic even when
// a Priority override reordered the queue.
func (d *dispatcher) requeue(path string) {
	d.stopMux.Lock()
	stopped := d.stopped
	d.stopMux.Unlock()

	d.mux.Lock()
	lin := d.lineages[path]
	if lin == nil || lin.outcome != proto.OUTCOME_UNKNOWN {
		d.mux.Unlock()
		return
	}
	if stopped {
		lin.outcome = proto.OUTCOME_FATAL
		lin.reason = "abandoned: dispatch run stopped"
		d.mux.Unlock()
		return
	}
	rank := d.orderIdx[path]
	i := sort.Search(len(d.pending), func(i int) bool {
		return d.orderIdx[d.pending[i]] > rank
	})
	d.pending = append(d.pending, "")
	copy(d.pending[i+1:], d.pending[i:])
	d.pending[i] = path
	d.mux.Unlock()
}

// abandonPending finalizes every lineage that is not currently running.
// Running processes were cancelled by Stop and will be reaped normally.
func (d *dispatcher) abandonPending() {
	d.mux.Lock()
	defer d.mux.Unlock()
	for path, lin := range d.lineages {
		if lin.outcome != proto.OUTCOME_UNKNOWN {
			continue
		}
		if d.procRepo.Get(path) != nil {
			continue // being reaped via doneJobChan
		}
		lin.outcome = proto.OUTCOME_FATAL
		lin.reason = "abandoned: dispatch run stopped"
		if lin.state == proto.STATE_PENDING {
			lin.state = proto.STATE_CANCELLED
		}
	}
	d.pending = nil
}

func (d *dispatcher) writeTryLog(p *process.Process, state byte, outcome proto.Outcome) {
	tl := proto.TryLog{
		RunId:   d.runId,
		Path:    p.Spec().Path,
		ProcId:  p.Id(),
		Program: p.Spec().Program,
		Try:     p.Try(),
		State:   state,
		Exit:    p.ExitCode(),
	}
	if !p.StartedAt().IsZero() {
		tl.StartedAt = p.StartedAt().UnixNano()
	}
	if !p.FinishedAt().IsZero() {
		tl.FinishedAt = p.FinishedAt().UnixNano()
	}
	if outcome.Class != proto.OUTCOME_SUCCESS {
		tl.Error = outcome.Reason
	}

	// A transient store fault must not fail the job.
	err := retry.Do(tryLogTries, tryLogRetryWait,
		func() error { return d.logStore.Create(tl) },
		nil,
	)
	if err != nil {
		d.logger.Errorf("problem writing try log (%#v): %s", tl, err)
	}
}
