// Copyright 2026, Crucible Sciences, Inc.

// Package server bootstraps and runs the crucible service: the status and
// control API plus dispatch runs over job folders.
package server

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/crucible-sci/crucible/api"
	"github.com/crucible-sci/crucible/app"
	"github.com/crucible-sci/crucible/config"
	"github.com/crucible-sci/crucible/dispatch"
	"github.com/crucible-sci/crucible/extract"
	"github.com/crucible-sci/crucible/jobfolder"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/restart"
	"github.com/crucible-sci/crucible/status"
	"github.com/crucible-sci/crucible/version"
)

type Server struct {
	appCtx app.Context
	api    *api.API
	stat   status.Manager

	apiStopped chan struct{}
	stopMux    sync.Mutex
	stopped    bool
}

func NewServer(appCtx app.Context) *Server {
	return &Server{
		appCtx:     appCtx,
		stopMux:    sync.Mutex{},
		apiStopped: make(chan struct{}),
	}
}

// Boot sets up the server. It must be called before calling Run.
func (s *Server) Boot() error {
	// Only run Boot once.
	if s.api != nil {
		return nil
	}

	log.Infof("crucible %s", version.Version())

	// Load config file
	cfg, err := s.appCtx.Hooks.LoadConfig(s.appCtx)
	if err != nil {
		return fmt.Errorf("error loading config: %s", err)
	}
	// Override with env vars, if set
	cfg.Server.Addr = config.Env("CRUCIBLE_SERVER_ADDR", cfg.Server.Addr)
	cfg.Dispatcher.FolderFile = config.Env("CRUCIBLE_FOLDER_FILE", cfg.Dispatcher.FolderFile)
	cfg.Db.DSN = config.Env("CRUCIBLE_DB_DSN", cfg.Db.DSN)
	s.appCtx.Config = cfg
	cfgstr, _ := json.MarshalIndent(cfg, "", "  ")
	log.Printf("Config: %s", cfgstr)

	// Built-in program support. Sites register their own adapters and
	// extractors on the app.Context before calling Boot.
	if _, err := s.appCtx.Programs.Get(program.FakeSimType); err != nil {
		s.appCtx.Programs.Register(program.FakeSimType, program.FakeSim{Bin: "fakesim"})
		s.appCtx.Extractors.Register(program.FakeSimType, extract.FakeSim{})
	}

	s.stat = status.NewManager()
	s.api = api.NewAPI(s.appCtx, s.stat)
	return nil
}

// Run runs the crucible API in the foreground. It returns when the API stops
// running (either from an error, or after a call to Stop).
//
// If a folder file is configured and present, a dispatch run over it is
// started in the background before the API comes up; its status and results
// are queryable through the API while it runs and after it finishes.
//
// If stopOnSignal = true, the server will listen for TERM and INT signals
// from the OS and call Stop to shut itself down when those signals are
// received. Else, the caller must call Stop to shut down the server.
func (s *Server) Run(stopOnSignal bool) error {
	if s.api == nil {
		panic("Server.Run called before Server.Boot")
	}
	if s.stopped {
		return fmt.Errorf("server stopped")
	}

	folderFile := s.appCtx.Config.Dispatcher.FolderFile
	if folderFile != "" {
		if _, err := os.Stat(folderFile); err == nil {
			folder, err := jobfolder.LoadFile(folderFile)
			if err != nil {
				return fmt.Errorf("error loading job folder %s: %s", folderFile, err)
			}
			if _, err := s.StartRun(folder); err != nil {
				return fmt.Errorf("error starting dispatch run: %s", err)
			}
		} else {
			log.Infof("Job folder %s not found, serving API only", folderFile)
		}
	}

	if stopOnSignal {
		go s.waitForShutdown()
	}

	// Run the API - this blocks until the API is stopped (or encounters
	// some fatal error).
	err := s.api.Run()

	// If the server was stopped (as opposed to some error within the API),
	// wait to make sure it's done shutting down the API before returning.
	if s.stopped {
		<-s.apiStopped
	}

	if err != nil {
		return fmt.Errorf("error from API: %s", err)
	}
	return nil
}

// StartRun flattens the folder, applies configured defaults to the specs,
// and starts a dispatch run over the jobs in the background. It returns the
// run id of the new run. The run is tracked by the status manager, so its
// status, results, and stop control are available through the API.
func (s *Server) StartRun(folder *jobfolder.Folder) (string, error) {
	cfg := s.appCtx.Config

	jobs := folder.Flatten()
	for i := range jobs {
		if jobs[i].Spec.Retry == 0 {
			jobs[i].Spec.Retry = cfg.Dispatcher.DefaultRetry
		}
		if jobs[i].Spec.Resources.TimeLimit == 0 {
			jobs[i].Spec.Resources.TimeLimit = cfg.Launcher.DefaultTimeLimit
		}
	}

	launcher, err := s.appCtx.Factories.MakeLauncher(s.appCtx)
	if err != nil {
		return "", fmt.Errorf("error making launcher: %s", err)
	}
	logStore, err := s.appCtx.Factories.MakeLogStore(s.appCtx)
	if err != nil {
		return "", fmt.Errorf("error making try-log store: %s", err)
	}

	d, err := dispatch.NewDispatcher(dispatch.Config{
		Budget:     cfg.Dispatcher.Slots,
		Programs:   s.appCtx.Programs,
		Extractors: s.appCtx.Extractors,
		Policy:     restart.NewPolicy(s.appCtx.Programs, nil),
		Launcher:   launcher,
		LogStore:   logStore,
	})
	if err != nil {
		return "", err
	}

	s.stat.Add(d)
	go func() {
		if err := d.Run(jobs); err != nil {
			log.Errorf("dispatch run %s: %s", d.RunId(), err)
		}
	}()
	return d.RunId(), nil
}

// Stop stops the server. It signals running dispatch runs to shut down and
// then stops the API. Once Stop has been called, the server cannot be
// reused - future calls to Run will return an error.
//
// If stopOnSignal was set when calling Run, Stop will automatically be
// called by the server on receiving a TERM or INT signal from the OS.
// Otherwise, you must call Stop when you want to shut down the server.
func (s *Server) Stop() error {
	// Only stop once. We lock the whole Stop call, so that, if Stop is
	// called multiple times in quick succession, no calls will return
	// before the server has actually been shut down.
	s.stopMux.Lock()
	defer s.stopMux.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	log.Infof("Stopping crucible server")

	// Stop every tracked run that hasn't finished. Dispatcher.Stop blocks
	// until the run winds down or its stop timeout expires.
	for _, run := range s.stat.Running() {
		if err := s.stat.Stop(run.RunId); err != nil {
			log.Errorf("error stopping run %s: %s", run.RunId, err)
		}
	}

	err := s.api.Stop()
	close(s.apiStopped) // indicate to Run that the API is done shutting down

	if err != nil {
		return fmt.Errorf("error stopping API: %s", err)
	}
	return nil
}

// API returns the API created in Boot.
func (s *Server) API() *api.API {
	return s.api
}

// StatusManager returns the status manager created in Boot.
func (s *Server) StatusManager() status.Manager {
	return s.stat
}

// --------------------------------------------------------------------------

// Catch TERM and INT signals to gracefully shut down the server
func (s *Server) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan

	err := s.Stop()
	if err != nil {
		log.Errorf("error shutting down server: %s", err)
	}
}
