// Copyright 2026, Crucible Sciences, Inc.

// Package app provides the service's execution context: config, hooks, and
// factories. The context is explicit and scoped to a run; nothing about
// how jobs launch is ambient or process-global. Sites override factories
// and hooks to integrate their own launchers, stores, and auth.
package app

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"

	"github.com/crucible-sci/crucible/config"
	"github.com/crucible-sci/crucible/db"
	"github.com/crucible-sci/crucible/extract"
	"github.com/crucible-sci/crucible/joblog"
	"github.com/crucible-sci/crucible/process"
	"github.com/crucible-sci/crucible/program"
	"github.com/crucible-sci/crucible/util"
)

type Context struct {
	Hooks     Hooks
	Factories Factories

	Config config.Crucible

	// Programs and Extractors are the explicit registries of supported
	// external programs. bin/main.go registers the built-ins; sites
	// register their own.
	Programs   program.Registry
	Extractors extract.Registry
}

type Factories struct {
	MakeLauncher func(Context) (process.Launcher, error)
	MakeLogStore func(Context) (joblog.Store, error)
}

type Hooks struct {
	LoadConfig func(Context) (config.Crucible, error)
	Auth       func(*http.Request) (bool, error)
}

func Defaults() Context {
	return Context{
		Factories: Factories{
			MakeLauncher: MakeLauncher,
			MakeLogStore: MakeLogStore,
		},
		Hooks: Hooks{
			LoadConfig: LoadConfig,
		},
		Config:     config.Defaults(),
		Programs:   program.NewRegistry(),
		Extractors: extract.NewRegistry(),
	}
}

func LoadConfig(appCtx Context) (config.Crucible, error) {
	cfg := config.Defaults()
	configFile := os.Getenv("CRUCIBLE_CONFIG")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if err := config.Load(configFile, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MakeLauncher is the default launcher factory: local execution, with the
// configured MPI launch command for parallel grants.
func MakeLauncher(appCtx Context) (process.Launcher, error) {
	return process.LocalLauncher{
		MPIRun: appCtx.Config.Launcher.MPIRun,
	}, nil
}

// MakeLogStore is the default try-log store factory: MySQL when a DSN is
// configured, in-memory otherwise.
func MakeLogStore(appCtx Context) (joblog.Store, error) {
	cfg := appCtx.Config.Db
	if cfg.DSN == "" {
		return joblog.NewMemoryStore(), nil
	}
	var tlsConfig *tls.Config
	if cfg.TLS.CAFile != "" && cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		var err error
		tlsConfig, err = util.NewTLSConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading db TLS config: %s", err)
		}
	}
	dbc := db.NewConnectionPool(10, 5, cfg.DSN, tlsConfig)
	return joblog.NewSQLStore(dbc), nil
}
