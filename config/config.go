// Copyright 2026, Crucible Sciences, Inc.

package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

///////////////////////////////////////////////////////////////////////////////
// High-Level Config Structs
///////////////////////////////////////////////////////////////////////////////

// Crucible is the config used by the crucible service. This is read from in
// bin/main.go.
type Crucible struct {
	// The config that the status/control web server will run with.
	Server `yaml:"server"`

	// The config for the dispatcher and its resource budget.
	Dispatcher Dispatcher `yaml:"dispatcher"`

	// The config for launching external programs.
	Launcher Launcher `yaml:"launcher"`

	// The config for connecting to the try-log database. If DSN is empty,
	// try logs are kept in memory only.
	Db SQLDb `yaml:"db"`
}

///////////////////////////////////////////////////////////////////////////////
// Config Components
///////////////////////////////////////////////////////////////////////////////

// Dispatcher configures one dispatch run.
type Dispatcher struct {
	// Total execution slots (cores) available to the run.
	Slots uint `yaml:"slots"`

	// The job folder file to load and dispatch.
	FolderFile string `yaml:"folder_file"`

	// Default retry count for jobs that don't set their own.
	DefaultRetry uint `yaml:"default_retry"`
}

// Launcher configures how execution units are started.
type Launcher struct {
	// The MPI launch command used for parallel resource grants
	// (ex: "mpirun", "mpiexec"). Defaults to "mpirun".
	MPIRun string `yaml:"mpirun"`

	// Default walltime limit (milliseconds) applied to jobs that don't
	// set their own. Zero means no limit.
	DefaultTimeLimit uint `yaml:"default_time_limit"`
}

// Server is the configuration for a web server.
type Server struct {
	// The address the server will listen on (ex: "127.0.0.1:9340").
	Addr string `yaml:"addr"`

	// The TLS config used by the server.
	TLS `yaml:"tls"`
}

// SQLDb is the configuration for a SQL database.
type SQLDb struct {
	// The full Data Source Name (DSN) of the sql database (see
	// https://github.com/go-sql-driver/mysql#dsn-data-source-name).
	// "parseTime=true" is always appended, so you don't need to add it.
	DSN string `yaml:"dsn"`

	// The TLS config used to connect to the sql database.
	TLS `yaml:"tls"`
}

// TLS configuration.
type TLS struct {
	// The certificate file to use.
	CertFile string `yaml:"cert_file"`

	// The key file to use.
	KeyFile string `yaml:"key_file"`

	// The CA file to use.
	CAFile string `yaml:"ca_file"`
}

///////////////////////////////////////////////////////////////////////////////
// Loading Config
///////////////////////////////////////////////////////////////////////////////

// Defaults returns a Crucible config with working development defaults:
// one slot, in-memory try logs, no API TLS.
func Defaults() Crucible {
	return Crucible{
		Server: Server{
			Addr: "127.0.0.1:9340",
		},
		Dispatcher: Dispatcher{
			Slots:      1,
			FolderFile: "jobs.yaml",
		},
		Launcher: Launcher{
			MPIRun: "mpirun",
		},
	}
}

// Env returns the value of the environment variable if set, else the
// default.
func Env(envVar, def string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return def
}

// Load loads a configuration file into the struct pointed to by the
// configStruct argument.
func Load(configFile string, configStruct interface{}) error {
	// Make sure the file exists.
	_, err := os.Stat(configFile)
	if err != nil {
		return err
	}

	// Read the file.
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}

	// Unmarshal the contents of the file into the provided struct.
	err = yaml.Unmarshal(data, configStruct)
	if err != nil {
		return err
	}

	return nil
}
