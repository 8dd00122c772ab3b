// Copyright 2026, Crucible Sciences, Inc.

package config_test

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/go-test/deep"

	"github.com/crucible-sci/crucible/config"
)

func createTempFile(t *testing.T, content []byte) string {
	tmpfile, err := ioutil.TempFile("", "for_test")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tmpfile.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	return tmpfile.Name()
}

func TestLoadConfigFileNotExist(t *testing.T) {
	// Config file doesn't exist.
	err := config.Load("nonexistant_file.txt", nil)
	if !os.IsNotExist(err) {
		t.Errorf("expected a 'file does not exist' error, did not get one")
	}
}

func TestLoadConfigBadContent(t *testing.T) {
	// Config file exists, but contains bad content.
	content := []byte("%%---invalid_yaml")
	fileName := createTempFile(t, content)
	defer os.Remove(fileName)

	var actualConfig config.Crucible
	err := config.Load(fileName, &actualConfig)
	if err == nil {
		t.Error("expected an error, did not get one")
	}
}

func TestLoadConfigCrucible(t *testing.T) {
	// Valid crucible config file
	content := []byte(`
---
server:
  addr: ":9340"
dispatcher:
  slots: 16
  folder_file: /data/campaign/jobs.yaml
  default_retry: 2
launcher:
  mpirun: mpiexec
  default_time_limit: 7200000
db:
  dsn: root:@localhost:3306/crucible_development
`)
	fileName := createTempFile(t, content)
	defer os.Remove(fileName)

	var actualConfig config.Crucible
	err := config.Load(fileName, &actualConfig)
	if err != nil {
		t.Errorf("err = %s, expected nil", err)
	}

	expectedConfig := config.Crucible{
		Server: config.Server{
			Addr: ":9340",
		},
		Dispatcher: config.Dispatcher{
			Slots:        16,
			FolderFile:   "/data/campaign/jobs.yaml",
			DefaultRetry: 2,
		},
		Launcher: config.Launcher{
			MPIRun:           "mpiexec",
			DefaultTimeLimit: 7200000, // 2h in ms
		},
		Db: config.SQLDb{
			DSN: "root:@localhost:3306/crucible_development",
		},
	}
	if diff := deep.Equal(actualConfig, expectedConfig); diff != nil {
		t.Error(diff)
	}
}

func TestDefaults(t *testing.T) {
	def := config.Defaults()
	if def.Server.Addr == "" {
		t.Error("default server addr is empty")
	}
	if def.Dispatcher.Slots == 0 {
		t.Error("default slots is 0, expected > 0")
	}
	if def.Launcher.MPIRun == "" {
		t.Error("default mpirun command is empty")
	}
}

func TestEnv(t *testing.T) {
	os.Setenv("CRUCIBLE_TEST_VAR", "set")
	defer os.Unsetenv("CRUCIBLE_TEST_VAR")
	if got := config.Env("CRUCIBLE_TEST_VAR", "default"); got != "set" {
		t.Errorf("got %s, expected set", got)
	}
	if got := config.Env("CRUCIBLE_TEST_VAR_UNSET", "default"); got != "default" {
		t.Errorf("got %s, expected default", got)
	}
}
