/*
Copyright 2026, Crucible Sciences, Inc.

Package config provides the ability to load config files into predefined
structures used by Crucible. The service uses the Crucible struct in
bin/main.go; it carries all of the config needed to load a job folder,
dispatch it against a resource budget, and serve the status API.

Types of config structs provided by this package:

* Crucible: all of the config needed to run the service

* Dispatcher: the resource budget and job folder for a dispatch run

* Launcher: how external programs are started (the MPI launch command for
parallel jobs, the default walltime limit)

* Server: the configuration for running the status/control web server

* SQLDb: the configuration for connecting to the try-log database

* TLS: certificate, key, and CA files, used by both Server and SQLDb
*/
package config
