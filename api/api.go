// Copyright 2026, Crucible Sciences, Inc.

// Package api provides controllers for each api endpoint. Controllers are
// "dumb wiring"; there is little to no application logic in this package.
// Controllers call and coordinate other packages to satisfy the api
// endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/crucible-sci/crucible/app"
	"github.com/crucible-sci/crucible/errors"
	"github.com/crucible-sci/crucible/status"
	v "github.com/crucible-sci/crucible/version"
)

const (
	API_ROOT = "/api/v1/"
)

// API provides controllers for endpoints it registers with a router.
type API struct {
	appCtx app.Context
	stat   status.Manager
	// --
	echo *echo.Echo
}

// NewAPI creates a new API struct. It initializes an echo web server within
// the struct, and registers all of the API's routes with it.
func NewAPI(appCtx app.Context, stat status.Manager) *API {
	api := &API{
		appCtx: appCtx,
		stat:   stat,
		// --
		echo: echo.New(),
	}

	// //////////////////////////////////////////////////////////////////////
	// Routes
	// //////////////////////////////////////////////////////////////////////
	// Get the status of all tracked dispatch runs.
	api.echo.GET(API_ROOT+"status/running", api.statusRunningHandler)
	// Get the status of one dispatch run.
	api.echo.GET(API_ROOT+"runs/:runId/status", api.statusRunHandler)
	// Get the extracted results of one dispatch run.
	api.echo.GET(API_ROOT+"runs/:runId/results", api.resultsRunHandler)
	// Stop a dispatch run.
	api.echo.PUT(API_ROOT+"runs/:runId/stop", api.stopRunHandler)
	// Return the version of this service.
	api.echo.GET("/version", api.versionHandler)

	// //////////////////////////////////////////////////////////////////////
	// Middleware and hooks
	// //////////////////////////////////////////////////////////////////////
	api.echo.Use(middleware.Recover())
	api.echo.Use(middleware.Logger())

	// Auth hook
	api.echo.Use((func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if appCtx.Hooks.Auth == nil {
				return next(c) // no auth
			}
			ok, err := appCtx.Hooks.Auth(c.Request())
			if err != nil {
				return err
			}
			if !ok {
				return echo.ErrUnauthorized // 401
			}
			return next(c) // auth OK
		}
	}))

	return api
}

// Run runs the API server. It blocks until the server is shut down.
func (api *API) Run() error {
	cfg := api.appCtx.Config.Server
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return api.echo.StartTLS(cfg.Addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}
	return api.echo.Start(cfg.Addr)
}

// Stop shuts the API server down.
func (api *API) Stop() error {
	cfg := api.appCtx.Config.Server
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return api.echo.TLSServer.Shutdown(context.TODO())
	}
	return api.echo.Server.Shutdown(context.TODO())
}

func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.echo.ServeHTTP(w, r)
}

// ============================== CONTROLLERS ============================== //

// GET <API_ROOT>/status/running
// Get the status of every tracked dispatch run.
func (api *API) statusRunningHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, api.stat.Running())
}

// GET <API_ROOT>/runs/:runId/status
// Get the status of one dispatch run.
func (api *API) statusRunHandler(c echo.Context) error {
	runId := c.Param("runId")
	runStatus, err := api.stat.Get(runId)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, runStatus)
}

// GET <API_ROOT>/runs/:runId/results
// Get the extracted results of one dispatch run, keyed by folder path.
func (api *API) resultsRunHandler(c echo.Context) error {
	runId := c.Param("runId")
	results, err := api.stat.Results(runId)
	if err != nil {
		return handleError(err)
	}
	return c.JSON(http.StatusOK, results)
}

// PUT <API_ROOT>/runs/:runId/stop
// Stop a dispatch run. Running processes are cancelled; their working
// directories are preserved for later resumption.
func (api *API) stopRunHandler(c echo.Context) error {
	runId := c.Param("runId")
	if err := api.stat.Stop(runId); err != nil {
		return handleError(err)
	}
	return c.NoContent(http.StatusOK)
}

// GET /version
func (api *API) versionHandler(c echo.Context) error {
	return c.String(http.StatusOK, v.Version())
}

// ------------------------------------------------------------------------- //

func handleError(err error) *echo.HTTPError {
	switch err.(type) {
	case errors.RunNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		log.Errorf("api: internal error: %s", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
