// Copyright 2026, Crucible Sciences, Inc.

package main

import (
	"log"

	"github.com/crucible-sci/crucible/app"
	"github.com/crucible-sci/crucible/server"
)

func main() {
	s := server.NewServer(app.Defaults())
	if err := s.Boot(); err != nil {
		log.Fatalf("Error starting crucible: %s", err)
	}
	err := s.Run(true)
	log.Fatalf("crucible stopped: %s", err)
}
