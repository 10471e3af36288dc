// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package main

import (
	"log"

	"github.com/grimmlab/chronoswitch/internal/dilation"
	dilationsim "github.com/grimmlab/chronoswitch/internal/dilation/sim"
)

// newLinuxDilationService has no kernel module to bind to outside
// Linux; it falls back to the in-memory simulation backend, matching
// how the teacher's own non-Linux stubs (proxy_stub.go, netns_stub.go)
// degrade to a no-op rather than failing the build.
func newLinuxDilationService() dilation.Service {
	log.Printf("chronoswitchd: linux dilation backend unavailable on this platform, using in-memory sim backend")
	return dilationsim.NewService()
}
