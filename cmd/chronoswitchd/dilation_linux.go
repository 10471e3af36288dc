// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package main

import (
	"github.com/grimmlab/chronoswitch/internal/dilation"
	dilationlinux "github.com/grimmlab/chronoswitch/internal/dilation/linux"
)

// newLinuxDilationService binds to the real kernel time-dilation
// module at the conventional device path.
func newLinuxDilationService() dilation.Service {
	return dilationlinux.NewService("/dev/tdf_ctl")
}
