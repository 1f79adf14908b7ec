//go:build !windows

package main

import (
	"artloop/core"
	"artloop/logging"
)

// RunAsService is a no-op off Windows; the process always runs interactively.
func RunAsService(*core.Config, *logging.Logger) (bool, error) {
	return false, nil
}

// HandleServiceCommand is a no-op off Windows.
func HandleServiceCommand([]string) bool {
	return false
}
