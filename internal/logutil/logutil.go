// Package logutil holds small helpers around go-logging shared by the
// gerenuk packages.
package logutil

import (
	"io"

	"github.com/op/go-logging"
)

// OrSilent returns log, or a logger for module which discards
// everything if log is nil.
func OrSilent(log *logging.Logger, module string) *logging.Logger {
	if log != nil {
		return log
	}
	return Silent(module)
}

// Silent returns a logger with its own backend writing nowhere. It does
// not touch the process-wide go-logging backend.
func Silent(module string) *logging.Logger {
	l, err := logging.GetLogger(module)
	if err != nil {
		l = &logging.Logger{Module: module}
	}
	backend := logging.AddModuleLevel(logging.NewLogBackend(io.Discard, "", 0))
	backend.SetLevel(logging.CRITICAL, "")
	l.SetBackend(backend)
	return l
}
