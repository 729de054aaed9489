package core

import (
	"os"

	"github.com/op/go-logging"
)

// Logger used by the vjnet packages
var log = logging.MustGetLogger("vjnet")

// GetLogger returns the shared module logger, for packages layered on core.
func GetLogger() *logging.Logger {
	return log
}

func ConfigureLogger(verbose bool) {
	var format = logging.MustStringFormatter(
		`%{color}%{time:15:04:05.000000} %{shortfunc} %{level:s} %{id:03x}%{color:reset} ▶ %{message}`,
	)

	backend := logging.NewLogBackend(os.Stderr, "[VJNET] ", 0)
	backendformatter := logging.NewBackendFormatter(backend, format)
	backendLeveled := logging.AddModuleLevel(backendformatter)

	if verbose {
		backendLeveled.SetLevel(logging.DEBUG, "")
	} else {
		backendLeveled.SetLevel(logging.WARNING, "")
	}

	log.SetBackend(backendLeveled)
}
