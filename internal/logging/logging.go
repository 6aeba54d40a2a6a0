// Package logging configures the shared chainci logger.
package logging

import (
	stdlog "log"
	"os"

	"github.com/op/go-logging"
)

// Setup installs the stdout backend and applies the configured level to
// the "chainci" logger.
func Setup(level string) {
	if level == "" {
		level = "INFO"
	}

	logging.SetFormatter(logging.MustStringFormatter("%{level} %{message}"))
	logging.SetBackend(logging.NewLogBackend(os.Stdout, "", stdlog.LstdFlags))

	logLevel, err := logging.LogLevel(level)
	if err != nil {
		stdlog.Fatal(err)
	}
	logging.SetLevel(logLevel, "chainci")
}
