// Package testutil holds helpers shared by hostbridge tests.
package testutil

import (
	"flag"
	"testing"

	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/obinnaokechukwu/hostbridge/internal/logger"
)

func NewLogForTesting(name string) logr.Logger {
	log := logger.New(name, logger.Options{})
	log.SetLevel(zapcore.ErrorLevel)
	if !flag.Parsed() {
		flag.Parse() // Needed to test if verbose flag was present.
	}
	if testing.Verbose() {
		log.SetLevel(zapcore.DebugLevel)
	}
	return log.Logger.WithValues("test", true)
}
