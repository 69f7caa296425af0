package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/obinnaokechukwu/hostbridge"
	"github.com/obinnaokechukwu/hostbridge/cmd/hostbridge/commands"
	"github.com/obinnaokechukwu/hostbridge/internal/logger"
)

const (
	errCommandError = 1
	errSetup        = 2
	errPanic        = 3
)

func main() {
	log := logger.New("hostbridge", logger.Options{})

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "hostbridge: panic: %v\n", r)
			log.Flush()
			os.Exit(errPanic)
		}
	}()

	root, err := commands.NewRootCmd(log)
	if err != nil {
		exit(log, err, errSetup)
	}

	if err = root.ExecuteContext(context.Background()); err != nil {
		exit(log, err, errCommandError)
	}
	log.Flush()
}

func exit(log *logger.Logger, err error, code int) {
	var be *hostbridge.Error
	if errors.As(err, &be) {
		log.Error(err, "command failed", "kind", be.Kind.String())
	} else {
		log.Error(err, "command failed")
	}
	fmt.Fprintln(os.Stderr, err.Error())
	log.Flush()
	os.Exit(code)
}
