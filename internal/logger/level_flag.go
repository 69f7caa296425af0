package logger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levelStrings = map[string]zapcore.Level{
	"debug": zap.DebugLevel,
	"info":  zap.InfoLevel,
	"warn":  zap.WarnLevel,
	"error": zap.ErrorLevel,
}

// ParseLevel converts a level name or a positive debug verbosity to a zap level.
// Verbosity n maps to zap level -n, which logr.Logger.V(n) writes at.
func ParseLevel(s string) (zapcore.Level, error) {
	if level, ok := levelStrings[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 127 {
		return zapcore.InvalidLevel, fmt.Errorf("invalid log level %q", s)
	}
	return zapcore.Level(int8(-n)), nil // zap has the levels backwards
}

type levelFlagValue struct {
	onLevel func(zapcore.Level)
	value   string
}

func newLevelFlagValue(onLevel func(zapcore.Level)) levelFlagValue {
	return levelFlagValue{onLevel: onLevel}
}

func (lfv *levelFlagValue) Set(flagValue string) error {
	level, err := ParseLevel(flagValue)
	if err != nil {
		return err
	}
	lfv.onLevel(level)
	lfv.value = flagValue
	return nil
}

func (lfv *levelFlagValue) String() string {
	return lfv.value
}

func (*levelFlagValue) Type() string {
	return "level"
}

var _ pflag.Value = &levelFlagValue{}
