// Package util holds process-level helpers: logger setup and socat-backed
// virtual serial pairs for running against the firmware simulator.
package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"

	"Hydrosync/internal/model"
)

// SetupLogger points the global zerolog logger at a rotating log file, a
// console writer on stderr and any extra writers. An empty cfg.File skips
// the file.
func SetupLogger(cfg model.LoggingConfig, writers ...io.Writer) error {
	var out []io.Writer
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return err
		}
		out = append(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    5,
			MaxBackups: 3,
		})
	}
	out = append(out, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	out = append(out, writers...)

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.MultiLevelWriter(out...)).
		With().Timestamp().Caller().Logger()
	return nil
}
