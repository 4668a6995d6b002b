// Package main is the entry point of the Hydrosync bench station.
// It loads the configuration, opens the serial link, and runs the telemetry
// pipeline and the dashboard until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"Hydrosync/internal/app"
	"Hydrosync/internal/core"
	"Hydrosync/internal/device"
	"Hydrosync/internal/model"
	"Hydrosync/internal/recorder"
	"Hydrosync/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	port := flag.String("port", "", `serial port override ("auto" to discover)`)
	baud := flag.Int("baud", 0, "baud rate override")
	addr := flag.String("addr", "", "dashboard listen address override")
	flag.Parse()

	osFs := afero.NewOsFs()
	cfg, usedDefaults, err := loadConfig(osFs, *cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hydrosync: %v\n", err)
		os.Exit(2)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *addr != "" {
		cfg.Dashboard.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "hydrosync: %v\n", err)
		os.Exit(2)
	}

	if err := util.SetupLogger(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "hydrosync: setup logging: %v\n", err)
		os.Exit(1)
	}
	if usedDefaults {
		log.Warn().Str("path", *cfgPath).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("path", *cfgPath).Msg("using config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, osFs, cfg)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("station failed")
		os.Exit(1)
	}
	log.Info().Msg("station stopped cleanly")
}

// loadConfig reads path, falling back to defaults when it does not exist.
func loadConfig(fsys afero.Fs, path string) (*model.Config, bool, error) {
	cfg, err := model.LoadConfig(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		def := model.DefaultConfig()
		return &def, true, nil
	}
	return cfg, false, err
}

func run(ctx context.Context, fsys afero.Fs, cfg *model.Config) error {
	hub := app.NewHub()

	var rec core.SampleRecorder
	if cfg.Recorder.Enabled {
		csvLog, err := recorder.Open(fsys, cfg.Recorder.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := csvLog.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close csv log")
			}
		}()
		log.Info().Str("path", cfg.Recorder.Path).Msg("recording samples")
		rec = csvLog
	}

	station := core.NewStation(cfg, device.DefaultOpener, hub, rec)
	server, err := app.NewServer(cfg.Dashboard, station, hub)
	if err != nil {
		return err
	}
	return station.Run(ctx, server.Serve)
}
