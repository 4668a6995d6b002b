// Bench firmware simulator: emits telemetry on a serial device and obeys
// START, STOP and SIMULINK_ANALOG commands, so the station can run without
// hardware. With -virtual it creates a socat pty pair first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"Hydrosync/internal/device"
	"Hydrosync/internal/model"
	"Hydrosync/internal/util"
)

func main() {
	dev := flag.String("dev", "/tmp/ttyBENCH1", "serial device the simulator owns")
	peer := flag.String("peer", "/tmp/ttyBENCH0", "device the station opens when -virtual is set")
	virtual := flag.Bool("virtual", false, "create a socat pty pair linking -peer and -dev")
	baud := flag.Int("baud", 115200, "baud rate")
	interval := flag.Duration("interval", 100*time.Millisecond, "time between telemetry records")
	mode := flag.String("mode", "motor", "firmware mode: motor, power or flow")
	load := flag.Float64("load", 220, "simulated load resistance in ohms")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	if err := util.SetupLogger(model.LoggingConfig{Debug: *debug}); err != nil {
		fmt.Fprintf(os.Stderr, "simulator: %v\n", err)
		os.Exit(1)
	}
	kind, err := parseMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, simOptions{
		dev:      *dev,
		peer:     *peer,
		virtual:  *virtual,
		baud:     *baud,
		interval: *interval,
		kind:     kind,
		load:     *load,
	}, openSerial)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("simulator failed")
		os.Exit(1)
	}
}

type simOptions struct {
	dev      string
	peer     string
	virtual  bool
	baud     int
	interval time.Duration
	kind     model.Kind
	load     float64
}

func openSerial(dev string, baud int, readTimeout time.Duration) (device.Conn, error) {
	return device.NewSerialDevice(dev, baud, readTimeout)
}

func run(ctx context.Context, opts simOptions, open device.Opener) error {
	if opts.virtual {
		socat := util.NewSocatManager()
		defer socat.Cleanup()
		if err := socat.CreatePair(opts.peer, opts.dev, 3*time.Second); err != nil {
			return fmt.Errorf("create virtual serial pair: %w", err)
		}
		log.Info().Str("station_port", opts.peer).Msg("point the station at the peer port")
	}

	conn, err := open(opts.dev, opts.baud, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("open serial: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close serial")
		}
	}()

	sim := device.NewSimulator("bench-sim", conn, opts.kind, opts.interval)
	sim.LoadOhms = opts.load
	return sim.Run(ctx)
}

func parseMode(mode string) (model.Kind, error) {
	switch mode {
	case "motor":
		return model.KindMotor, nil
	case "power":
		return model.KindPower, nil
	case "flow":
		return model.KindFlow, nil
	default:
		return model.KindGeneric, fmt.Errorf("unknown mode %q", mode)
	}
}
