package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/device"
	"Hydrosync/internal/model"
	"Hydrosync/internal/testutils"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	for mode, want := range map[string]model.Kind{
		"motor": model.KindMotor,
		"power": model.KindPower,
		"flow":  model.KindFlow,
	} {
		got, err := parseMode(mode)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseMode("turbine")
	require.Error(t, err)
}

func TestRun_OpenErrorFails(t *testing.T) {
	t.Parallel()

	openErr := errors.New("no such device")
	err := run(context.Background(), simOptions{dev: "/dev/ttyNONE", baud: 115200, interval: time.Second},
		func(string, int, time.Duration) (device.Conn, error) { return nil, openErr })
	require.ErrorIs(t, err, openErr)
}

func TestRun_ClosesConnOnCancel(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	var gotDev string
	var gotBaud int
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, simOptions{dev: "/tmp/ttyBENCH1", baud: 9600, interval: time.Second, kind: model.KindPower},
		func(dev string, baud int, _ time.Duration) (device.Conn, error) {
			gotDev, gotBaud = dev, baud
			return conn, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ttyBENCH1", gotDev)
	assert.Equal(t, 9600, gotBaud)
	assert.Equal(t, 1, conn.CloseCount())
}
