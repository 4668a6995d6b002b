package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/model"
	"Hydrosync/internal/testutils"
)

func TestCommander_SendDisconnected(t *testing.T) {
	t.Parallel()

	m := NewMetrics(nil)
	c := NewCommander(nil, 3.3, m)
	err := c.Send(context.Background(), model.ActionStart, nil)
	require.ErrorIs(t, err, ErrWriteFailure)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.CommandsFailed.WithLabelValues("START")), 0)

	require.ErrorIs(t, c.Start(context.Background()), ErrWriteFailure)
	assert.False(t, c.Running())
}

func TestCommander_Send(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	m := NewMetrics(nil)
	c := NewCommander(conn, 3.3, m)

	require.NoError(t, c.Send(context.Background(), model.ActionAnalog, model.Float(2.5)))
	assert.Equal(t, []string{"{\"action\":\"SIMULINK_ANALOG\",\"value\":2.5}\n"}, conn.Writes())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.CommandsSent.WithLabelValues("SIMULINK_ANALOG")), 0)
}

func TestCommander_SendErrors(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	c := NewCommander(conn, 3.3, nil)

	err := c.Send(context.Background(), model.Action("JUMP"), nil)
	require.ErrorIs(t, err, ErrEncodingFailure)

	err = c.Send(context.Background(), model.ActionAnalog, model.Float(math.Inf(1)))
	require.ErrorIs(t, err, ErrEncodingFailure)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Send(ctx, model.ActionStop, nil)
	require.ErrorIs(t, err, ErrWriteFailure)
	require.ErrorIs(t, err, context.Canceled)

	conn.WriteError = errors.New("usb unplugged")
	err = c.Send(context.Background(), model.ActionStop, nil)
	require.ErrorIs(t, err, ErrWriteFailure)
	assert.Empty(t, conn.Writes())

	conn.WriteError = nil
	require.NoError(t, conn.Close())
	err = c.Send(context.Background(), model.ActionStop, nil)
	require.ErrorIs(t, err, ErrWriteFailure)
}

func TestCommander_StartStopOnlyOnChange(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	c := NewCommander(conn, 3.3, nil)
	ctx := context.Background()

	require.NoError(t, c.Stop(ctx))
	assert.Empty(t, conn.Writes())

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Running())
	require.NoError(t, c.Stop(ctx))
	assert.False(t, c.Running())

	assert.Equal(t, []string{
		"{\"action\":\"START\",\"value\":null}\n",
		"{\"action\":\"STOP\",\"value\":null}\n",
	}, conn.Writes())
}

func TestCommander_SetAnalogClamps(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	c := NewCommander(conn, 3.3, nil)
	ctx := context.Background()

	got, err := c.SetAnalog(ctx, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.3, got, 0)
	assert.InDelta(t, 3.3, c.Setpoint(), 0)

	got, err = c.SetAnalog(ctx, -1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 0)

	assert.Equal(t, []string{
		"{\"action\":\"SIMULINK_ANALOG\",\"value\":3.3}\n",
		"{\"action\":\"SIMULINK_ANALOG\",\"value\":0}\n",
	}, conn.Writes())
}

func TestCommander_SetpointKeptOnFailure(t *testing.T) {
	t.Parallel()

	c := NewCommander(nil, 3.3, nil)
	_, err := c.SetAnalog(context.Background(), 1.0)
	require.ErrorIs(t, err, ErrWriteFailure)
	assert.InDelta(t, 0.0, c.Setpoint(), 0)

	conn := testutils.NewMockConn()
	c.Attach(conn)
	_, err = c.SetAnalog(context.Background(), 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Setpoint(), 0)
}

func TestCommander_Apply(t *testing.T) {
	t.Parallel()

	conn := testutils.NewMockConn()
	c := NewCommander(conn, 3.3, nil)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, model.Command{Action: model.ActionStart}))
	require.NoError(t, c.Apply(ctx, model.Command{Action: model.ActionAnalog, Value: model.Float(1.2)}))
	require.ErrorIs(t, c.Apply(ctx, model.Command{Action: model.ActionAnalog}), ErrEncodingFailure)
	require.ErrorIs(t, c.Apply(ctx, model.Command{Action: "JUMP"}), ErrEncodingFailure)
	require.NoError(t, c.Apply(ctx, model.Command{Action: model.ActionStop}))
	assert.Len(t, conn.Writes(), 3)
}

func TestCommander_PendingWriteDoesNotBlockReaders(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	conn := testutils.NewMockConn()
	conn.WriteFunc = func([]byte) error {
		close(entered)
		<-release
		return nil
	}
	cmd := NewCommander(conn, 3.3, nil)

	started := make(chan error, 1)
	go func() { started <- cmd.Start(context.Background()) }()
	<-entered

	q := NewQueue()
	rendered := make(chan model.View, 1)
	c := newTestConsumer(q, RendererFunc(func(v model.View) { rendered <- v }))
	c.Setpoint = cmd.Setpoint
	q.Push(motorSample(1.5))

	ticked := make(chan bool, 1)
	go func() { ticked <- c.Tick() }()
	select {
	case ok := <-ticked:
		if assert.True(t, ok) {
			v := <-rendered
			assert.InDelta(t, 0.0, v.Gauges[model.GaugeAnalog], 0)
		}
	case <-time.After(time.Second):
		t.Error("consumer tick waited on a pending command write")
	}
	assert.False(t, cmd.Running())
	assert.InDelta(t, 0.0, cmd.Setpoint(), 0)

	close(release)
	require.NoError(t, <-started)
	assert.True(t, cmd.Running())
	if t.Failed() {
		<-ticked
	}
}
