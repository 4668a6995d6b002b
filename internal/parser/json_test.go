package parser

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/model"
)

var testTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func TestJSONParser_DecodeSample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		record   string
		want     map[string]float64
		wantKind model.Kind
	}{
		{
			name:     "motor firmware",
			record:   `{"motor_cmd_v": 1.23}`,
			want:     map[string]float64{"motor_cmd_v": 1.23},
			wantKind: model.KindMotor,
		},
		{
			name:   "power firmware",
			record: `{"voltage": 1.23, "current": 0.45, "UR": 10, "LR": 20, "power": 30, "charge": 80}`,
			want: map[string]float64{
				"voltage": 1.23, "current": 0.45, "UR": 10, "LR": 20, "power": 30, "charge": 80,
			},
			wantKind: model.KindPower,
		},
		{
			name:     "partial power fields",
			record:   `{"voltage":2.0,"current":0.1}`,
			want:     map[string]float64{"voltage": 2.0, "current": 0.1},
			wantKind: model.KindPower,
		},
		{
			name:     "coercible values",
			record:   `{"voltage":"3.5","charge":true,"label":"x","nested":{"a":1},"none":null}`,
			want:     map[string]float64{"voltage": 3.5, "charge": 1},
			wantKind: model.KindPower,
		},
		{
			name:     "unknown keys",
			record:   `{"rpm": 1200}`,
			want:     map[string]float64{"rpm": 1200},
			wantKind: model.KindGeneric,
		},
	}

	p := NewJSONParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := p.DecodeSample([]byte(tt.record), testTime)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Fields)
			assert.Equal(t, tt.wantKind, s.Kind)
			assert.Equal(t, testTime, s.At)
		})
	}
}

func TestJSONParser_DecodeSample_Malformed(t *testing.T) {
	t.Parallel()

	records := []string{
		`not json`,
		`{"voltage": 1.0`,
		`{"voltage": 1.0}}`,
		`{"a":1} {"b":2}`,
		`42`,
		`"text"`,
		`null`,
		`[1,2,3]`,
		"\x00\xff",
		`{}`,
		`{"status":"ok"}`,
		`{"a":[1,2]}`,
		`{"label":"x","none":null,"nested":{"v":1}}`,
	}

	p := NewJSONParser()
	for _, rec := range records {
		_, err := p.DecodeSample([]byte(rec), testTime)
		require.Error(t, err, "record %q", rec)
		assert.ErrorIs(t, err, ErrMalformedRecord, "record %q", rec)
	}
}

func TestJSONParser_EncodeCommand(t *testing.T) {
	t.Parallel()

	p := NewJSONParser()

	b, err := p.EncodeCommand(model.Command{Action: model.ActionStart})
	require.NoError(t, err)
	assert.Equal(t, "{\"action\":\"START\",\"value\":null}\n", string(b))

	b, err = p.EncodeCommand(model.Command{Action: model.ActionAnalog, Value: model.Float(2.5)})
	require.NoError(t, err)
	assert.Equal(t, "{\"action\":\"SIMULINK_ANALOG\",\"value\":2.5}\n", string(b))
}

func TestJSONParser_EncodeCommand_Failures(t *testing.T) {
	t.Parallel()

	p := NewJSONParser()

	_, err := p.EncodeCommand(model.Command{Action: "REBOOT"})
	require.ErrorIs(t, err, ErrEncodingFailure)

	_, err = p.EncodeCommand(model.Command{Action: model.ActionAnalog, Value: model.Float(math.NaN())})
	require.ErrorIs(t, err, ErrEncodingFailure)

	_, err = p.EncodeCommand(model.Command{Action: model.ActionAnalog, Value: model.Float(math.Inf(1))})
	require.ErrorIs(t, err, ErrEncodingFailure)
}

func TestJSONParser_CommandRoundTrip(t *testing.T) {
	t.Parallel()

	p := NewJSONParser()
	wire, err := p.EncodeCommand(model.Command{Action: model.ActionAnalog, Value: model.Float(2.5)})
	require.NoError(t, err)

	got, err := p.DecodeCommand(wire)
	require.NoError(t, err)
	assert.Equal(t, model.ActionAnalog, got.Action)
	require.NotNil(t, got.Value)
	assert.InDelta(t, 2.5, *got.Value, 1e-9)
}

func TestJSONParser_DecodeCommand_Invalid(t *testing.T) {
	t.Parallel()

	p := NewJSONParser()
	_, err := p.DecodeCommand([]byte(`{"action":"FLY","value":1}`))
	require.ErrorIs(t, err, ErrMalformedRecord)

	_, err = p.DecodeCommand([]byte(`{"action":`))
	require.ErrorIs(t, err, ErrMalformedRecord)
}

func TestAutoParser_Dispatch(t *testing.T) {
	t.Parallel()

	p := NewAutoParser()

	s, err := p.DecodeSample([]byte("[0.5,1.2,3.4,5.6]"), testTime)
	require.NoError(t, err)
	assert.Equal(t, model.KindFlow, s.Kind)

	s, err = p.DecodeSample([]byte(`{"motor_cmd_v":0.7}`), testTime)
	require.NoError(t, err)
	assert.Equal(t, model.KindMotor, s.Kind)

	_, err = p.DecodeSample([]byte("garbage"), testTime)
	require.ErrorIs(t, err, ErrMalformedRecord)
}
