package recorder

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/model"
)

var testTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

const header = "timestamp,flow(L_s),current(A),power(W),voltage(V),UR,LR,charge,motor_cmd_v,kind"

func readLines(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestCSV_WritesHeaderOnce(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rec, err := Open(fs, "logs/hydro_log.csv")
	require.NoError(t, err)

	rec.Record(model.Sample{At: testTime, Kind: model.KindFlow, Fields: map[string]float64{
		"flow": 0.5, "current": 2, "power": 24, "voltage": 12,
	}})
	rec.Record(model.Sample{At: testTime.Add(time.Second), Kind: model.KindMotor, Fields: map[string]float64{
		"motor_cmd_v": 1.5,
	}})
	require.NoError(t, rec.Close())

	assert.Equal(t, []string{
		header,
		"2025-03-14 09:26:53,0.5,2,24,12,0,0,0,0,flow",
		"2025-03-14 09:26:54,0,0,0,0,0,0,0,1.5,motor",
	}, readLines(t, fs, "logs/hydro_log.csv"))
	assert.Zero(t, rec.Failures())
}

func TestCSV_AppendsToExistingFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	first, err := Open(fs, "hydro_log.csv")
	require.NoError(t, err)
	first.Record(model.Sample{At: testTime, Kind: model.KindPower, Fields: map[string]float64{"charge": 80}})
	require.NoError(t, first.Close())

	second, err := Open(fs, "hydro_log.csv")
	require.NoError(t, err)
	second.Record(model.Sample{At: testTime, Kind: model.KindPower, Fields: map[string]float64{"charge": 81}})
	require.NoError(t, second.Close())

	lines := readLines(t, fs, "hydro_log.csv")
	require.Len(t, lines, 3)
	assert.Equal(t, header, lines[0])
	assert.True(t, strings.HasSuffix(lines[2], ",81,0,power"))
}

func TestCSV_RecordAfterCloseCountsFailure(t *testing.T) {
	t.Parallel()

	rec, err := Open(afero.NewMemMapFs(), "hydro_log.csv")
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rec.Record(model.Sample{At: testTime, Kind: model.KindMotor})
	assert.Equal(t, int64(1), rec.Failures())
}

func TestOpen_ReadOnlyFs(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := Open(fs, "hydro_log.csv")
	require.Error(t, err)
}
