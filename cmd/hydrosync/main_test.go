package main

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Hydrosync/internal/model"
)

func TestLoadConfig_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	cfg, usedDefaults, err := loadConfig(afero.NewMemMapFs(), "configs/config.yml")
	require.NoError(t, err)
	assert.True(t, usedDefaults)
	assert.Equal(t, model.DefaultConfig(), *cfg)
}

func TestLoadConfig_ReportsInvalidFile(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "c.yml", []byte("serial:\n  baud: -1\n"), 0o644))
	_, usedDefaults, err := loadConfig(fsys, "c.yml")
	require.Error(t, err)
	assert.False(t, usedDefaults)
}
