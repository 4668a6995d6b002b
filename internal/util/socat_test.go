package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"-d", "-d",
		"pty,raw,echo=0,link=/tmp/ttyV0",
		"pty,raw,echo=0,link=/tmp/ttyV1",
	}, pairArgs("/tmp/ttyV0", "/tmp/ttyV1"))
}

func TestWaitForLinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "ttyV0")
	require.NoError(t, os.WriteFile(present, nil, 0o600))

	require.NoError(t, waitForLinks(time.Second, present))
	err := waitForLinks(50*time.Millisecond, present, filepath.Join(dir, "ttyV1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttyV1")
}

func TestSocatManager_MissingBinary(t *testing.T) {
	t.Parallel()

	m := NewSocatManager()
	m.Binary = filepath.Join(t.TempDir(), "no-socat")
	require.Error(t, m.CreatePair("/tmp/a", "/tmp/b", time.Millisecond))
}

func TestSocatManager_CleanupRemovesLinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	left, right := filepath.Join(dir, "ttyV0"), filepath.Join(dir, "ttyV1")
	require.NoError(t, os.WriteFile(left, nil, 0o600))

	m := NewSocatManager()
	m.links = []string{left, right}
	m.Cleanup()
	m.Cleanup()

	_, err := os.Lstat(left)
	assert.True(t, os.IsNotExist(err))
	require.Error(t, m.CreatePair(left, right, time.Millisecond))
}
