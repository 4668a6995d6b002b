package util

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"Hydrosync/internal/syncutil"
)

// SocatManager manages socat-created virtual serial pairs, so the station
// and the firmware simulator can talk without hardware.
type SocatManager struct {
	// Binary is the socat executable, looked up in PATH.
	Binary string
	cmds   []*exec.Cmd
	links  []string
	mu     syncutil.Mutex
	closed bool
}

// NewSocatManager initializes an empty manager.
func NewSocatManager() *SocatManager {
	return &SocatManager{Binary: "socat"}
}

func pairArgs(left, right string) []string {
	return []string{
		"-d", "-d",
		fmt.Sprintf("pty,raw,echo=0,link=%s", left),
		fmt.Sprintf("pty,raw,echo=0,link=%s", right),
	}
}

// CreatePair starts a socat process that links two PTYs at the given paths
// and waits up to timeout for both links to appear.
func (m *SocatManager) CreatePair(left, right string, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("socat manager already cleaned up")
	}

	cmd := exec.Command(m.Binary, pairArgs(left, right)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start socat: %w", err)
	}
	m.cmds = append(m.cmds, cmd)
	m.links = append(m.links, left, right)
	log.Info().Str("component", "virt-serial").Int("pid", cmd.Process.Pid).
		Str("left", left).Str("right", right).Msg("started socat")

	return waitForLinks(timeout, left, right)
}

func waitForLinks(timeout time.Duration, paths ...string) error {
	deadline := time.Now().Add(timeout)
	for _, p := range paths {
		for {
			if _, err := os.Lstat(p); err == nil {
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("virtual port %s did not appear within %s", p, timeout)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
	return nil
}

// Cleanup stops all socat processes and removes the links they created.
func (m *SocatManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	for _, cmd := range m.cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn().Err(err).Str("component", "virt-serial").Int("pid", cmd.Process.Pid).Msg("kill socat")
		}
		_ = cmd.Wait()
	}
	for _, path := range m.links {
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("component", "virt-serial").Str("path", path).Msg("remove link")
		}
	}
	log.Info().Str("component", "virt-serial").Int("pairs", len(m.links)/2).Msg("cleanup complete")
}
