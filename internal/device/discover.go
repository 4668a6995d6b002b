package device

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// listPorts is replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// Discover returns the first USB serial port, or the first port of any kind
// when no USB port is present.
func Discover() (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("%w: enumerate ports: %v", ErrPortUnavailable, err)
	}
	return pickPort(ports)
}

func pickPort(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p != nil && p.IsUSB {
			return p.Name, nil
		}
	}
	for _, p := range ports {
		if p != nil && p.Name != "" {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no serial ports found", ErrPortUnavailable)
}
