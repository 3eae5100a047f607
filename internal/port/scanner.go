package port

import (
	"fmt"
	"net"
)

// Scanner checks whether ports are free on the host by binding them.
//
// Binding is the only check that agrees with what the Docker daemon will
// see; parsing /proc/net or shelling out to lsof needs privileges and
// differs per platform.
type Scanner struct {
	// Host is the bind address. Empty means all interfaces, which is
	// where Docker publishes ports by default.
	Host string
}

// NewScanner creates a Scanner that checks all interfaces.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether port can be bound for protocol
// ("tcp" or "udp"). Unknown protocols and out-of-range ports report false.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	if port < 1 || port > 65535 {
		return false
	}
	addr := net.JoinHostPort(s.Host, fmt.Sprint(port))

	switch protocol {
	case "tcp", "":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = listener.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		return false
	}
}

// FindAvailablePort returns the first free port in [startPort, endPort].
// The scan is sequential so the suggestion is stable between runs.
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}
