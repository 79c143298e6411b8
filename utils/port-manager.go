package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NormalizeListenAddress accepts "8080", ":8080" or "host:8080" and returns
// a host:port pair. A missing host means localhost.
func NormalizeListenAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("listen address is empty")
	}

	if !strings.Contains(addr, ":") {
		if _, err := strconv.Atoi(addr); err != nil {
			return "", fmt.Errorf("invalid port: %v", err)
		}
		addr = ":" + addr
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %q", portStr)
	}
	if host == "" {
		host = "localhost"
	}

	return net.JoinHostPort(host, portStr), nil
}

func IsPortAvailable(host string, port int) bool {
	Verbose("Checking if port %d is available on %s", port, host)
	listener, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.ParseIP(host), Port: port})
	if err != nil {
		Verbose("error: %v", err)
		return false
	}

	defer listener.Close()
	return true
}

// CheckListenAddress fails when something already listens on addr.
func CheckListenAddress(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", addr, err)
	}
	return listener.Close()
}
