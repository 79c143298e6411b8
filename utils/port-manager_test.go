package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPortAvailable(t *testing.T) {
	// Test available port (dynamic allocation)
	assert.True(t, IsPortAvailable("127.0.0.1", 0), "Port 0 should always be available (OS picks free port)")
}

func TestIsPortAvailable_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "Failed to create test listener")
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	assert.False(t, IsPortAvailable("127.0.0.1", addr.Port), "Port %d should be unavailable (in use)", addr.Port)
}

func TestIsPortAvailable_InvalidPortNumbers(t *testing.T) {
	for _, port := range []int{-1, 65536, 100000} {
		assert.False(t, IsPortAvailable("127.0.0.1", port), "Invalid port %d should return false", port)
	}
}

func TestNormalizeListenAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{"bare port", "12000", "localhost:12000", false},
		{"colon port", ":13000", "localhost:13000", false},
		{"host and port", "0.0.0.0:13000", "0.0.0.0:13000", false},
		{"ipv6", "[::1]:8080", "[::1]:8080", false},
		{"empty", "", "", true},
		{"not a port", "abc", "", true},
		{"port out of range", "localhost:70000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeListenAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckListenAddress(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	assert.Error(t, CheckListenAddress(listener.Addr().String()))
	assert.NoError(t, CheckListenAddress("127.0.0.1:0"))
}
