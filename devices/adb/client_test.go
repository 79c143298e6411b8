package adb

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdb writes a shell script standing in for the adb binary.
func fakeAdb(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb is a shell script")
	}

	path := filepath.Join(t.TempDir(), "adb")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestClient_ExecuteStream(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    string
		wantErr string
	}{
		{
			name:   "success",
			script: "printf '0003 0035 00000001'",
			want:   "0003 0035 00000001",
		},
		{
			name:    "non-zero exit",
			script:  "echo 'sendevent: /dev/input/event2: Permission denied' >&2\nexit 1",
			wantErr: "Permission denied",
		},
		{
			name:    "output then failure",
			script:  "printf 'partial'\nexit 2",
			want:    "partial",
			wantErr: "exit status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(fakeAdb(t, tt.script), "emulator-5554")

			stream, err := client.Execute(context.Background(), "sendevent", "/dev/input/event2", "3", "53", "1")
			require.NoError(t, err)

			out, err := io.ReadAll(stream)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))

			err = stream.Close()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTransient))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "exec-out sendevent")
		})
	}
}

func TestClient_ExecuteStream_StoppedEarly(t *testing.T) {
	client := NewClient(fakeAdb(t, "printf 'more output'\nexit 3"), "")

	stream, err := client.Execute(context.Background(), "getevent")
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = stream.Read(buf)
	require.NoError(t, err)

	assert.NoError(t, stream.Close(), "a reader that stops before EOF does not see the exit status")
}

func TestClient_ExecuteStream_Cancelled(t *testing.T) {
	client := NewClient(fakeAdb(t, "exec sleep 5"), "")
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := client.Execute(ctx, "getevent", "/dev/input/event2")
	require.NoError(t, err)

	cancel()
	assert.NoError(t, stream.Close())
}

func TestClient_ExecuteAndReadText(t *testing.T) {
	client := NewClient(fakeAdb(t, "printf 'Physical size: 1080x2400\\r\\n'"), "R5CR1234567")

	out, err := client.ExecuteAndReadText(context.Background(), "wm", "size")
	require.NoError(t, err)
	assert.Equal(t, "Physical size: 1080x2400", out)

	failing := NewClient(fakeAdb(t, "echo 'error: device offline'\nexit 1"), "R5CR1234567")
	_, err = failing.ExecuteAndReadText(context.Background(), "wm", "size")
	assert.True(t, errors.Is(err, ErrTransient))
	assert.Contains(t, err.Error(), "device offline")
}
